package handlers

import (
	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/middleware"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// ExtractionHandlerInterface defines the extraction ingestion endpoints
type ExtractionHandlerInterface interface {
	IngestExtractions(c fiber.Ctx) error
	RouteFields(c fiber.Ctx) error
}

type ExtractionHandler struct {
	flow      businessflow.ExtractionFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewExtractionHandler(flow businessflow.ExtractionFlow, logger *zap.Logger) ExtractionHandlerInterface {
	return &ExtractionHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// IngestExtractions stores routed extraction results
// @Summary Ingest Extractions
// @Description Route every field by confidence, store the results and queue fields that need a secondary pass
// @Tags Extractions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.IngestExtractionsRequest true "Extracted fields"
// @Success 201 {object} dto.APIResponse{data=dto.IngestExtractionsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 500 {object} dto.APIResponse "Ingestion failed"
// @Router /api/v1/extractions [post]
func (h *ExtractionHandler) IngestExtractions(c fiber.Ctx) error {
	var req dto.IngestExtractionsRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)

	ctx, cancel := createRequestContext(c, "/api/v1/extractions")
	defer cancel()

	res, err := h.flow.Ingest(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to ingest extractions", "EXTRACTION_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// RouteFields routes fields without storing them
// @Summary Route Fields
// @Description Dry-run the confidence router over a set of fields
// @Tags Extractions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RouteFieldsRequest true "Field values and confidences"
// @Success 200 {object} dto.APIResponse{data=dto.RouteFieldsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/extractions/route [post]
func (h *ExtractionHandler) RouteFields(c fiber.Ctx) error {
	var req dto.RouteFieldsRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/extractions/route")
	defer cancel()

	res, err := h.flow.RouteFields(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to route fields", "ROUTING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}
