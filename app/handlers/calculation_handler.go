package handlers

import (
	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/middleware"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// CalculationHandlerInterface defines the pricing endpoints
type CalculationHandlerInterface interface {
	CreateCalculation(c fiber.Ctx) error
	GetCalculation(c fiber.Ctx) error
}

// CalculationHandler prices documents and serves stored breakdowns
type CalculationHandler struct {
	flow      businessflow.CalculationFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewCalculationHandler(flow businessflow.CalculationFlow, logger *zap.Logger) CalculationHandlerInterface {
	return &CalculationHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// CreateCalculation prices one document
// @Summary Calculate Price
// @Description Route the extracted fields, then run the tiered calculation and store the attributed breakdown.
// @Description Under the block policy any HUMAN_REVIEW field stops the calculation and nothing is stored.
// @Tags Calculations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCalculationRequest true "Document fields and inputs"
// @Success 201 {object} dto.APIResponse{data=dto.CalculationResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Failure 409 {object} dto.APIResponse "Input conflicts with an extracted field"
// @Failure 422 {object} dto.APIResponse "Human review required or configuration invalid"
// @Failure 500 {object} dto.APIResponse "Calculation failed"
// @Router /api/v1/calculations [post]
func (h *CalculationHandler) CreateCalculation(c fiber.Ctx) error {
	var req dto.CreateCalculationRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)
	req.Actor = middleware.Actor(c)

	ctx, cancel := createRequestContext(c, "/api/v1/calculations")
	defer cancel()

	res, err := h.flow.Calculate(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Calculation failed", "CALCULATION_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// GetCalculation returns a stored breakdown
// @Summary Get Calculation
// @Description Retrieve a stored calculation of the caller's tenant
// @Tags Calculations
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Calculation UUID"
// @Success 200 {object} dto.APIResponse{data=dto.CalculationResponse}
// @Failure 400 {object} dto.APIResponse "Invalid UUID"
// @Failure 404 {object} dto.APIResponse "Calculation not found"
// @Router /api/v1/calculations/{uuid} [get]
func (h *CalculationHandler) GetCalculation(c fiber.Ctx) error {
	req := dto.GetCalculationRequest{
		TenantID: middleware.TenantID(c),
		UUID:     c.Params("uuid"),
	}
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/calculations/:uuid")
	defer cancel()

	res, err := h.flow.GetCalculation(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to retrieve calculation", "CALCULATION_FETCH_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}
