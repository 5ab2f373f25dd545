package handlers

import (
	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/middleware"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AnalysisHandlerInterface defines the pattern analysis endpoints
type AnalysisHandlerInterface interface {
	RunAnalysis(c fiber.Ctx) error
	LatestReport(c fiber.Ctx) error
	ExportReport(c fiber.Ctx) error
}

type AnalysisHandler struct {
	flow      businessflow.PatternAnalysisFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewAnalysisHandler(flow businessflow.PatternAnalysisFlow, logger *zap.Logger) AnalysisHandlerInterface {
	return &AnalysisHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// RunAnalysis analyses the caller's tenant now
// @Summary Run Pattern Analysis
// @Description Bucket failed extractions of the window, infer causes, store the ranked report and propose fixes
// @Tags Analysis
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.RunAnalysisRequest false "Optional analysis window"
// @Success 201 {object} dto.APIResponse{data=dto.AnalysisRunResponse}
// @Failure 400 {object} dto.APIResponse "Invalid window"
// @Failure 500 {object} dto.APIResponse "Analysis failed"
// @Router /api/v1/analysis/run [post]
func (h *AnalysisHandler) RunAnalysis(c fiber.Ctx) error {
	var req dto.RunAnalysisRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)
	req.Actor = middleware.Actor(c)

	ctx, cancel := createRequestContext(c, "/api/v1/analysis/run")
	defer cancel()

	res, err := h.flow.RunAnalysis(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Analysis failed", "ANALYSIS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// LatestReport returns the most recent analysis run of the caller's tenant
// @Summary Latest Analysis Report
// @Tags Analysis
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.AnalysisRunResponse}
// @Failure 404 {object} dto.APIResponse "No analysis run yet"
// @Router /api/v1/analysis/reports/latest [get]
func (h *AnalysisHandler) LatestReport(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/analysis/reports/latest")
	defer cancel()

	res, err := h.flow.LatestReport(ctx, middleware.TenantID(c))
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to load analysis report", "ANALYSIS_FETCH_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ExportReport downloads an analysis run as an xlsx workbook
// @Summary Export Analysis Report
// @Description Render the summary, patterns and recommendations of a run into an xlsx workbook
// @Tags Analysis
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param uuid path string true "Analysis run UUID"
// @Success 200 {file} file
// @Failure 400 {object} dto.APIResponse "Invalid UUID"
// @Failure 404 {object} dto.APIResponse "Analysis run not found"
// @Router /api/v1/analysis/reports/{uuid}/export [get]
func (h *AnalysisHandler) ExportReport(c fiber.Ctx) error {
	runUUID := c.Params("uuid")
	if _, err := uuid.Parse(runUUID); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid analysis run UUID", "INVALID_UUID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/analysis/reports/:uuid/export")
	defer cancel()

	export, err := h.flow.ExportReport(ctx, middleware.TenantID(c), runUUID)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to export analysis report", "ANALYSIS_EXPORT_FAILED")
	}

	c.Set(fiber.HeaderContentType, xlsxContentType)
	c.Set(fiber.HeaderContentDisposition, "attachment; filename="+export.FileName)
	return c.Send(export.Content)
}
