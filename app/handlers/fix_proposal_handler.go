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

// FixProposalHandlerInterface defines the knowledge deployment pipeline endpoints
type FixProposalHandlerInterface interface {
	CreateFixProposal(c fiber.Ctx) error
	ListFixProposals(c fiber.Ctx) error
	GetFixProposal(c fiber.Ctx) error
	ListFixProposalAudits(c fiber.Ctx) error
	StartTesting(c fiber.Ctx) error
	ValidateFixProposal(c fiber.Ctx) error
	DeployFixProposal(c fiber.Ctx) error
	RollbackFixProposal(c fiber.Ctx) error
	EvaluateMonitoring(c fiber.Ctx) error
}

type FixProposalHandler struct {
	flow      businessflow.FixProposalFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewFixProposalHandler(flow businessflow.FixProposalFlow, logger *zap.Logger) FixProposalHandlerInterface {
	return &FixProposalHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

func (h *FixProposalHandler) action(c fiber.Ctx) dto.FixProposalActionRequest {
	return dto.FixProposalActionRequest{
		TenantID: middleware.TenantID(c),
		Actor:    middleware.Actor(c),
		UUID:     c.Params("uuid"),
	}
}

// CreateFixProposal proposes a fix by hand
// @Summary Create Fix Proposal
// @Tags Fix Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateFixProposalRequest true "Fix proposal"
// @Success 201 {object} dto.APIResponse{data=dto.FixProposalResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/fix-proposals [post]
func (h *FixProposalHandler) CreateFixProposal(c fiber.Ctx) error {
	var req dto.CreateFixProposalRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}
	req.TenantID = middleware.TenantID(c)
	req.Actor = middleware.Actor(c)

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals")
	defer cancel()

	res, err := h.flow.Create(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to create fix proposal", "FIX_PROPOSAL_SAVE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusCreated, res.Message, res)
}

// ListFixProposals lists the caller's fix proposals, newest first
// @Summary List Fix Proposals
// @Tags Fix Proposals
// @Produce json
// @Security BearerAuth
// @Param status query string false "Status filter"
// @Param field_name query string false "Field name filter"
// @Param limit query int false "Page size (default 20, max 100)"
// @Param offset query int false "Offset"
// @Success 200 {object} dto.APIResponse{data=dto.ListFixProposalsResponse}
// @Failure 400 {object} dto.APIResponse "Validation error"
// @Router /api/v1/fix-proposals [get]
func (h *FixProposalHandler) ListFixProposals(c fiber.Ctx) error {
	req := dto.ListFixProposalsRequest{
		TenantID:  middleware.TenantID(c),
		Status:    c.Query("status"),
		FieldName: c.Query("field_name"),
	}
	req.Limit = fiber.Query[int](c, "limit", 0)
	req.Offset = fiber.Query[int](c, "offset", 0)
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals")
	defer cancel()

	res, err := h.flow.List(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to list fix proposals", "FIX_PROPOSAL_LIST_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// GetFixProposal returns one proposal with its audit trail
// @Summary Get Fix Proposal
// @Tags Fix Proposals
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Fix proposal UUID"
// @Success 200 {object} dto.APIResponse{data=dto.FixProposalResponse}
// @Failure 404 {object} dto.APIResponse "Fix proposal not found"
// @Router /api/v1/fix-proposals/{uuid} [get]
func (h *FixProposalHandler) GetFixProposal(c fiber.Ctx) error {
	proposalUUID := c.Params("uuid")
	if _, err := uuid.Parse(proposalUUID); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid fix proposal UUID", "INVALID_UUID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals/:uuid")
	defer cancel()

	res, err := h.flow.Get(ctx, middleware.TenantID(c), proposalUUID)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to retrieve fix proposal", "FIX_PROPOSAL_FETCH_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ListFixProposalAudits returns the audit trail of one proposal
// @Summary Fix Proposal Audit Trail
// @Tags Fix Proposals
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Fix proposal UUID"
// @Success 200 {object} dto.APIResponse{data=dto.ListFixProposalAuditsResponse}
// @Failure 404 {object} dto.APIResponse "Fix proposal not found"
// @Router /api/v1/fix-proposals/{uuid}/audit [get]
func (h *FixProposalHandler) ListFixProposalAudits(c fiber.Ctx) error {
	proposalUUID := c.Params("uuid")
	if _, err := uuid.Parse(proposalUUID); err != nil {
		return ErrorResponse(c, fiber.StatusBadRequest, "Invalid fix proposal UUID", "INVALID_UUID", nil)
	}

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals/:uuid/audit")
	defer cancel()

	res, err := h.flow.ListAudits(ctx, middleware.TenantID(c), proposalUUID)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to load audit trail", "FIX_PROPOSAL_AUDITS_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// StartTesting moves a proposal into testing
// @Summary Start Testing
// @Tags Fix Proposals
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Fix proposal UUID"
// @Success 200 {object} dto.APIResponse{data=dto.FixProposalResponse}
// @Failure 409 {object} dto.APIResponse "Invalid transition"
// @Router /api/v1/fix-proposals/{uuid}/testing [post]
func (h *FixProposalHandler) StartTesting(c fiber.Ctx) error {
	req := h.action(c)
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals/:uuid/testing")
	defer cancel()

	res, err := h.flow.StartTesting(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to start testing", "FIX_PROPOSAL_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// ValidateFixProposal records test results and checks them against the validation gates
// @Summary Validate Fix Proposal
// @Description Every unmet gate is reported; the measured results are kept even when validation fails
// @Tags Fix Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Fix proposal UUID"
// @Param request body dto.ValidateFixProposalRequest true "Measured test results"
// @Success 200 {object} dto.APIResponse{data=dto.FixProposalResponse}
// @Failure 409 {object} dto.APIResponse "Validation gate failed or invalid transition"
// @Router /api/v1/fix-proposals/{uuid}/validate [post]
func (h *FixProposalHandler) ValidateFixProposal(c fiber.Ctx) error {
	var req dto.ValidateFixProposalRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.FixProposalActionRequest = h.action(c)
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals/:uuid/validate")
	defer cancel()

	res, err := h.flow.Validate(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to validate fix proposal", "FIX_PROPOSAL_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// DeployFixProposal applies a validated proposal to production knowledge
// @Summary Deploy Fix Proposal
// @Description Deploys at most once, only inside the deployment window, and starts the monitoring period
// @Tags Fix Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Fix proposal UUID"
// @Param request body dto.DeployFixProposalRequest false "Deployment notes"
// @Success 200 {object} dto.APIResponse{data=dto.FixProposalResponse}
// @Failure 409 {object} dto.APIResponse "Concurrent deployment, invalid transition or outside deployment window"
// @Router /api/v1/fix-proposals/{uuid}/deploy [post]
func (h *FixProposalHandler) DeployFixProposal(c fiber.Ctx) error {
	var req dto.DeployFixProposalRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.FixProposalActionRequest = h.action(c)
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals/:uuid/deploy")
	defer cancel()

	res, err := h.flow.Deploy(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to deploy fix proposal", "FIX_PROPOSAL_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// RollbackFixProposal reverts a deployed proposal within the rollback window
// @Summary Roll Back Fix Proposal
// @Tags Fix Proposals
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param uuid path string true "Fix proposal UUID"
// @Param request body dto.RollbackFixProposalRequest true "Rollback reason"
// @Success 200 {object} dto.APIResponse{data=dto.FixProposalResponse}
// @Failure 400 {object} dto.APIResponse "Reason required"
// @Failure 409 {object} dto.APIResponse "Rollback window expired or invalid transition"
// @Router /api/v1/fix-proposals/{uuid}/rollback [post]
func (h *FixProposalHandler) RollbackFixProposal(c fiber.Ctx) error {
	var req dto.RollbackFixProposalRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
	}
	req.FixProposalActionRequest = h.action(c)
	if ok, err := validate(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals/:uuid/rollback")
	defer cancel()

	res, err := h.flow.Rollback(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Failed to roll back fix proposal", "FIX_PROPOSAL_UPDATE_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}

// EvaluateMonitoring resolves every proposal whose monitoring window has closed
// @Summary Evaluate Monitoring (Admin)
// @Description Mark monitored proposals as successful or roll them back based on post-deployment results
// @Tags Admin Fix Proposals
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=dto.EvaluateMonitoringResponse}
// @Failure 403 {object} dto.APIResponse "Admin role required"
// @Router /api/v1/fix-proposals/monitoring/evaluate [post]
func (h *FixProposalHandler) EvaluateMonitoring(c fiber.Ctx) error {
	ctx, cancel := createRequestContext(c, "/api/v1/fix-proposals/monitoring/evaluate")
	defer cancel()

	res, err := h.flow.EvaluateMonitoring(ctx)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Monitoring evaluation failed", "MONITORING_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}
