package handlers

import (
	"github.com/amirphl/quote-core/app/dto"
	businessflow "github.com/amirphl/quote-core/business_flow"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

type RuleHandlerInterface interface {
	EvaluateRule(c fiber.Ctx) error
}

type RuleHandler struct {
	flow      businessflow.RuleFlow
	validator *validator.Validate
	logger    *zap.Logger
}

func NewRuleHandler(flow businessflow.RuleFlow, logger *zap.Logger) RuleHandlerInterface {
	return &RuleHandler{
		flow:      flow,
		validator: validator.New(),
		logger:    logger,
	}
}

// EvaluateRule dry-runs a rule tree
// @Summary Evaluate Rule
// @Description Evaluate a rule tree against a context and report the result and the context keys it references
// @Tags Rules
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.EvaluateRuleRequest true "Rule tree and context"
// @Success 200 {object} dto.APIResponse{data=dto.EvaluateRuleResponse}
// @Failure 400 {object} dto.APIResponse "Malformed rule or evaluation error"
// @Router /api/v1/rules/evaluate [post]
func (h *RuleHandler) EvaluateRule(c fiber.Ctx) error {
	var req dto.EvaluateRuleRequest
	if ok, err := bindJSON(c, h.validator, &req); !ok {
		return err
	}

	ctx, cancel := createRequestContext(c, "/api/v1/rules/evaluate")
	defer cancel()

	res, err := h.flow.EvaluateRule(ctx, &req)
	if err != nil {
		return handleFlowError(c, h.logger, err, "Rule evaluation failed", "RULE_EVALUATION_FAILED")
	}
	return SuccessResponse(c, fiber.StatusOK, res.Message, res)
}
