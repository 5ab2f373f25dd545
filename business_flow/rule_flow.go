package businessflow

import (
	"context"
	"errors"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/rules"
	"go.uber.org/zap"
)

// RuleFlow dry-runs surcharge rule trees
type RuleFlow interface {
	EvaluateRule(ctx context.Context, req *dto.EvaluateRuleRequest) (*dto.EvaluateRuleResponse, error)
}

type RuleFlowImpl struct {
	registry *rules.Registry
	logger   *zap.Logger
}

// NewRuleFlow creates a rule flow. A nil registry uses the built-in node kinds.
func NewRuleFlow(registry *rules.Registry, logger *zap.Logger) RuleFlow {
	if registry == nil {
		registry = rules.NewRegistry()
	}
	return &RuleFlowImpl{registry: registry, logger: logger}
}

func (f *RuleFlowImpl) EvaluateRule(ctx context.Context, req *dto.EvaluateRuleRequest) (*dto.EvaluateRuleResponse, error) {
	node, err := f.registry.Decode(req.Rule)
	if err != nil {
		return nil, NewBusinessError("RULE_INVALID", "Invalid rule tree", errors.Join(ErrRuleInvalid, err))
	}

	if err := f.registry.Validate(node); err != nil {
		return nil, NewBusinessError("RULE_INVALID", "Invalid rule tree", errors.Join(ErrRuleInvalid, err))
	}

	ev := f.registry.NewEvaluator()
	result, err := ev.Eval(node, rules.NewContext(req.Context))
	if err != nil {
		if rules.IsConfigurationError(err) {
			return nil, NewBusinessError("RULE_INVALID", "Invalid rule tree", errors.Join(ErrRuleInvalid, err))
		}
		flowLogger(ctx, f.logger).Warn("rule evaluation failed", zap.Error(err))
		return nil, NewBusinessError("RULE_EVALUATION_FAILED", "Rule evaluation failed", err)
	}

	refs := rules.RefKeys(node)
	if refs == nil {
		refs = []string{}
	}
	return &dto.EvaluateRuleResponse{
		Message: "Rule evaluated successfully",
		Result:  result,
		Steps:   ev.Steps(),
		Refs:    refs,
	}, nil
}
