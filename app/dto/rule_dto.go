package dto

import (
	"encoding/json"

	"github.com/amirphl/quote-core/rules"
)

// EvaluateRuleRequest dry-runs a rule tree against a context
type EvaluateRuleRequest struct {
	Rule    json.RawMessage        `json:"rule" validate:"required"`
	Context map[string]rules.Value `json:"context"`
}

type EvaluateRuleResponse struct {
	Message string      `json:"message"`
	Result  rules.Value `json:"result"`
	Steps   int         `json:"steps"`
	Refs    []string    `json:"refs"`
}
