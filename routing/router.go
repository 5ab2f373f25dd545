// Package routing classifies extracted fields by confidence into processing tiers
package routing

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/amirphl/quote-core/utils"
)

// Tier is the downstream processing class for an extracted field
type Tier string

const (
	TierAutoAccept   Tier = "AUTO_ACCEPT"
	TierAgentVerify  Tier = "AGENT_VERIFY"
	TierAgentExtract Tier = "AGENT_EXTRACT"
	TierHumanReview  Tier = "HUMAN_REVIEW"
)

// String returns the string representation of the tier
func (t Tier) String() string {
	return string(t)
}

// Valid checks if the tier is valid
func (t Tier) Valid() bool {
	switch t {
	case TierAutoAccept, TierAgentVerify, TierAgentExtract, TierHumanReview:
		return true
	default:
		return false
	}
}

// Strictness orders tiers from least (0) to most (3) manual effort
func (t Tier) Strictness() int {
	switch t {
	case TierAutoAccept:
		return 0
	case TierAgentVerify:
		return 1
	case TierAgentExtract:
		return 2
	default:
		return 3
	}
}

// Action describes what happens to a field routed to a tier
type Action struct {
	Name      string `json:"name"`
	CostClass string `json:"cost_class"`
}

// Action returns the downstream action for the tier
func (t Tier) Action() Action {
	switch t {
	case TierAutoAccept:
		return Action{Name: "accept", CostClass: "none"}
	case TierAgentVerify:
		return Action{Name: "schedule_verification", CostClass: "low"}
	case TierAgentExtract:
		return Action{Name: "schedule_reextraction", CostClass: "medium"}
	default:
		return Action{Name: "flag_for_review", CostClass: "manual"}
	}
}

// Route maps a confidence score to its tier. Boundaries are inclusive on the lower side.
func Route(confidence float64) Tier {
	switch {
	case math.IsNaN(confidence):
		return TierHumanReview
	case confidence >= utils.AutoAcceptThreshold:
		return TierAutoAccept
	case confidence >= utils.AgentVerifyThreshold:
		return TierAgentVerify
	case confidence >= utils.AgentExtractThreshold:
		return TierAgentExtract
	default:
		return TierHumanReview
	}
}

// FieldRoute is the routing annotation for one field
type FieldRoute struct {
	Field      string  `json:"field"`
	Value      string  `json:"value"`
	Confidence float64 `json:"confidence"`
	Tier       Tier    `json:"tier"`
	// MissingConfidence is set when the extractor reported no score for the field
	MissingConfidence bool `json:"missing_confidence,omitempty"`
}

// Annotate routes every field in values. A field without a confidence is routed as 0.
// The result is sorted by field name.
func Annotate(values map[string]string, confidences map[string]float64) []FieldRoute {
	routes := make([]FieldRoute, 0, len(values))
	for field, value := range values {
		c, ok := confidences[field]
		routes = append(routes, FieldRoute{
			Field:             field,
			Value:             value,
			Confidence:        c,
			Tier:              Route(c),
			MissingConfidence: !ok,
		})
	}
	slices.SortFunc(routes, func(a, b FieldRoute) int {
		return strings.Compare(a.Field, b.Field)
	})
	return routes
}

// Counts returns the number of fields per tier
func Counts(routes []FieldRoute) map[Tier]int {
	counts := make(map[Tier]int, 4)
	for _, r := range routes {
		counts[r.Tier]++
	}
	return counts
}

// Policy decides how HUMAN_REVIEW fields affect downstream calculation
type Policy string

const (
	PolicyBlock             Policy = "block"
	PolicyProceedUnverified Policy = "proceed_unverified"
)

// ParsePolicy validates a configured policy name
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyBlock, PolicyProceedUnverified:
		return p, nil
	default:
		return "", fmt.Errorf("unknown human review policy %q", s)
	}
}

// HumanReviewRequiredError is returned by Gate under PolicyBlock
type HumanReviewRequiredError struct {
	Fields []string
}

func (e *HumanReviewRequiredError) Error() string {
	return fmt.Sprintf("fields require human review before calculation: %s", strings.Join(e.Fields, ", "))
}

// Decision is the outcome of gating a routed document
type Decision struct {
	// Unverified lists HUMAN_REVIEW fields used as extracted
	Unverified []string `json:"unverified"`
	// PendingVerification lists AGENT_VERIFY and AGENT_EXTRACT fields scheduled for a secondary pass
	PendingVerification []string `json:"pending_verification"`
}

// Gate applies policy to routed fields
func Gate(routes []FieldRoute, policy Policy) (Decision, error) {
	var d Decision
	for _, r := range routes {
		switch r.Tier {
		case TierHumanReview:
			d.Unverified = append(d.Unverified, r.Field)
		case TierAgentVerify, TierAgentExtract:
			d.PendingVerification = append(d.PendingVerification, r.Field)
		}
	}
	if len(d.Unverified) > 0 && policy != PolicyProceedUnverified {
		return Decision{}, &HumanReviewRequiredError{Fields: d.Unverified}
	}
	return d, nil
}
