package routing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteBoundaries(t *testing.T) {
	tests := []struct {
		confidence float64
		expected   Tier
	}{
		{1.0, TierAutoAccept},
		{0.92, TierAutoAccept},
		{0.919999, TierAgentVerify},
		{0.80, TierAgentVerify},
		{0.799999, TierAgentExtract},
		{0.70, TierAgentExtract},
		{0.699999, TierHumanReview},
		{0.0, TierHumanReview},
		{-0.1, TierHumanReview},
		{math.NaN(), TierHumanReview},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, Route(tt.confidence), "confidence %v", tt.confidence)
	}
}

func TestRouteIsMonotonic(t *testing.T) {
	prev := Route(0)
	for i := 1; i <= 10000; i++ {
		c := float64(i) / 10000
		tier := Route(c)
		assert.LessOrEqual(t, tier.Strictness(), prev.Strictness(), "confidence %v", c)
		assert.Equal(t, tier, Route(c), "same input yields same tier")
		prev = tier
	}
}

func TestAnnotate(t *testing.T) {
	routes := Annotate(
		map[string]string{"labor_hours": "18", "customer_name": "Tischlerei Huber", "quantity": "2,5"},
		map[string]float64{"labor_hours": 0.95, "customer_name": 0.81, "unrelated": 0.99},
	)

	require.Len(t, routes, 3)
	assert.Equal(t, "customer_name", routes[0].Field)
	assert.Equal(t, TierAgentVerify, routes[0].Tier)
	assert.Equal(t, "labor_hours", routes[1].Field)
	assert.Equal(t, TierAutoAccept, routes[1].Tier)
	assert.Equal(t, "quantity", routes[2].Field)
	assert.Equal(t, TierHumanReview, routes[2].Tier)
	assert.True(t, routes[2].MissingConfidence)

	counts := Counts(routes)
	assert.Equal(t, 1, counts[TierAutoAccept])
	assert.Equal(t, 1, counts[TierAgentVerify])
	assert.Equal(t, 1, counts[TierHumanReview])
}

func TestGate(t *testing.T) {
	routes := []FieldRoute{
		{Field: "a", Tier: TierAutoAccept},
		{Field: "b", Tier: TierAgentVerify},
		{Field: "c", Tier: TierAgentExtract},
		{Field: "d", Tier: TierHumanReview},
	}

	_, err := Gate(routes, PolicyBlock)
	var reviewErr *HumanReviewRequiredError
	require.ErrorAs(t, err, &reviewErr)
	assert.Equal(t, []string{"d"}, reviewErr.Fields)

	d, err := Gate(routes, PolicyProceedUnverified)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, d.Unverified)
	assert.Equal(t, []string{"b", "c"}, d.PendingVerification)

	d, err = Gate(routes[:2], PolicyBlock)
	require.NoError(t, err)
	assert.Empty(t, d.Unverified)
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("proceed_unverified")
	require.NoError(t, err)
	assert.Equal(t, PolicyProceedUnverified, p)

	_, err = ParsePolicy("skip")
	assert.Error(t, err)
}

func TestTierAction(t *testing.T) {
	assert.Equal(t, "none", TierAutoAccept.Action().CostClass)
	assert.Equal(t, "schedule_reextraction", TierAgentExtract.Action().Name)
	assert.Equal(t, "manual", TierHumanReview.Action().CostClass)
	assert.False(t, Tier("MAYBE").Valid())
}
