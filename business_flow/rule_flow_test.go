package businessflow

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expressRule = `{"type":"logical","op":"AND","operands":[
	{"type":"compare","op":">","left":{"type":"ref","key":"distance_km"},"right":{"type":"literal","value":50}},
	{"type":"compare","op":"==","left":{"type":"ref","key":"audience"},"right":{"type":"literal","value":"vip"}}
]}`

func TestRuleFlow(t *testing.T) {
	flow := NewRuleFlow(nil, nil)
	ctx := context.Background()

	t.Run("Evaluates", func(t *testing.T) {
		resp, err := flow.EvaluateRule(ctx, &dto.EvaluateRuleRequest{
			Rule: json.RawMessage(expressRule),
			Context: map[string]rules.Value{
				"distance_km": rules.Int(75),
				"audience":    rules.String("vip"),
			},
		})
		require.NoError(t, err)
		assert.True(t, resp.Result.Equal(rules.Bool(true)))
		assert.Positive(t, resp.Steps)
		assert.ElementsMatch(t, []string{"audience", "distance_km"}, resp.Refs)
	})

	t.Run("LiteralHasNoRefs", func(t *testing.T) {
		resp, err := flow.EvaluateRule(ctx, &dto.EvaluateRuleRequest{Rule: json.RawMessage(`{"type":"literal","value":3}`)})
		require.NoError(t, err)
		assert.NotNil(t, resp.Refs)
		assert.Empty(t, resp.Refs)
	})

	t.Run("MalformedRule", func(t *testing.T) {
		_, err := flow.EvaluateRule(ctx, &dto.EvaluateRuleRequest{Rule: json.RawMessage(`{"type":"compare","op":"!=","left":{"type":"literal","value":1},"right":{"type":"literal","value":2}}`)})
		requireBusinessCode(t, err, "RULE_INVALID")
		assert.True(t, IsRuleInvalid(err))
	})

	t.Run("UnknownContextKey", func(t *testing.T) {
		_, err := flow.EvaluateRule(ctx, &dto.EvaluateRuleRequest{
			Rule:    json.RawMessage(expressRule),
			Context: map[string]rules.Value{"distance_km": rules.Int(75)},
		})
		requireBusinessCode(t, err, "RULE_INVALID")

		var keyErr *rules.UnknownContextKeyError
		require.ErrorAs(t, err, &keyErr)
		assert.Equal(t, "audience", keyErr.Key)
	})
}
