package rules

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluateLiteralAndRef(t *testing.T) {
	ctx := NewContext(map[string]Value{"distance_km": Int(75)})

	v, err := Evaluate(Lit(String("hello")), ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(String("hello")))

	v, err = Evaluate(RefTo("distance_km"), ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(75)))

	_, err = Evaluate(RefTo("assembly_hours"), ctx)
	var keyErr *UnknownContextKeyError
	require.ErrorAs(t, err, &keyErr)
	assert.Equal(t, "assembly_hours", keyErr.Key)
	assert.True(t, IsConfigurationError(err))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name      string
		node      Node
		expected  bool
		expectErr bool
	}{
		{"number greater", Cmp(OpGT, Lit(Int(75)), Lit(Int(50))), true, false},
		{"number not greater", Cmp(OpGT, Lit(Int(50)), Lit(Int(50))), false, false},
		{"number greater or equal", Cmp(OpGE, Lit(Int(50)), Lit(Int(50))), true, false},
		{"number less or equal", Cmp(OpLE, Lit(MustNumber("49.99")), Lit(Int(50))), true, false},
		{"decimal equality ignores scale", Cmp(OpEQ, Lit(MustNumber("1.50")), Lit(MustNumber("1.5"))), true, false},
		{"numeric string coerces", Cmp(OpLT, Lit(String(" 12.5 ")), Lit(Int(13))), true, false},
		{"number against numeric string", Cmp(OpEQ, Lit(Int(7)), Lit(String("7"))), true, false},
		{"strings compare lexically", Cmp(OpLT, Lit(String("apple")), Lit(String("banana"))), true, false},
		{"numeric strings compare lexically with each other", Cmp(OpLT, Lit(String("10")), Lit(String("9"))), true, false},
		{"bool equality", Cmp(OpEQ, Lit(Bool(true)), Lit(Bool(true))), true, false},
		{"bool ordering rejected", Cmp(OpGT, Lit(Bool(true)), Lit(Bool(false))), false, true},
		{"non-numeric string against number", Cmp(OpGT, Lit(String("far")), Lit(Int(1))), false, true},
		{"bool against number", Cmp(OpEQ, Lit(Bool(true)), Lit(Int(1))), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Evaluate(tt.node, NewContext(nil))
			if tt.expectErr {
				var mismatch *TypeMismatchError
				assert.ErrorAs(t, err, &mismatch)
				return
			}
			require.NoError(t, err)
			b, ok := v.AsBool()
			require.True(t, ok)
			assert.Equal(t, tt.expected, b)
		})
	}
}

func TestLogicalShortCircuit(t *testing.T) {
	ctx := NewContext(nil)

	// The second operand would fail if it were evaluated
	v, err := Evaluate(And(Lit(Bool(false)), RefTo("missing")), ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(Bool(false)))

	v, err = Evaluate(Or(Lit(Bool(true)), RefTo("missing")), ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(Bool(true)))

	_, err = Evaluate(And(Lit(Bool(true)), RefTo("missing")), ctx)
	var keyErr *UnknownContextKeyError
	assert.ErrorAs(t, err, &keyErr)

	v, err = Evaluate(And(), ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(Bool(true)))

	v, err = Evaluate(Or(), ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(Bool(false)))

	_, err = Evaluate(And(Lit(Bool(true)), Lit(Int(1))), ctx)
	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestIfNeverEvaluatesUntakenBranch(t *testing.T) {
	tree := IfThen(
		Cmp(OpGT, RefTo("distance_km"), Lit(Int(50))),
		RefTo("long_haul_fee"),
		RefTo("short_haul_fee"),
	)

	v, err := Evaluate(tree, NewContext(map[string]Value{
		"distance_km":   Int(75),
		"long_haul_fee": Int(120),
	}))
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(120)))

	v, err = Evaluate(tree, NewContext(map[string]Value{
		"distance_km":    Int(30),
		"short_haul_fee": Int(40),
	}))
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(40)))

	_, err = Evaluate(IfThen(Lit(Int(1)), Lit(Int(1)), Lit(Int(2))), NewContext(nil))
	var mismatch *TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)
}

func TestDistanceSurchargeRuleFromJSON(t *testing.T) {
	raw := `{
		"type": "if",
		"condition": {"type": "compare", "op": ">", "left": {"type": "ref", "key": "distance_km"}, "right": {"type": "literal", "value": 50}},
		"then": {"type": "literal", "value": 100},
		"else": {"type": "literal", "value": 50}
	}`
	node, err := Decode([]byte(raw))
	require.NoError(t, err)

	tests := []struct {
		distance int64
		expected string
	}{
		{75, "100"},
		{30, "50"},
		{50, "50"},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("distance %d", tt.distance), func(t *testing.T) {
			v, err := Evaluate(node, NewContext(map[string]Value{"distance_km": Int(tt.distance)}))
			require.NoError(t, err)
			n, ok := v.AsNumber()
			require.True(t, ok)
			assert.True(t, n.Equal(decimal.RequireFromString(tt.expected)))
		})
	}
}

func TestEvaluationStepsBoundedByTreeSize(t *testing.T) {
	tree := IfThen(
		And(
			Cmp(OpGE, RefTo("order_value"), Lit(Int(1000))),
			Or(Cmp(OpEQ, RefTo("vip"), Lit(Bool(true))), Cmp(OpGT, RefTo("line_count"), Lit(Int(3)))),
		),
		Lit(Int(0)),
		Lit(Int(25)),
	)
	ctx := NewContext(map[string]Value{
		"order_value": Int(1500),
		"vip":         Bool(false),
		"line_count":  Int(5),
	})

	require.NoError(t, Validate(tree))
	ev := NewRegistry().NewEvaluator()
	v, err := ev.Eval(tree, ctx)
	require.NoError(t, err)
	assert.True(t, v.Equal(Int(0)))
	assert.LessOrEqual(t, ev.Steps(), countNodes(tree))
}

func countNodes(n Node) int {
	total := 1
	if p, ok := n.(Parent); ok {
		for _, c := range p.Children() {
			total += countNodes(c)
		}
	}
	return total
}

func TestDecodeRejectsMalformedTrees(t *testing.T) {
	deep := Node(Lit(Bool(true)))
	for range MaxDepth + 2 {
		deep = And(deep)
	}
	deepJSON, err := json.Marshal(deep)
	require.NoError(t, err)

	wide := make([]string, 0, MaxNodes+1)
	for range MaxNodes + 1 {
		wide = append(wide, `{"type":"literal","value":true}`)
	}
	wideJSON := `{"type":"logical","op":"OR","operands":[` + strings.Join(wide, ",") + `]}`

	tests := []struct {
		name string
		raw  string
	}{
		{"not an object", `[1,2]`},
		{"missing type", `{"value": 1}`},
		{"missing operand", `{"type":"compare","op":">","left":{"type":"literal","value":1}}`},
		{"bad comparison operator", `{"type":"compare","op":"!=","left":{"type":"literal","value":1},"right":{"type":"literal","value":2}}`},
		{"bad logical operator", `{"type":"logical","op":"XOR","operands":[]}`},
		{"null literal", `{"type":"literal","value":null}`},
		{"empty ref key", `{"type":"ref","key":""}`},
		{"too deep", string(deepJSON)},
		{"too many nodes", wideJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			var malformed *MalformedRuleError
			require.ErrorAs(t, err, &malformed)
			assert.True(t, IsConfigurationError(err))
		})
	}

	_, err = Decode([]byte(`{"type":"regex","pattern":".*"}`))
	var kindErr *UnknownNodeKindError
	require.ErrorAs(t, err, &kindErr)
	assert.Equal(t, Kind("regex"), kindErr.Kind)
}

func TestEncodeDecodeKeepsTree(t *testing.T) {
	tree := IfThen(
		Or(Cmp(OpGE, RefTo("assembly_hours"), Lit(MustNumber("2.5"))), Cmp(OpEQ, RefTo("audience"), Lit(String("vip")))),
		Lit(MustNumber("75.00")),
		Lit(Int(0)),
	)
	data, err := json.Marshal(tree)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	again, err := json.Marshal(decoded)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
	assert.Equal(t, []string{"assembly_hours", "audience"}, RefKeys(decoded))
}

// sumNode adds the numeric values of its operands
type sumNode struct {
	Terms []Node
}

func (*sumNode) Kind() Kind { return "sum" }

func (n *sumNode) Children() []Node { return n.Terms }

func TestRegisterCustomKind(t *testing.T) {
	reg := NewRegistry()
	err := reg.Register("sum",
		func(ev *Evaluator, node Node, ctx Context) (Value, error) {
			total := decimal.Zero
			for _, term := range node.(*sumNode).Terms {
				v, err := ev.Eval(term, ctx)
				if err != nil {
					return Value{}, err
				}
				n, ok := v.AsNumber()
				if !ok {
					return Value{}, &TypeMismatchError{Op: "sum", Expected: "number", Left: v.Type()}
				}
				total = total.Add(n)
			}
			return Number(total), nil
		},
		func(d *Decoder, path string, fields map[string]json.RawMessage) (Node, error) {
			var raws []json.RawMessage
			if err := d.Field(fields, "terms", path, &raws); err != nil {
				return nil, err
			}
			n := &sumNode{}
			for i, raw := range raws {
				child, err := d.Node(raw, fmt.Sprintf("%s.terms[%d]", path, i))
				if err != nil {
					return nil, err
				}
				n.Terms = append(n.Terms, child)
			}
			return n, nil
		},
	)
	require.NoError(t, err)
	assert.Error(t, reg.Register("sum", evalLiteral, nil), "duplicate kinds are rejected")

	raw := `{"type":"if",
		"condition":{"type":"compare","op":">","left":{"type":"ref","key":"distance_km"},"right":{"type":"literal","value":50}},
		"then":{"type":"sum","terms":[{"type":"literal","value":60},{"type":"ref","key":"toll"}]},
		"else":{"type":"literal","value":50}}`
	node, err := reg.Decode([]byte(raw))
	require.NoError(t, err)

	v, err := reg.Evaluate(node, NewContext(map[string]Value{"distance_km": Int(80), "toll": MustNumber("12.40")}))
	require.NoError(t, err)
	n, _ := v.AsNumber()
	assert.True(t, n.Equal(decimal.RequireFromString("72.40")))

	// The shared built-in registry does not learn the new kind
	_, err = Decode([]byte(raw))
	var kindErr *UnknownNodeKindError
	assert.ErrorAs(t, err, &kindErr)
	assert.Contains(t, reg.Kinds(), Kind("sum"))
	assert.NotContains(t, NewRegistry().Kinds(), Kind("sum"))
}

func TestParseContext(t *testing.T) {
	ctx, err := ParseContext([]byte(`{"distance_km": 75.5, "audience": "vip", "express": true}`))
	require.NoError(t, err)
	assert.Equal(t, []string{"audience", "distance_km", "express"}, ctx.Keys())

	v, ok := ctx.Lookup("distance_km")
	require.True(t, ok)
	assert.True(t, v.Equal(MustNumber("75.5")))

	_, err = ParseContext([]byte(`{"nested": {"a": 1}}`))
	assert.Error(t, err)

	extended := ctx.With("line_count", Int(2))
	assert.Equal(t, 3, ctx.Len())
	assert.Equal(t, 4, extended.Len())
}
