package pricing

import (
	"testing"

	"github.com/amirphl/quote-core/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatSnapshot prices one line at exactly 600.00 net before surcharges
func flatSnapshot() Snapshot {
	return Snapshot{
		Factors: []Factor{{ID: 1, Category: CategoryMaterialKind, Key: "standard", Factor: d("1"), Enabled: true}},
		Company: CompanyConfig{
			TenantID:           "tenant-a",
			HourlyRate:         d("50"),
			OverheadMultiplier: d("1"),
			MarginMultiplier:   d("1"),
			TaxRate:            d("0.19"),
			Currency:           "EUR",
		},
		Materials: []Material{{ID: 1, StockKey: "SCREW", Name: "Screw", UnitCost: d("1"), PackagingUnit: "pcs"}},
	}
}

func flatInput(distance int64) Input {
	return Input{
		Date:       calcDate,
		Lines:      []Line{{LaborHours: d("10"), StockKey: "SCREW", Quantity: d("100"), MaterialKind: "standard"}},
		RuleInputs: map[string]rules.Value{"distance_km": rules.Int(distance)},
	}
}

func distanceRule() rules.Node {
	return rules.IfThen(
		rules.Cmp(rules.OpGT, rules.RefTo("distance_km"), rules.Lit(rules.Int(50))),
		rules.Lit(rules.Int(100)),
		rules.Lit(rules.Int(50)),
	)
}

func TestSurchargesApplyByPriorityAgainstRunningTotal(t *testing.T) {
	snap := flatSnapshot()
	snap.Surcharges = []Surcharge{
		{ID: 4, Name: "travel", Kind: SurchargeConditional, Rule: distanceRule(), Priority: 1, Active: true},
		{ID: 1, Name: "Betriebspauschale", Kind: SurchargeFixed, Amount: d("25"), Priority: 10, Active: true},
		{ID: 3, Name: "packaging", Kind: SurchargePerUnit, Rate: d("0.5"), Priority: 3, Active: true},
		{ID: 2, Name: "insurance", Kind: SurchargePercentOfOrder, Percent: d("10"), CapOrderValue: dp("500"), Priority: 5, Active: true},
		{ID: 5, Name: "large order handling", Kind: SurchargeFixed, Amount: d("99"), MinOrderValue: dp("1000"), Priority: 0, Active: true},
		{ID: 6, Name: "retired", Kind: SurchargeFixed, Amount: d("99"), Priority: 20, Active: false},
	}

	b, err := Calculate(flatInput(75), snap)
	require.NoError(t, err)

	expected := []struct {
		name   string
		amount string
	}{
		{"Betriebspauschale", "25.00"},
		{"insurance", "50.00"},
		{"packaging", "50.00"},
		{"travel", "100.00"},
	}
	require.Len(t, b.Surcharges, len(expected))
	for i, e := range expected {
		assert.Equal(t, e.name, b.Surcharges[i].Name)
		assert.Equal(t, e.amount, b.Surcharges[i].Amount.StringFixed(2), e.name)
	}
	assert.Equal(t, "825.00", b.NetTotal.StringFixed(2))
	assert.Equal(t, "156.75", b.TaxAmount.StringFixed(2))
	assert.Equal(t, "981.75", b.GrossTotal.StringFixed(2))
	assert.NoError(t, b.Reconcile())
}

func TestConditionalDistanceSurcharge(t *testing.T) {
	snap := flatSnapshot()
	snap.Surcharges = []Surcharge{{ID: 1, Name: "travel", Kind: SurchargeConditional, Rule: distanceRule(), Active: true}}

	b, err := Calculate(flatInput(75), snap)
	require.NoError(t, err)
	require.Len(t, b.Surcharges, 1)
	assert.Equal(t, "100.00", b.Surcharges[0].Amount.StringFixed(2))

	b, err = Calculate(flatInput(30), snap)
	require.NoError(t, err)
	require.Len(t, b.Surcharges, 1)
	assert.Equal(t, "50.00", b.Surcharges[0].Amount.StringFixed(2))
}

func TestPercentOfOrderWithoutCap(t *testing.T) {
	snap := flatSnapshot()
	snap.Surcharges = []Surcharge{{ID: 1, Name: "insurance", Kind: SurchargePercentOfOrder, Percent: d("2.5"), Active: true}}

	b, err := Calculate(flatInput(0), snap)
	require.NoError(t, err)
	require.Len(t, b.Surcharges, 1)
	assert.Equal(t, "15.00", b.Surcharges[0].Amount.StringFixed(2))
}

func TestBooleanConditionalChargesRuleAmount(t *testing.T) {
	snap := flatSnapshot()
	snap.Surcharges = []Surcharge{{
		ID:     1,
		Name:   "multi-site setup",
		Kind:   SurchargeConditional,
		Rule:   rules.Cmp(rules.OpGT, rules.RefTo(KeyLineCount), rules.Lit(rules.Int(1))),
		Amount: d("30"),
		Active: true,
	}}

	b, err := Calculate(flatInput(0), snap)
	require.NoError(t, err)
	assert.Empty(t, b.Surcharges)

	in := flatInput(0)
	in.Lines = append(in.Lines, in.Lines[0])
	b, err = Calculate(in, snap)
	require.NoError(t, err)
	require.Len(t, b.Surcharges, 1)
	assert.Equal(t, "30.00", b.Surcharges[0].Amount.StringFixed(2))
}

func TestSurchargeRuleErrorsAreConfigurationErrors(t *testing.T) {
	snap := flatSnapshot()
	snap.Surcharges = []Surcharge{{
		ID:     1,
		Name:   "assembly",
		Kind:   SurchargeConditional,
		Rule:   rules.IfThen(rules.Cmp(rules.OpGE, rules.RefTo("assembly_hours"), rules.Lit(rules.Int(4))), rules.Lit(rules.Int(80)), rules.Lit(rules.Int(0))),
		Active: true,
	}}

	b, err := Calculate(flatInput(10), snap)
	assert.Nil(t, b)
	var surchargeErr *SurchargeRuleError
	require.ErrorAs(t, err, &surchargeErr)
	assert.Equal(t, "assembly", surchargeErr.Surcharge)
	var keyErr *rules.UnknownContextKeyError
	assert.ErrorAs(t, err, &keyErr)
	assert.True(t, IsConfigurationError(err))
	assert.False(t, IsInvalidInput(err))

	snap.Surcharges[0].Rule = rules.Lit(rules.String("eighty"))
	_, err = Calculate(flatInput(10), snap)
	var mismatch *rules.TypeMismatchError
	assert.ErrorAs(t, err, &mismatch)

	snap.Surcharges[0].Rule = rules.Lit(rules.Int(-5))
	_, err = Calculate(flatInput(10), snap)
	assert.True(t, IsConfigurationError(err))
}

func TestSurchargeUnmarshalDecodesRule(t *testing.T) {
	raw := []byte(`{
		"id": 7, "name": "travel", "kind": "conditional", "active": true, "priority": 2,
		"rule": {"type":"if","condition":{"type":"compare","op":">","left":{"type":"ref","key":"distance_km"},"right":{"type":"literal","value":50}},"then":{"type":"literal","value":100},"else":{"type":"literal","value":50}}
	}`)
	var s Surcharge
	require.NoError(t, s.UnmarshalJSON(raw))
	assert.Equal(t, uint(7), s.ID)
	assert.Equal(t, SurchargeConditional, s.Kind)
	require.NotNil(t, s.Rule)
	assert.Equal(t, rules.KindIf, s.Rule.Kind())

	require.Error(t, s.UnmarshalJSON([]byte(`{"kind":"conditional","rule":{"type":"nope"}}`)))
}
