package pricing

import (
	"testing"
	"time"

	"github.com/amirphl/quote-core/rules"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

var calcDate = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

func workshopSnapshot() Snapshot {
	return Snapshot{
		Factors: []Factor{
			{ID: 1, Category: CategoryMaterialKind, Key: "oak", Factor: d("1.3"), Enabled: true},
			{ID: 2, Category: CategorySurfaceTreatment, Key: "lacquer", Factor: d("1.1"), Enabled: true},
			{ID: 3, Category: CategoryComplexityTechnique, Key: "dovetail", Factor: d("1.15"), Enabled: true},
			{ID: 4, Category: CategoryMaterialKind, Key: "pine", Factor: d("0.9"), Enabled: false},
			{ID: 5, Category: CategoryMaterialKind, Key: "standard", Factor: d("1"), Enabled: true},
		},
		Company: CompanyConfig{
			TenantID:           "tenant-a",
			HourlyRate:         d("50"),
			OverheadMultiplier: d("1.15"),
			MarginMultiplier:   d("1.2"),
			TaxRate:            d("0.19"),
			Currency:           "EUR",
		},
		Materials: []Material{
			{ID: 1, StockKey: "OAK-BOARD", Name: "Oak board", UnitCost: d("130"), PackagingUnit: "m²"},
			{
				ID: 2, StockKey: "PINE-STRIP", Name: "Pine strip", UnitCost: d("10"), PackagingUnit: "m",
				BulkDiscounts: []BulkDiscount{
					{MinQuantity: d("10"), Percent: d("5")},
					{MinQuantity: d("50"), Percent: d("12")},
					{MinQuantity: d("25"), Percent: d("8")},
				},
			},
		},
	}
}

func cabinetInput() Input {
	return Input{
		Lines: []Line{{
			LaborHours:          d("18"),
			StockKey:            "OAK-BOARD",
			Quantity:            d("2.5"),
			MaterialKind:        "oak",
			SurfaceTreatment:    "lacquer",
			ComplexityTechnique: "dovetail",
		}},
		Date: calcDate,
	}
}

func TestCalculateCabinetScenario(t *testing.T) {
	b, err := Calculate(cabinetInput(), workshopSnapshot())
	require.NoError(t, err)
	require.Len(t, b.Lines, 1)

	expected := []struct {
		name  string
		total string
	}{
		{"base_labor", "900.00"},
		{"base_material", "1225.00"},
		{"tier1:material_kind:oak", "1592.50"},
		{"tier1:surface_treatment:lacquer", "1751.75"},
		{"tier1:complexity_technique:dovetail", "2014.51"},
		{"tier2:overhead", "2316.69"},
		{"tier2:margin", "2780.03"},
	}
	steps := b.Lines[0].Steps
	require.Len(t, steps, len(expected))
	for i, e := range expected {
		assert.Equal(t, e.name, steps[i].Name)
		assert.Equal(t, e.total, steps[i].Total.StringFixed(2), e.name)
	}

	assert.Equal(t, "2780.03", b.NetTotal.StringFixed(2))
	assert.Equal(t, "528.21", b.TaxAmount.StringFixed(2))
	assert.Equal(t, "3308.24", b.GrossTotal.StringFixed(2))
	assert.Equal(t, "EUR", b.Currency)
	assert.Len(t, b.Factors, 5)
	assert.Empty(t, b.Adjustments)
	assert.Empty(t, b.Surcharges)
	assert.NoError(t, b.Reconcile())
}

func TestCalculateIsDeterministic(t *testing.T) {
	first, err := Calculate(cabinetInput(), workshopSnapshot())
	require.NoError(t, err)
	second, err := Calculate(cabinetInput(), workshopSnapshot())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestBulkDiscountHighestQualifyingThreshold(t *testing.T) {
	material := workshopSnapshot().Materials[1]

	tests := []struct {
		quantity string
		percent  string
		found    bool
	}{
		{"5", "", false},
		{"10", "5", true},
		{"30", "8", true},
		{"50", "12", true},
		{"500", "12", true},
	}
	for _, tt := range tests {
		disc, found := material.BulkDiscountFor(d(tt.quantity))
		assert.Equal(t, tt.found, found, tt.quantity)
		if tt.found {
			assert.True(t, disc.Percent.Equal(d(tt.percent)), "quantity %s got %s", tt.quantity, disc.Percent)
		}
	}

	in := Input{Date: calcDate, Lines: []Line{{LaborHours: d("1"), StockKey: "PINE-STRIP", Quantity: d("30"), MaterialKind: "standard"}}}
	b, err := Calculate(in, workshopSnapshot())
	require.NoError(t, err)

	steps := b.Lines[0].Steps
	require.GreaterOrEqual(t, len(steps), 3)
	assert.Equal(t, "300.00", steps[1].Amount.StringFixed(2))
	assert.Equal(t, "bulk_discount:8%", steps[2].Name)
	assert.Equal(t, "-24.00", steps[2].Amount.StringFixed(2))
	require.NotNil(t, b.Lines[0].BulkDiscountPercent)
	assert.True(t, b.Lines[0].BulkDiscountPercent.Equal(d("8")))
	assert.NoError(t, b.Reconcile())
}

func TestDisabledFactorIsSkipped(t *testing.T) {
	in := cabinetInput()
	in.Lines[0].MaterialKind = "pine"

	b, err := Calculate(in, workshopSnapshot())
	require.NoError(t, err)
	for _, s := range b.Lines[0].Steps {
		assert.NotContains(t, s.Name, "pine")
	}
	for _, f := range b.Factors {
		assert.NotEqual(t, "pine", f.Key)
	}
}

func TestCalculateRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Input)
		field  string
	}{
		{"no lines", func(in *Input) { in.Lines = nil }, "lines"},
		{"zero quantity", func(in *Input) { in.Lines[0].Quantity = decimal.Zero }, "lines[0].quantity"},
		{"negative labor", func(in *Input) { in.Lines[0].LaborHours = d("-1") }, "lines[0].labor_hours"},
		{"no labor at all", func(in *Input) { in.Lines[0].LaborHours = decimal.Zero }, "labor_hours"},
		{"unknown material", func(in *Input) { in.Lines[0].StockKey = "TEAK" }, "lines[0].stock_key"},
		{"missing material kind", func(in *Input) { in.Lines[0].MaterialKind = "" }, "lines[0].material_kind"},
		{"unknown material kind", func(in *Input) { in.Lines[0].MaterialKind = "walnut" }, "lines[0].material_kind"},
		{"unknown surface", func(in *Input) { in.Lines[0].SurfaceTreatment = "gold-leaf" }, "lines[0].surface_treatment"},
		{"missing date", func(in *Input) { in.Date = time.Time{} }, "date"},
		{"unknown audience", func(in *Input) { in.Audience = "reseller" }, "audience"},
		{"quantity beyond range", func(in *Input) { in.Lines[0].Quantity = decimal.New(1, 20000000) }, "lines[0].quantity"},
		{"labor hours too precise", func(in *Input) { in.Lines[0].LaborHours = d("18.0000001") }, "lines[0].labor_hours"},
		{"rule input beyond range", func(in *Input) {
			in.RuleInputs = map[string]rules.Value{"distance_km": rules.Number(decimal.New(1, 40))}
		}, "rule_inputs.distance_km"},
		{"reserved rule input", func(in *Input) {
			in.RuleInputs = map[string]rules.Value{KeyOrderValue: rules.Int(1)}
		}, "rule_inputs.order_value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := cabinetInput()
			tt.mutate(&in)
			b, err := Calculate(in, workshopSnapshot())
			assert.Nil(t, b)
			var inputErr *InvalidInputError
			require.ErrorAs(t, err, &inputErr)
			assert.Equal(t, tt.field, inputErr.Field)
			assert.True(t, IsInvalidInput(err))
		})
	}
}

func TestCalculateRejectsBadConfiguration(t *testing.T) {
	snap := workshopSnapshot()
	snap.Company.HourlyRate = decimal.Zero
	_, err := Calculate(cabinetInput(), snap)
	assert.True(t, IsConfigurationError(err))

	snap = workshopSnapshot()
	snap.Company.TaxRate = d("19")
	_, err = Calculate(cabinetInput(), snap)
	assert.True(t, IsConfigurationError(err))

	snap = workshopSnapshot()
	snap.Factors[0].Factor = d("-1")
	_, err = Calculate(cabinetInput(), snap)
	assert.True(t, IsConfigurationError(err))
}

func TestDynamicAdjustments(t *testing.T) {
	until := calcDate
	future := calcDate.Add(24 * time.Hour)
	past := calcDate.Add(-30 * 24 * time.Hour)

	snap := workshopSnapshot()
	snap.Adjustments = []Adjustment{
		{ID: 4, Name: "vip bonus", Kind: AdjustmentAbsolute, Magnitude: d("50"), ValidFrom: past, Audience: AudienceVIP, Priority: 2, Active: true},
		{ID: 1, Name: "spring sale", Kind: AdjustmentPercentage, Magnitude: d("-10"), ValidFrom: calcDate, Audience: AudienceAll, Priority: 1, Active: true},
		{ID: 2, Name: "expired", Kind: AdjustmentPercentage, Magnitude: d("-50"), ValidFrom: past, ValidUntil: &until, Audience: AudienceAll, Priority: 0, Active: true},
		{ID: 3, Name: "not yet", Kind: AdjustmentAbsolute, Magnitude: d("-100"), ValidFrom: future, Audience: AudienceAll, Priority: 0, Active: true},
		{ID: 5, Name: "disabled", Kind: AdjustmentAbsolute, Magnitude: d("-100"), ValidFrom: past, Audience: AudienceAll, Priority: 0, Active: false},
	}

	in := cabinetInput()
	in.Audience = AudienceVIP
	b, err := Calculate(in, snap)
	require.NoError(t, err)

	require.Len(t, b.Adjustments, 2)
	assert.Equal(t, "spring sale", b.Adjustments[0].Name)
	assert.Equal(t, "-278.00", b.Adjustments[0].Amount.StringFixed(2))
	assert.Equal(t, "vip bonus", b.Adjustments[1].Name)
	assert.Equal(t, "2552.03", b.NetTotal.StringFixed(2))
	assert.NoError(t, b.Reconcile())

	in.Audience = AudienceNewCustomer
	b, err = Calculate(in, snap)
	require.NoError(t, err)
	require.Len(t, b.Adjustments, 1)
	assert.Equal(t, "2502.03", b.NetTotal.StringFixed(2))
}

func TestAdjustmentsTieBrokenByID(t *testing.T) {
	snap := workshopSnapshot()
	snap.Adjustments = []Adjustment{
		{ID: 9, Name: "second", Kind: AdjustmentAbsolute, Magnitude: d("-30"), ValidFrom: calcDate, Audience: AudienceAll, Priority: 1, Active: true},
		{ID: 7, Name: "first", Kind: AdjustmentPercentage, Magnitude: d("10"), ValidFrom: calcDate, Audience: AudienceAll, Priority: 1, Active: true},
	}
	b, err := Calculate(cabinetInput(), snap)
	require.NoError(t, err)
	require.Len(t, b.Adjustments, 2)
	assert.Equal(t, "first", b.Adjustments[0].Name)
	// 2780.03 * 1.1 = 3058.033 -> 3058.03, then -30
	assert.Equal(t, "3028.03", b.NetTotal.StringFixed(2))
}

func TestAdjustmentsApplyPerLine(t *testing.T) {
	snap := workshopSnapshot()
	snap.Adjustments = []Adjustment{
		{ID: 2, Name: "winter", Kind: AdjustmentAbsolute, Magnitude: d("-10"), ValidFrom: calcDate, Audience: AudienceAll, Priority: 2, Active: true},
		{ID: 1, Name: "spring sale", Kind: AdjustmentPercentage, Magnitude: d("-10"), ValidFrom: calcDate, Audience: AudienceAll, Priority: 1, Active: true},
	}
	in := cabinetInput()
	in.Lines = append(in.Lines, in.Lines[0])

	b, err := Calculate(in, snap)
	require.NoError(t, err)
	require.Len(t, b.Lines, 2)

	// 2780.03 * 0.9 = 2502.027 -> 2502.03, then -10
	for _, line := range b.Lines {
		n := len(line.Steps)
		require.GreaterOrEqual(t, n, 2)
		assert.Equal(t, "tier3:spring sale", line.Steps[n-2].Name)
		assert.Equal(t, "2502.03", line.Steps[n-2].Total.StringFixed(2))
		assert.Equal(t, "tier3:winter", line.Steps[n-1].Name)
		assert.Equal(t, "2492.03", line.Total.StringFixed(2))
	}

	require.Len(t, b.Adjustments, 4)
	for i, a := range b.Adjustments {
		assert.Equal(t, i/2, a.Line)
	}
	assert.Equal(t, "spring sale", b.Adjustments[0].Name)
	assert.Equal(t, "-278.00", b.Adjustments[0].Amount.StringFixed(2))
	assert.Equal(t, "-10.00", b.Adjustments[3].Amount.StringFixed(2))

	require.Len(t, b.Steps, 1)
	assert.Equal(t, "lines_subtotal", b.Steps[0].Name)
	assert.Equal(t, "4984.06", b.NetTotal.StringFixed(2))
	assert.NoError(t, b.Reconcile())

	snap.Adjustments = snap.Adjustments[:1]
	b, err = Calculate(in, snap)
	require.NoError(t, err)
	assert.Equal(t, "5540.06", b.NetTotal.StringFixed(2))
}

func TestAdjustmentMayNotDriveLineNegative(t *testing.T) {
	snap := workshopSnapshot()
	snap.Adjustments = []Adjustment{
		{ID: 1, Name: "too generous", Kind: AdjustmentAbsolute, Magnitude: d("-3000"), ValidFrom: calcDate, Audience: AudienceAll, Active: true},
	}
	_, err := Calculate(cabinetInput(), snap)
	assert.True(t, IsConfigurationError(err))

	snap.Adjustments[0].Kind = "bogus"
	snap.Adjustments[0].Magnitude = d("1")
	_, err = Calculate(cabinetInput(), snap)
	assert.True(t, IsConfigurationError(err))
}

func TestMultipleLinesReconcile(t *testing.T) {
	in := cabinetInput()
	in.Lines = append(in.Lines, Line{LaborHours: d("2.5"), StockKey: "PINE-STRIP", Quantity: d("60"), MaterialKind: "standard"})

	b, err := Calculate(in, workshopSnapshot())
	require.NoError(t, err)
	require.Len(t, b.Lines, 2)

	sum := b.Lines[0].Total.Add(b.Lines[1].Total)
	assert.True(t, b.Steps[0].Amount.Equal(sum))
	assert.NoError(t, b.Reconcile())

	b.Lines[1].Total = b.Lines[1].Total.Add(d("0.01"))
	var recErr *ReconciliationError
	assert.ErrorAs(t, b.Reconcile(), &recErr)
}
