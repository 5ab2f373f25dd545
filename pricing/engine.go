package pricing

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"github.com/amirphl/quote-core/utils"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Context keys the engine binds for rule-based surcharges
const (
	KeyOrderValue       = "order_value"
	KeyMaterialQuantity = "material_quantity"
	KeyLaborHours       = "labor_hours"
	KeyLineCount        = "line_count"
	KeyAudience         = "audience"
)

var reservedKeys = []string{KeyOrderValue, KeyMaterialQuantity, KeyLaborHours, KeyLineCount, KeyAudience}

// round applies the money rounding rule: 2 places, half away from zero
func round(d decimal.Decimal) decimal.Decimal {
	return d.Round(utils.MoneyScale)
}

// stepLog accumulates steps against a running total
type stepLog struct {
	steps []Step
	total decimal.Decimal
}

func (l *stepLog) add(name string, kind StepKind, amount decimal.Decimal) {
	amount = round(amount)
	l.total = l.total.Add(amount)
	l.steps = append(l.steps, Step{Name: name, Kind: kind, Amount: amount, Total: l.total})
}

// scale multiplies the running total by factor, rounds, and records the change.
// shown is the multiplier or percentage reported on the step.
func (l *stepLog) scale(name string, kind StepKind, factor, shown decimal.Decimal) {
	next := round(l.total.Mul(factor))
	l.steps = append(l.steps, Step{Name: name, Kind: kind, Multiplier: &shown, Amount: next.Sub(l.total), Total: next})
	l.total = next
}

type factorIndex map[FactorCategory]map[string]Factor

func (idx factorIndex) lookup(category FactorCategory, key string) (Factor, bool) {
	f, ok := idx[category][key]
	return f, ok
}

func indexFactors(factors []Factor) (factorIndex, error) {
	idx := make(factorIndex)
	for _, f := range factors {
		if !f.Category.Valid() {
			return nil, &ConfigurationError{Field: "factors", Reason: fmt.Sprintf("unknown category %q", f.Category)}
		}
		if f.Enabled && !f.Factor.IsPositive() {
			return nil, &ConfigurationError{Field: fmt.Sprintf("factors.%s.%s", f.Category, f.Key), Reason: "factor must be positive"}
		}
		if idx[f.Category] == nil {
			idx[f.Category] = make(map[string]Factor)
		}
		idx[f.Category][f.Key] = f
	}
	return idx, nil
}

func indexMaterials(materials []Material) (map[string]Material, error) {
	idx := make(map[string]Material, len(materials))
	for _, m := range materials {
		if _, dup := idx[m.StockKey]; dup {
			return nil, &ConfigurationError{Field: "materials." + m.StockKey, Reason: "duplicate stock key"}
		}
		if m.UnitCost.IsNegative() {
			return nil, &ConfigurationError{Field: "materials." + m.StockKey, Reason: "unit cost must not be negative"}
		}
		for _, d := range m.BulkDiscounts {
			if d.MinQuantity.IsNegative() || d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
				return nil, &ConfigurationError{Field: "materials." + m.StockKey, Reason: "bulk discount out of range"}
			}
		}
		idx[m.StockKey] = m
	}
	return idx, nil
}

func validateCompany(c CompanyConfig) error {
	switch {
	case !c.HourlyRate.IsPositive():
		return &ConfigurationError{Field: "company.hourly_rate", Reason: "must be positive"}
	case !c.OverheadMultiplier.IsPositive():
		return &ConfigurationError{Field: "company.overhead_multiplier", Reason: "must be positive"}
	case !c.MarginMultiplier.IsPositive():
		return &ConfigurationError{Field: "company.margin_multiplier", Reason: "must be positive"}
	case c.TaxRate.IsNegative() || c.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return &ConfigurationError{Field: "company.tax_rate", Reason: "must be a fraction in [0, 1)"}
	}
	return nil
}

// Calculate prices input against snap. Any failure aborts the whole calculation.
func Calculate(input Input, snap Snapshot) (*PriceBreakdown, error) {
	if err := validateCompany(snap.Company); err != nil {
		return nil, err
	}
	if len(input.Lines) == 0 {
		return nil, &InvalidInputError{Field: "lines", Reason: "at least one line is required"}
	}
	if input.Date.IsZero() {
		return nil, &InvalidInputError{Field: "date", Reason: "calculation date is required"}
	}
	audience := input.Audience
	if audience == "" {
		audience = AudienceAll
	}
	if !audience.Valid() {
		return nil, &InvalidInputError{Field: "audience", Reason: fmt.Sprintf("unknown audience %q", input.Audience)}
	}
	for _, key := range reservedKeys {
		if _, clash := input.RuleInputs[key]; clash {
			return nil, &InvalidInputError{Field: "rule_inputs." + key, Reason: "key is computed by the engine"}
		}
	}
	for key, v := range input.RuleInputs {
		if n, ok := v.AsNumber(); ok && CheckBounds(n) != nil {
			return nil, &InvalidInputError{Field: "rule_inputs." + key, Reason: ErrAmountOutOfRange.Error()}
		}
	}

	factors, err := indexFactors(snap.Factors)
	if err != nil {
		return nil, err
	}
	materials, err := indexMaterials(snap.Materials)
	if err != nil {
		return nil, err
	}

	b := &PriceBreakdown{
		Lines:       make([]LineBreakdown, 0, len(input.Lines)),
		Factors:     []AppliedFactor{},
		Adjustments: []AppliedAdjustment{},
		Surcharges:  []AppliedSurcharge{},
		TaxRate:     snap.Company.TaxRate,
		Currency:    snap.Company.Currency,
		Unverified:  slices.Clone(input.Unverified),
	}
	if b.Currency == "" {
		b.Currency = utils.EuroCurrency
	}

	adjustments, err := selectAdjustments(snap.Adjustments, input.Date, audience)
	if err != nil {
		return nil, err
	}

	p := linePricer{company: snap.Company, factors: factors, materials: materials, adjustments: adjustments}
	facts := orderFacts{lineCount: len(input.Lines)}
	linesSum := decimal.Zero
	for i, line := range input.Lines {
		lb, applied, adjusted, err := p.price(i, line)
		if err != nil {
			return nil, err
		}
		b.Lines = append(b.Lines, lb)
		b.Factors = append(b.Factors, applied...)
		b.Adjustments = append(b.Adjustments, adjusted...)
		linesSum = linesSum.Add(lb.Total)
		facts.laborHours = facts.laborHours.Add(line.LaborHours)
		facts.materialQuantity = facts.materialQuantity.Add(line.Quantity)
	}
	if !facts.laborHours.IsPositive() {
		return nil, &InvalidInputError{Field: "labor_hours", Reason: "total labor hours must be positive"}
	}

	agg := &stepLog{}
	agg.add("lines_subtotal", StepAmount, linesSum)

	if err := applySurcharges(b, agg, snap.Surcharges, input, audience, facts); err != nil {
		return nil, err
	}

	b.Steps = agg.steps
	b.NetTotal = agg.total
	b.TaxAmount = round(b.NetTotal.Mul(b.TaxRate))
	b.GrossTotal = b.NetTotal.Add(b.TaxAmount)

	if err := b.Reconcile(); err != nil {
		return nil, err
	}
	return b, nil
}

// linePricer runs TIER 1 to TIER 3 for one line
type linePricer struct {
	company     CompanyConfig
	factors     factorIndex
	materials   map[string]Material
	adjustments []Adjustment
}

func (p linePricer) price(i int, line Line) (LineBreakdown, []AppliedFactor, []AppliedAdjustment, error) {
	field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }
	fail := func(name, reason string) (LineBreakdown, []AppliedFactor, []AppliedAdjustment, error) {
		return LineBreakdown{}, nil, nil, &InvalidInputError{Field: field(name), Reason: reason}
	}

	if CheckBounds(line.LaborHours) != nil {
		return fail("labor_hours", ErrAmountOutOfRange.Error())
	}
	if CheckBounds(line.Quantity) != nil {
		return fail("quantity", ErrAmountOutOfRange.Error())
	}
	if line.LaborHours.IsNegative() {
		return fail("labor_hours", "must not be negative")
	}
	if !line.Quantity.IsPositive() {
		return fail("quantity", "must be positive")
	}
	if line.StockKey == "" {
		return fail("stock_key", "is required")
	}
	material, ok := p.materials[line.StockKey]
	if !ok {
		return fail("stock_key", fmt.Sprintf("unknown material %q", line.StockKey))
	}
	if line.MaterialKind == "" {
		return fail("material_kind", "is required")
	}

	type tierOne struct {
		category FactorCategory
		key      string
	}
	chain := []tierOne{{CategoryMaterialKind, line.MaterialKind}}
	if line.SurfaceTreatment != "" {
		chain = append(chain, tierOne{CategorySurfaceTreatment, line.SurfaceTreatment})
	}
	if line.ComplexityTechnique != "" {
		chain = append(chain, tierOne{CategoryComplexityTechnique, line.ComplexityTechnique})
	}
	for _, c := range chain {
		if _, known := p.factors.lookup(c.category, c.key); !known {
			return fail(string(c.category), fmt.Sprintf("unknown %s %q", c.category, c.key))
		}
	}

	lb := LineBreakdown{
		Index:         i,
		StockKey:      material.StockKey,
		MaterialName:  material.Name,
		PackagingUnit: material.PackagingUnit,
		Quantity:      line.Quantity,
		UnitCost:      material.UnitCost,
		LaborHours:    line.LaborHours,
	}
	log := &stepLog{}
	var applied []AppliedFactor

	log.add("base_labor", StepAmount, line.LaborHours.Mul(p.company.HourlyRate))
	materialCost := round(line.Quantity.Mul(material.UnitCost))
	log.add("base_material", StepAmount, materialCost)
	if d, ok := material.BulkDiscountFor(line.Quantity); ok && d.Percent.IsPositive() {
		pct := d.Percent
		lb.BulkDiscountPercent = &pct
		log.add(fmt.Sprintf("bulk_discount:%s%%", pct), StepPercentage, materialCost.Mul(pct).Div(hundred).Neg())
	}

	for _, c := range chain {
		f, _ := p.factors.lookup(c.category, c.key)
		if !f.Enabled {
			continue
		}
		log.scale(fmt.Sprintf("tier1:%s:%s", c.category, c.key), StepMultiplier, f.Factor, f.Factor)
		applied = append(applied, AppliedFactor{Line: i, Tier: 1, Category: string(c.category), Key: c.key, Factor: f.Factor})
	}

	company := p.company
	log.scale("tier2:overhead", StepMultiplier, company.OverheadMultiplier, company.OverheadMultiplier)
	applied = append(applied, AppliedFactor{Line: i, Tier: 2, Category: "company", Key: "overhead", Factor: company.OverheadMultiplier})
	log.scale("tier2:margin", StepMultiplier, company.MarginMultiplier, company.MarginMultiplier)
	applied = append(applied, AppliedFactor{Line: i, Tier: 2, Category: "company", Key: "margin", Factor: company.MarginMultiplier})

	adjusted := applyAdjustments(i, log, p.adjustments)
	if log.total.IsNegative() {
		return LineBreakdown{}, nil, nil, &ConfigurationError{Field: "adjustments", Reason: fmt.Sprintf("adjusted total of line %d would be negative", i)}
	}

	lb.Steps = log.steps
	lb.Total = log.total
	return lb, applied, adjusted, nil
}

// selectAdjustments returns the TIER 3 adjustments in effect, ascending priority, ties by ID
func selectAdjustments(adjustments []Adjustment, date time.Time, audience Audience) ([]Adjustment, error) {
	applicable := make([]Adjustment, 0, len(adjustments))
	for _, a := range adjustments {
		if !a.AppliesTo(date, audience) {
			continue
		}
		if a.Kind != AdjustmentPercentage && a.Kind != AdjustmentAbsolute {
			return nil, &ConfigurationError{Field: fmt.Sprintf("adjustments.%d", a.ID), Reason: fmt.Sprintf("unknown kind %q", a.Kind)}
		}
		applicable = append(applicable, a)
	}
	slices.SortStableFunc(applicable, func(x, y Adjustment) int {
		if c := cmp.Compare(x.Priority, y.Priority); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})
	return applicable, nil
}

// applyAdjustments applies TIER 3 to one line after its margin step. Percentages
// compound on the running line total; absolute adjustments add a flat amount.
func applyAdjustments(line int, log *stepLog, adjustments []Adjustment) []AppliedAdjustment {
	applied := make([]AppliedAdjustment, 0, len(adjustments))
	for _, a := range adjustments {
		before := log.total
		name := "tier3:" + a.Name
		if a.Kind == AdjustmentPercentage {
			log.scale(name, StepPercentage, decimal.NewFromInt(1).Add(a.Magnitude.Div(hundred)), a.Magnitude)
		} else {
			log.add(name, StepAmount, a.Magnitude)
		}
		applied = append(applied, AppliedAdjustment{
			Line:      line,
			ID:        a.ID,
			Name:      a.Name,
			Kind:      a.Kind,
			Magnitude: a.Magnitude,
			Amount:    log.total.Sub(before),
		})
	}
	return applied
}
