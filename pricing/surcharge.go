package pricing

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/amirphl/quote-core/rules"
	"github.com/shopspring/decimal"
)

// orderFacts are document totals exposed to surcharge rules
type orderFacts struct {
	materialQuantity decimal.Decimal
	laborHours       decimal.Decimal
	lineCount        int
}

// ruleContext binds the declared inputs and the computed order facts
func ruleContext(running decimal.Decimal, input Input, audience Audience, facts orderFacts) rules.Context {
	values := make(map[string]rules.Value, len(input.RuleInputs)+len(reservedKeys))
	for k, v := range input.RuleInputs {
		values[k] = v
	}
	values[KeyOrderValue] = rules.Number(running)
	values[KeyMaterialQuantity] = rules.Number(facts.materialQuantity)
	values[KeyLaborHours] = rules.Number(facts.laborHours)
	values[KeyLineCount] = rules.Int(int64(facts.lineCount))
	values[KeyAudience] = rules.String(string(audience))
	return rules.NewContext(values)
}

// applySurcharges applies in-window surcharges highest priority first, ties by ID.
// Bounds are checked against the running total, which includes earlier surcharges.
func applySurcharges(b *PriceBreakdown, agg *stepLog, surcharges []Surcharge, input Input, audience Audience, facts orderFacts) error {
	active := make([]Surcharge, 0, len(surcharges))
	for _, s := range surcharges {
		if s.InWindow(input.Date) {
			active = append(active, s)
		}
	}
	slices.SortStableFunc(active, func(x, y Surcharge) int {
		if c := cmp.Compare(y.Priority, x.Priority); c != 0 {
			return c
		}
		return cmp.Compare(x.ID, y.ID)
	})

	for _, s := range active {
		if !s.Admits(agg.total) {
			continue
		}
		amount, applied, err := surchargeAmount(s, agg.total, input, audience, facts)
		if err != nil {
			return &SurchargeRuleError{Surcharge: s.Name, Err: err}
		}
		if !applied {
			continue
		}
		before := agg.total
		agg.add("surcharge:"+s.Name, StepAmount, amount)
		b.Surcharges = append(b.Surcharges, AppliedSurcharge{
			ID:     s.ID,
			Name:   s.Name,
			Kind:   s.Kind,
			Amount: agg.total.Sub(before),
		})
	}
	return nil
}

func surchargeAmount(s Surcharge, running decimal.Decimal, input Input, audience Audience, facts orderFacts) (decimal.Decimal, bool, error) {
	switch s.Kind {
	case SurchargeFixed:
		if s.Amount.IsNegative() {
			return decimal.Zero, false, &ConfigurationError{Field: "amount", Reason: "must not be negative"}
		}
		return s.Amount, !s.Amount.IsZero(), nil

	case SurchargePerUnit:
		key := s.UnitInput
		if key == "" {
			key = KeyMaterialQuantity
		}
		v, ok := ruleContext(running, input, audience, facts).Lookup(key)
		if !ok {
			return decimal.Zero, false, &rules.UnknownContextKeyError{Key: key}
		}
		units, isNumber := v.AsNumber()
		if !isNumber {
			return decimal.Zero, false, &rules.TypeMismatchError{Op: "per_unit", Expected: "number", Left: v.Type()}
		}
		amount := s.Rate.Mul(units)
		if amount.IsNegative() {
			return decimal.Zero, false, &ConfigurationError{Field: "rate", Reason: "per-unit amount must not be negative"}
		}
		return amount, !amount.IsZero(), nil

	case SurchargePercentOfOrder:
		base := running
		if s.CapOrderValue != nil && base.GreaterThan(*s.CapOrderValue) {
			base = *s.CapOrderValue
		}
		if s.Percent.IsNegative() {
			return decimal.Zero, false, &ConfigurationError{Field: "percent", Reason: "must not be negative"}
		}
		amount := base.Mul(s.Percent).Div(hundred)
		return amount, !amount.IsZero(), nil

	case SurchargeConditional:
		if s.Rule == nil {
			return decimal.Zero, false, &ConfigurationError{Field: "rule", Reason: "conditional surcharge has no rule"}
		}
		v, err := rules.Evaluate(s.Rule, ruleContext(running, input, audience, facts))
		if err != nil {
			return decimal.Zero, false, err
		}
		return interpretRuleResult(s, v)

	default:
		return decimal.Zero, false, &ConfigurationError{Field: "kind", Reason: fmt.Sprintf("unknown surcharge kind %q", s.Kind)}
	}
}

// interpretRuleResult maps a rule result to an amount: a number is the amount,
// true charges the rule's Amount, false or zero charges nothing.
func interpretRuleResult(s Surcharge, v rules.Value) (decimal.Decimal, bool, error) {
	if n, ok := v.AsNumber(); ok {
		if n.IsNegative() {
			return decimal.Zero, false, &ConfigurationError{Field: "rule", Reason: fmt.Sprintf("rule yielded negative amount %s", n)}
		}
		return n, !n.IsZero(), nil
	}
	if b, ok := v.AsBool(); ok {
		if !b {
			return decimal.Zero, false, nil
		}
		return s.Amount, !s.Amount.IsZero(), nil
	}
	return decimal.Zero, false, &rules.TypeMismatchError{Op: "surcharge", Expected: "number or bool", Left: v.Type()}
}
