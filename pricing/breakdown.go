package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// StepKind describes how a step changed the running total
type StepKind string

const (
	StepAmount     StepKind = "amount"
	StepMultiplier StepKind = "multiplier"
	StepPercentage StepKind = "percentage"
)

// Step is one attributed contribution. Amount is the change it caused to the
// running total and Total the running total after it.
type Step struct {
	Name       string           `json:"name"`
	Kind       StepKind         `json:"kind"`
	Multiplier *decimal.Decimal `json:"multiplier,omitempty"`
	Amount     decimal.Decimal  `json:"amount"`
	Total      decimal.Decimal  `json:"total"`
}

// LineBreakdown is the per-material part of a breakdown
type LineBreakdown struct {
	Index               int              `json:"index"`
	StockKey            string           `json:"stock_key"`
	MaterialName        string           `json:"material_name"`
	PackagingUnit       string           `json:"packaging_unit"`
	Quantity            decimal.Decimal  `json:"quantity"`
	UnitCost            decimal.Decimal  `json:"unit_cost"`
	LaborHours          decimal.Decimal  `json:"labor_hours"`
	BulkDiscountPercent *decimal.Decimal `json:"bulk_discount_percent,omitempty"`
	Steps               []Step           `json:"steps"`
	Total               decimal.Decimal  `json:"total"`
}

// AppliedFactor records a TIER 1 or TIER 2 multiplier used on a line
type AppliedFactor struct {
	Line     int             `json:"line"`
	Tier     int             `json:"tier"`
	Category string          `json:"category"`
	Key      string          `json:"key"`
	Factor   decimal.Decimal `json:"factor"`
}

// AppliedAdjustment records a TIER 3 adjustment and its computed effect
type AppliedAdjustment struct {
	Line      int             `json:"line"`
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Kind      AdjustmentKind  `json:"kind"`
	Magnitude decimal.Decimal `json:"magnitude"`
	Amount    decimal.Decimal `json:"amount"`
}

// AppliedSurcharge records a surcharge and its computed amount
type AppliedSurcharge struct {
	ID     uint            `json:"id"`
	Name   string          `json:"name"`
	Kind   SurchargeKind   `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
}

// PriceBreakdown is the explainable result of a calculation
type PriceBreakdown struct {
	Lines       []LineBreakdown     `json:"lines"`
	Steps       []Step              `json:"steps"`
	Factors     []AppliedFactor     `json:"factors"`
	Adjustments []AppliedAdjustment `json:"adjustments"`
	Surcharges  []AppliedSurcharge  `json:"surcharges"`
	NetTotal    decimal.Decimal     `json:"net_total"`
	TaxRate     decimal.Decimal     `json:"tax_rate"`
	TaxAmount   decimal.Decimal     `json:"tax_amount"`
	GrossTotal  decimal.Decimal     `json:"gross_total"`
	Currency    string              `json:"currency"`
	Unverified  []string            `json:"unverified,omitempty"`
}

// Reconcile checks that every recorded contribution adds up to the reported totals
func (b *PriceBreakdown) Reconcile() error {
	linesSum := decimal.Zero
	for _, line := range b.Lines {
		if err := reconcileSteps(fmt.Sprintf("line %d", line.Index), line.Steps, line.Total); err != nil {
			return err
		}
		linesSum = linesSum.Add(line.Total)
	}

	if len(b.Steps) == 0 {
		return &ReconciliationError{Reason: "no aggregate steps"}
	}
	if !b.Steps[0].Amount.Equal(linesSum) {
		return &ReconciliationError{Reason: fmt.Sprintf("line totals %s differ from subtotal %s", linesSum, b.Steps[0].Amount)}
	}
	if err := reconcileSteps("aggregate", b.Steps, b.NetTotal); err != nil {
		return err
	}

	if !b.NetTotal.Add(b.TaxAmount).Equal(b.GrossTotal) {
		return &ReconciliationError{Reason: fmt.Sprintf("net %s + tax %s != gross %s", b.NetTotal, b.TaxAmount, b.GrossTotal)}
	}
	return nil
}

func reconcileSteps(scope string, steps []Step, total decimal.Decimal) error {
	sum := decimal.Zero
	for _, s := range steps {
		sum = sum.Add(s.Amount)
		if !sum.Equal(s.Total) {
			return &ReconciliationError{Reason: fmt.Sprintf("%s step %q running total %s != recorded %s", scope, s.Name, sum, s.Total)}
		}
	}
	if !sum.Equal(total) {
		return &ReconciliationError{Reason: fmt.Sprintf("%s steps sum to %s, total is %s", scope, sum, total)}
	}
	return nil
}
