// Package pricing implements the deterministic tiered price calculation
package pricing

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/amirphl/quote-core/rules"
	"github.com/shopspring/decimal"
)

// FactorCategory groups TIER 1 multiplicative factors
type FactorCategory string

const (
	CategoryMaterialKind        FactorCategory = "material_kind"
	CategorySurfaceTreatment    FactorCategory = "surface_treatment"
	CategoryComplexityTechnique FactorCategory = "complexity_technique"
)

// Valid checks if the category is valid
func (c FactorCategory) Valid() bool {
	switch c {
	case CategoryMaterialKind, CategorySurfaceTreatment, CategoryComplexityTechnique:
		return true
	default:
		return false
	}
}

// Factor is a TIER 1 global standard
type Factor struct {
	ID       uint            `json:"id"`
	Category FactorCategory  `json:"category"`
	Key      string          `json:"key"`
	Factor   decimal.Decimal `json:"factor"`
	Enabled  bool            `json:"enabled"`
}

// CompanyConfig holds the TIER 2 values of one tenant
type CompanyConfig struct {
	ID                 uint            `json:"id"`
	TenantID           string          `json:"tenant_id"`
	HourlyRate         decimal.Decimal `json:"hourly_rate"`
	OverheadMultiplier decimal.Decimal `json:"overhead_multiplier"`
	MarginMultiplier   decimal.Decimal `json:"margin_multiplier"`
	// TaxRate is a fraction, 0.19 for 19%
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Currency string          `json:"currency"`
}

// AdjustmentKind selects how a TIER 3 adjustment changes the running total
type AdjustmentKind string

const (
	AdjustmentPercentage AdjustmentKind = "percentage"
	AdjustmentAbsolute   AdjustmentKind = "absolute"
)

// Valid checks if the kind is valid
func (k AdjustmentKind) Valid() bool {
	return k == AdjustmentPercentage || k == AdjustmentAbsolute
}

// Audience is the customer group an adjustment targets
type Audience string

const (
	AudienceAll              Audience = "all"
	AudienceNewCustomer      Audience = "new_customer"
	AudienceExistingCustomer Audience = "existing_customer"
	AudienceVIP              Audience = "vip"
)

// Valid checks if the audience is valid
func (a Audience) Valid() bool {
	switch a {
	case AudienceAll, AudienceNewCustomer, AudienceExistingCustomer, AudienceVIP:
		return true
	default:
		return false
	}
}

// Adjustment is a TIER 3 dynamic adjustment. Magnitude is in percent points for
// percentage adjustments and in currency for absolute ones; negative values are discounts.
type Adjustment struct {
	ID         uint            `json:"id"`
	Name       string          `json:"name"`
	Kind       AdjustmentKind  `json:"kind"`
	Magnitude  decimal.Decimal `json:"magnitude"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	Audience   Audience        `json:"audience"`
	Priority   int             `json:"priority"`
	Active     bool            `json:"active"`
}

// AppliesTo reports whether the adjustment is active, valid at date and targets audience
func (a Adjustment) AppliesTo(date time.Time, audience Audience) bool {
	if !a.Active {
		return false
	}
	if date.Before(a.ValidFrom) {
		return false
	}
	if a.ValidUntil != nil && !date.Before(*a.ValidUntil) {
		return false
	}
	return a.Audience == AudienceAll || a.Audience == audience
}

// BulkDiscount grants Percent off the material cost from MinQuantity upwards
type BulkDiscount struct {
	MinQuantity decimal.Decimal `json:"min_quantity"`
	Percent     decimal.Decimal `json:"percent"`
}

// Material is a catalog entry of one tenant
type Material struct {
	ID            uint            `json:"id"`
	StockKey      string          `json:"stock_key"`
	Name          string          `json:"name"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	PackagingUnit string          `json:"packaging_unit"`
	BulkDiscounts []BulkDiscount  `json:"bulk_discounts"`
}

// BulkDiscountFor returns the discount of the highest threshold not above quantity
func (m Material) BulkDiscountFor(quantity decimal.Decimal) (BulkDiscount, bool) {
	var best BulkDiscount
	found := false
	for _, d := range m.BulkDiscounts {
		if quantity.LessThan(d.MinQuantity) {
			continue
		}
		if !found || d.MinQuantity.GreaterThan(best.MinQuantity) {
			best = d
			found = true
		}
	}
	return best, found
}

// SurchargeKind selects how a surcharge amount is computed
type SurchargeKind string

const (
	SurchargeFixed          SurchargeKind = "fixed"
	SurchargePerUnit        SurchargeKind = "per_unit"
	SurchargePercentOfOrder SurchargeKind = "percent_of_order"
	SurchargeConditional    SurchargeKind = "conditional"
)

// Valid checks if the kind is valid
func (k SurchargeKind) Valid() bool {
	switch k {
	case SurchargeFixed, SurchargePerUnit, SurchargePercentOfOrder, SurchargeConditional:
		return true
	default:
		return false
	}
}

// Surcharge is an additional charge applied after tiered pricing
type Surcharge struct {
	ID   uint          `json:"id"`
	Name string        `json:"name"`
	Kind SurchargeKind `json:"kind"`
	// Amount is the fixed amount, or the amount charged when a conditional rule yields true
	Amount decimal.Decimal `json:"amount"`
	// Rate is charged per unit of UnitInput
	Rate      decimal.Decimal `json:"rate"`
	UnitInput string          `json:"unit_input,omitempty"`
	// Percent is in percent points of the order value, clipped at CapOrderValue
	Percent       decimal.Decimal  `json:"percent"`
	CapOrderValue *decimal.Decimal `json:"cap_order_value,omitempty"`
	Rule          rules.Node       `json:"rule,omitempty"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
	MaxOrderValue *decimal.Decimal `json:"max_order_value,omitempty"`
	Priority      int              `json:"priority"`
	Active        bool             `json:"active"`
	ValidFrom     *time.Time       `json:"valid_from,omitempty"`
	ValidUntil    *time.Time       `json:"valid_until,omitempty"`
}

// InWindow reports whether the surcharge is active and date lies in its optional window
func (s Surcharge) InWindow(date time.Time) bool {
	if !s.Active {
		return false
	}
	if s.ValidFrom != nil && date.Before(*s.ValidFrom) {
		return false
	}
	if s.ValidUntil != nil && !date.Before(*s.ValidUntil) {
		return false
	}
	return true
}

// Admits reports whether the order value lies within the surcharge's inclusive bounds
func (s Surcharge) Admits(orderValue decimal.Decimal) bool {
	if s.MinOrderValue != nil && orderValue.LessThan(*s.MinOrderValue) {
		return false
	}
	if s.MaxOrderValue != nil && orderValue.GreaterThan(*s.MaxOrderValue) {
		return false
	}
	return true
}

// UnmarshalJSON decodes the rule tree through the rules decoder
func (s *Surcharge) UnmarshalJSON(data []byte) error {
	type plain Surcharge
	var aux struct {
		plain
		Rule json.RawMessage `json:"rule,omitempty"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*s = Surcharge(aux.plain)
	s.Rule = nil
	if len(aux.Rule) > 0 && !bytes.Equal(bytes.TrimSpace(aux.Rule), []byte("null")) {
		node, err := rules.Decode(aux.Rule)
		if err != nil {
			return err
		}
		s.Rule = node
	}
	return nil
}

// Snapshot is the complete, read-only configuration a calculation is computed from
type Snapshot struct {
	Factors     []Factor      `json:"factors"`
	Company     CompanyConfig `json:"company"`
	Adjustments []Adjustment  `json:"adjustments"`
	Materials   []Material    `json:"materials"`
	Surcharges  []Surcharge   `json:"surcharges"`
}

// Line is one material position of a document
type Line struct {
	LaborHours          decimal.Decimal `json:"labor_hours"`
	StockKey            string          `json:"stock_key"`
	Quantity            decimal.Decimal `json:"quantity"`
	MaterialKind        string          `json:"material_kind"`
	SurfaceTreatment    string          `json:"surface_treatment,omitempty"`
	ComplexityTechnique string          `json:"complexity_technique,omitempty"`
}

// Input is everything a calculation needs from the document
type Input struct {
	Lines    []Line    `json:"lines"`
	Audience Audience  `json:"audience"`
	Date     time.Time `json:"date"`
	// RuleInputs are declared inputs for conditional surcharges, e.g. distance_km
	RuleInputs map[string]rules.Value `json:"rule_inputs,omitempty"`
	// Unverified lists fields used without human confirmation
	Unverified []string `json:"unverified,omitempty"`
}
