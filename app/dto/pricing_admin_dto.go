package dto

import (
	"encoding/json"
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AdminCreatePricingFactorRequest adds a TIER 1 factor, or replaces the factor of an existing category/key
type AdminCreatePricingFactorRequest struct {
	Category string          `json:"category" validate:"required,oneof=material_kind surface_treatment complexity_technique"`
	Key      string          `json:"key" validate:"required,max=128"`
	Factor   decimal.Decimal `json:"factor"`
	Enabled  *bool           `json:"enabled,omitempty"`
}

type PricingFactorItem struct {
	UUID      uuid.UUID       `json:"uuid"`
	Category  string          `json:"category"`
	Key       string          `json:"key"`
	Factor    decimal.Decimal `json:"factor"`
	Enabled   bool            `json:"enabled"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt string          `json:"updated_at"`
}

type PricingFactorResponse struct {
	Message string            `json:"message"`
	Item    PricingFactorItem `json:"item"`
}

type ListPricingFactorsResponse struct {
	Message string              `json:"message"`
	Items   []PricingFactorItem `json:"items"`
}

// UpsertCompanyConfigRequest stores a new TIER 2 version for the tenant
type UpsertCompanyConfigRequest struct {
	TenantID           string          `json:"-"`
	Actor              string          `json:"-"`
	HourlyRate         decimal.Decimal `json:"hourly_rate"`
	OverheadMultiplier decimal.Decimal `json:"overhead_multiplier"`
	MarginMultiplier   decimal.Decimal `json:"margin_multiplier"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	Currency           string          `json:"currency" validate:"omitempty,len=3,uppercase"`
}

type CompanyConfigItem struct {
	UUID               uuid.UUID       `json:"uuid"`
	TenantID           string          `json:"tenant_id"`
	HourlyRate         decimal.Decimal `json:"hourly_rate"`
	OverheadMultiplier decimal.Decimal `json:"overhead_multiplier"`
	MarginMultiplier   decimal.Decimal `json:"margin_multiplier"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	Currency           string          `json:"currency"`
	CreatedBy          string          `json:"created_by"`
	CreatedAt          string          `json:"created_at"`
}

type CompanyConfigResponse struct {
	Message string            `json:"message"`
	Item    CompanyConfigItem `json:"item"`
}

type AdminCreateAdjustmentRequest struct {
	TenantID   string          `json:"-"`
	Name       string          `json:"name" validate:"required,max=255"`
	Kind       string          `json:"kind" validate:"required,oneof=percentage absolute"`
	Magnitude  decimal.Decimal `json:"magnitude"`
	ValidFrom  time.Time       `json:"valid_from" validate:"required"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	Audience   string          `json:"audience" validate:"omitempty,oneof=all new_customer existing_customer vip"`
	Priority   int             `json:"priority"`
}

type AdjustmentItem struct {
	UUID       uuid.UUID       `json:"uuid"`
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	Magnitude  decimal.Decimal `json:"magnitude"`
	ValidFrom  time.Time       `json:"valid_from"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	Audience   string          `json:"audience"`
	Priority   int             `json:"priority"`
	Active     bool            `json:"active"`
}

type AdjustmentResponse struct {
	Message string         `json:"message"`
	Item    AdjustmentItem `json:"item"`
}

type ListAdjustmentsResponse struct {
	Message string           `json:"message"`
	Items   []AdjustmentItem `json:"items"`
}

type AdminCreateMaterialRequest struct {
	TenantID      string                 `json:"-"`
	StockKey      string                 `json:"stock_key" validate:"required,max=128"`
	Name          string                 `json:"name" validate:"required,max=255"`
	UnitCost      decimal.Decimal        `json:"unit_cost"`
	PackagingUnit string                 `json:"packaging_unit" validate:"required,max=32"`
	BulkDiscounts []pricing.BulkDiscount `json:"bulk_discounts"`
}

type MaterialItem struct {
	UUID          uuid.UUID              `json:"uuid"`
	StockKey      string                 `json:"stock_key"`
	Name          string                 `json:"name"`
	UnitCost      decimal.Decimal        `json:"unit_cost"`
	PackagingUnit string                 `json:"packaging_unit"`
	BulkDiscounts []pricing.BulkDiscount `json:"bulk_discounts"`
}

type MaterialResponse struct {
	Message string       `json:"message"`
	Item    MaterialItem `json:"item"`
}

type ListMaterialsResponse struct {
	Message string         `json:"message"`
	Items   []MaterialItem `json:"items"`
}

type AdminCreateSurchargeRuleRequest struct {
	TenantID      string           `json:"-"`
	Name          string           `json:"name" validate:"required,max=255"`
	Kind          string           `json:"kind" validate:"required,oneof=fixed per_unit percent_of_order conditional"`
	Amount        decimal.Decimal  `json:"amount"`
	Rate          decimal.Decimal  `json:"rate"`
	UnitInput     string           `json:"unit_input,omitempty" validate:"max=128"`
	Percent       decimal.Decimal  `json:"percent"`
	CapOrderValue *decimal.Decimal `json:"cap_order_value,omitempty"`
	Rule          json.RawMessage  `json:"rule,omitempty"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
	MaxOrderValue *decimal.Decimal `json:"max_order_value,omitempty"`
	Priority      int              `json:"priority"`
	ValidFrom     *time.Time       `json:"valid_from,omitempty"`
	ValidUntil    *time.Time       `json:"valid_until,omitempty"`
}

type SurchargeRuleItem struct {
	UUID          uuid.UUID        `json:"uuid"`
	Name          string           `json:"name"`
	Kind          string           `json:"kind"`
	Amount        decimal.Decimal  `json:"amount"`
	Rate          decimal.Decimal  `json:"rate"`
	UnitInput     string           `json:"unit_input,omitempty"`
	Percent       decimal.Decimal  `json:"percent"`
	CapOrderValue *decimal.Decimal `json:"cap_order_value,omitempty"`
	Rule          json.RawMessage  `json:"rule,omitempty"`
	MinOrderValue *decimal.Decimal `json:"min_order_value,omitempty"`
	MaxOrderValue *decimal.Decimal `json:"max_order_value,omitempty"`
	Priority      int              `json:"priority"`
	Active        bool             `json:"active"`
	ValidFrom     *time.Time       `json:"valid_from,omitempty"`
	ValidUntil    *time.Time       `json:"valid_until,omitempty"`
}

type SurchargeRuleResponse struct {
	Message string            `json:"message"`
	Item    SurchargeRuleItem `json:"item"`
}

type ListSurchargeRulesResponse struct {
	Message string              `json:"message"`
	Items   []SurchargeRuleItem `json:"items"`
}
