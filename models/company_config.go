package models

import (
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CompanyConfig stores the TIER 2 values of a tenant.
// Updates insert a new row and deactivate the previous one; the latest active row wins.
// Table: company_configs
type CompanyConfig struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	UUID               uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_company_configs_uuid;not null" json:"uuid"`
	TenantID           string          `gorm:"size:64;not null;index:idx_company_configs_tenant_active" json:"tenant_id"`
	HourlyRate         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"hourly_rate"`
	OverheadMultiplier decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"overhead_multiplier"`
	MarginMultiplier   decimal.Decimal `gorm:"type:numeric(8,4);not null" json:"margin_multiplier"`
	TaxRate            decimal.Decimal `gorm:"type:numeric(6,4);not null" json:"tax_rate"` // fraction, 0.19 for 19%
	Currency           string          `gorm:"size:3;not null" json:"currency"`
	Active             bool            `gorm:"not null;index:idx_company_configs_tenant_active" json:"active"`
	CreatedBy          string          `gorm:"size:255" json:"created_by"`
	CreatedAt          time.Time       `gorm:"index:idx_company_configs_created_at" json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (CompanyConfig) TableName() string {
	return "company_configs"
}

// BeforeCreate is called before creating a new record
func (c *CompanyConfig) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ToCompanyConfig converts the row into the calculation engine type
func (c *CompanyConfig) ToCompanyConfig() pricing.CompanyConfig {
	return pricing.CompanyConfig{
		ID:                 c.ID,
		TenantID:           c.TenantID,
		HourlyRate:         c.HourlyRate,
		OverheadMultiplier: c.OverheadMultiplier,
		MarginMultiplier:   c.MarginMultiplier,
		TaxRate:            c.TaxRate,
		Currency:           c.Currency,
	}
}

type CompanyConfigFilter struct {
	ID       *uint   `json:"id,omitempty"`
	TenantID *string `json:"tenant_id,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}
