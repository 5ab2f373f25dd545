package models

import (
	"encoding/json"
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PriceCalculation is a stored, reconciled price breakdown together with the
// configuration values it was computed from.
// Table: price_calculations
type PriceCalculation struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_price_calculations_uuid;not null" json:"uuid"`
	TenantID         string          `gorm:"size:64;not null;index:idx_price_calculations_tenant_document" json:"tenant_id"`
	DocumentID       string          `gorm:"size:255;not null;index:idx_price_calculations_tenant_document" json:"document_id"`
	CompanyConfigID  uint            `gorm:"not null" json:"company_config_id"`
	NetTotal         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"net_total"`
	TaxAmount        decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"tax_amount"`
	GrossTotal       decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"gross_total"`
	Currency         string          `gorm:"size:3;not null" json:"currency"`
	Unverified       bool            `gorm:"not null" json:"unverified"`
	UnverifiedFields datatypes.JSON  `json:"unverified_fields"`
	Breakdown        datatypes.JSON  `json:"breakdown"`
	ConfigSnapshot   datatypes.JSON  `json:"config_snapshot"`
	CreatedBy        string          `gorm:"size:255" json:"created_by"`
	CreatedAt        time.Time       `gorm:"index:idx_price_calculations_created_at" json:"created_at"`
}

func (PriceCalculation) TableName() string {
	return "price_calculations"
}

// BeforeCreate is called before creating a new record
func (c *PriceCalculation) BeforeCreate(tx *gorm.DB) error {
	if c.UUID == uuid.Nil {
		c.UUID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = utils.UTCNow()
	}
	return nil
}

// DecodeBreakdown returns the stored breakdown
func (c *PriceCalculation) DecodeBreakdown() (*pricing.PriceBreakdown, error) {
	var breakdown pricing.PriceBreakdown
	if err := json.Unmarshal(c.Breakdown, &breakdown); err != nil {
		return nil, err
	}
	return &breakdown, nil
}

type PriceCalculationFilter struct {
	ID         *uint      `json:"id,omitempty"`
	UUID       *uuid.UUID `json:"uuid,omitempty"`
	TenantID   *string    `json:"tenant_id,omitempty"`
	DocumentID *string    `json:"document_id,omitempty"`
}
