// Package models contains the persisted entities of the pricing and extraction core
package models

import (
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PricingFactor is a TIER 1 global standard. Rows are never deleted, only disabled.
// Table: pricing_factors
type PricingFactor struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UUID      uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_pricing_factors_uuid;not null" json:"uuid"`
	Category  string          `gorm:"size:64;not null;uniqueIndex:idx_pricing_factors_category_key" json:"category"`
	Key       string          `gorm:"column:factor_key;size:128;not null;uniqueIndex:idx_pricing_factors_category_key" json:"key"`
	Factor    decimal.Decimal `gorm:"type:numeric(10,4);not null" json:"factor"`
	Enabled   bool            `gorm:"not null;index:idx_pricing_factors_enabled" json:"enabled"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (PricingFactor) TableName() string {
	return "pricing_factors"
}

// BeforeCreate is called before creating a new record
func (f *PricingFactor) BeforeCreate(tx *gorm.DB) error {
	if f.UUID == uuid.Nil {
		f.UUID = uuid.New()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ToFactor converts the row into the calculation engine type
func (f *PricingFactor) ToFactor() pricing.Factor {
	return pricing.Factor{
		ID:       f.ID,
		Category: pricing.FactorCategory(f.Category),
		Key:      f.Key,
		Factor:   f.Factor,
		Enabled:  f.Enabled,
	}
}

type PricingFactorFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	Category *string    `json:"category,omitempty"`
	Key      *string    `json:"key,omitempty"`
	Enabled  *bool      `json:"enabled,omitempty"`
}
