package models

import (
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// DynamicAdjustment is a TIER 3 time-bounded, audience-specific adjustment.
// Table: dynamic_adjustments
type DynamicAdjustment struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	UUID       uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_dynamic_adjustments_uuid;not null" json:"uuid"`
	TenantID   string          `gorm:"size:64;not null;index:idx_dynamic_adjustments_tenant" json:"tenant_id"`
	Name       string          `gorm:"size:255;not null" json:"name"`
	Kind       string          `gorm:"size:32;not null" json:"kind"`
	Magnitude  decimal.Decimal `gorm:"type:numeric(12,4);not null" json:"magnitude"`
	ValidFrom  time.Time       `gorm:"not null;index:idx_dynamic_adjustments_valid_from" json:"valid_from"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
	Audience   string          `gorm:"size:32;not null" json:"audience"`
	Priority   int             `gorm:"not null" json:"priority"`
	Active     bool            `gorm:"not null" json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (DynamicAdjustment) TableName() string {
	return "dynamic_adjustments"
}

// BeforeCreate is called before creating a new record
func (a *DynamicAdjustment) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == uuid.Nil {
		a.UUID = uuid.New()
	}
	if a.Audience == "" {
		a.Audience = string(pricing.AudienceAll)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ToAdjustment converts the row into the calculation engine type
func (a *DynamicAdjustment) ToAdjustment() pricing.Adjustment {
	return pricing.Adjustment{
		ID:         a.ID,
		Name:       a.Name,
		Kind:       pricing.AdjustmentKind(a.Kind),
		Magnitude:  a.Magnitude,
		ValidFrom:  a.ValidFrom,
		ValidUntil: a.ValidUntil,
		Audience:   pricing.Audience(a.Audience),
		Priority:   a.Priority,
		Active:     a.Active,
	}
}

type DynamicAdjustmentFilter struct {
	ID       *uint   `json:"id,omitempty"`
	TenantID *string `json:"tenant_id,omitempty"`
	Active   *bool   `json:"active,omitempty"`
	Audience *string `json:"audience,omitempty"`
	// ValidAt keeps adjustments whose [valid_from, valid_until) contains the instant
	ValidAt *time.Time `json:"valid_at,omitempty"`
}
