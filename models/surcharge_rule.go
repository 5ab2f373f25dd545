package models

import (
	"bytes"
	"fmt"
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/rules"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SurchargeRule is an additional charge of a tenant. RuleTree holds the JSON
// rule tree of conditional surcharges.
// Table: surcharge_rules
type SurchargeRule struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID        `gorm:"type:uuid;uniqueIndex:idx_surcharge_rules_uuid;not null" json:"uuid"`
	TenantID      string           `gorm:"size:64;not null;index:idx_surcharge_rules_tenant" json:"tenant_id"`
	Name          string           `gorm:"size:255;not null" json:"name"`
	Kind          string           `gorm:"size:32;not null" json:"kind"`
	Amount        decimal.Decimal  `gorm:"type:numeric(12,2);not null" json:"amount"`
	Rate          decimal.Decimal  `gorm:"type:numeric(12,4);not null" json:"rate"`
	UnitInput     string           `gorm:"size:128" json:"unit_input,omitempty"`
	Percent       decimal.Decimal  `gorm:"type:numeric(8,4);not null" json:"percent"`
	CapOrderValue *decimal.Decimal `gorm:"type:numeric(14,2)" json:"cap_order_value,omitempty"`
	RuleTree      datatypes.JSON   `json:"rule_tree,omitempty"`
	MinOrderValue *decimal.Decimal `gorm:"type:numeric(14,2)" json:"min_order_value,omitempty"`
	MaxOrderValue *decimal.Decimal `gorm:"type:numeric(14,2)" json:"max_order_value,omitempty"`
	Priority      int              `gorm:"not null" json:"priority"`
	Active        bool             `gorm:"not null" json:"active"`
	ValidFrom     *time.Time       `json:"valid_from,omitempty"`
	ValidUntil    *time.Time       `json:"valid_until,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

func (SurchargeRule) TableName() string {
	return "surcharge_rules"
}

// BeforeCreate is called before creating a new record
func (s *SurchargeRule) BeforeCreate(tx *gorm.DB) error {
	if s.UUID == uuid.Nil {
		s.UUID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ToSurcharge converts the row into the calculation engine type, decoding the rule tree
func (s *SurchargeRule) ToSurcharge() (pricing.Surcharge, error) {
	surcharge := pricing.Surcharge{
		ID:            s.ID,
		Name:          s.Name,
		Kind:          pricing.SurchargeKind(s.Kind),
		Amount:        s.Amount,
		Rate:          s.Rate,
		UnitInput:     s.UnitInput,
		Percent:       s.Percent,
		CapOrderValue: s.CapOrderValue,
		MinOrderValue: s.MinOrderValue,
		MaxOrderValue: s.MaxOrderValue,
		Priority:      s.Priority,
		Active:        s.Active,
		ValidFrom:     s.ValidFrom,
		ValidUntil:    s.ValidUntil,
	}
	if len(s.RuleTree) > 0 && !bytes.Equal(bytes.TrimSpace(s.RuleTree), []byte("null")) {
		node, err := rules.Decode(s.RuleTree)
		if err != nil {
			return pricing.Surcharge{}, &pricing.SurchargeRuleError{Surcharge: s.Name, Err: fmt.Errorf("stored rule tree: %w", err)}
		}
		surcharge.Rule = node
	}
	return surcharge, nil
}

type SurchargeRuleFilter struct {
	ID       *uint   `json:"id,omitempty"`
	TenantID *string `json:"tenant_id,omitempty"`
	Kind     *string `json:"kind,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}
