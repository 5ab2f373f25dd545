package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MaterialCatalogEntry is a stock item of a tenant. BulkDiscounts holds a JSON
// list of {min_quantity, percent}; stored order is irrelevant.
// Table: material_catalog_entries
type MaterialCatalogEntry struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID       `gorm:"type:uuid;uniqueIndex:idx_material_catalog_entries_uuid;not null" json:"uuid"`
	TenantID      string          `gorm:"size:64;not null;uniqueIndex:idx_material_catalog_entries_tenant_stock" json:"tenant_id"`
	StockKey      string          `gorm:"size:128;not null;uniqueIndex:idx_material_catalog_entries_tenant_stock" json:"stock_key"`
	Name          string          `gorm:"size:255;not null" json:"name"`
	UnitCost      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_cost"`
	PackagingUnit string          `gorm:"size:32" json:"packaging_unit"`
	BulkDiscounts datatypes.JSON  `json:"bulk_discounts"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (MaterialCatalogEntry) TableName() string {
	return "material_catalog_entries"
}

// BeforeCreate is called before creating a new record
func (m *MaterialCatalogEntry) BeforeCreate(tx *gorm.DB) error {
	if m.UUID == uuid.Nil {
		m.UUID = uuid.New()
	}
	if len(m.BulkDiscounts) == 0 {
		m.BulkDiscounts = datatypes.JSON("[]")
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ToMaterial converts the row into the calculation engine type
func (m *MaterialCatalogEntry) ToMaterial() (pricing.Material, error) {
	material := pricing.Material{
		ID:            m.ID,
		StockKey:      m.StockKey,
		Name:          m.Name,
		UnitCost:      m.UnitCost,
		PackagingUnit: m.PackagingUnit,
	}
	if len(m.BulkDiscounts) > 0 {
		if err := json.Unmarshal(m.BulkDiscounts, &material.BulkDiscounts); err != nil {
			return pricing.Material{}, fmt.Errorf("material %s: invalid bulk discounts: %w", m.StockKey, err)
		}
	}
	return material, nil
}

type MaterialCatalogEntryFilter struct {
	ID        *uint    `json:"id,omitempty"`
	TenantID  *string  `json:"tenant_id,omitempty"`
	StockKey  *string  `json:"stock_key,omitempty"`
	StockKeys []string `json:"stock_keys,omitempty"`
}
