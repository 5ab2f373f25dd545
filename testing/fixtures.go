package testing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/routing"
	"github.com/amirphl/quote-core/utils"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// Workshop is the seeded configuration of a joinery tenant
type Workshop struct {
	TenantID  string
	Factors   []*models.PricingFactor
	Company   *models.CompanyConfig
	Materials []*models.MaterialCatalogEntry
}

// SeedWorkshop stores TIER 1 factors, a TIER 2 configuration and a small catalog.
// Factors are global, so call it once per database.
func (tf *TestFixtures) SeedWorkshop(tenantID string) (*Workshop, error) {
	w := &Workshop{TenantID: tenantID}

	factors := []struct {
		category pricing.FactorCategory
		key      string
		factor   string
		enabled  bool
	}{
		{pricing.CategoryMaterialKind, "oak", "1.3", true},
		{pricing.CategorySurfaceTreatment, "lacquer", "1.1", true},
		{pricing.CategoryComplexityTechnique, "dovetail", "1.15", true},
		{pricing.CategoryMaterialKind, "pine", "0.9", false},
		{pricing.CategoryMaterialKind, "standard", "1", true},
	}
	for _, f := range factors {
		row := &models.PricingFactor{
			Category: string(f.category),
			Key:      f.key,
			Factor:   decimal.RequireFromString(f.factor),
			Enabled:  f.enabled,
		}
		if err := tf.DB.DB.Create(row).Error; err != nil {
			return nil, fmt.Errorf("failed to create pricing factor %s: %w", f.key, err)
		}
		w.Factors = append(w.Factors, row)
	}

	company, err := tf.CreateCompanyConfig(tenantID)
	if err != nil {
		return nil, err
	}
	w.Company = company

	oak, err := tf.CreateMaterial(tenantID, "OAK-BOARD", "Oak board", "130", "m²", nil)
	if err != nil {
		return nil, err
	}
	pine, err := tf.CreateMaterial(tenantID, "PINE-STRIP", "Pine strip", "10", "m", []pricing.BulkDiscount{
		{MinQuantity: decimal.NewFromInt(10), Percent: decimal.NewFromInt(5)},
		{MinQuantity: decimal.NewFromInt(50), Percent: decimal.NewFromInt(12)},
		{MinQuantity: decimal.NewFromInt(25), Percent: decimal.NewFromInt(8)},
	})
	if err != nil {
		return nil, err
	}
	w.Materials = []*models.MaterialCatalogEntry{oak, pine}
	return w, nil
}

// CreateCompanyConfig stores an active TIER 2 configuration: 50/h, overhead 1.15, margin 1.2, 19% tax
func (tf *TestFixtures) CreateCompanyConfig(tenantID string) (*models.CompanyConfig, error) {
	cfg := &models.CompanyConfig{
		TenantID:           tenantID,
		HourlyRate:         decimal.NewFromInt(50),
		OverheadMultiplier: decimal.RequireFromString("1.15"),
		MarginMultiplier:   decimal.RequireFromString("1.2"),
		TaxRate:            decimal.RequireFromString("0.19"),
		Currency:           utils.EuroCurrency,
		Active:             true,
		CreatedBy:          "fixtures",
	}
	if err := tf.DB.DB.Create(cfg).Error; err != nil {
		return nil, fmt.Errorf("failed to create company config: %w", err)
	}
	return cfg, nil
}

// CreateMaterial stores a catalog entry
func (tf *TestFixtures) CreateMaterial(tenantID, stockKey, name, unitCost, unit string, discounts []pricing.BulkDiscount) (*models.MaterialCatalogEntry, error) {
	if discounts == nil {
		discounts = []pricing.BulkDiscount{}
	}
	raw, err := json.Marshal(discounts)
	if err != nil {
		return nil, err
	}
	entry := &models.MaterialCatalogEntry{
		TenantID:      tenantID,
		StockKey:      stockKey,
		Name:          name,
		UnitCost:      decimal.RequireFromString(unitCost),
		PackagingUnit: unit,
		BulkDiscounts: datatypes.JSON(raw),
	}
	if err := tf.DB.DB.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create material %s: %w", stockKey, err)
	}
	return entry, nil
}

// CreateFixProposal stores a proposal in the given status
func (tf *TestFixtures) CreateFixProposal(tenantID, fieldName string, status deployment.Status) (*models.FixProposal, error) {
	proposal := &models.FixProposal{
		TenantID:    tenantID,
		FieldName:   fieldName,
		FixCategory: "entity_suffix_normalization",
		Description: "normalize legal entity suffixes",
		Status:      status,
		CreatedBy:   "fixtures",
	}
	if err := tf.DB.DB.Create(proposal).Error; err != nil {
		return nil, fmt.Errorf("failed to create fix proposal: %w", err)
	}
	return proposal, nil
}

// CreateExtractions stores count results of one field with the same confidence,
// one minute apart starting at start
func (tf *TestFixtures) CreateExtractions(tenantID, fieldName, value string, confidence float64, count int, start time.Time) ([]*models.ExtractionFieldResult, error) {
	rows := make([]*models.ExtractionFieldResult, 0, count)
	for i := range count {
		rows = append(rows, &models.ExtractionFieldResult{
			TenantID:    tenantID,
			DocumentID:  fmt.Sprintf("doc-%s-%d", fieldName, i),
			FieldName:   fieldName,
			RawValue:    value,
			Confidence:  confidence,
			Tier:        routing.Route(confidence).String(),
			ExtractedAt: start.Add(time.Duration(i) * time.Minute).UTC(),
		})
	}
	if len(rows) == 0 {
		return rows, nil
	}
	if err := tf.DB.DB.CreateInBatches(rows, 100).Error; err != nil {
		return nil, fmt.Errorf("failed to create extractions: %w", err)
	}
	return rows, nil
}
