package businessflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/services"
	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/repository"
	"github.com/amirphl/quote-core/rules"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PricingAdminFlow manages the three pricing tiers, the material catalog and surcharge rules
type PricingAdminFlow interface {
	UpsertPricingFactor(ctx context.Context, req *dto.AdminCreatePricingFactorRequest) (*dto.PricingFactorResponse, error)
	ListPricingFactors(ctx context.Context) (*dto.ListPricingFactorsResponse, error)
	DisablePricingFactor(ctx context.Context, factorUUID string) (*dto.PricingFactorResponse, error)
	// SeedPricingFactors upserts every factor of seed and returns how many were written
	SeedPricingFactors(ctx context.Context, seed *config.PricingSeed) (int, error)

	UpsertCompanyConfig(ctx context.Context, req *dto.UpsertCompanyConfigRequest) (*dto.CompanyConfigResponse, error)
	GetCompanyConfig(ctx context.Context, tenantID string) (*dto.CompanyConfigResponse, error)

	CreateAdjustment(ctx context.Context, req *dto.AdminCreateAdjustmentRequest) (*dto.AdjustmentResponse, error)
	ListAdjustments(ctx context.Context, tenantID string) (*dto.ListAdjustmentsResponse, error)

	CreateMaterial(ctx context.Context, req *dto.AdminCreateMaterialRequest) (*dto.MaterialResponse, error)
	ListMaterials(ctx context.Context, tenantID string) (*dto.ListMaterialsResponse, error)

	CreateSurchargeRule(ctx context.Context, req *dto.AdminCreateSurchargeRuleRequest) (*dto.SurchargeRuleResponse, error)
	ListSurchargeRules(ctx context.Context, tenantID string) (*dto.ListSurchargeRulesResponse, error)
}

type PricingAdminFlowImpl struct {
	factorRepo      repository.PricingFactorRepository
	companyRepo     repository.CompanyConfigRepository
	adjustmentRepo  repository.DynamicAdjustmentRepository
	materialRepo    repository.MaterialCatalogRepository
	surchargeRepo   repository.SurchargeRuleRepository
	factorCache     services.FactorCache
	defaultCurrency string
	db              *gorm.DB
	logger          *zap.Logger
}

func NewPricingAdminFlow(
	factorRepo repository.PricingFactorRepository,
	companyRepo repository.CompanyConfigRepository,
	adjustmentRepo repository.DynamicAdjustmentRepository,
	materialRepo repository.MaterialCatalogRepository,
	surchargeRepo repository.SurchargeRuleRepository,
	factorCache services.FactorCache,
	defaultCurrency string,
	db *gorm.DB,
	logger *zap.Logger,
) PricingAdminFlow {
	if defaultCurrency == "" {
		defaultCurrency = utils.EuroCurrency
	}
	return &PricingAdminFlowImpl{
		factorRepo:      factorRepo,
		companyRepo:     companyRepo,
		adjustmentRepo:  adjustmentRepo,
		materialRepo:    materialRepo,
		surchargeRepo:   surchargeRepo,
		factorCache:     factorCache,
		defaultCurrency: defaultCurrency,
		db:              db,
		logger:          logger,
	}
}

// UpsertPricingFactor creates a factor or replaces the value of an existing category/key
func (f *PricingAdminFlowImpl) UpsertPricingFactor(ctx context.Context, req *dto.AdminCreatePricingFactorRequest) (*dto.PricingFactorResponse, error) {
	factor, err := f.upsertFactor(ctx, req.Category, req.Key, req.Factor, req.Enabled)
	if err != nil {
		return nil, err
	}
	f.invalidateFactors(ctx)
	return &dto.PricingFactorResponse{
		Message: "Pricing factor saved successfully",
		Item:    toPricingFactorItem(factor),
	}, nil
}

func (f *PricingAdminFlowImpl) upsertFactor(ctx context.Context, category, key string, value decimal.Decimal, enabled *bool) (*models.PricingFactor, error) {
	key = strings.TrimSpace(key)
	if !pricing.FactorCategory(category).Valid() || key == "" {
		return nil, NewBusinessErrorf("PRICING_FACTOR_INVALID", "Unknown factor category %q or empty key", ErrPricingFactorInvalid, category)
	}
	if !value.IsPositive() {
		return nil, NewBusinessError("PRICING_FACTOR_INVALID", "Factor must be positive", ErrPricingFactorInvalid)
	}

	existing, err := f.factorRepo.ByCategoryKey(ctx, category, key)
	if err != nil {
		return nil, NewBusinessError("PRICING_FACTOR_FETCH_FAILED", "Failed to fetch pricing factor", err)
	}

	if existing == nil {
		factor := &models.PricingFactor{
			Category: category,
			Key:      key,
			Factor:   value,
			Enabled:  enabled == nil || *enabled,
		}
		if err := f.factorRepo.Save(ctx, factor); err != nil {
			return nil, NewBusinessError("PRICING_FACTOR_SAVE_FAILED", "Failed to save pricing factor", err)
		}
		return factor, nil
	}

	existing.Factor = value
	if enabled != nil {
		existing.Enabled = *enabled
	}
	if err := f.factorRepo.UpdateFactor(ctx, existing.ID, existing); err != nil {
		return nil, NewBusinessError("PRICING_FACTOR_SAVE_FAILED", "Failed to update pricing factor", err)
	}
	existing.UpdatedAt = utils.UTCNow()
	return existing, nil
}

func (f *PricingAdminFlowImpl) ListPricingFactors(ctx context.Context) (*dto.ListPricingFactorsResponse, error) {
	rows, err := f.factorRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("PRICING_FACTOR_LIST_FAILED", "Failed to list pricing factors", err)
	}
	items := make([]dto.PricingFactorItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toPricingFactorItem(row))
	}
	return &dto.ListPricingFactorsResponse{
		Message: "Pricing factors retrieved successfully",
		Items:   items,
	}, nil
}

func (f *PricingAdminFlowImpl) DisablePricingFactor(ctx context.Context, factorUUID string) (*dto.PricingFactorResponse, error) {
	if _, err := uuid.Parse(factorUUID); err != nil {
		return nil, NewBusinessError("PRICING_FACTOR_NOT_FOUND", "Pricing factor not found", ErrPricingFactorNotFound)
	}
	factor, err := f.factorRepo.ByUUID(ctx, factorUUID)
	if err != nil {
		return nil, NewBusinessError("PRICING_FACTOR_FETCH_FAILED", "Failed to fetch pricing factor", err)
	}
	if factor == nil {
		return nil, NewBusinessError("PRICING_FACTOR_NOT_FOUND", "Pricing factor not found", ErrPricingFactorNotFound)
	}
	if err := f.factorRepo.SetEnabled(ctx, factor.ID, false); err != nil {
		return nil, NewBusinessError("PRICING_FACTOR_SAVE_FAILED", "Failed to disable pricing factor", err)
	}
	factor.Enabled = false
	f.invalidateFactors(ctx)
	return &dto.PricingFactorResponse{
		Message: "Pricing factor disabled successfully",
		Item:    toPricingFactorItem(factor),
	}, nil
}

func (f *PricingAdminFlowImpl) SeedPricingFactors(ctx context.Context, seed *config.PricingSeed) (int, error) {
	if seed == nil || len(seed.Factors) == 0 {
		return 0, nil
	}
	written := 0
	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		for i, entry := range seed.Factors {
			value, err := decimal.NewFromString(entry.Factor)
			if err != nil {
				return NewBusinessErrorf("PRICING_FACTOR_INVALID", "Seed entry %d has an invalid factor", errors.Join(ErrPricingFactorInvalid, err), i)
			}
			if _, err := f.upsertFactor(txCtx, entry.Category, entry.Key, value, entry.Enabled); err != nil {
				return err
			}
			written++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	f.invalidateFactors(ctx)
	flowLogger(ctx, f.logger).Info("pricing factors seeded", zap.Int("factors", written))
	return written, nil
}

func (f *PricingAdminFlowImpl) invalidateFactors(ctx context.Context) {
	if f.factorCache == nil {
		return
	}
	if err := f.factorCache.Invalidate(ctx); err != nil {
		flowLogger(ctx, f.logger).Warn("failed to invalidate pricing factor cache", zap.Error(err))
	}
}

// UpsertCompanyConfig stores a new active configuration version and deactivates the previous one
func (f *PricingAdminFlowImpl) UpsertCompanyConfig(ctx context.Context, req *dto.UpsertCompanyConfigRequest) (*dto.CompanyConfigResponse, error) {
	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = f.defaultCurrency
	}
	cfg := &models.CompanyConfig{
		TenantID:           tenantID,
		HourlyRate:         req.HourlyRate,
		OverheadMultiplier: req.OverheadMultiplier,
		MarginMultiplier:   req.MarginMultiplier,
		TaxRate:            req.TaxRate,
		Currency:           currency,
		Active:             true,
		CreatedBy:          actorOr(ctx, req.Actor, "api"),
	}
	if err := validateCompanyConfig(cfg); err != nil {
		return nil, err
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.companyRepo.DeactivateByTenant(txCtx, tenantID); err != nil {
			return fmt.Errorf("deactivate company config: %w", err)
		}
		return f.companyRepo.Save(txCtx, cfg)
	})
	if err != nil {
		return nil, NewBusinessError("COMPANY_CONFIG_SAVE_FAILED", "Failed to save company configuration", err)
	}

	flowLogger(ctx, f.logger).Info("company configuration updated",
		zap.String("config_uuid", cfg.UUID.String()),
		zap.String("hourly_rate", cfg.HourlyRate.String()),
	)
	return &dto.CompanyConfigResponse{
		Message: "Company configuration saved successfully",
		Item:    toCompanyConfigItem(cfg),
	}, nil
}

func validateCompanyConfig(cfg *models.CompanyConfig) error {
	switch {
	case !cfg.HourlyRate.IsPositive():
		return NewBusinessError("COMPANY_CONFIG_INVALID", "Hourly rate must be positive", ErrCompanyConfigInvalid)
	case !cfg.OverheadMultiplier.IsPositive():
		return NewBusinessError("COMPANY_CONFIG_INVALID", "Overhead multiplier must be positive", ErrCompanyConfigInvalid)
	case !cfg.MarginMultiplier.IsPositive():
		return NewBusinessError("COMPANY_CONFIG_INVALID", "Margin multiplier must be positive", ErrCompanyConfigInvalid)
	case cfg.TaxRate.IsNegative() || cfg.TaxRate.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return NewBusinessError("COMPANY_CONFIG_INVALID", "Tax rate must be a fraction in [0, 1)", ErrCompanyConfigInvalid)
	case len(cfg.Currency) != 3:
		return NewBusinessError("COMPANY_CONFIG_INVALID", "Currency must be a three letter code", ErrCompanyConfigInvalid)
	}
	return nil
}

func (f *PricingAdminFlowImpl) GetCompanyConfig(ctx context.Context, tenantID string) (*dto.CompanyConfigResponse, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	cfg, err := f.companyRepo.ActiveByTenant(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("COMPANY_CONFIG_FETCH_FAILED", "Failed to fetch company configuration", err)
	}
	if cfg == nil {
		return nil, NewBusinessError("COMPANY_CONFIG_NOT_FOUND", "No active company configuration for tenant", ErrCompanyConfigNotFound)
	}
	return &dto.CompanyConfigResponse{
		Message: "Company configuration retrieved successfully",
		Item:    toCompanyConfigItem(cfg),
	}, nil
}

func (f *PricingAdminFlowImpl) CreateAdjustment(ctx context.Context, req *dto.AdminCreateAdjustmentRequest) (*dto.AdjustmentResponse, error) {
	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}

	kind := pricing.AdjustmentKind(req.Kind)
	if kind != pricing.AdjustmentPercentage && kind != pricing.AdjustmentAbsolute {
		return nil, NewBusinessErrorf("ADJUSTMENT_INVALID", "Unknown adjustment kind %q", ErrAdjustmentInvalid, req.Kind)
	}
	audience := pricing.Audience(req.Audience)
	if audience == "" {
		audience = pricing.AudienceAll
	}
	if !audience.Valid() {
		return nil, NewBusinessErrorf("ADJUSTMENT_INVALID", "Unknown audience %q", ErrAdjustmentInvalid, req.Audience)
	}
	if req.ValidFrom.IsZero() {
		return nil, NewBusinessError("ADJUSTMENT_INVALID", "Valid from is required", ErrAdjustmentInvalid)
	}
	if req.ValidUntil != nil && !req.ValidUntil.After(req.ValidFrom) {
		return nil, NewBusinessError("ADJUSTMENT_INVALID", "Valid until must be after valid from", ErrAdjustmentInvalid)
	}

	adj := &models.DynamicAdjustment{
		TenantID:   tenantID,
		Name:       strings.TrimSpace(req.Name),
		Kind:       string(kind),
		Magnitude:  req.Magnitude,
		ValidFrom:  req.ValidFrom.UTC(),
		ValidUntil: utcPtr(req.ValidUntil),
		Audience:   string(audience),
		Priority:   req.Priority,
		Active:     true,
	}
	if err := f.adjustmentRepo.Save(ctx, adj); err != nil {
		return nil, NewBusinessError("ADJUSTMENT_SAVE_FAILED", "Failed to save adjustment", err)
	}
	return &dto.AdjustmentResponse{
		Message: "Adjustment created successfully",
		Item:    toAdjustmentItem(adj),
	}, nil
}

func (f *PricingAdminFlowImpl) ListAdjustments(ctx context.Context, tenantID string) (*dto.ListAdjustmentsResponse, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := f.adjustmentRepo.ByFilter(ctx, models.DynamicAdjustmentFilter{TenantID: &tenantID}, "priority DESC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("ADJUSTMENT_LIST_FAILED", "Failed to list adjustments", err)
	}
	items := make([]dto.AdjustmentItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toAdjustmentItem(row))
	}
	return &dto.ListAdjustmentsResponse{Message: "Adjustments retrieved successfully", Items: items}, nil
}

func (f *PricingAdminFlowImpl) CreateMaterial(ctx context.Context, req *dto.AdminCreateMaterialRequest) (*dto.MaterialResponse, error) {
	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}
	stockKey := strings.TrimSpace(req.StockKey)
	if stockKey == "" {
		return nil, NewBusinessError("MATERIAL_INVALID", "Stock key is required", ErrMaterialInvalid)
	}
	if req.UnitCost.IsNegative() {
		return nil, NewBusinessError("MATERIAL_INVALID", "Unit cost must not be negative", ErrMaterialInvalid)
	}
	for _, d := range req.BulkDiscounts {
		if !d.MinQuantity.IsPositive() || d.Percent.IsNegative() || d.Percent.GreaterThan(decimal.NewFromInt(100)) {
			return nil, NewBusinessError("MATERIAL_INVALID", "Bulk discounts need a positive minimum quantity and a percent within 0..100", ErrMaterialInvalid)
		}
	}

	existing, err := f.materialRepo.ByStockKey(ctx, tenantID, stockKey)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_FETCH_FAILED", "Failed to fetch material", err)
	}
	if existing != nil {
		return nil, NewBusinessErrorf("MATERIAL_EXISTS", "Material %s already exists", ErrMaterialInvalid, stockKey)
	}

	discounts := req.BulkDiscounts
	if discounts == nil {
		discounts = []pricing.BulkDiscount{}
	}
	raw, err := json.Marshal(discounts)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_INVALID", "Invalid bulk discounts", errors.Join(ErrMaterialInvalid, err))
	}

	entry := &models.MaterialCatalogEntry{
		TenantID:      tenantID,
		StockKey:      stockKey,
		Name:          strings.TrimSpace(req.Name),
		UnitCost:      req.UnitCost,
		PackagingUnit: req.PackagingUnit,
		BulkDiscounts: datatypes.JSON(raw),
	}
	if err := f.materialRepo.Save(ctx, entry); err != nil {
		return nil, NewBusinessError("MATERIAL_SAVE_FAILED", "Failed to save material", err)
	}
	return &dto.MaterialResponse{
		Message: "Material created successfully",
		Item:    toMaterialItem(entry, discounts),
	}, nil
}

func (f *PricingAdminFlowImpl) ListMaterials(ctx context.Context, tenantID string) (*dto.ListMaterialsResponse, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := f.materialRepo.ByFilter(ctx, models.MaterialCatalogEntryFilter{TenantID: &tenantID}, "stock_key ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("MATERIAL_LIST_FAILED", "Failed to list materials", err)
	}
	items := make([]dto.MaterialItem, 0, len(rows))
	for _, row := range rows {
		material, err := row.ToMaterial()
		if err != nil {
			return nil, NewBusinessError("MATERIAL_DECODE_FAILED", "Stored material is invalid", err)
		}
		items = append(items, toMaterialItem(row, material.BulkDiscounts))
	}
	return &dto.ListMaterialsResponse{Message: "Materials retrieved successfully", Items: items}, nil
}

// CreateSurchargeRule stores a surcharge. Conditional surcharges need a rule tree that decodes and validates.
func (f *PricingAdminFlowImpl) CreateSurchargeRule(ctx context.Context, req *dto.AdminCreateSurchargeRuleRequest) (*dto.SurchargeRuleResponse, error) {
	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}

	rule := &models.SurchargeRule{
		TenantID:      tenantID,
		Name:          strings.TrimSpace(req.Name),
		Kind:          req.Kind,
		Amount:        req.Amount,
		Rate:          req.Rate,
		UnitInput:     strings.TrimSpace(req.UnitInput),
		Percent:       req.Percent,
		CapOrderValue: req.CapOrderValue,
		MinOrderValue: req.MinOrderValue,
		MaxOrderValue: req.MaxOrderValue,
		Priority:      req.Priority,
		Active:        true,
		ValidFrom:     utcPtr(req.ValidFrom),
		ValidUntil:    utcPtr(req.ValidUntil),
	}

	hasRule := len(req.Rule) > 0 && !bytes.Equal(bytes.TrimSpace(req.Rule), []byte("null"))
	switch pricing.SurchargeKind(req.Kind) {
	case pricing.SurchargeFixed:
		if req.Amount.IsNegative() {
			return nil, NewBusinessError("SURCHARGE_RULE_INVALID", "Amount must not be negative", ErrSurchargeRuleInvalid)
		}
	case pricing.SurchargePerUnit:
		if rule.UnitInput == "" {
			return nil, NewBusinessError("SURCHARGE_RULE_INVALID", "Per unit surcharges need a unit input", ErrSurchargeRuleInvalid)
		}
	case pricing.SurchargePercentOfOrder:
		if req.Percent.IsNegative() {
			return nil, NewBusinessError("SURCHARGE_RULE_INVALID", "Percent must not be negative", ErrSurchargeRuleInvalid)
		}
	case pricing.SurchargeConditional:
		if !hasRule {
			return nil, NewBusinessError("SURCHARGE_RULE_INVALID", "Conditional surcharges need a rule tree", ErrSurchargeRuleInvalid)
		}
	default:
		return nil, NewBusinessErrorf("SURCHARGE_RULE_INVALID", "Unknown surcharge kind %q", ErrSurchargeRuleInvalid, req.Kind)
	}
	if req.MinOrderValue != nil && req.MaxOrderValue != nil && req.MinOrderValue.GreaterThan(*req.MaxOrderValue) {
		return nil, NewBusinessError("SURCHARGE_RULE_INVALID", "Minimum order value exceeds maximum", ErrSurchargeRuleInvalid)
	}

	if hasRule {
		node, err := rules.Decode(req.Rule)
		if err == nil {
			err = rules.Validate(node)
		}
		if err != nil {
			return nil, NewBusinessError("SURCHARGE_RULE_INVALID", "Invalid rule tree", errors.Join(ErrSurchargeRuleInvalid, ErrRuleInvalid, err))
		}
		canonical, err := json.Marshal(node)
		if err != nil {
			return nil, NewBusinessError("SURCHARGE_RULE_INVALID", "Invalid rule tree", errors.Join(ErrSurchargeRuleInvalid, err))
		}
		rule.RuleTree = datatypes.JSON(canonical)
	}

	if err := f.surchargeRepo.Save(ctx, rule); err != nil {
		return nil, NewBusinessError("SURCHARGE_RULE_SAVE_FAILED", "Failed to save surcharge rule", err)
	}
	return &dto.SurchargeRuleResponse{
		Message: "Surcharge rule created successfully",
		Item:    toSurchargeRuleItem(rule),
	}, nil
}

func (f *PricingAdminFlowImpl) ListSurchargeRules(ctx context.Context, tenantID string) (*dto.ListSurchargeRulesResponse, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	rows, err := f.surchargeRepo.ByFilter(ctx, models.SurchargeRuleFilter{TenantID: &tenantID}, "priority DESC, id ASC", 0, 0)
	if err != nil {
		return nil, NewBusinessError("SURCHARGE_RULE_LIST_FAILED", "Failed to list surcharge rules", err)
	}
	items := make([]dto.SurchargeRuleItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toSurchargeRuleItem(row))
	}
	return &dto.ListSurchargeRulesResponse{Message: "Surcharge rules retrieved successfully", Items: items}, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return utils.ToPtr(t.UTC())
}

func toPricingFactorItem(f *models.PricingFactor) dto.PricingFactorItem {
	return dto.PricingFactorItem{
		UUID:      f.UUID,
		Category:  f.Category,
		Key:       f.Key,
		Factor:    f.Factor,
		Enabled:   f.Enabled,
		CreatedAt: f.CreatedAt.Format(time.RFC3339),
		UpdatedAt: f.UpdatedAt.Format(time.RFC3339),
	}
}

func toCompanyConfigItem(c *models.CompanyConfig) dto.CompanyConfigItem {
	return dto.CompanyConfigItem{
		UUID:               c.UUID,
		TenantID:           c.TenantID,
		HourlyRate:         c.HourlyRate,
		OverheadMultiplier: c.OverheadMultiplier,
		MarginMultiplier:   c.MarginMultiplier,
		TaxRate:            c.TaxRate,
		Currency:           c.Currency,
		CreatedBy:          c.CreatedBy,
		CreatedAt:          c.CreatedAt.Format(time.RFC3339),
	}
}

func toAdjustmentItem(a *models.DynamicAdjustment) dto.AdjustmentItem {
	return dto.AdjustmentItem{
		UUID:       a.UUID,
		Name:       a.Name,
		Kind:       a.Kind,
		Magnitude:  a.Magnitude,
		ValidFrom:  a.ValidFrom,
		ValidUntil: a.ValidUntil,
		Audience:   a.Audience,
		Priority:   a.Priority,
		Active:     a.Active,
	}
}

func toMaterialItem(m *models.MaterialCatalogEntry, discounts []pricing.BulkDiscount) dto.MaterialItem {
	if discounts == nil {
		discounts = []pricing.BulkDiscount{}
	}
	return dto.MaterialItem{
		UUID:          m.UUID,
		StockKey:      m.StockKey,
		Name:          m.Name,
		UnitCost:      m.UnitCost,
		PackagingUnit: m.PackagingUnit,
		BulkDiscounts: discounts,
	}
}

func toSurchargeRuleItem(s *models.SurchargeRule) dto.SurchargeRuleItem {
	item := dto.SurchargeRuleItem{
		UUID:          s.UUID,
		Name:          s.Name,
		Kind:          s.Kind,
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
	if len(s.RuleTree) > 0 {
		item.Rule = json.RawMessage(s.RuleTree)
	}
	return item
}
