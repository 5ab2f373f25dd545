package businessflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/amirphl/quote-core/app/services"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/repository"
	"go.uber.org/zap"
)

// SnapshotLoader assembles the read-only configuration a calculation is priced against
type SnapshotLoader struct {
	factorRepo     repository.PricingFactorRepository
	companyRepo    repository.CompanyConfigRepository
	adjustmentRepo repository.DynamicAdjustmentRepository
	materialRepo   repository.MaterialCatalogRepository
	surchargeRepo  repository.SurchargeRuleRepository
	factorCache    services.FactorCache
	logger         *zap.Logger
}

func NewSnapshotLoader(
	factorRepo repository.PricingFactorRepository,
	companyRepo repository.CompanyConfigRepository,
	adjustmentRepo repository.DynamicAdjustmentRepository,
	materialRepo repository.MaterialCatalogRepository,
	surchargeRepo repository.SurchargeRuleRepository,
	factorCache services.FactorCache,
	logger *zap.Logger,
) *SnapshotLoader {
	return &SnapshotLoader{
		factorRepo:     factorRepo,
		companyRepo:    companyRepo,
		adjustmentRepo: adjustmentRepo,
		materialRepo:   materialRepo,
		surchargeRepo:  surchargeRepo,
		factorCache:    factorCache,
		logger:         logger,
	}
}

// Load returns the snapshot of tenantID valid at date for the given stock keys.
// A missing active company configuration yields ErrCompanyConfigNotFound.
func (l *SnapshotLoader) Load(ctx context.Context, tenantID string, date time.Time, stockKeys []string) (pricing.Snapshot, *models.CompanyConfig, error) {
	var snap pricing.Snapshot

	factors, err := l.factors(ctx)
	if err != nil {
		return snap, nil, err
	}
	snap.Factors = factors

	company, err := l.companyRepo.ActiveByTenant(ctx, tenantID)
	if err != nil {
		return snap, nil, fmt.Errorf("failed to load company configuration: %w", err)
	}
	if company == nil {
		return snap, nil, ErrCompanyConfigNotFound
	}
	snap.Company = company.ToCompanyConfig()

	adjustments, err := l.adjustmentRepo.ListActiveByTenant(ctx, tenantID, date)
	if err != nil {
		return snap, nil, fmt.Errorf("failed to load dynamic adjustments: %w", err)
	}
	snap.Adjustments = make([]pricing.Adjustment, 0, len(adjustments))
	for _, a := range adjustments {
		snap.Adjustments = append(snap.Adjustments, a.ToAdjustment())
	}

	keys := slices.Clone(stockKeys)
	slices.Sort(keys)
	keys = slices.Compact(keys)
	entries, err := l.materialRepo.ListByStockKeys(ctx, tenantID, keys)
	if err != nil {
		return snap, nil, fmt.Errorf("failed to load materials: %w", err)
	}
	snap.Materials = make([]pricing.Material, 0, len(entries))
	for _, e := range entries {
		m, err := e.ToMaterial()
		if err != nil {
			return snap, nil, &pricing.ConfigurationError{Field: "materials." + e.StockKey, Reason: err.Error()}
		}
		snap.Materials = append(snap.Materials, m)
	}

	rows, err := l.surchargeRepo.ListActiveByTenant(ctx, tenantID)
	if err != nil {
		return snap, nil, fmt.Errorf("failed to load surcharge rules: %w", err)
	}
	snap.Surcharges = make([]pricing.Surcharge, 0, len(rows))
	for _, r := range rows {
		s, err := r.ToSurcharge()
		if err != nil {
			return snap, nil, err
		}
		snap.Surcharges = append(snap.Surcharges, s)
	}

	return snap, company, nil
}

// factors reads every TIER 1 factor, disabled ones included, through the cache.
// Cache failures fall back to the database.
func (l *SnapshotLoader) factors(ctx context.Context) ([]pricing.Factor, error) {
	log := flowLogger(ctx, l.logger)

	cached, ok, err := l.factorCache.Get(ctx)
	if err != nil {
		log.Warn("pricing factor cache read failed", zap.Error(err))
	}
	if ok {
		return cached, nil
	}

	rows, err := l.factorRepo.ByFilter(ctx, models.PricingFactorFilter{}, "category ASC, factor_key ASC", 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing factors: %w", err)
	}
	factors := make([]pricing.Factor, 0, len(rows))
	for _, r := range rows {
		factors = append(factors, r.ToFactor())
	}

	if err := l.factorCache.Set(ctx, factors); err != nil {
		log.Warn("pricing factor cache write failed", zap.Error(err))
	}
	return factors, nil
}
