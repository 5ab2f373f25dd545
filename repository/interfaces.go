package repository

import (
	"context"
	"time"

	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/models"
)

// RepositoryContext key for transaction in context
type contextKey string

const TxContextKey contextKey = "tx"

type Repository[T any, F any] interface {
	ByID(ctx context.Context, id uint) (*T, error)
	ByFilter(ctx context.Context, filter F, orderBy string, limit, offset int) ([]*T, error)
	Save(ctx context.Context, entity *T) error
	SaveBatch(ctx context.Context, entities []*T) error
	Count(ctx context.Context, filter F) (int64, error)
	Exists(ctx context.Context, filter F) (bool, error)
}

// PricingFactorRepository defines operations for TIER 1 factors
type PricingFactorRepository interface {
	Repository[models.PricingFactor, models.PricingFactorFilter]
	ByUUID(ctx context.Context, uuid string) (*models.PricingFactor, error)
	ByCategoryKey(ctx context.Context, category, key string) (*models.PricingFactor, error)
	ListAll(ctx context.Context) ([]*models.PricingFactor, error)
	SetEnabled(ctx context.Context, id uint, enabled bool) error
	UpdateFactor(ctx context.Context, id uint, factor *models.PricingFactor) error
}

// CompanyConfigRepository defines operations for versioned TIER 2 configuration
type CompanyConfigRepository interface {
	Repository[models.CompanyConfig, models.CompanyConfigFilter]
	ActiveByTenant(ctx context.Context, tenantID string) (*models.CompanyConfig, error)
	DeactivateByTenant(ctx context.Context, tenantID string) error
	ListTenants(ctx context.Context) ([]string, error)
}

// DynamicAdjustmentRepository defines operations for TIER 3 adjustments
type DynamicAdjustmentRepository interface {
	Repository[models.DynamicAdjustment, models.DynamicAdjustmentFilter]
	ByUUID(ctx context.Context, uuid string) (*models.DynamicAdjustment, error)
	ListActiveByTenant(ctx context.Context, tenantID string, at time.Time) ([]*models.DynamicAdjustment, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// MaterialCatalogRepository defines operations for the material catalog
type MaterialCatalogRepository interface {
	Repository[models.MaterialCatalogEntry, models.MaterialCatalogEntryFilter]
	ByStockKey(ctx context.Context, tenantID, stockKey string) (*models.MaterialCatalogEntry, error)
	ListByStockKeys(ctx context.Context, tenantID string, stockKeys []string) ([]*models.MaterialCatalogEntry, error)
	Update(ctx context.Context, entry *models.MaterialCatalogEntry) error
}

// SurchargeRuleRepository defines operations for surcharge rules
type SurchargeRuleRepository interface {
	Repository[models.SurchargeRule, models.SurchargeRuleFilter]
	ByUUID(ctx context.Context, uuid string) (*models.SurchargeRule, error)
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*models.SurchargeRule, error)
	SetActive(ctx context.Context, id uint, active bool) error
}

// ExtractionObservation counts post-deployment extractions of a monitored field
type ExtractionObservation struct {
	SampleSize   int64
	SuccessCount int64
}

// ExtractionFieldResultRepository defines operations for stored extraction results
type ExtractionFieldResultRepository interface {
	Repository[models.ExtractionFieldResult, models.ExtractionFieldResultFilter]
	ListInWindow(ctx context.Context, tenantID string, start, end time.Time) ([]*models.ExtractionFieldResult, error)
	TenantsInWindow(ctx context.Context, start, end time.Time) ([]string, error)
	ObservationFor(ctx context.Context, proposalID uint, successThreshold float64) (ExtractionObservation, error)
}

// FailurePatternRepository defines operations for aggregated failure patterns
type FailurePatternRepository interface {
	Repository[models.FailurePattern, models.FailurePatternFilter]
	ByKey(ctx context.Context, tenantID, fieldName, bucket string) (*models.FailurePattern, error)
	Upsert(ctx context.Context, pattern *models.FailurePattern) error
	MarkResolved(ctx context.Context, id uint, resolved bool) error
}

// FixProposalRepository defines operations for fix proposals
type FixProposalRepository interface {
	Repository[models.FixProposal, models.FixProposalFilter]
	ByUUID(ctx context.Context, uuid string) (*models.FixProposal, error)
	// UpdateLifecycle persists the lifecycle fields of proposal when its stored
	// version and status still equal expectedVersion and expectedStatus. It
	// returns the number of rows changed and bumps proposal.Version on success.
	UpdateLifecycle(ctx context.Context, proposal *models.FixProposal, expectedVersion int, expectedStatus deployment.Status) (int64, error)
	HasOpenForPattern(ctx context.Context, patternID uint) (bool, error)
	MonitoringForField(ctx context.Context, tenantID, fieldName string) (*models.FixProposal, error)
	ListDueForMonitoring(ctx context.Context, now time.Time, limit int) ([]*models.FixProposal, error)
}

// FixProposalAuditRepository defines operations for the append-only audit trail
type FixProposalAuditRepository interface {
	Repository[models.FixProposalAudit, models.FixProposalAuditFilter]
	ListByProposal(ctx context.Context, proposalID uint) ([]*models.FixProposalAudit, error)
}

// KnowledgeEntryRepository defines operations for deployed knowledge
type KnowledgeEntryRepository interface {
	Repository[models.KnowledgeEntry, models.KnowledgeEntryFilter]
	ByFixProposalID(ctx context.Context, fixProposalID uint) (*models.KnowledgeEntry, error)
	Revert(ctx context.Context, fixProposalID uint, at time.Time) (int64, error)
	ListActiveByTenant(ctx context.Context, tenantID string) ([]*models.KnowledgeEntry, error)
}

// AnalysisRunRepository defines operations for analysis runs
type AnalysisRunRepository interface {
	Repository[models.AnalysisRun, models.AnalysisRunFilter]
	ByUUID(ctx context.Context, uuid string) (*models.AnalysisRun, error)
	LatestByTenant(ctx context.Context, tenantID string) (*models.AnalysisRun, error)
	UpdateCounts(ctx context.Context, id uint, patternCount, proposalCount int) error
}

// PriceCalculationRepository defines operations for stored calculations
type PriceCalculationRepository interface {
	Repository[models.PriceCalculation, models.PriceCalculationFilter]
	ByUUID(ctx context.Context, uuid string) (*models.PriceCalculation, error)
}
