package businessflow

import (
	"errors"
	"testing"
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/amirphl/quote-core/app/services"
	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/repository"
	"github.com/amirphl/quote-core/routing"
	testutil "github.com/amirphl/quote-core/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// windowOpen is a Wednesday inside the default Monday to Friday 09-17 UTC deployment window
var windowOpen = time.Date(2026, 5, 13, 10, 0, 0, 0, time.UTC)

type flowEnv struct {
	db       *testutil.TestDB
	fixtures *testutil.TestFixtures
	clock    time.Time

	factorRepo     repository.PricingFactorRepository
	companyRepo    repository.CompanyConfigRepository
	adjustmentRepo repository.DynamicAdjustmentRepository
	materialRepo   repository.MaterialCatalogRepository
	surchargeRepo  repository.SurchargeRuleRepository
	calcRepo       repository.PriceCalculationRepository
	extractionRepo repository.ExtractionFieldResultRepository
	patternRepo    repository.FailurePatternRepository
	proposalRepo   repository.FixProposalRepository
	auditRepo      repository.FixProposalAuditRepository
	knowledgeRepo  repository.KnowledgeEntryRepository
	runRepo        repository.AnalysisRunRepository

	calculations CalculationFlow
	extractions  ExtractionFlow
	analysis     PatternAnalysisFlow
	proposals    FixProposalFlow
	admin        PricingAdminFlow
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	testDB, err := testutil.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = testDB.TeardownTestDB() })

	db := testDB.DB
	env := &flowEnv{
		db:             testDB,
		fixtures:       testutil.NewTestFixtures(testDB),
		clock:          windowOpen,
		factorRepo:     repository.NewPricingFactorRepository(db),
		companyRepo:    repository.NewCompanyConfigRepository(db),
		adjustmentRepo: repository.NewDynamicAdjustmentRepository(db),
		materialRepo:   repository.NewMaterialCatalogRepository(db),
		surchargeRepo:  repository.NewSurchargeRuleRepository(db),
		calcRepo:       repository.NewPriceCalculationRepository(db),
		extractionRepo: repository.NewExtractionFieldResultRepository(db),
		patternRepo:    repository.NewFailurePatternRepository(db),
		proposalRepo:   repository.NewFixProposalRepository(db),
		auditRepo:      repository.NewFixProposalAuditRepository(db),
		knowledgeRepo:  repository.NewKnowledgeEntryRepository(db),
		runRepo:        repository.NewAnalysisRunRepository(db),
	}
	now := func() time.Time { return env.clock }

	cache := services.NewFactorCache(nil, config.CacheConfig{}, 0)
	snapshots := NewSnapshotLoader(env.factorRepo, env.companyRepo, env.adjustmentRepo, env.materialRepo, env.surchargeRepo, cache, nil)
	env.calculations = NewCalculationFlow(snapshots, env.calcRepo, routing.PolicyBlock, nil)
	env.extractions = NewExtractionFlow(env.extractionRepo, env.proposalRepo, services.NewVerificationQueue(nil, config.CacheConfig{}), true, nil)

	analysisFlow := NewPatternAnalysisFlow(env.extractionRepo, env.patternRepo, env.proposalRepo, env.runRepo, db, AnalysisOptions{
		Lookback:            24 * time.Hour,
		Concurrency:         2,
		AutoProposeSeverity: analysis.SeverityHigh,
	}, nil).(*PatternAnalysisFlowImpl)
	analysisFlow.now = now
	env.analysis = analysisFlow

	proposalFlow := NewFixProposalFlow(env.proposalRepo, env.auditRepo, env.knowledgeRepo, env.patternRepo, env.extractionRepo,
		deployment.NewPipeline(deployment.DefaultGates()), nil, db, nil).(*FixProposalFlowImpl)
	proposalFlow.now = now
	env.proposals = proposalFlow

	env.admin = NewPricingAdminFlow(env.factorRepo, env.companyRepo, env.adjustmentRepo, env.materialRepo, env.surchargeRepo, cache, "EUR", db, nil)
	return env
}

// requireBusinessCode asserts err is a BusinessError carrying code
func requireBusinessCode(t *testing.T, err error, code string) *BusinessError {
	t.Helper()
	require.Error(t, err)
	var be *BusinessError
	require.True(t, errors.As(err, &be), "expected BusinessError, got %T: %v", err, err)
	assert.Equal(t, code, be.Code)
	return be
}

func TestRequireTenant(t *testing.T) {
	tenant, err := requireTenant("  tenant-a ")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", tenant)

	_, err = requireTenant(" ")
	requireBusinessCode(t, err, "TENANT_REQUIRED")
	assert.True(t, IsTenantRequired(err))
}
