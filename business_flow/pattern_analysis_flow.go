package businessflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/services"
	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/repository"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PatternAnalysisFlow turns stored extraction results into failure patterns and fix proposals
type PatternAnalysisFlow interface {
	RunAnalysis(ctx context.Context, req *dto.RunAnalysisRequest) (*dto.AnalysisRunResponse, error)
	// RunAllTenants analyses every tenant with results in the lookback window ending now.
	// It returns the number of tenants analysed successfully.
	RunAllTenants(ctx context.Context) (int, error)
	LatestReport(ctx context.Context, tenantID string) (*dto.AnalysisRunResponse, error)
	ExportReport(ctx context.Context, tenantID, runUUID string) (*dto.AnalysisExport, error)
}

// AnalysisOptions configures the analysis flow
type AnalysisOptions struct {
	// Lookback is the default window length ending now
	Lookback time.Duration
	// Concurrency bounds the tenants analysed in parallel by RunAllTenants
	Concurrency int
	// AutoProposeSeverity is the lowest pattern severity that gets a fix proposal
	AutoProposeSeverity analysis.Severity
}

type PatternAnalysisFlowImpl struct {
	extractionRepo repository.ExtractionFieldResultRepository
	patternRepo    repository.FailurePatternRepository
	proposalRepo   repository.FixProposalRepository
	runRepo        repository.AnalysisRunRepository
	db             *gorm.DB
	opts           AnalysisOptions
	logger         *zap.Logger

	now func() time.Time
}

func NewPatternAnalysisFlow(
	extractionRepo repository.ExtractionFieldResultRepository,
	patternRepo repository.FailurePatternRepository,
	proposalRepo repository.FixProposalRepository,
	runRepo repository.AnalysisRunRepository,
	db *gorm.DB,
	opts AnalysisOptions,
	logger *zap.Logger,
) PatternAnalysisFlow {
	if opts.Lookback <= 0 {
		opts.Lookback = 7 * 24 * time.Hour
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.AutoProposeSeverity == "" {
		opts.AutoProposeSeverity = analysis.SeverityHigh
	}
	return &PatternAnalysisFlowImpl{
		extractionRepo: extractionRepo,
		patternRepo:    patternRepo,
		proposalRepo:   proposalRepo,
		runRepo:        runRepo,
		db:             db,
		opts:           opts,
		logger:         logger,
		now:            utils.UTCNow,
	}
}

// RunAnalysis analyses one tenant, upserts its failure patterns and proposes fixes
// for open patterns at or above the auto-propose severity. Everything is stored in one transaction.
func (f *PatternAnalysisFlowImpl) RunAnalysis(ctx context.Context, req *dto.RunAnalysisRequest) (*dto.AnalysisRunResponse, error) {
	log := flowLogger(ctx, f.logger)

	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}

	window, err := f.window(req.WindowStart, req.WindowEnd)
	if err != nil {
		return nil, err
	}

	rows, err := f.extractionRepo.ListInWindow(ctx, tenantID, window.Start, window.End)
	if err != nil {
		services.ObserveAnalysisRun("failed")
		return nil, NewBusinessError("ANALYSIS_FETCH_FAILED", "Failed to load extraction results", err)
	}
	results := make([]analysis.Extraction, 0, len(rows))
	for _, row := range rows {
		results = append(results, row.ToExtraction())
	}

	report := analysis.Analyze(results, window)
	raw, err := json.Marshal(report)
	if err != nil {
		services.ObserveAnalysisRun("failed")
		return nil, NewBusinessError("ANALYSIS_ENCODE_FAILED", "Failed to encode analysis report", err)
	}

	run := &models.AnalysisRun{
		TenantID:         tenantID,
		WindowStart:      window.Start,
		WindowEnd:        window.End,
		TotalExtractions: report.TotalExtractions,
		FailureCount:     report.FailureCount,
		Report:           datatypes.JSON(raw),
		TriggeredBy:      actorOr(ctx, req.Actor, deployment.SystemActor),
	}

	descriptions := make(map[string]string, len(report.Recommendations))
	for _, rec := range report.Recommendations {
		descriptions[patternKey(rec.FieldName, rec.Bucket)] = rec.Description
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.runRepo.Save(txCtx, run); err != nil {
			return fmt.Errorf("save analysis run: %w", err)
		}

		proposals := 0
		for _, group := range report.Groups {
			pattern, err := f.upsertPattern(txCtx, tenantID, run.ID, group)
			if err != nil {
				return err
			}

			if pattern.Resolved || group.Severity.Rank() < f.opts.AutoProposeSeverity.Rank() {
				continue
			}
			open, err := f.proposalRepo.HasOpenForPattern(txCtx, pattern.ID)
			if err != nil {
				return fmt.Errorf("check open proposals: %w", err)
			}
			if open {
				continue
			}

			proposal := &models.FixProposal{
				TenantID:      tenantID,
				PatternID:     utils.ToPtr(pattern.ID),
				AnalysisRunID: utils.ToPtr(run.ID),
				FieldName:     group.FieldName,
				FixCategory:   string(group.FixCategory),
				Description:   descriptions[patternKey(group.FieldName, group.Bucket)],
				Status:        deployment.StatusProposed,
				CreatedBy:     deployment.SystemActor,
			}
			if err := f.proposalRepo.Save(txCtx, proposal); err != nil {
				return fmt.Errorf("save fix proposal: %w", err)
			}
			proposals++
		}

		run.PatternCount = len(report.Groups)
		run.ProposalCount = proposals
		return f.runRepo.UpdateCounts(txCtx, run.ID, run.PatternCount, run.ProposalCount)
	})
	if err != nil {
		services.ObserveAnalysisRun("failed")
		log.Error("pattern analysis failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, NewBusinessError("ANALYSIS_FAILED", "Pattern analysis failed", err)
	}

	services.ObserveAnalysisRun("ok")
	log.Info("pattern analysis completed",
		zap.String("tenant_id", tenantID),
		zap.String("run_uuid", run.UUID.String()),
		zap.Int("extractions", report.TotalExtractions),
		zap.Int("failures", report.FailureCount),
		zap.Int("patterns", run.PatternCount),
		zap.Int("proposals", run.ProposalCount),
	)

	return &dto.AnalysisRunResponse{
		Message: "Analysis completed successfully",
		Run:     toAnalysisRunItem(run, report),
	}, nil
}

// upsertPattern refreshes the stored aggregate of group. A resolved pattern stays
// resolved unless the group has failures newer than its last update.
func (f *PatternAnalysisFlowImpl) upsertPattern(ctx context.Context, tenantID string, runID uint, group analysis.Group) (*models.FailurePattern, error) {
	existing, err := f.patternRepo.ByKey(ctx, tenantID, group.FieldName, string(group.Bucket))
	if err != nil {
		return nil, fmt.Errorf("load failure pattern: %w", err)
	}

	resolved := false
	if existing != nil && existing.Resolved && !group.LastSeen.After(existing.UpdatedAt) {
		resolved = true
	}

	pattern := &models.FailurePattern{
		TenantID:          tenantID,
		FieldName:         group.FieldName,
		Bucket:            string(group.Bucket),
		OccurrenceCount:   group.Count,
		AverageConfidence: group.AverageConfidence,
		Score:             group.Score,
		Cause:             string(group.Cause),
		FixCategory:       string(group.FixCategory),
		Severity:          string(group.Severity),
		FirstSeen:         group.FirstSeen,
		LastSeen:          group.LastSeen,
		Resolved:          resolved,
		LastRunID:         utils.ToPtr(runID),
	}
	if existing != nil && existing.FirstSeen.Before(pattern.FirstSeen) {
		pattern.FirstSeen = existing.FirstSeen
	}
	if err := f.patternRepo.Upsert(ctx, pattern); err != nil {
		return nil, fmt.Errorf("upsert failure pattern: %w", err)
	}
	return pattern, nil
}

func (f *PatternAnalysisFlowImpl) window(start, end *time.Time) (analysis.Window, error) {
	w := analysis.Window{End: f.now().UTC()}
	if end != nil {
		w.End = end.UTC()
	}
	w.Start = w.End.Add(-f.opts.Lookback)
	if start != nil {
		w.Start = start.UTC()
	}
	if !w.Start.Before(w.End) {
		return w, NewBusinessError("ANALYSIS_WINDOW_INVALID", "Analysis window start must be before its end", ErrAnalysisWindowInvalid)
	}
	return w, nil
}

func (f *PatternAnalysisFlowImpl) RunAllTenants(ctx context.Context) (int, error) {
	log := flowLogger(ctx, f.logger)

	window, err := f.window(nil, nil)
	if err != nil {
		return 0, err
	}
	tenants, err := f.extractionRepo.TenantsInWindow(ctx, window.Start, window.End)
	if err != nil {
		return 0, NewBusinessError("ANALYSIS_TENANTS_FAILED", "Failed to list tenants with extraction results", err)
	}

	var (
		mu   sync.Mutex
		errs []error
		done int
	)
	g := new(errgroup.Group)
	g.SetLimit(f.opts.Concurrency)
	for _, tenantID := range tenants {
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			_, err := f.RunAnalysis(ctx, &dto.RunAnalysisRequest{
				TenantID:    tenantID,
				Actor:       deployment.SystemActor,
				WindowStart: &window.Start,
				WindowEnd:   &window.End,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("tenant %s: %w", tenantID, err))
				return nil
			}
			done++
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		log.Warn("scheduled analysis finished with errors", zap.Int("tenants", len(tenants)), zap.Int("failed", len(errs)))
	}
	return done, errors.Join(errs...)
}

func (f *PatternAnalysisFlowImpl) LatestReport(ctx context.Context, tenantID string) (*dto.AnalysisRunResponse, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	run, err := f.runRepo.LatestByTenant(ctx, tenantID)
	if err != nil {
		return nil, NewBusinessError("ANALYSIS_FETCH_FAILED", "Failed to fetch analysis run", err)
	}
	if run == nil {
		return nil, NewBusinessError("ANALYSIS_RUN_NOT_FOUND", "No analysis run found", ErrAnalysisRunNotFound)
	}
	report, err := run.DecodeReport()
	if err != nil {
		return nil, NewBusinessError("ANALYSIS_DECODE_FAILED", "Failed to decode analysis report", err)
	}
	return &dto.AnalysisRunResponse{
		Message: "Analysis run retrieved successfully",
		Run:     toAnalysisRunItem(run, report),
	}, nil
}

// ExportReport renders a run as an xlsx workbook. An empty runUUID exports the latest run.
func (f *PatternAnalysisFlowImpl) ExportReport(ctx context.Context, tenantID, runUUID string) (*dto.AnalysisExport, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}

	var run *models.AnalysisRun
	if runUUID == "" {
		run, err = f.runRepo.LatestByTenant(ctx, tenantID)
	} else {
		if _, perr := uuid.Parse(runUUID); perr != nil {
			return nil, NewBusinessError("ANALYSIS_RUN_NOT_FOUND", "Analysis run not found", ErrAnalysisRunNotFound)
		}
		run, err = f.runRepo.ByUUID(ctx, runUUID)
	}
	if err != nil {
		return nil, NewBusinessError("ANALYSIS_FETCH_FAILED", "Failed to fetch analysis run", err)
	}
	if run == nil || run.TenantID != tenantID {
		return nil, NewBusinessError("ANALYSIS_RUN_NOT_FOUND", "Analysis run not found", ErrAnalysisRunNotFound)
	}

	report, err := run.DecodeReport()
	if err != nil {
		return nil, NewBusinessError("ANALYSIS_DECODE_FAILED", "Failed to decode analysis report", err)
	}
	content, err := services.ExportAnalysisReport(tenantID, report)
	if err != nil {
		return nil, NewBusinessError("ANALYSIS_EXPORT_FAILED", "Failed to export analysis report", err)
	}
	return &dto.AnalysisExport{
		FileName: fmt.Sprintf("analysis-%s-%s.xlsx", tenantID, run.CreatedAt.UTC().Format("20060102-150405")),
		Content:  content,
	}, nil
}

func patternKey(field string, bucket analysis.Bucket) string {
	return field + "|" + string(bucket)
}

func toAnalysisRunItem(run *models.AnalysisRun, report analysis.Report) dto.AnalysisRunItem {
	return dto.AnalysisRunItem{
		UUID:             run.UUID,
		TenantID:         run.TenantID,
		WindowStart:      run.WindowStart,
		WindowEnd:        run.WindowEnd,
		TotalExtractions: run.TotalExtractions,
		FailureCount:     run.FailureCount,
		PatternCount:     run.PatternCount,
		ProposalCount:    run.ProposalCount,
		TriggeredBy:      run.TriggeredBy,
		CreatedAt:        run.CreatedAt,
		Report:           report,
	}
}
