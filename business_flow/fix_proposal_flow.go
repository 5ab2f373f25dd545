package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/quote-core/app/dto"
	"github.com/amirphl/quote-core/app/services"
	"github.com/amirphl/quote-core/config"
	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/repository"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// monitoringBatchSize bounds the proposals resolved by one EvaluateMonitoring call
const monitoringBatchSize = 100

// FixProposalFlow drives fix proposals through the gated deployment lifecycle
type FixProposalFlow interface {
	Create(ctx context.Context, req *dto.CreateFixProposalRequest) (*dto.FixProposalResponse, error)
	List(ctx context.Context, req *dto.ListFixProposalsRequest) (*dto.ListFixProposalsResponse, error)
	Get(ctx context.Context, tenantID, proposalUUID string) (*dto.FixProposalResponse, error)
	ListAudits(ctx context.Context, tenantID, proposalUUID string) (*dto.ListFixProposalAuditsResponse, error)
	StartTesting(ctx context.Context, req *dto.FixProposalActionRequest) (*dto.FixProposalResponse, error)
	Validate(ctx context.Context, req *dto.ValidateFixProposalRequest) (*dto.FixProposalResponse, error)
	Deploy(ctx context.Context, req *dto.DeployFixProposalRequest) (*dto.FixProposalResponse, error)
	Rollback(ctx context.Context, req *dto.RollbackFixProposalRequest) (*dto.FixProposalResponse, error)
	// EvaluateMonitoring resolves every proposal whose monitoring window has closed
	EvaluateMonitoring(ctx context.Context) (*dto.EvaluateMonitoringResponse, error)
}

type FixProposalFlowImpl struct {
	proposalRepo   repository.FixProposalRepository
	auditRepo      repository.FixProposalAuditRepository
	knowledgeRepo  repository.KnowledgeEntryRepository
	patternRepo    repository.FailurePatternRepository
	extractionRepo repository.ExtractionFieldResultRepository
	pipeline       *deployment.Pipeline
	locker         services.DeployLocker
	db             *gorm.DB
	logger         *zap.Logger

	now func() time.Time
}

func NewFixProposalFlow(
	proposalRepo repository.FixProposalRepository,
	auditRepo repository.FixProposalAuditRepository,
	knowledgeRepo repository.KnowledgeEntryRepository,
	patternRepo repository.FailurePatternRepository,
	extractionRepo repository.ExtractionFieldResultRepository,
	pipeline *deployment.Pipeline,
	locker services.DeployLocker,
	db *gorm.DB,
	logger *zap.Logger,
) FixProposalFlow {
	if pipeline == nil {
		pipeline = deployment.NewPipeline(deployment.DefaultGates())
	}
	if locker == nil {
		locker = services.NewDeployLocker(nil, config.CacheConfig{}, 0)
	}
	return &FixProposalFlowImpl{
		proposalRepo:   proposalRepo,
		auditRepo:      auditRepo,
		knowledgeRepo:  knowledgeRepo,
		patternRepo:    patternRepo,
		extractionRepo: extractionRepo,
		pipeline:       pipeline,
		locker:         locker,
		db:             db,
		logger:         logger,
		now:            utils.UTCNow,
	}
}

// lifecycleStep computes the next lifecycle state of current
type lifecycleStep func(current deployment.Proposal, now time.Time) (deployment.Proposal, []deployment.Audit, error)

func (f *FixProposalFlowImpl) Create(ctx context.Context, req *dto.CreateFixProposalRequest) (*dto.FixProposalResponse, error) {
	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}
	fieldName := strings.TrimSpace(req.FieldName)
	if fieldName == "" {
		return nil, NewBusinessError("FIX_PROPOSAL_FIELD_REQUIRED", "Field name is required", ErrFixProposalFieldMissing)
	}

	proposal := &models.FixProposal{
		TenantID:    tenantID,
		FieldName:   fieldName,
		FixCategory: strings.TrimSpace(req.FixCategory),
		Description: req.Description,
		Status:      deployment.StatusProposed,
		CreatedBy:   actorOr(ctx, req.Actor, "api"),
	}
	if err := f.proposalRepo.Save(ctx, proposal); err != nil {
		return nil, NewBusinessError("FIX_PROPOSAL_SAVE_FAILED", "Failed to save fix proposal", err)
	}

	flowLogger(ctx, f.logger).Info("fix proposal created",
		zap.String("proposal_uuid", proposal.UUID.String()),
		zap.String("field_name", fieldName),
	)
	return &dto.FixProposalResponse{
		Message:  "Fix proposal created successfully",
		Proposal: toFixProposalItem(proposal),
	}, nil
}

func (f *FixProposalFlowImpl) List(ctx context.Context, req *dto.ListFixProposalsRequest) (*dto.ListFixProposalsResponse, error) {
	tenantID, err := requireTenant(req.TenantID)
	if err != nil {
		return nil, err
	}

	filter := models.FixProposalFilter{TenantID: &tenantID}
	if req.Status != "" {
		status := deployment.Status(req.Status)
		filter.Status = &status
	}
	if req.FieldName != "" {
		filter.FieldName = &req.FieldName
	}

	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := f.proposalRepo.ByFilter(ctx, filter, "created_at DESC, id DESC", limit, req.Offset)
	if err != nil {
		return nil, NewBusinessError("FIX_PROPOSAL_LIST_FAILED", "Failed to list fix proposals", err)
	}
	total, err := f.proposalRepo.Count(ctx, filter)
	if err != nil {
		return nil, NewBusinessError("FIX_PROPOSAL_LIST_FAILED", "Failed to count fix proposals", err)
	}

	items := make([]dto.FixProposalItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toFixProposalItem(row))
	}
	return &dto.ListFixProposalsResponse{
		Message: "Fix proposals retrieved successfully",
		Items:   items,
		Total:   total,
	}, nil
}

func (f *FixProposalFlowImpl) Get(ctx context.Context, tenantID, proposalUUID string) (*dto.FixProposalResponse, error) {
	proposal, err := f.load(ctx, tenantID, proposalUUID)
	if err != nil {
		return nil, err
	}
	audits, err := f.auditRepo.ListByProposal(ctx, proposal.ID)
	if err != nil {
		return nil, NewBusinessError("FIX_PROPOSAL_AUDITS_FAILED", "Failed to load audit trail", err)
	}
	return &dto.FixProposalResponse{
		Message:  "Fix proposal retrieved successfully",
		Proposal: toFixProposalItem(proposal),
		Audits:   toFixProposalAuditItems(audits),
	}, nil
}

func (f *FixProposalFlowImpl) ListAudits(ctx context.Context, tenantID, proposalUUID string) (*dto.ListFixProposalAuditsResponse, error) {
	proposal, err := f.load(ctx, tenantID, proposalUUID)
	if err != nil {
		return nil, err
	}
	audits, err := f.auditRepo.ListByProposal(ctx, proposal.ID)
	if err != nil {
		return nil, NewBusinessError("FIX_PROPOSAL_AUDITS_FAILED", "Failed to load audit trail", err)
	}
	return &dto.ListFixProposalAuditsResponse{
		Message: "Audit trail retrieved successfully",
		Items:   toFixProposalAuditItems(audits),
	}, nil
}

func (f *FixProposalFlowImpl) StartTesting(ctx context.Context, req *dto.FixProposalActionRequest) (*dto.FixProposalResponse, error) {
	actor := actorOr(ctx, req.Actor, "api")
	proposal, audits, err := f.apply(ctx, req.TenantID, req.UUID, func(current deployment.Proposal, now time.Time) (deployment.Proposal, []deployment.Audit, error) {
		next, audit, err := f.pipeline.StartTesting(current, actor, now)
		if err != nil {
			return current, nil, err
		}
		return next, []deployment.Audit{audit}, nil
	})
	if err != nil {
		return nil, f.lifecycleError(ctx, "start testing", err)
	}
	return &dto.FixProposalResponse{
		Message:  "Fix proposal testing started",
		Proposal: toFixProposalItem(proposal),
		Audits:   toFixProposalAuditItems(audits),
	}, nil
}

// Validate records the measured test results and validates them against the gates.
// The results are stored even when a gate fails.
func (f *FixProposalFlowImpl) Validate(ctx context.Context, req *dto.ValidateFixProposalRequest) (*dto.FixProposalResponse, error) {
	actor := actorOr(ctx, req.Actor, "api")
	var gateErr error
	proposal, audits, err := f.apply(ctx, req.TenantID, req.UUID, func(current deployment.Proposal, now time.Time) (deployment.Proposal, []deployment.Audit, error) {
		recorded, err := f.pipeline.RecordTestResults(current, deployment.TestResults{
			SampleSize:      req.SampleSize,
			SuccessRate:     req.SuccessRate,
			ConfidenceScore: req.ConfidenceScore,
		})
		if err != nil {
			return current, nil, err
		}
		next, audit, err := f.pipeline.Validate(recorded, actor, now)
		if err != nil {
			var gate *deployment.ValidationGateError
			if errors.As(err, &gate) {
				gateErr = err
				return recorded, nil, nil
			}
			return current, nil, err
		}
		return next, []deployment.Audit{audit}, nil
	})
	if err != nil {
		return nil, f.lifecycleError(ctx, "validate", err)
	}
	if gateErr != nil {
		return nil, f.lifecycleError(ctx, "validate", gateErr)
	}
	return &dto.FixProposalResponse{
		Message:  "Fix proposal validated successfully",
		Proposal: toFixProposalItem(proposal),
		Audits:   toFixProposalAuditItems(audits),
	}, nil
}

// Deploy applies a validated proposal inside the deployment window and starts monitoring
func (f *FixProposalFlowImpl) Deploy(ctx context.Context, req *dto.DeployFixProposalRequest) (*dto.FixProposalResponse, error) {
	actor := actorOr(ctx, req.Actor, "api")
	release, err := f.lock(ctx, req.TenantID, req.UUID)
	if err != nil {
		return nil, f.lifecycleError(ctx, "deploy", err)
	}
	defer release()

	proposal, audits, err := f.apply(ctx, req.TenantID, req.UUID, func(current deployment.Proposal, now time.Time) (deployment.Proposal, []deployment.Audit, error) {
		return f.pipeline.Deploy(current, actor, req.Notes, now)
	})
	if err != nil {
		return nil, f.lifecycleError(ctx, "deploy", err)
	}

	flowLogger(ctx, f.logger).Info("fix proposal deployed",
		zap.String("proposal_uuid", proposal.UUID.String()),
		zap.String("field_name", proposal.FieldName),
		zap.Timep("monitoring_until", proposal.MonitoringUntil),
	)
	return &dto.FixProposalResponse{
		Message:  "Fix proposal deployed successfully",
		Proposal: toFixProposalItem(proposal),
		Audits:   toFixProposalAuditItems(audits),
	}, nil
}

// Rollback reverts a deployed proposal within the rollback window
func (f *FixProposalFlowImpl) Rollback(ctx context.Context, req *dto.RollbackFixProposalRequest) (*dto.FixProposalResponse, error) {
	actor := actorOr(ctx, req.Actor, "api")
	release, err := f.lock(ctx, req.TenantID, req.UUID)
	if err != nil {
		return nil, f.lifecycleError(ctx, "rollback", err)
	}
	defer release()

	proposal, audits, err := f.apply(ctx, req.TenantID, req.UUID, func(current deployment.Proposal, now time.Time) (deployment.Proposal, []deployment.Audit, error) {
		next, audit, err := f.pipeline.Rollback(current, actor, req.Reason, now)
		if err != nil {
			return current, nil, err
		}
		return next, []deployment.Audit{audit}, nil
	})
	if err != nil {
		return nil, f.lifecycleError(ctx, "rollback", err)
	}

	flowLogger(ctx, f.logger).Info("fix proposal rolled back",
		zap.String("proposal_uuid", proposal.UUID.String()),
		zap.String("reason", proposal.RollbackReason),
	)
	return &dto.FixProposalResponse{
		Message:  "Fix proposal rolled back successfully",
		Proposal: toFixProposalItem(proposal),
		Audits:   toFixProposalAuditItems(audits),
	}, nil
}

func (f *FixProposalFlowImpl) EvaluateMonitoring(ctx context.Context) (*dto.EvaluateMonitoringResponse, error) {
	log := flowLogger(ctx, f.logger)

	due, err := f.proposalRepo.ListDueForMonitoring(ctx, f.now(), monitoringBatchSize)
	if err != nil {
		return nil, NewBusinessError("MONITORING_FETCH_FAILED", "Failed to list monitored proposals", err)
	}

	resp := &dto.EvaluateMonitoringResponse{Message: "Monitoring evaluated successfully"}
	for _, row := range due {
		resp.Evaluated++

		observed, err := f.extractionRepo.ObservationFor(ctx, row.ID, utils.FailureConfidenceCeiling)
		if err != nil {
			resp.Failed++
			log.Error("failed to observe monitored proposal", zap.Uint("proposal_id", row.ID), zap.Error(err))
			continue
		}
		obs := deployment.Observation{SampleSize: int(observed.SampleSize), SuccessCount: int(observed.SuccessCount)}

		proposal, _, err := f.apply(ctx, row.TenantID, row.UUID.String(), func(current deployment.Proposal, now time.Time) (deployment.Proposal, []deployment.Audit, error) {
			next, audit, err := f.pipeline.EvaluateMonitoring(current, obs, now)
			if err != nil || audit == nil {
				return current, nil, err
			}
			return next, []deployment.Audit{*audit}, nil
		})
		if err != nil {
			resp.Failed++
			log.Error("failed to resolve monitored proposal", zap.Uint("proposal_id", row.ID), zap.Error(err))
			continue
		}

		switch proposal.Status {
		case deployment.StatusDeployedSuccess:
			resp.Succeeded++
		case deployment.StatusRolledBack:
			resp.RolledBack++
			log.Warn("fix proposal rolled back automatically",
				zap.String("proposal_uuid", proposal.UUID.String()),
				zap.String("reason", proposal.RollbackReason),
			)
		}
	}

	return resp, nil
}

// load returns the proposal of tenantID with proposalUUID
func (f *FixProposalFlowImpl) load(ctx context.Context, tenantID, proposalUUID string) (*models.FixProposal, error) {
	tenantID, err := requireTenant(tenantID)
	if err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(proposalUUID); err != nil {
		return nil, NewBusinessError("FIX_PROPOSAL_NOT_FOUND", "Fix proposal not found", ErrFixProposalNotFound)
	}
	proposal, err := f.proposalRepo.ByUUID(ctx, proposalUUID)
	if err != nil {
		return nil, NewBusinessError("FIX_PROPOSAL_FETCH_FAILED", "Failed to fetch fix proposal", err)
	}
	if proposal == nil || proposal.TenantID != tenantID {
		return nil, NewBusinessError("FIX_PROPOSAL_NOT_FOUND", "Fix proposal not found", ErrFixProposalNotFound)
	}
	return proposal, nil
}

// lock takes the deploy lock of a proposal
func (f *FixProposalFlowImpl) lock(ctx context.Context, tenantID, proposalUUID string) (func(), error) {
	proposal, err := f.load(ctx, tenantID, proposalUUID)
	if err != nil {
		return nil, err
	}
	release, err := f.locker.Acquire(ctx, proposal.ID)
	if err != nil {
		if errors.Is(err, services.ErrLockBusy) {
			return nil, &deployment.ConcurrentDeploymentError{ProposalID: proposal.ID, Reason: "another deployment holds the lock"}
		}
		return nil, err
	}
	return release, nil
}

// apply runs step on the stored proposal and persists the result in one transaction:
// a compare-and-swap of the lifecycle fields, the audit rows and the production effects.
func (f *FixProposalFlowImpl) apply(ctx context.Context, tenantID, proposalUUID string, step lifecycleStep) (*models.FixProposal, []*models.FixProposalAudit, error) {
	var (
		proposal *models.FixProposal
		rows     []*models.FixProposalAudit
	)
	requestID := utils.RequestIDFromContext(ctx)

	err := repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		var err error
		proposal, err = f.load(txCtx, tenantID, proposalUUID)
		if err != nil {
			return err
		}

		current := proposal.ToProposal()
		next, audits, err := step(current, f.now())
		if err != nil {
			return err
		}
		if len(audits) == 0 && next == current {
			return nil
		}

		expectedVersion, expectedStatus := proposal.Version, proposal.Status
		proposal.ApplyProposal(next)
		changed, err := f.proposalRepo.UpdateLifecycle(txCtx, proposal, expectedVersion, expectedStatus)
		if err != nil {
			return fmt.Errorf("update fix proposal: %w", err)
		}
		if changed == 0 {
			return &deployment.ConcurrentDeploymentError{ProposalID: proposal.ID, Reason: "proposal was changed by another request"}
		}

		for _, audit := range audits {
			row := models.NewFixProposalAudit(audit, requestID)
			if err := f.auditRepo.Save(txCtx, row); err != nil {
				return fmt.Errorf("save audit: %w", err)
			}
			if err := f.effect(txCtx, proposal, audit); err != nil {
				return err
			}
			rows = append(rows, row)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	for _, row := range rows {
		services.ObserveTransition(row.FromStatus.String(), row.ToStatus.String(), row.Trigger)
	}
	return proposal, rows, nil
}

// effect applies the production side of a transition
func (f *FixProposalFlowImpl) effect(ctx context.Context, proposal *models.FixProposal, audit deployment.Audit) error {
	switch audit.To {
	case deployment.StatusDeployed:
		entry := &models.KnowledgeEntry{
			TenantID:      proposal.TenantID,
			FixProposalID: proposal.ID,
			FieldName:     proposal.FieldName,
			FixCategory:   proposal.FixCategory,
			Description:   proposal.Description,
			Active:        true,
			AppliedAt:     audit.At,
		}
		if err := f.knowledgeRepo.Save(ctx, entry); err != nil {
			return fmt.Errorf("activate knowledge: %w", err)
		}
	case deployment.StatusRolledBack:
		if _, err := f.knowledgeRepo.Revert(ctx, proposal.ID, audit.At); err != nil {
			return fmt.Errorf("revert knowledge: %w", err)
		}
		if audit.From == deployment.StatusDeployedSuccess && proposal.PatternID != nil {
			if err := f.patternRepo.MarkResolved(ctx, *proposal.PatternID, false); err != nil {
				return fmt.Errorf("reopen failure pattern: %w", err)
			}
		}
	case deployment.StatusDeployedSuccess:
		if proposal.PatternID != nil {
			if err := f.patternRepo.MarkResolved(ctx, *proposal.PatternID, true); err != nil {
				return fmt.Errorf("resolve failure pattern: %w", err)
			}
		}
	}
	return nil
}

// lifecycleError maps lifecycle failures to business errors and counts rejections
func (f *FixProposalFlowImpl) lifecycleError(ctx context.Context, action string, err error) error {
	var (
		business    *BusinessError
		transition  *deployment.InvalidTransitionError
		gate        *deployment.ValidationGateError
		window      *deployment.DeploymentWindowError
		concurrent  *deployment.ConcurrentDeploymentError
		rollbackErr *deployment.RollbackWindowExpiredError
	)

	switch {
	case errors.As(err, &transition):
		services.ObserveRejection("invalid_transition")
		return NewBusinessErrorf("FIX_PROPOSAL_INVALID_TRANSITION", "Cannot %s a %s fix proposal", err, action, transition.From)
	case errors.As(err, &gate):
		services.ObserveRejection("validation_gate")
		return NewBusinessError("VALIDATION_GATE_FAILED", "Fix proposal failed validation: "+strings.Join(gate.Failures, "; "), err)
	case errors.As(err, &window):
		services.ObserveRejection("deployment_window")
		return NewBusinessError("OUTSIDE_DEPLOYMENT_WINDOW", "Deployment is not allowed outside the deployment window", err)
	case errors.As(err, &concurrent):
		services.ObserveRejection("concurrent_deployment")
		return NewBusinessError("CONCURRENT_DEPLOYMENT", "Fix proposal is being changed by another request", err)
	case errors.As(err, &rollbackErr):
		services.ObserveRejection("rollback_window")
		return NewBusinessError("ROLLBACK_WINDOW_EXPIRED", "Rollback window has closed; ship a forward fix instead", err)
	case errors.Is(err, deployment.ErrRollbackReasonRequired):
		services.ObserveRejection("rollback_reason")
		return NewBusinessError("ROLLBACK_REASON_REQUIRED", "Rollback reason is required", err)
	case errors.As(err, &business):
		return err
	default:
		flowLogger(ctx, f.logger).Error("fix proposal lifecycle failed", zap.String("action", action), zap.Error(err))
		return NewBusinessErrorf("FIX_PROPOSAL_UPDATE_FAILED", "Failed to %s fix proposal", err, action)
	}
}

func toFixProposalItem(p *models.FixProposal) dto.FixProposalItem {
	return dto.FixProposalItem{
		UUID:                  p.UUID,
		TenantID:              p.TenantID,
		FieldName:             p.FieldName,
		FixCategory:           p.FixCategory,
		Description:           p.Description,
		Status:                p.Status.String(),
		TestSampleSize:        p.TestSampleSize,
		TestSuccessRate:       p.TestSuccessRate,
		ConfidenceScore:       p.ConfidenceScore,
		PostDeploySampleSize:  p.PostDeploySampleSize,
		PostDeploySuccessRate: p.PostDeploySuccessRate,
		AppliedAt:             p.AppliedAt,
		MonitoringUntil:       p.MonitoringUntil,
		RolledBackAt:          p.RolledBackAt,
		RollbackReason:        p.RollbackReason,
		DeploymentNotes:       p.DeploymentNotes,
		Version:               p.Version,
		CreatedBy:             p.CreatedBy,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func toFixProposalAuditItems(rows []*models.FixProposalAudit) []dto.FixProposalAuditItem {
	items := make([]dto.FixProposalAuditItem, 0, len(rows))
	for _, row := range rows {
		item := dto.FixProposalAuditItem{
			FromStatus: row.FromStatus.String(),
			ToStatus:   row.ToStatus.String(),
			Actor:      row.Actor,
			Trigger:    row.Trigger,
			Reason:     row.Reason,
			CreatedAt:  row.CreatedAt,
		}
		if row.RequestID != nil {
			item.RequestID = *row.RequestID
		}
		items = append(items, item)
	}
	return items
}
