package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
)

// FixProposalRepositoryImpl implements FixProposalRepository
type FixProposalRepositoryImpl struct {
	*BaseRepository[models.FixProposal, models.FixProposalFilter]
}

// NewFixProposalRepository creates a new repository for fix proposals
func NewFixProposalRepository(db *gorm.DB) FixProposalRepository {
	return &FixProposalRepositoryImpl{
		BaseRepository: NewBaseRepository[models.FixProposal, models.FixProposalFilter](db),
	}
}

// ByUUID retrieves a proposal by its public id
func (r *FixProposalRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.FixProposal, error) {
	return r.byUUID(ctx, uuid)
}

// UpdateLifecycle is a compare-and-swap on (version, status)
func (r *FixProposalRepositoryImpl) UpdateLifecycle(ctx context.Context, proposal *models.FixProposal, expectedVersion int, expectedStatus deployment.Status) (int64, error) {
	db := r.getDB(ctx)
	now := utils.UTCNow()

	res := db.Model(&models.FixProposal{}).
		Where("id = ? AND version = ? AND status = ?", proposal.ID, expectedVersion, expectedStatus).
		Updates(map[string]any{
			"status":                   proposal.Status,
			"test_sample_size":         proposal.TestSampleSize,
			"test_success_rate":        proposal.TestSuccessRate,
			"confidence_score":         proposal.ConfidenceScore,
			"post_deploy_sample_size":  proposal.PostDeploySampleSize,
			"post_deploy_success_rate": proposal.PostDeploySuccessRate,
			"applied_at":               proposal.AppliedAt,
			"monitoring_until":         proposal.MonitoringUntil,
			"rolled_back_at":           proposal.RolledBackAt,
			"rollback_reason":          proposal.RollbackReason,
			"deployment_notes":         proposal.DeploymentNotes,
			"version":                  expectedVersion + 1,
			"updated_at":               now,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		proposal.Version = expectedVersion + 1
		proposal.UpdatedAt = now
	}
	return res.RowsAffected, nil
}

// HasOpenForPattern reports whether a pattern already has a proposal that is not resolved
func (r *FixProposalRepositoryImpl) HasOpenForPattern(ctx context.Context, patternID uint) (bool, error) {
	return r.Exists(ctx, models.FixProposalFilter{
		PatternID: &patternID,
		Statuses: []deployment.Status{
			deployment.StatusProposed, deployment.StatusTesting, deployment.StatusValidated,
			deployment.StatusDeployed, deployment.StatusMonitoring,
		},
	})
}

// MonitoringForField returns the proposal currently monitored for a field, if any
func (r *FixProposalRepositoryImpl) MonitoringForField(ctx context.Context, tenantID, fieldName string) (*models.FixProposal, error) {
	db := r.getDB(ctx)
	var proposal models.FixProposal
	err := db.Where("tenant_id = ? AND field_name = ? AND status = ?", tenantID, fieldName, deployment.StatusMonitoring).
		Order("applied_at DESC, id DESC").
		First(&proposal).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proposal, nil
}

// ListDueForMonitoring returns monitoring proposals whose window closed at or before now
func (r *FixProposalRepositoryImpl) ListDueForMonitoring(ctx context.Context, now time.Time, limit int) ([]*models.FixProposal, error) {
	status := deployment.StatusMonitoring
	return r.ByFilter(ctx, models.FixProposalFilter{
		Status:                &status,
		MonitoringUntilBefore: &now,
	}, "monitoring_until ASC, id ASC", limit, 0)
}

// ByFilter retrieves proposals based on filter criteria
func (r *FixProposalRepositoryImpl) ByFilter(ctx context.Context, filter models.FixProposalFilter, orderBy string, limit, offset int) ([]*models.FixProposal, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.FixProposal{}), filter)
	return list[models.FixProposal](query, orderBy, "created_at DESC, id DESC", limit, offset)
}

// Count returns the number of proposals matching the filter
func (r *FixProposalRepositoryImpl) Count(ctx context.Context, filter models.FixProposalFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.FixProposal{}), filter))
}

// Exists checks if any proposal matching the filter exists
func (r *FixProposalRepositoryImpl) Exists(ctx context.Context, filter models.FixProposalFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *FixProposalRepositoryImpl) applyFilter(db *gorm.DB, filter models.FixProposalFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.PatternID != nil {
		db = db.Where("pattern_id = ?", *filter.PatternID)
	}
	if filter.FieldName != nil {
		db = db.Where("field_name = ?", *filter.FieldName)
	}
	if filter.Status != nil {
		db = db.Where("status = ?", *filter.Status)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	if filter.MonitoringUntilBefore != nil {
		db = db.Where("monitoring_until <= ?", *filter.MonitoringUntilBefore)
	}
	return db
}
