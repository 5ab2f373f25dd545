package repository

import (
	"context"

	"github.com/amirphl/quote-core/models"
	"gorm.io/gorm"
)

// FixProposalAuditRepositoryImpl implements FixProposalAuditRepository.
// Audit rows are only inserted, never updated.
type FixProposalAuditRepositoryImpl struct {
	*BaseRepository[models.FixProposalAudit, models.FixProposalAuditFilter]
}

// NewFixProposalAuditRepository creates a new repository for proposal audits
func NewFixProposalAuditRepository(db *gorm.DB) FixProposalAuditRepository {
	return &FixProposalAuditRepositoryImpl{
		BaseRepository: NewBaseRepository[models.FixProposalAudit, models.FixProposalAuditFilter](db),
	}
}

// ListByProposal returns the audit trail of a proposal in chronological order
func (r *FixProposalAuditRepositoryImpl) ListByProposal(ctx context.Context, proposalID uint) ([]*models.FixProposalAudit, error) {
	return r.ByFilter(ctx, models.FixProposalAuditFilter{FixProposalID: &proposalID}, "created_at ASC, id ASC", 0, 0)
}

// ByFilter retrieves audits based on filter criteria
func (r *FixProposalAuditRepositoryImpl) ByFilter(ctx context.Context, filter models.FixProposalAuditFilter, orderBy string, limit, offset int) ([]*models.FixProposalAudit, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.FixProposalAudit{}), filter)
	return list[models.FixProposalAudit](query, orderBy, "created_at ASC, id ASC", limit, offset)
}

// Count returns the number of audits matching the filter
func (r *FixProposalAuditRepositoryImpl) Count(ctx context.Context, filter models.FixProposalAuditFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.FixProposalAudit{}), filter))
}

// Exists checks if any audit matching the filter exists
func (r *FixProposalAuditRepositoryImpl) Exists(ctx context.Context, filter models.FixProposalAuditFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *FixProposalAuditRepositoryImpl) applyFilter(db *gorm.DB, filter models.FixProposalAuditFilter) *gorm.DB {
	if filter.FixProposalID != nil {
		db = db.Where("fix_proposal_id = ?", *filter.FixProposalID)
	}
	if filter.ToStatus != nil {
		db = db.Where("to_status = ?", *filter.ToStatus)
	}
	if filter.Actor != nil {
		db = db.Where("actor = ?", *filter.Actor)
	}
	return db
}
