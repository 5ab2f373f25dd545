package repository

import (
	"context"
	"errors"
	"time"

	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
)

// KnowledgeEntryRepositoryImpl implements KnowledgeEntryRepository
type KnowledgeEntryRepositoryImpl struct {
	*BaseRepository[models.KnowledgeEntry, models.KnowledgeEntryFilter]
}

// NewKnowledgeEntryRepository creates a new repository for knowledge entries
func NewKnowledgeEntryRepository(db *gorm.DB) KnowledgeEntryRepository {
	return &KnowledgeEntryRepositoryImpl{
		BaseRepository: NewBaseRepository[models.KnowledgeEntry, models.KnowledgeEntryFilter](db),
	}
}

// ByFixProposalID retrieves the entry created by a proposal's deployment
func (r *KnowledgeEntryRepositoryImpl) ByFixProposalID(ctx context.Context, fixProposalID uint) (*models.KnowledgeEntry, error) {
	db := r.getDB(ctx)
	var entry models.KnowledgeEntry
	err := db.Where("fix_proposal_id = ?", fixProposalID).Last(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// Revert deactivates the active entry of a proposal
func (r *KnowledgeEntryRepositoryImpl) Revert(ctx context.Context, fixProposalID uint, at time.Time) (int64, error) {
	db := r.getDB(ctx)
	res := db.Model(&models.KnowledgeEntry{}).
		Where("fix_proposal_id = ? AND active = ?", fixProposalID, true).
		Updates(map[string]any{
			"active":      false,
			"reverted_at": at,
			"updated_at":  utils.UTCNow(),
		})
	return res.RowsAffected, res.Error
}

// ListActiveByTenant returns the knowledge currently in effect for a tenant
func (r *KnowledgeEntryRepositoryImpl) ListActiveByTenant(ctx context.Context, tenantID string) ([]*models.KnowledgeEntry, error) {
	active := true
	return r.ByFilter(ctx, models.KnowledgeEntryFilter{TenantID: &tenantID, Active: &active}, "applied_at ASC, id ASC", 0, 0)
}

// ByFilter retrieves entries based on filter criteria
func (r *KnowledgeEntryRepositoryImpl) ByFilter(ctx context.Context, filter models.KnowledgeEntryFilter, orderBy string, limit, offset int) ([]*models.KnowledgeEntry, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.KnowledgeEntry{}), filter)
	return list[models.KnowledgeEntry](query, orderBy, "applied_at DESC, id DESC", limit, offset)
}

// Count returns the number of entries matching the filter
func (r *KnowledgeEntryRepositoryImpl) Count(ctx context.Context, filter models.KnowledgeEntryFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.KnowledgeEntry{}), filter))
}

// Exists checks if any entry matching the filter exists
func (r *KnowledgeEntryRepositoryImpl) Exists(ctx context.Context, filter models.KnowledgeEntryFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *KnowledgeEntryRepositoryImpl) applyFilter(db *gorm.DB, filter models.KnowledgeEntryFilter) *gorm.DB {
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.FixProposalID != nil {
		db = db.Where("fix_proposal_id = ?", *filter.FixProposalID)
	}
	if filter.FieldName != nil {
		db = db.Where("field_name = ?", *filter.FieldName)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	return db
}
