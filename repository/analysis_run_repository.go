package repository

import (
	"context"
	"errors"

	"github.com/amirphl/quote-core/models"
	"gorm.io/gorm"
)

// AnalysisRunRepositoryImpl implements AnalysisRunRepository
type AnalysisRunRepositoryImpl struct {
	*BaseRepository[models.AnalysisRun, models.AnalysisRunFilter]
}

// NewAnalysisRunRepository creates a new repository for analysis runs
func NewAnalysisRunRepository(db *gorm.DB) AnalysisRunRepository {
	return &AnalysisRunRepositoryImpl{
		BaseRepository: NewBaseRepository[models.AnalysisRun, models.AnalysisRunFilter](db),
	}
}

// ByUUID retrieves a run by its public id
func (r *AnalysisRunRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.AnalysisRun, error) {
	return r.byUUID(ctx, uuid)
}

// LatestByTenant returns the most recent run of a tenant
func (r *AnalysisRunRepositoryImpl) LatestByTenant(ctx context.Context, tenantID string) (*models.AnalysisRun, error) {
	db := r.getDB(ctx)
	var run models.AnalysisRun
	err := db.Where("tenant_id = ?", tenantID).Order("created_at DESC, id DESC").First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// UpdateCounts stores the pattern and proposal totals once a run is persisted
func (r *AnalysisRunRepositoryImpl) UpdateCounts(ctx context.Context, id uint, patternCount, proposalCount int) error {
	db := r.getDB(ctx)
	return db.Model(&models.AnalysisRun{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"pattern_count":  patternCount,
			"proposal_count": proposalCount,
		}).Error
}

// ByFilter retrieves runs based on filter criteria
func (r *AnalysisRunRepositoryImpl) ByFilter(ctx context.Context, filter models.AnalysisRunFilter, orderBy string, limit, offset int) ([]*models.AnalysisRun, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.AnalysisRun{}), filter)
	return list[models.AnalysisRun](query, orderBy, "created_at DESC, id DESC", limit, offset)
}

// Count returns the number of runs matching the filter
func (r *AnalysisRunRepositoryImpl) Count(ctx context.Context, filter models.AnalysisRunFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.AnalysisRun{}), filter))
}

// Exists checks if any run matching the filter exists
func (r *AnalysisRunRepositoryImpl) Exists(ctx context.Context, filter models.AnalysisRunFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *AnalysisRunRepositoryImpl) applyFilter(db *gorm.DB, filter models.AnalysisRunFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	return db
}
