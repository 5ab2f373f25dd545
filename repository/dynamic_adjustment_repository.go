package repository

import (
	"context"
	"time"

	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
)

// DynamicAdjustmentRepositoryImpl implements DynamicAdjustmentRepository
type DynamicAdjustmentRepositoryImpl struct {
	*BaseRepository[models.DynamicAdjustment, models.DynamicAdjustmentFilter]
}

// NewDynamicAdjustmentRepository creates a new repository for TIER 3 adjustments
func NewDynamicAdjustmentRepository(db *gorm.DB) DynamicAdjustmentRepository {
	return &DynamicAdjustmentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.DynamicAdjustment, models.DynamicAdjustmentFilter](db),
	}
}

// ByUUID retrieves an adjustment by its public id
func (r *DynamicAdjustmentRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.DynamicAdjustment, error) {
	return r.byUUID(ctx, uuid)
}

// ListActiveByTenant returns active adjustments valid at the given instant, in application order
func (r *DynamicAdjustmentRepositoryImpl) ListActiveByTenant(ctx context.Context, tenantID string, at time.Time) ([]*models.DynamicAdjustment, error) {
	active := true
	return r.ByFilter(ctx, models.DynamicAdjustmentFilter{
		TenantID: &tenantID,
		Active:   &active,
		ValidAt:  &at,
	}, "priority ASC, id ASC", 0, 0)
}

// SetActive toggles an adjustment
func (r *DynamicAdjustmentRepositoryImpl) SetActive(ctx context.Context, id uint, active bool) error {
	db := r.getDB(ctx)
	res := db.Model(&models.DynamicAdjustment{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"active":     active,
			"updated_at": utils.UTCNow(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ByFilter retrieves adjustments based on filter criteria
func (r *DynamicAdjustmentRepositoryImpl) ByFilter(ctx context.Context, filter models.DynamicAdjustmentFilter, orderBy string, limit, offset int) ([]*models.DynamicAdjustment, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.DynamicAdjustment{}), filter)
	return list[models.DynamicAdjustment](query, orderBy, "priority ASC, id ASC", limit, offset)
}

// Count returns the number of adjustments matching the filter
func (r *DynamicAdjustmentRepositoryImpl) Count(ctx context.Context, filter models.DynamicAdjustmentFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.DynamicAdjustment{}), filter))
}

// Exists checks if any adjustment matching the filter exists
func (r *DynamicAdjustmentRepositoryImpl) Exists(ctx context.Context, filter models.DynamicAdjustmentFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *DynamicAdjustmentRepositoryImpl) applyFilter(db *gorm.DB, filter models.DynamicAdjustmentFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	if filter.Audience != nil {
		db = db.Where("audience = ?", *filter.Audience)
	}
	if filter.ValidAt != nil {
		db = db.Where("valid_from <= ? AND (valid_until IS NULL OR valid_until > ?)", *filter.ValidAt, *filter.ValidAt)
	}
	return db
}
