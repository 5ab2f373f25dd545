package repository

import (
	"context"

	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
)

// SurchargeRuleRepositoryImpl implements SurchargeRuleRepository
type SurchargeRuleRepositoryImpl struct {
	*BaseRepository[models.SurchargeRule, models.SurchargeRuleFilter]
}

// NewSurchargeRuleRepository creates a new repository for surcharge rules
func NewSurchargeRuleRepository(db *gorm.DB) SurchargeRuleRepository {
	return &SurchargeRuleRepositoryImpl{
		BaseRepository: NewBaseRepository[models.SurchargeRule, models.SurchargeRuleFilter](db),
	}
}

// ByUUID retrieves a surcharge rule by its public id
func (r *SurchargeRuleRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.SurchargeRule, error) {
	return r.byUUID(ctx, uuid)
}

// ListActiveByTenant returns the active rules of a tenant, highest priority first
func (r *SurchargeRuleRepositoryImpl) ListActiveByTenant(ctx context.Context, tenantID string) ([]*models.SurchargeRule, error) {
	active := true
	return r.ByFilter(ctx, models.SurchargeRuleFilter{TenantID: &tenantID, Active: &active}, "priority DESC, id ASC", 0, 0)
}

// SetActive toggles a surcharge rule
func (r *SurchargeRuleRepositoryImpl) SetActive(ctx context.Context, id uint, active bool) error {
	db := r.getDB(ctx)
	res := db.Model(&models.SurchargeRule{}).
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

// ByFilter retrieves surcharge rules based on filter criteria
func (r *SurchargeRuleRepositoryImpl) ByFilter(ctx context.Context, filter models.SurchargeRuleFilter, orderBy string, limit, offset int) ([]*models.SurchargeRule, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.SurchargeRule{}), filter)
	return list[models.SurchargeRule](query, orderBy, "priority DESC, id ASC", limit, offset)
}

// Count returns the number of surcharge rules matching the filter
func (r *SurchargeRuleRepositoryImpl) Count(ctx context.Context, filter models.SurchargeRuleFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.SurchargeRule{}), filter))
}

// Exists checks if any surcharge rule matching the filter exists
func (r *SurchargeRuleRepositoryImpl) Exists(ctx context.Context, filter models.SurchargeRuleFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *SurchargeRuleRepositoryImpl) applyFilter(db *gorm.DB, filter models.SurchargeRuleFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Kind != nil {
		db = db.Where("kind = ?", *filter.Kind)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	return db
}
