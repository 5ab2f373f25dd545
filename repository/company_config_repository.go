package repository

import (
	"context"
	"errors"

	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
)

// CompanyConfigRepositoryImpl implements CompanyConfigRepository
type CompanyConfigRepositoryImpl struct {
	*BaseRepository[models.CompanyConfig, models.CompanyConfigFilter]
}

// NewCompanyConfigRepository creates a new repository for company configuration
func NewCompanyConfigRepository(db *gorm.DB) CompanyConfigRepository {
	return &CompanyConfigRepositoryImpl{
		BaseRepository: NewBaseRepository[models.CompanyConfig, models.CompanyConfigFilter](db),
	}
}

// ActiveByTenant returns the latest active configuration (last inserted wins)
func (r *CompanyConfigRepositoryImpl) ActiveByTenant(ctx context.Context, tenantID string) (*models.CompanyConfig, error) {
	db := r.getDB(ctx)
	var cfg models.CompanyConfig
	err := db.Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("created_at DESC, id DESC").
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// DeactivateByTenant marks every configuration version of a tenant inactive
func (r *CompanyConfigRepositoryImpl) DeactivateByTenant(ctx context.Context, tenantID string) error {
	db := r.getDB(ctx)
	return db.Model(&models.CompanyConfig{}).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Updates(map[string]any{
			"active":     false,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ListTenants returns every tenant with an active configuration
func (r *CompanyConfigRepositoryImpl) ListTenants(ctx context.Context) ([]string, error) {
	db := r.getDB(ctx)
	var tenants []string
	err := db.Model(&models.CompanyConfig{}).
		Where("active = ?", true).
		Distinct("tenant_id").
		Order("tenant_id ASC").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

// ByFilter retrieves configurations based on filter criteria
func (r *CompanyConfigRepositoryImpl) ByFilter(ctx context.Context, filter models.CompanyConfigFilter, orderBy string, limit, offset int) ([]*models.CompanyConfig, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.CompanyConfig{}), filter)
	return list[models.CompanyConfig](query, orderBy, "created_at DESC, id DESC", limit, offset)
}

// Count returns the number of configurations matching the filter
func (r *CompanyConfigRepositoryImpl) Count(ctx context.Context, filter models.CompanyConfigFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.CompanyConfig{}), filter))
}

// Exists checks if any configuration matching the filter exists
func (r *CompanyConfigRepositoryImpl) Exists(ctx context.Context, filter models.CompanyConfigFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *CompanyConfigRepositoryImpl) applyFilter(db *gorm.DB, filter models.CompanyConfigFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.Active != nil {
		db = db.Where("active = ?", *filter.Active)
	}
	return db
}
