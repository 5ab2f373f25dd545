package repository

import (
	"context"
	"errors"

	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
)

// PricingFactorRepositoryImpl implements PricingFactorRepository
type PricingFactorRepositoryImpl struct {
	*BaseRepository[models.PricingFactor, models.PricingFactorFilter]
}

// NewPricingFactorRepository creates a new repository for TIER 1 factors
func NewPricingFactorRepository(db *gorm.DB) PricingFactorRepository {
	return &PricingFactorRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PricingFactor, models.PricingFactorFilter](db),
	}
}

// ByUUID retrieves a factor by its public id
func (r *PricingFactorRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.PricingFactor, error) {
	return r.byUUID(ctx, uuid)
}

// ByCategoryKey retrieves a factor regardless of its enabled flag
func (r *PricingFactorRepositoryImpl) ByCategoryKey(ctx context.Context, category, key string) (*models.PricingFactor, error) {
	db := r.getDB(ctx)
	var factor models.PricingFactor
	err := db.Where("category = ? AND factor_key = ?", category, key).Last(&factor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &factor, nil
}

// ListAll returns every factor, enabled or not, ordered by category and key
func (r *PricingFactorRepositoryImpl) ListAll(ctx context.Context) ([]*models.PricingFactor, error) {
	return r.ByFilter(ctx, models.PricingFactorFilter{}, "category ASC, factor_key ASC", 0, 0)
}

// SetEnabled toggles a factor. Factors are never deleted.
func (r *PricingFactorRepositoryImpl) SetEnabled(ctx context.Context, id uint, enabled bool) error {
	db := r.getDB(ctx)
	res := db.Model(&models.PricingFactor{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"enabled":    enabled,
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

// UpdateFactor changes the factor value and enabled flag of an existing row
func (r *PricingFactorRepositoryImpl) UpdateFactor(ctx context.Context, id uint, factor *models.PricingFactor) error {
	db := r.getDB(ctx)
	return db.Model(&models.PricingFactor{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"factor":     factor.Factor,
			"enabled":    factor.Enabled,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves factors based on filter criteria
func (r *PricingFactorRepositoryImpl) ByFilter(ctx context.Context, filter models.PricingFactorFilter, orderBy string, limit, offset int) ([]*models.PricingFactor, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.PricingFactor{}), filter)
	return list[models.PricingFactor](query, orderBy, "id ASC", limit, offset)
}

// Count returns the number of factors matching the filter
func (r *PricingFactorRepositoryImpl) Count(ctx context.Context, filter models.PricingFactorFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.PricingFactor{}), filter))
}

// Exists checks if any factor matching the filter exists
func (r *PricingFactorRepositoryImpl) Exists(ctx context.Context, filter models.PricingFactorFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PricingFactorRepositoryImpl) applyFilter(db *gorm.DB, filter models.PricingFactorFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.Category != nil {
		db = db.Where("category = ?", *filter.Category)
	}
	if filter.Key != nil {
		db = db.Where("factor_key = ?", *filter.Key)
	}
	if filter.Enabled != nil {
		db = db.Where("enabled = ?", *filter.Enabled)
	}
	return db
}
