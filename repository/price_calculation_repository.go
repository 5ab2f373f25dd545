package repository

import (
	"context"

	"github.com/amirphl/quote-core/models"
	"gorm.io/gorm"
)

// PriceCalculationRepositoryImpl implements PriceCalculationRepository
type PriceCalculationRepositoryImpl struct {
	*BaseRepository[models.PriceCalculation, models.PriceCalculationFilter]
}

// NewPriceCalculationRepository creates a new repository for stored calculations
func NewPriceCalculationRepository(db *gorm.DB) PriceCalculationRepository {
	return &PriceCalculationRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PriceCalculation, models.PriceCalculationFilter](db),
	}
}

// ByUUID retrieves a calculation by its public id
func (r *PriceCalculationRepositoryImpl) ByUUID(ctx context.Context, uuid string) (*models.PriceCalculation, error) {
	return r.byUUID(ctx, uuid)
}

// ByFilter retrieves calculations based on filter criteria
func (r *PriceCalculationRepositoryImpl) ByFilter(ctx context.Context, filter models.PriceCalculationFilter, orderBy string, limit, offset int) ([]*models.PriceCalculation, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.PriceCalculation{}), filter)
	return list[models.PriceCalculation](query, orderBy, "created_at DESC, id DESC", limit, offset)
}

// Count returns the number of calculations matching the filter
func (r *PriceCalculationRepositoryImpl) Count(ctx context.Context, filter models.PriceCalculationFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.PriceCalculation{}), filter))
}

// Exists checks if any calculation matching the filter exists
func (r *PriceCalculationRepositoryImpl) Exists(ctx context.Context, filter models.PriceCalculationFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *PriceCalculationRepositoryImpl) applyFilter(db *gorm.DB, filter models.PriceCalculationFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.UUID != nil {
		db = db.Where("uuid = ?", *filter.UUID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.DocumentID != nil {
		db = db.Where("document_id = ?", *filter.DocumentID)
	}
	return db
}
