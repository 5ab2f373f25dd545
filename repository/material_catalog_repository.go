package repository

import (
	"context"
	"errors"

	"github.com/amirphl/quote-core/models"
	"gorm.io/gorm"
)

// MaterialCatalogRepositoryImpl implements MaterialCatalogRepository
type MaterialCatalogRepositoryImpl struct {
	*BaseRepository[models.MaterialCatalogEntry, models.MaterialCatalogEntryFilter]
}

// NewMaterialCatalogRepository creates a new repository for catalog entries
func NewMaterialCatalogRepository(db *gorm.DB) MaterialCatalogRepository {
	return &MaterialCatalogRepositoryImpl{
		BaseRepository: NewBaseRepository[models.MaterialCatalogEntry, models.MaterialCatalogEntryFilter](db),
	}
}

// ByStockKey retrieves the catalog entry of a tenant by stock key
func (r *MaterialCatalogRepositoryImpl) ByStockKey(ctx context.Context, tenantID, stockKey string) (*models.MaterialCatalogEntry, error) {
	db := r.getDB(ctx)
	var entry models.MaterialCatalogEntry
	err := db.Where("tenant_id = ? AND stock_key = ?", tenantID, stockKey).Last(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// ListByStockKeys returns the entries of a tenant for the given stock keys
func (r *MaterialCatalogRepositoryImpl) ListByStockKeys(ctx context.Context, tenantID string, stockKeys []string) ([]*models.MaterialCatalogEntry, error) {
	if len(stockKeys) == 0 {
		return []*models.MaterialCatalogEntry{}, nil
	}
	return r.ByFilter(ctx, models.MaterialCatalogEntryFilter{TenantID: &tenantID, StockKeys: stockKeys}, "stock_key ASC", 0, 0)
}

// ByFilter retrieves catalog entries based on filter criteria
func (r *MaterialCatalogRepositoryImpl) ByFilter(ctx context.Context, filter models.MaterialCatalogEntryFilter, orderBy string, limit, offset int) ([]*models.MaterialCatalogEntry, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.MaterialCatalogEntry{}), filter)
	return list[models.MaterialCatalogEntry](query, orderBy, "stock_key ASC", limit, offset)
}

// Count returns the number of catalog entries matching the filter
func (r *MaterialCatalogRepositoryImpl) Count(ctx context.Context, filter models.MaterialCatalogEntryFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.MaterialCatalogEntry{}), filter))
}

// Exists checks if any catalog entry matching the filter exists
func (r *MaterialCatalogRepositoryImpl) Exists(ctx context.Context, filter models.MaterialCatalogEntryFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *MaterialCatalogRepositoryImpl) applyFilter(db *gorm.DB, filter models.MaterialCatalogEntryFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.StockKey != nil {
		db = db.Where("stock_key = ?", *filter.StockKey)
	}
	if len(filter.StockKeys) > 0 {
		db = db.Where("stock_key IN ?", filter.StockKeys)
	}
	return db
}
