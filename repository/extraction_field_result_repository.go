package repository

import (
	"context"
	"time"

	"github.com/amirphl/quote-core/models"
	"gorm.io/gorm"
)

// ExtractionFieldResultRepositoryImpl implements ExtractionFieldResultRepository
type ExtractionFieldResultRepositoryImpl struct {
	*BaseRepository[models.ExtractionFieldResult, models.ExtractionFieldResultFilter]
}

// NewExtractionFieldResultRepository creates a new repository for extraction results
func NewExtractionFieldResultRepository(db *gorm.DB) ExtractionFieldResultRepository {
	return &ExtractionFieldResultRepositoryImpl{
		BaseRepository: NewBaseRepository[models.ExtractionFieldResult, models.ExtractionFieldResultFilter](db),
	}
}

// ListInWindow returns the results of a tenant extracted in [start, end)
func (r *ExtractionFieldResultRepositoryImpl) ListInWindow(ctx context.Context, tenantID string, start, end time.Time) ([]*models.ExtractionFieldResult, error) {
	return r.ByFilter(ctx, models.ExtractionFieldResultFilter{
		TenantID:        &tenantID,
		ExtractedAfter:  &start,
		ExtractedBefore: &end,
	}, "extracted_at ASC, id ASC", 0, 0)
}

// TenantsInWindow returns every tenant with results extracted in [start, end)
func (r *ExtractionFieldResultRepositoryImpl) TenantsInWindow(ctx context.Context, start, end time.Time) ([]string, error) {
	db := r.getDB(ctx)
	var tenants []string
	err := db.Model(&models.ExtractionFieldResult{}).
		Where("extracted_at >= ? AND extracted_at < ?", start, end).
		Distinct("tenant_id").
		Order("tenant_id ASC").
		Pluck("tenant_id", &tenants).Error
	return tenants, err
}

// ObservationFor counts the results tagged for a monitored proposal and how many
// of them reached successThreshold
func (r *ExtractionFieldResultRepositoryImpl) ObservationFor(ctx context.Context, proposalID uint, successThreshold float64) (ExtractionObservation, error) {
	db := r.getDB(ctx)
	var row struct {
		SampleSize   int64
		SuccessCount int64
	}
	err := db.Model(&models.ExtractionFieldResult{}).
		Select("COUNT(*) AS sample_size, COALESCE(SUM(CASE WHEN confidence >= ? THEN 1 ELSE 0 END), 0) AS success_count", successThreshold).
		Where("monitoring_proposal_id = ?", proposalID).
		Scan(&row).Error
	if err != nil {
		return ExtractionObservation{}, err
	}
	return ExtractionObservation{SampleSize: row.SampleSize, SuccessCount: row.SuccessCount}, nil
}

// ByFilter retrieves extraction results based on filter criteria
func (r *ExtractionFieldResultRepositoryImpl) ByFilter(ctx context.Context, filter models.ExtractionFieldResultFilter, orderBy string, limit, offset int) ([]*models.ExtractionFieldResult, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.ExtractionFieldResult{}), filter)
	return list[models.ExtractionFieldResult](query, orderBy, "extracted_at DESC, id DESC", limit, offset)
}

// Count returns the number of extraction results matching the filter
func (r *ExtractionFieldResultRepositoryImpl) Count(ctx context.Context, filter models.ExtractionFieldResultFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.ExtractionFieldResult{}), filter))
}

// Exists checks if any extraction result matching the filter exists
func (r *ExtractionFieldResultRepositoryImpl) Exists(ctx context.Context, filter models.ExtractionFieldResultFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *ExtractionFieldResultRepositoryImpl) applyFilter(db *gorm.DB, filter models.ExtractionFieldResultFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.DocumentID != nil {
		db = db.Where("document_id = ?", *filter.DocumentID)
	}
	if filter.FieldName != nil {
		db = db.Where("field_name = ?", *filter.FieldName)
	}
	if filter.Tier != nil {
		db = db.Where("tier = ?", *filter.Tier)
	}
	if filter.MonitoringProposalID != nil {
		db = db.Where("monitoring_proposal_id = ?", *filter.MonitoringProposalID)
	}
	if filter.ExtractedAfter != nil {
		db = db.Where("extracted_at >= ?", *filter.ExtractedAfter)
	}
	if filter.ExtractedBefore != nil {
		db = db.Where("extracted_at < ?", *filter.ExtractedBefore)
	}
	return db
}
