package repository

import (
	"context"
	"errors"

	"github.com/amirphl/quote-core/models"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FailurePatternRepositoryImpl implements FailurePatternRepository
type FailurePatternRepositoryImpl struct {
	*BaseRepository[models.FailurePattern, models.FailurePatternFilter]
}

// NewFailurePatternRepository creates a new repository for failure patterns
func NewFailurePatternRepository(db *gorm.DB) FailurePatternRepository {
	return &FailurePatternRepositoryImpl{
		BaseRepository: NewBaseRepository[models.FailurePattern, models.FailurePatternFilter](db),
	}
}

// ByKey retrieves the pattern of a (tenant, field, bucket)
func (r *FailurePatternRepositoryImpl) ByKey(ctx context.Context, tenantID, fieldName, bucket string) (*models.FailurePattern, error) {
	db := r.getDB(ctx)
	var pattern models.FailurePattern
	err := db.Where("tenant_id = ? AND field_name = ? AND bucket = ?", tenantID, fieldName, bucket).Last(&pattern).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &pattern, nil
}

// Upsert inserts the pattern or refreshes the stored aggregate of its key.
// FirstSeen keeps the earliest value; pattern.ID is set on return.
func (r *FailurePatternRepositoryImpl) Upsert(ctx context.Context, pattern *models.FailurePattern) error {
	db := r.getDB(ctx)
	pattern.UpdatedAt = utils.UTCNow()

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}, {Name: "field_name"}, {Name: "bucket"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"occurrence_count", "average_confidence", "score", "cause",
			"fix_category", "severity", "last_seen", "resolved", "last_run_id", "updated_at",
		}),
	}).Create(pattern).Error
	if err != nil {
		return err
	}

	stored, err := r.ByKey(ctx, pattern.TenantID, pattern.FieldName, pattern.Bucket)
	if err != nil {
		return err
	}
	if stored == nil {
		return gorm.ErrRecordNotFound
	}
	*pattern = *stored
	return nil
}

// MarkResolved flags a pattern as resolved or open again
func (r *FailurePatternRepositoryImpl) MarkResolved(ctx context.Context, id uint, resolved bool) error {
	db := r.getDB(ctx)
	return db.Model(&models.FailurePattern{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"resolved":   resolved,
			"updated_at": utils.UTCNow(),
		}).Error
}

// ByFilter retrieves failure patterns based on filter criteria
func (r *FailurePatternRepositoryImpl) ByFilter(ctx context.Context, filter models.FailurePatternFilter, orderBy string, limit, offset int) ([]*models.FailurePattern, error) {
	query := r.applyFilter(r.getDB(ctx).Model(&models.FailurePattern{}), filter)
	return list[models.FailurePattern](query, orderBy, "score DESC, id ASC", limit, offset)
}

// Count returns the number of failure patterns matching the filter
func (r *FailurePatternRepositoryImpl) Count(ctx context.Context, filter models.FailurePatternFilter) (int64, error) {
	return count(r.applyFilter(r.getDB(ctx).Model(&models.FailurePattern{}), filter))
}

// Exists checks if any failure pattern matching the filter exists
func (r *FailurePatternRepositoryImpl) Exists(ctx context.Context, filter models.FailurePatternFilter) (bool, error) {
	n, err := r.Count(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// applyFilter applies filter conditions to the GORM query
func (r *FailurePatternRepositoryImpl) applyFilter(db *gorm.DB, filter models.FailurePatternFilter) *gorm.DB {
	if filter.ID != nil {
		db = db.Where("id = ?", *filter.ID)
	}
	if filter.TenantID != nil {
		db = db.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.FieldName != nil {
		db = db.Where("field_name = ?", *filter.FieldName)
	}
	if filter.Bucket != nil {
		db = db.Where("bucket = ?", *filter.Bucket)
	}
	if filter.Severity != nil {
		db = db.Where("severity = ?", *filter.Severity)
	}
	if filter.Resolved != nil {
		db = db.Where("resolved = ?", *filter.Resolved)
	}
	return db
}
