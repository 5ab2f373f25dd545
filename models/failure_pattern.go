package models

import (
	"time"

	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FailurePattern aggregates low-confidence extractions of one field and bucket.
// Upserted by (tenant, field, bucket) after every analysis run.
// Table: failure_patterns
type FailurePattern struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UUID              uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_failure_patterns_uuid;not null" json:"uuid"`
	TenantID          string    `gorm:"size:64;not null;uniqueIndex:idx_failure_patterns_tenant_field_bucket" json:"tenant_id"`
	FieldName         string    `gorm:"size:128;not null;uniqueIndex:idx_failure_patterns_tenant_field_bucket" json:"field_name"`
	Bucket            string    `gorm:"size:32;not null;uniqueIndex:idx_failure_patterns_tenant_field_bucket" json:"bucket"`
	OccurrenceCount   int       `gorm:"not null" json:"occurrence_count"`
	AverageConfidence float64   `gorm:"not null" json:"average_confidence"`
	Score             float64   `gorm:"not null" json:"score"`
	Cause             string    `gorm:"size:64;not null" json:"cause"`
	FixCategory       string    `gorm:"size:64;not null" json:"fix_category"`
	Severity          string    `gorm:"size:16;not null;index:idx_failure_patterns_severity" json:"severity"`
	FirstSeen         time.Time `json:"first_seen"`
	LastSeen          time.Time `json:"last_seen"`
	Resolved          bool      `gorm:"not null" json:"resolved"`
	LastRunID         *uint     `json:"last_run_id,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (FailurePattern) TableName() string {
	return "failure_patterns"
}

// BeforeCreate is called before creating a new record
func (p *FailurePattern) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

type FailurePatternFilter struct {
	ID        *uint   `json:"id,omitempty"`
	TenantID  *string `json:"tenant_id,omitempty"`
	FieldName *string `json:"field_name,omitempty"`
	Bucket    *string `json:"bucket,omitempty"`
	Severity  *string `json:"severity,omitempty"`
	Resolved  *bool   `json:"resolved,omitempty"`
}
