package models

import (
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ExtractionFieldResult is one extracted field with its confidence and routing tier.
// MonitoringProposalID is set while the field is observed after a fix deployment.
// Table: extraction_field_results
type ExtractionFieldResult struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	UUID                 uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_extraction_field_results_uuid;not null" json:"uuid"`
	TenantID             string    `gorm:"size:64;not null;index:idx_extraction_field_results_tenant_extracted" json:"tenant_id"`
	DocumentID           string    `gorm:"size:255;not null;index:idx_extraction_field_results_document" json:"document_id"`
	FieldName            string    `gorm:"size:128;not null;index:idx_extraction_field_results_field" json:"field_name"`
	RawValue             string    `gorm:"type:text" json:"raw_value"`
	Confidence           float64   `gorm:"not null" json:"confidence"`
	Tier                 string    `gorm:"size:32;not null" json:"tier"`
	MonitoringProposalID *uint     `gorm:"index:idx_extraction_field_results_monitoring" json:"monitoring_proposal_id,omitempty"`
	ExtractedAt          time.Time `gorm:"not null;index:idx_extraction_field_results_tenant_extracted" json:"extracted_at"`
	CreatedAt            time.Time `json:"created_at"`
}

func (ExtractionFieldResult) TableName() string {
	return "extraction_field_results"
}

// BeforeCreate is called before creating a new record
func (e *ExtractionFieldResult) BeforeCreate(tx *gorm.DB) error {
	if e.UUID == uuid.Nil {
		e.UUID = uuid.New()
	}
	now := utils.UTCNow()
	if e.ExtractedAt.IsZero() {
		e.ExtractedAt = now
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return nil
}

// ToExtraction converts the row into the analyzer input type
func (e *ExtractionFieldResult) ToExtraction() analysis.Extraction {
	return analysis.Extraction{
		TenantID:    e.TenantID,
		DocumentID:  e.DocumentID,
		FieldName:   e.FieldName,
		RawValue:    e.RawValue,
		Confidence:  e.Confidence,
		ExtractedAt: e.ExtractedAt,
	}
}

type ExtractionFieldResultFilter struct {
	ID                   *uint      `json:"id,omitempty"`
	TenantID             *string    `json:"tenant_id,omitempty"`
	DocumentID           *string    `json:"document_id,omitempty"`
	FieldName            *string    `json:"field_name,omitempty"`
	Tier                 *string    `json:"tier,omitempty"`
	MonitoringProposalID *uint      `json:"monitoring_proposal_id,omitempty"`
	ExtractedAfter       *time.Time `json:"extracted_after,omitempty"`  // inclusive
	ExtractedBefore      *time.Time `json:"extracted_before,omitempty"` // exclusive
}
