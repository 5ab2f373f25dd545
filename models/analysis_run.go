package models

import (
	"encoding/json"
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AnalysisRun stores one pattern analysis pass and its full report.
// Table: analysis_runs
type AnalysisRun struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UUID             uuid.UUID      `gorm:"type:uuid;uniqueIndex:idx_analysis_runs_uuid;not null" json:"uuid"`
	TenantID         string         `gorm:"size:64;not null;index:idx_analysis_runs_tenant_created" json:"tenant_id"`
	WindowStart      time.Time      `gorm:"not null" json:"window_start"`
	WindowEnd        time.Time      `gorm:"not null" json:"window_end"`
	TotalExtractions int            `gorm:"not null" json:"total_extractions"`
	FailureCount     int            `gorm:"not null" json:"failure_count"`
	PatternCount     int            `gorm:"not null" json:"pattern_count"`
	ProposalCount    int            `gorm:"not null" json:"proposal_count"`
	Report           datatypes.JSON `json:"report"`
	TriggeredBy      string         `gorm:"size:255" json:"triggered_by"`
	CreatedAt        time.Time      `gorm:"index:idx_analysis_runs_tenant_created" json:"created_at"`
}

func (AnalysisRun) TableName() string {
	return "analysis_runs"
}

// BeforeCreate is called before creating a new record
func (r *AnalysisRun) BeforeCreate(tx *gorm.DB) error {
	if r.UUID == uuid.Nil {
		r.UUID = uuid.New()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = utils.UTCNow()
	}
	return nil
}

// DecodeReport returns the stored analysis report
func (r *AnalysisRun) DecodeReport() (analysis.Report, error) {
	var report analysis.Report
	if len(r.Report) == 0 {
		return report, nil
	}
	err := json.Unmarshal(r.Report, &report)
	return report, err
}

type AnalysisRunFilter struct {
	ID       *uint      `json:"id,omitempty"`
	UUID     *uuid.UUID `json:"uuid,omitempty"`
	TenantID *string    `json:"tenant_id,omitempty"`
}
