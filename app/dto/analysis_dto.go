package dto

import (
	"time"

	"github.com/amirphl/quote-core/analysis"
	"github.com/google/uuid"
)

// RunAnalysisRequest analyses the window [WindowStart, WindowEnd); defaults to the configured lookback ending now
type RunAnalysisRequest struct {
	TenantID    string     `json:"-"`
	Actor       string     `json:"-"`
	WindowStart *time.Time `json:"window_start,omitempty"`
	WindowEnd   *time.Time `json:"window_end,omitempty"`
}

type AnalysisRunItem struct {
	UUID             uuid.UUID       `json:"uuid"`
	TenantID         string          `json:"tenant_id"`
	WindowStart      time.Time       `json:"window_start"`
	WindowEnd        time.Time       `json:"window_end"`
	TotalExtractions int             `json:"total_extractions"`
	FailureCount     int             `json:"failure_count"`
	PatternCount     int             `json:"pattern_count"`
	ProposalCount    int             `json:"proposal_count"`
	TriggeredBy      string          `json:"triggered_by"`
	CreatedAt        time.Time       `json:"created_at"`
	Report           analysis.Report `json:"report"`
}

type AnalysisRunResponse struct {
	Message string          `json:"message"`
	Run     AnalysisRunItem `json:"run"`
}

// AnalysisExport is an xlsx rendering of one analysis run
type AnalysisExport struct {
	FileName string
	Content  []byte
}
