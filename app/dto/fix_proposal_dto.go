package dto

import (
	"time"

	"github.com/google/uuid"
)

type FixProposalItem struct {
	UUID                  uuid.UUID  `json:"uuid"`
	TenantID              string     `json:"tenant_id"`
	FieldName             string     `json:"field_name"`
	FixCategory           string     `json:"fix_category"`
	Description           string     `json:"description"`
	Status                string     `json:"status"`
	TestSampleSize        int        `json:"test_sample_size"`
	TestSuccessRate       float64    `json:"test_success_rate"`
	ConfidenceScore       float64    `json:"confidence_score"`
	PostDeploySampleSize  int        `json:"post_deploy_sample_size"`
	PostDeploySuccessRate *float64   `json:"post_deploy_success_rate,omitempty"`
	AppliedAt             *time.Time `json:"applied_at,omitempty"`
	MonitoringUntil       *time.Time `json:"monitoring_until,omitempty"`
	RolledBackAt          *time.Time `json:"rolled_back_at,omitempty"`
	RollbackReason        string     `json:"rollback_reason,omitempty"`
	DeploymentNotes       string     `json:"deployment_notes,omitempty"`
	Version               int        `json:"version"`
	CreatedBy             string     `json:"created_by"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type FixProposalAuditItem struct {
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Actor      string    `json:"actor"`
	Trigger    string    `json:"trigger"`
	Reason     string    `json:"reason"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateFixProposalRequest proposes a fix by hand
type CreateFixProposalRequest struct {
	TenantID    string `json:"-"`
	Actor       string `json:"-"`
	FieldName   string `json:"field_name" validate:"required,max=128"`
	FixCategory string `json:"fix_category" validate:"required,max=64"`
	Description string `json:"description" validate:"max=4096"`
}

type ListFixProposalsRequest struct {
	TenantID  string `json:"-"`
	Status    string `query:"status" json:"status" validate:"omitempty,oneof=proposed testing validated deployed monitoring deployed_success rolled_back"`
	FieldName string `query:"field_name" json:"field_name" validate:"omitempty,max=128"`
	PaginationRequest
}

type ListFixProposalsResponse struct {
	Message string            `json:"message"`
	Items   []FixProposalItem `json:"items"`
	Total   int64             `json:"total"`
}

type FixProposalResponse struct {
	Message  string                 `json:"message"`
	Proposal FixProposalItem        `json:"proposal"`
	Audits   []FixProposalAuditItem `json:"audits,omitempty"`
}

type ListFixProposalAuditsResponse struct {
	Message string                 `json:"message"`
	Items   []FixProposalAuditItem `json:"items"`
}

// FixProposalActionRequest identifies the proposal a lifecycle action applies to
type FixProposalActionRequest struct {
	TenantID string `json:"-"`
	Actor    string `json:"-"`
	UUID     string `json:"-" validate:"required,uuid"`
}

// ValidateFixProposalRequest records measured test results and validates them against the gates
type ValidateFixProposalRequest struct {
	FixProposalActionRequest
	SampleSize      int     `json:"sample_size" validate:"min=0"`
	SuccessRate     float64 `json:"success_rate" validate:"min=0,max=1"`
	ConfidenceScore float64 `json:"confidence_score" validate:"min=0,max=1"`
}

type DeployFixProposalRequest struct {
	FixProposalActionRequest
	Notes string `json:"notes" validate:"max=4096"`
}

type RollbackFixProposalRequest struct {
	FixProposalActionRequest
	Reason string `json:"reason" validate:"required,max=4096"`
}

type EvaluateMonitoringResponse struct {
	Message    string `json:"message"`
	Evaluated  int    `json:"evaluated"`
	Succeeded  int    `json:"succeeded"`
	RolledBack int    `json:"rolled_back"`
	Failed     int    `json:"failed"`
}
