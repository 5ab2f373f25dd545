package models

import (
	"time"

	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FixProposal is a candidate extraction improvement moving through the gated
// deployment lifecycle. Version guards every status change; rows are never deleted.
// Table: fix_proposals
type FixProposal struct {
	ID                    uint              `gorm:"primaryKey" json:"id"`
	UUID                  uuid.UUID         `gorm:"type:uuid;uniqueIndex:idx_fix_proposals_uuid;not null" json:"uuid"`
	TenantID              string            `gorm:"size:64;not null;index:idx_fix_proposals_tenant_status" json:"tenant_id"`
	PatternID             *uint             `gorm:"index:idx_fix_proposals_pattern" json:"pattern_id,omitempty"`
	AnalysisRunID         *uint             `json:"analysis_run_id,omitempty"`
	FieldName             string            `gorm:"size:128;not null" json:"field_name"`
	FixCategory           string            `gorm:"size:64;not null" json:"fix_category"`
	Description           string            `gorm:"type:text" json:"description"`
	Status                deployment.Status `gorm:"size:32;not null;index:idx_fix_proposals_tenant_status" json:"status"`
	TestSampleSize        int               `gorm:"not null" json:"test_sample_size"`
	TestSuccessRate       float64           `gorm:"not null" json:"test_success_rate"`
	ConfidenceScore       float64           `gorm:"not null" json:"confidence_score"`
	PostDeploySampleSize  int               `gorm:"not null" json:"post_deploy_sample_size"`
	PostDeploySuccessRate *float64          `json:"post_deploy_success_rate,omitempty"`
	AppliedAt             *time.Time        `json:"applied_at,omitempty"`
	MonitoringUntil       *time.Time        `gorm:"index:idx_fix_proposals_monitoring_until" json:"monitoring_until,omitempty"`
	RolledBackAt          *time.Time        `json:"rolled_back_at,omitempty"`
	RollbackReason        string            `gorm:"type:text" json:"rollback_reason,omitempty"`
	DeploymentNotes       string            `gorm:"type:text" json:"deployment_notes,omitempty"`
	Version               int               `gorm:"not null" json:"version"`
	CreatedBy             string            `gorm:"size:255" json:"created_by"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

func (FixProposal) TableName() string {
	return "fix_proposals"
}

// BeforeCreate is called before creating a new record
func (p *FixProposal) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == uuid.Nil {
		p.UUID = uuid.New()
	}
	if p.Status == "" {
		p.Status = deployment.StatusProposed
	}
	if p.Version == 0 {
		p.Version = 1
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = utils.UTCNow()
	}
	return nil
}

// ToProposal returns the lifecycle view of the row
func (p *FixProposal) ToProposal() deployment.Proposal {
	return deployment.Proposal{
		ID:                    p.ID,
		Status:                p.Status,
		TestSampleSize:        p.TestSampleSize,
		TestSuccessRate:       p.TestSuccessRate,
		ConfidenceScore:       p.ConfidenceScore,
		PostDeploySampleSize:  p.PostDeploySampleSize,
		PostDeploySuccessRate: p.PostDeploySuccessRate,
		AppliedAt:             p.AppliedAt,
		MonitoringUntil:       p.MonitoringUntil,
		RolledBackAt:          p.RolledBackAt,
		RollbackReason:        p.RollbackReason,
		DeploymentNotes:       p.DeploymentNotes,
	}
}

// ApplyProposal copies lifecycle state back onto the row
func (p *FixProposal) ApplyProposal(prop deployment.Proposal) {
	p.Status = prop.Status
	p.TestSampleSize = prop.TestSampleSize
	p.TestSuccessRate = prop.TestSuccessRate
	p.ConfidenceScore = prop.ConfidenceScore
	p.PostDeploySampleSize = prop.PostDeploySampleSize
	p.PostDeploySuccessRate = prop.PostDeploySuccessRate
	p.AppliedAt = prop.AppliedAt
	p.MonitoringUntil = prop.MonitoringUntil
	p.RolledBackAt = prop.RolledBackAt
	p.RollbackReason = prop.RollbackReason
	p.DeploymentNotes = prop.DeploymentNotes
}

type FixProposalFilter struct {
	ID                    *uint               `json:"id,omitempty"`
	UUID                  *uuid.UUID          `json:"uuid,omitempty"`
	TenantID              *string             `json:"tenant_id,omitempty"`
	PatternID             *uint               `json:"pattern_id,omitempty"`
	FieldName             *string             `json:"field_name,omitempty"`
	Status                *deployment.Status  `json:"status,omitempty"`
	Statuses              []deployment.Status `json:"statuses,omitempty"`
	MonitoringUntilBefore *time.Time          `json:"monitoring_until_before,omitempty"` // inclusive
}
