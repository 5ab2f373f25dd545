package models

import (
	"time"

	"github.com/amirphl/quote-core/deployment"
	"github.com/amirphl/quote-core/utils"
	"gorm.io/gorm"
)

// FixProposalAudit is an append-only record of one lifecycle transition.
// Table: fix_proposal_audits
type FixProposalAudit struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	FixProposalID uint              `gorm:"not null;index:idx_fix_proposal_audits_proposal" json:"fix_proposal_id"`
	FromStatus    deployment.Status `gorm:"size:32;not null" json:"from_status"`
	ToStatus      deployment.Status `gorm:"size:32;not null" json:"to_status"`
	Actor         string            `gorm:"size:255;not null" json:"actor"`
	Trigger       string            `gorm:"column:trigger_type;size:16;not null" json:"trigger"`
	Reason        string            `gorm:"type:text" json:"reason"`
	RequestID     *string           `gorm:"size:255" json:"request_id,omitempty"`
	CreatedAt     time.Time         `gorm:"index:idx_fix_proposal_audits_created_at" json:"created_at"`
}

func (FixProposalAudit) TableName() string {
	return "fix_proposal_audits"
}

// BeforeCreate is called before creating a new record
func (a *FixProposalAudit) BeforeCreate(tx *gorm.DB) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = utils.UTCNow()
	}
	return nil
}

// NewFixProposalAudit converts a lifecycle audit into a row
func NewFixProposalAudit(audit deployment.Audit, requestID string) *FixProposalAudit {
	row := &FixProposalAudit{
		FixProposalID: audit.ProposalID,
		FromStatus:    audit.From,
		ToStatus:      audit.To,
		Actor:         audit.Actor,
		Trigger:       string(audit.Trigger),
		Reason:        audit.Reason,
		CreatedAt:     audit.At.UTC(),
	}
	if requestID != "" {
		row.RequestID = &requestID
	}
	return row
}

type FixProposalAuditFilter struct {
	FixProposalID *uint              `json:"fix_proposal_id,omitempty"`
	ToStatus      *deployment.Status `json:"to_status,omitempty"`
	Actor         *string            `json:"actor,omitempty"`
}
