package models

import (
	"time"

	"github.com/amirphl/quote-core/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// KnowledgeEntry is the production effect of a deployed fix. Deploy activates it, rollback reverts it.
// Table: knowledge_entries
type KnowledgeEntry struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	UUID          uuid.UUID  `gorm:"type:uuid;uniqueIndex:idx_knowledge_entries_uuid;not null" json:"uuid"`
	TenantID      string     `gorm:"size:64;not null;index:idx_knowledge_entries_tenant_active" json:"tenant_id"`
	FixProposalID uint       `gorm:"not null;uniqueIndex:idx_knowledge_entries_fix_proposal" json:"fix_proposal_id"`
	FieldName     string     `gorm:"size:128;not null" json:"field_name"`
	FixCategory   string     `gorm:"size:64;not null" json:"fix_category"`
	Description   string     `gorm:"type:text" json:"description"`
	Active        bool       `gorm:"not null;index:idx_knowledge_entries_tenant_active" json:"active"`
	AppliedAt     time.Time  `gorm:"not null" json:"applied_at"`
	RevertedAt    *time.Time `json:"reverted_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (KnowledgeEntry) TableName() string {
	return "knowledge_entries"
}

// BeforeCreate is called before creating a new record
func (k *KnowledgeEntry) BeforeCreate(tx *gorm.DB) error {
	if k.UUID == uuid.Nil {
		k.UUID = uuid.New()
	}
	if k.CreatedAt.IsZero() {
		k.CreatedAt = utils.UTCNow()
	}
	return nil
}

type KnowledgeEntryFilter struct {
	TenantID      *string `json:"tenant_id,omitempty"`
	FixProposalID *uint   `json:"fix_proposal_id,omitempty"`
	FieldName     *string `json:"field_name,omitempty"`
	Active        *bool   `json:"active,omitempty"`
}
