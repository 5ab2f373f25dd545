package dto

import (
	"time"

	"github.com/amirphl/quote-core/pricing"
	"github.com/amirphl/quote-core/routing"
	"github.com/google/uuid"
)

// CreateCalculationRequest prices one document from its extracted fields.
// Inputs are declared values such as distance_km that never pass through routing.
type CreateCalculationRequest struct {
	TenantID    string             `json:"-"`
	Actor       string             `json:"-"`
	DocumentID  string             `json:"document_id" validate:"required,max=255"`
	Fields      map[string]string  `json:"fields" validate:"required,min=1"`
	Confidences map[string]float64 `json:"confidences"`
	Audience    string             `json:"audience" validate:"omitempty,oneof=all new_customer existing_customer vip"`
	Date        *time.Time         `json:"date,omitempty"`
	Inputs      map[string]string  `json:"inputs,omitempty"`
	// Policy overrides the configured human review policy when set
	Policy string `json:"policy,omitempty" validate:"omitempty,oneof=block proceed_unverified"`
}

type CalculationResponse struct {
	Message    string                  `json:"message"`
	UUID       uuid.UUID               `json:"uuid"`
	DocumentID string                  `json:"document_id"`
	Routes     []routing.FieldRoute    `json:"routes,omitempty"`
	Decision   routing.Decision        `json:"decision"`
	Unverified bool                    `json:"unverified"`
	Breakdown  *pricing.PriceBreakdown `json:"breakdown"`
	CreatedAt  time.Time               `json:"created_at"`
}

type GetCalculationRequest struct {
	TenantID string `json:"-"`
	UUID     string `json:"uuid" validate:"required,uuid"`
}
