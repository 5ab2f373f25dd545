package dto

import (
	"time"

	"github.com/amirphl/quote-core/routing"
)

// ExtractionFieldInput is one extracted field. A missing confidence routes to HUMAN_REVIEW.
type ExtractionFieldInput struct {
	Name       string   `json:"name" validate:"required,max=128"`
	Value      string   `json:"value" validate:"max=4096"`
	Confidence *float64 `json:"confidence,omitempty" validate:"omitempty,min=0,max=1"`
}

// IngestExtractionsRequest stores the extracted fields of one document
type IngestExtractionsRequest struct {
	TenantID    string                 `json:"-"`
	DocumentID  string                 `json:"document_id" validate:"required,max=255"`
	ExtractedAt *time.Time             `json:"extracted_at,omitempty"`
	Fields      []ExtractionFieldInput `json:"fields" validate:"required,min=1,dive"`
}

type IngestExtractionsResponse struct {
	Message    string               `json:"message"`
	DocumentID string               `json:"document_id"`
	Routes     []routing.FieldRoute `json:"routes"`
	Counts     map[routing.Tier]int `json:"counts"`
	Queued     int                  `json:"queued"`
	Monitored  int                  `json:"monitored"`
}

// RouteFieldsRequest routes fields without storing them
type RouteFieldsRequest struct {
	Values      map[string]string  `json:"values" validate:"required,min=1"`
	Confidences map[string]float64 `json:"confidences"`
}

type RouteFieldsResponse struct {
	Message string               `json:"message"`
	Routes  []routing.FieldRoute `json:"routes"`
	Counts  map[routing.Tier]int `json:"counts"`
}
