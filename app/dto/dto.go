package dto

// APIResponse represents the standard API response structure
type APIResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty" validate:"omitempty"`
	Error   any    `json:"error,omitempty" validate:"omitempty"`
}

// ErrorDetail represents error details in API responses
type ErrorDetail struct {
	Code    string `json:"code"`
	Details any    `json:"details,omitempty" validate:"omitempty"`
}

// PaginationRequest holds limit/offset query parameters
type PaginationRequest struct {
	Limit  int `query:"limit" json:"limit" validate:"omitempty,min=1,max=500"`
	Offset int `query:"offset" json:"offset" validate:"omitempty,min=0"`
}

// HealthResponse is returned by the health endpoint
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Checks   map[string]string `json:"checks,omitempty"`
	TimeUTC  string            `json:"time_utc"`
	Database string            `json:"database"`
}
