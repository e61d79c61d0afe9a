package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Success   bool   `json:"success" example:"false"`
	Error     string `json:"error" example:"Error message"`
	Code      string `json:"code" example:"VALIDATION_ERROR"`
	RequestID string `json:"request_id,omitempty"`
}

// UserEnvelope represents a successful user response
type UserEnvelope struct {
	Success bool         `json:"success" example:"true"`
	Data    UserResponse `json:"data"`
}
