package http

// APIResponse represents standard API response.
type APIResponse struct {
	Status  int    `json:"status" example:"200"`
	Message string `json:"message" example:"OK"`
	Data    any    `json:"data,omitempty"`
}

// ValidationError represents validation error detail.
type ValidationError struct {
	Code    string         `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string         `json:"field,omitempty" example:"at"`
	Message string         `json:"message,omitempty" example:"At is required"`
	Params  map[string]any `json:"params,omitempty"`
}

// ListDataResponse represents list response.
type ListDataResponse struct {
	Rows  any   `json:"rows"`
	Total int64 `json:"total"`
}

// FailureBody is the bare error body used by endpoints that do not wrap in APIResponse.
type FailureBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
