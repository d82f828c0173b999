package models

// ErrorDetail provides a structured way to represent an error.
type ErrorDetail struct {
	// Code is a JSON-RPC or application-specific error code.
	Code int `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Data holds additional context about the error, like the document path or tool.
	Data interface{} `json:"data,omitempty"`
}

// ErrorResponse is the body of a non-JSON-RPC HTTP error.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// Outcome is the result every office tool reports back to the caller.
type Outcome struct {
	// Success is false when validation, search or automation failed.
	Success bool `json:"success"`
	// Message confirms the effect or names the failure category and cause.
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string `json:"status"`
	Transport string `json:"transport"`
	Version   string `json:"version"`
}
