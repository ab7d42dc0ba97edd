package models

import "encoding/json"

// SessionRequest carries a service credential for session initialization
type SessionRequest struct {
	Credential json.RawMessage `json:"credential" binding:"required"`
	Scope      string          `json:"scope,omitempty"`
}

// RunRequest carries the optional inputs of a module invocation
type RunRequest struct {
	// AOI is a GeoJSON document, used by zonal statistics
	AOI       json.RawMessage `json:"aoi,omitempty"`
	Reducer   string          `json:"reducer,omitempty"`
	Scale     float64         `json:"scale,omitempty"`
	MaxPixels float64         `json:"max_pixels,omitempty"`
}

// ModuleInfo describes one selectable module
type ModuleInfo struct {
	Tag   string `json:"tag"`
	Label string `json:"label"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error      string `json:"error"`
	Kind       string `json:"kind,omitempty"`
	Message    string `json:"message,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// HealthResponse reports liveness and session state
type HealthResponse struct {
	Status  string `json:"status"`
	Session bool   `json:"session"`
}
