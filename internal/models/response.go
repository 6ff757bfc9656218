package models

// CaptureResponse is the result of a capture request.
type CaptureResponse struct {
	Status         string `json:"status"`             // "ok" | "error"
	Message        string `json:"message"`            // Human-readable message
	URL            string `json:"url,omitempty"`      // URL the page ended on
	Title          string `json:"title,omitempty"`    // Page title
	Screenshot     string `json:"screenshot,omitempty"` // Base64-encoded PNG
	SessionReused  bool   `json:"sessionReused"`      // True when a cached session validated
	FinalURL       string `json:"finalUrl,omitempty"` // Post-login URL reported by the engine
	Determined     bool   `json:"determined"`         // False when the login destination stayed unknown
	StartTimestamp int64  `json:"startTimestamp"`     // Unix timestamp ms
	EndTimestamp   int64  `json:"endTimestamp"`       // Unix timestamp ms
	Version        string `json:"version"`            // Service version
	RequestID      string `json:"requestId,omitempty"`
}

// SessionClearResponse is returned by the session clear operation.
type SessionClearResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Version string `json:"version"`
}

// NewErrorResponse creates an error capture response.
func NewErrorResponse(message string, startTime, endTime int64, version, requestID string) *CaptureResponse {
	return &CaptureResponse{
		Status:         "error",
		Message:        message,
		StartTimestamp: startTime,
		EndTimestamp:   endTime,
		Version:        version,
		RequestID:      requestID,
	}
}
