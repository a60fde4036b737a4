package model

// WebSocket message types
const (
	WSMessageTypeStatus   = "status"
	WSMessageTypeComplete = "complete"
	WSMessageTypeError    = "error"
	WSMessageTypePing     = "ping"
	WSMessageTypePong     = "pong"
)

// WSMessage represents a generic WebSocket message
type WSMessage struct {
	Type string `json:"type"`
}

// WSStatusMessage reports one poll of a remote pipeline run
type WSStatusMessage struct {
	Type      string `json:"type"`
	RequestID string `json:"requestId"`
	RunID     string `json:"runId"`
	State     string `json:"state"`
	Attempt   int    `json:"attempt"`
}

// WSCompleteMessage represents request completion
type WSCompleteMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"requestId"`
	Result    interface{} `json:"result"`
}

// WSErrorMessage represents a failed request
type WSErrorMessage struct {
	Type      string  `json:"type"`
	RequestID string  `json:"requestId"`
	Error     WSError `json:"error"`
}

// WSError represents error details
type WSError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
