package models

// VerifyRequest is the JSON body accepted by the verify endpoint.
// Multipart uploads carry the same fields as form values plus a file part.
type VerifyRequest struct {
	Text string `json:"text,omitempty" form:"text"`
	URL  string `json:"url,omitempty" form:"url"`
}

// VerifyResponse is returned after a successful verification
type VerifyResponse struct {
	Result  VerificationResult `json:"result"`
	Session SessionSnapshot    `json:"session"`
}

// HistoryResponse lists a session's history, most recent first
type HistoryResponse struct {
	SessionID string        `json:"session_id"`
	Total     int           `json:"total"`
	Items     []HistoryItem `json:"items"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}
