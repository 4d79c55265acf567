package plaid

import (
	"encoding/json"
	"fmt"
)

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message,omitempty"`
	RequestID      string `json:"request_id,omitempty"`

	// Body is the raw response body.
	Body json.RawMessage `json:"-"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	if json.Valid(body) {
		e.Body = json.RawMessage(body)
		_ = json.Unmarshal(body, e)
	}
	return e
}

func (e *APIError) Error() string {
	if e.ErrorCode == "" {
		return fmt.Sprintf("plaid: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("plaid: HTTP %d: %s %s: %s", e.StatusCode, e.ErrorType, e.ErrorCode, e.ErrorMessage)
}
