package discord

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ErrorResponse is any non-2xx, non-429 answer from the API. The body is
// decoded on a best-effort basis: Discord's structured error when parseable,
// raw text otherwise.
type ErrorResponse struct {
	StatusCode int
	Code       int    `json:"code"`
	Message    string `json:"message"`
	Raw        string `json:"-"`
}

func (e *ErrorResponse) Error() string {
	detail := e.Message
	if detail == "" {
		detail = strings.TrimSpace(e.Raw)
	}
	return fmt.Sprintf("discord api error %d: %s", e.StatusCode, detail)
}

func newErrorResponse(statusCode int, body []byte) *ErrorResponse {
	apiErr := &ErrorResponse{StatusCode: statusCode, Raw: string(body)}
	_ = json.Unmarshal(body, apiErr)
	return apiErr
}

// NetworkError is a transport-level failure (connect error, timeout). These
// are never retried automatically.
type NetworkError struct {
	Cause error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Cause.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}
