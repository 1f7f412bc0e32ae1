package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBodySize bounds how much of an error response body is read.
const maxErrorBodySize = 64 << 10 // 64KB

// APIError is a non-2xx response from the tutor backend. When the body
// carried a detail message it is surfaced verbatim; otherwise Error falls
// back to a generic message.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("tutor backend returned HTTP %d", e.Status)
}

// decodeError turns a non-2xx response into an APIError, preferring the
// backend's {"detail": ...} message when present and parseable.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
	if err != nil {
		return apiErr
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Detail = payload.Detail
	}
	return apiErr
}
