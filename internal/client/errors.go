package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/airyra/taskboard/internal/domain"
)

// Client-specific errors.
var (
	// ErrServerNotRunning indicates the server is not reachable.
	ErrServerNotRunning = errors.New("server is not running or unreachable")
	// ErrServerUnhealthy indicates the health check failed.
	ErrServerUnhealthy = errors.New("server health check failed")
)

// APIError represents an error envelope returned by the task service.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// keys that carry a message rather than a field error.
var messageKeys = map[string]bool{
	"error":   true,
	"detail":  true,
	"message": true,
	"status":  true,
}

// parseErrorResponse turns a non-success response into the most specific
// error the body allows: the error envelope, then field errors, then
// detail/message, then the HTTP status text.
func parseErrorResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.NewServerError(resp.StatusCode, statusText(resp.StatusCode))
	}

	if envelope, ok := raw["error"]; ok {
		var apiErr APIError
		if err := json.Unmarshal(envelope, &apiErr); err == nil && apiErr.Code != "" {
			return mapAPIErrorToDomain(resp.StatusCode, &apiErr)
		}
	}

	if details := fieldErrors(raw); len(details) > 0 {
		return domain.NewValidationError(details)
	}

	for _, key := range []string{"detail", "message", "error"} {
		if msg := stringValue(raw[key]); msg != "" {
			return domain.NewServerError(resp.StatusCode, msg)
		}
	}

	return domain.NewServerError(resp.StatusCode, statusText(resp.StatusCode))
}

// mapAPIErrorToDomain maps an API error to the appropriate domain error.
func mapAPIErrorToDomain(statusCode int, apiErr *APIError) error {
	switch {
	case statusCode == http.StatusNotFound && apiErr.Code == string(domain.ErrCodeTaskNotFound):
		taskID, _ := apiErr.Context["id"].(string)
		return domain.NewTaskNotFoundError(domain.ParseTaskID(taskID))

	case statusCode == http.StatusBadRequest && apiErr.Code == string(domain.ErrCodeInvalidTransition):
		from, _ := apiErr.Context["from"].(string)
		to, _ := apiErr.Context["to"].(string)
		return domain.NewInvalidTransitionError(domain.TaskStatus(from), domain.TaskStatus(to))

	case statusCode == http.StatusBadRequest && apiErr.Code == string(domain.ErrCodeValidationFailed):
		details := extractStringSlice(apiErr.Context, "details")
		return domain.NewValidationError(details)

	default:
		msg := apiErr.Message
		if msg == "" {
			msg = statusText(statusCode)
		}
		return &domain.DomainError{
			Code:    domain.ErrorCode(apiErr.Code),
			Message: msg,
			Context: apiErr.Context,
		}
	}
}

// fieldErrors collects DRF-style {"field": ["message"]} entries, sorted by
// field name. non_field_errors are reported without a prefix.
func fieldErrors(raw map[string]json.RawMessage) []string {
	fields := make([]string, 0, len(raw))
	for k := range raw {
		if !messageKeys[k] {
			fields = append(fields, k)
		}
	}
	sort.Strings(fields)

	var details []string
	for _, field := range fields {
		var msgs []string
		if err := json.Unmarshal(raw[field], &msgs); err != nil {
			continue
		}
		for _, m := range msgs {
			if field == "non_field_errors" {
				details = append(details, m)
			} else {
				details = append(details, field+": "+m)
			}
		}
	}
	return details
}

func stringValue(data json.RawMessage) string {
	if len(data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func statusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("HTTP %d", code)
}

// extractStringSlice extracts a string slice from a context map.
func extractStringSlice(ctx map[string]interface{}, key string) []string {
	val, ok := ctx[key]
	if !ok {
		return nil
	}

	// JSON unmarshals arrays as []interface{}
	slice, ok := val.([]interface{})
	if !ok {
		return nil
	}

	result := make([]string, 0, len(slice))
	for _, v := range slice {
		if s, ok := v.(string); ok {
			result = append(result, s)
		}
	}
	return result
}

// isConnectionRefused checks if the error is a connection refused error.
func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "dial tcp") && strings.Contains(errStr, "refused")
}
