package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx answer from the backend
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// newAPIError builds an APIError from a non-2xx answer
func newAPIError(method, path string, status int, body []byte) *APIError {
	return &APIError{Method: method, Path: path, StatusCode: status, Message: ErrorMessage(status, body)}
}

// ErrorMessage extracts a readable message from an error body. JSON bodies
// are searched for detail, error and message fields; other bodies are used
// as text. The status text is the fallback.
func ErrorMessage(status int, body []byte) string {
	msg := http.StatusText(status)
	if gjson.ValidBytes(body) {
		for _, key := range []string{"detail", "error", "message"} {
			v := gjson.GetBytes(body, key)
			if !v.Exists() {
				continue
			}
			// FastAPI validation errors carry a list of {msg}
			if v.IsArray() {
				var parts []string
				for _, item := range v.Array() {
					if m := item.Get("msg"); m.Exists() {
						parts = append(parts, m.String())
					}
				}
				if len(parts) > 0 {
					return strings.Join(parts, "; ")
				}
				continue
			}
			if s := v.String(); s != "" {
				return s
			}
		}
	} else if s := strings.TrimSpace(string(body)); s != "" {
		msg = s
	}
	return msg
}

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// StatusCode returns the backend status carried by err, or 0
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
