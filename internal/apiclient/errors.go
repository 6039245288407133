package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// Sentinel errors returned by the client.
var (
	// ErrUnknownOperation is returned by Resource.Mutate for an operation the
	// endpoint table does not define. No request is sent.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrTokenExpired is returned before sending a request whose bearer token
	// has already expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrNoToken is returned by Login when the response carries no token.
	ErrNoToken = errors.New("no token in response")
)

// StatusError is a non-2xx HTTP response from the API.
type StatusError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool { return IsStatus(err, http.StatusNotFound) }

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool { return IsStatus(err, http.StatusUnauthorized) }

// newStatusError builds a StatusError, taking the message from the first of
// "message", "detail" or "error" found in a JSON body.
func newStatusError(method, path string, code int, body []byte) *StatusError {
	return &StatusError{
		StatusCode: code,
		Message:    messageFrom(body),
		Method:     method,
		Path:       path,
	}
}

func messageFrom(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(truncate(string(body), 200))
	}
	for _, key := range []string{"message", "detail", "error"} {
		if s, ok := payload[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// retryable reports whether a GET that failed with err is worth repeating.
func retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "EOF")
}
