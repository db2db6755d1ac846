package apiclient

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	// ErrAuthRequired is returned before any network call when an operation
	// needs a token and none is stored.
	ErrAuthRequired = errors.New("authentication required")

	// ErrSessionExpired is returned when a 401 could not be recovered by
	// refreshing the access token. Tokens have been cleared by then.
	ErrSessionExpired = errors.New("session expired, please log in again")
)

// HTTPError is a non-2xx response. Body is the decoded JSON object, or an
// empty map when the body was not an object.
type HTTPError struct {
	Method  string
	Path    string
	Status  int
	Body    map[string]any
	Message string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// FieldErrors returns the per-field validation messages of a DRF style
// error body.
func (e *HTTPError) FieldErrors() map[string][]string {
	out := map[string][]string{}
	for k, v := range e.Body {
		if _, generic := genericKeys[k]; generic {
			continue
		}
		if msgs := stringList(v); len(msgs) > 0 {
			out[k] = msgs
		}
	}
	return out
}

// ConnectivityError means the request never produced a response.
type ConnectivityError struct {
	Method string
	Path   string
	Err    error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("%s %s: cannot reach server: %v", e.Method, e.Path, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// DecodeError means a 2xx body could not be decoded or failed validation.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *HTTPError
	if errors.As(err, &he) {
		return he.Status
	}
	return 0
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool { return StatusCode(err) == http.StatusNotFound }

// IsValidation reports whether err is a 400 response.
func IsValidation(err error) bool { return StatusCode(err) == http.StatusBadRequest }

// IsConnectivity reports whether err is a transport failure.
func IsConnectivity(err error) bool {
	var ce *ConnectivityError
	return errors.As(err, &ce)
}

var genericKeys = map[string]struct{}{
	"message":          {},
	"detail":           {},
	"non_field_errors": {},
	"error":            {},
}

// errorMessage picks a human readable message from a DRF error body.
// Generic keys win over per-field arrays, in this order.
func errorMessage(body map[string]any, status int) string {
	for _, key := range []string{"message", "detail", "non_field_errors", "error"} {
		if msgs := stringList(body[key]); len(msgs) > 0 {
			return strings.Join(msgs, ", ")
		}
	}

	fields := make([]string, 0, len(body))
	for k := range body {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	var lines []string
	for _, f := range fields {
		for _, msg := range stringList(body[f]) {
			lines = append(lines, fieldLabel(f)+": "+msg)
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}

	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("HTTP %d: %s", status, text)
	}
	return "request failed"
}

// fieldLabel turns "first_name" into "First name".
func fieldLabel(field string) string {
	if field == "" {
		return field
	}
	label := strings.ReplaceAll(field, "_", " ")
	return strings.ToUpper(label[:1]) + label[1:]
}

func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, stringList(item)...)
		}
		return out
	case map[string]any:
		// Nested serializer errors: flatten them in key order.
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var out []string
		for _, k := range keys {
			out = append(out, stringList(t[k])...)
		}
		return out
	}
	return nil
}
