package stubapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

const (
	msgRequired   = "This field is required."
	msgNotFound   = "Not found."
	msgForbidden  = "You do not have permission to perform this action."
	msgTokenValid = "Token is invalid or expired"
)

// fieldErrors is a Django REST validation body: field name to messages.
type fieldErrors map[string][]string

func (f fieldErrors) add(field, msg string) {
	f[field] = append(f[field], msg)
}

func (f fieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(f[k], " "))
	}
	return strings.Join(parts, "; ")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeError maps store errors onto Django REST responses.
func writeError(w http.ResponseWriter, err error) {
	var fe fieldErrors
	switch {
	case errors.As(err, &fe):
		writeJSON(w, http.StatusBadRequest, fe)
	case errors.Is(err, errNotFound):
		writeDetail(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, errForbidden):
		writeDetail(w, http.StatusForbidden, msgForbidden)
	default:
		writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
	}
}

// decodeBody reads a JSON request body into v. An empty body leaves v alone.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusRequestEntityTooLarge, "Request body too large.")
		return false
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		writeDetail(w, http.StatusBadRequest, fmt.Sprintf("JSON parse error - %v", err))
		return false
	}
	return true
}

// pathID parses a numeric URL parameter, answering 404 when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusNotFound, msgNotFound)
		return 0, false
	}
	return id, true
}
