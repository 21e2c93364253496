package apiutil

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

func ParsePositiveInt64Field(raw string, field string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%s is required", field)
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", field)
	}
	return value, nil
}

// PathID parses a positive integer path value such as {id}.
func PathID(r *http.Request, name string) (int64, error) {
	id, err := ParsePositiveInt64Field(r.PathValue(name), name)
	if err != nil {
		return 0, HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	}
	return id, nil
}

// QueryLimit parses an optional positive "limit" query value.
func QueryLimit(r *http.Request, fallback, max int64) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return fallback, nil
	}
	limit, err := ParsePositiveInt64Field(raw, "limit")
	if err != nil {
		return 0, HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err}
	}
	if limit > max {
		limit = max
	}
	return limit, nil
}
