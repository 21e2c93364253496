package apiutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/courtsync/internal/api/authz"
)

type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
	Fields  []FieldError
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteError renders err as a JSON error body. Errors other than
// HandlerError are reported as 500 without exposing their text.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	logger := log.Ctx(r.Context())

	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) {
		handlerErr = HandlerError{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
	}
	if handlerErr.Status >= http.StatusInternalServerError {
		logger.Error().
			Err(handlerErr.Err).
			Str("path", r.URL.Path).
			Msg(handlerErr.Message)
	}

	if writeErr := WriteJSON(w, handlerErr.Status, errorResponse{
		Error:  handlerErr.Message,
		Fields: handlerErr.Fields,
	}); writeErr != nil {
		logger.Error().Err(writeErr).Msg("Failed to write error response")
	}
}

// RequireUser writes 401 and returns false when the request carries no
// identity.
func RequireUser(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, bool) {
	user, err := authz.RequireUser(r.Context())
	if err != nil {
		log.Ctx(r.Context()).Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
		WriteError(w, r, HandlerError{Status: http.StatusUnauthorized, Message: "Unauthorized", Err: err})
		return nil, false
	}
	return user, true
}

// RequireAdmin writes 401 or 403 and returns false unless the caller is an
// admin.
func RequireAdmin(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, bool) {
	logger := log.Ctx(r.Context())
	user, err := authz.RequireAdmin(r.Context())
	switch {
	case err == nil:
		return user, true
	case errors.Is(err, authz.ErrUnauthenticated):
		logger.Warn().Str("path", r.URL.Path).Msg("Admin access denied: unauthenticated")
		WriteError(w, r, HandlerError{Status: http.StatusUnauthorized, Message: "Unauthorized", Err: err})
	default:
		logEvent := logger.Warn().Str("path", r.URL.Path)
		if u := authz.UserFromContext(r.Context()); u != nil {
			logEvent = logEvent.Int64("user_id", u.ID)
		}
		logEvent.Msg("Admin access denied: forbidden")
		WriteError(w, r, HandlerError{Status: http.StatusForbidden, Message: "Forbidden", Err: err})
	}
	return nil, false
}
