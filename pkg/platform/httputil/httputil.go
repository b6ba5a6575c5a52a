// Package httputil holds the JSON request and response helpers shared by the
// HTTP handlers.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	id "trustid/pkg/domain"
	dErrors "trustid/pkg/domain-errors"
	"trustid/pkg/requestcontext"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type httpError struct {
	status int
	label  string
}

var errorTable = map[dErrors.Code]httpError{
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:         {http.StatusBadRequest, "validation_error"},
	dErrors.CodeInvariantViolation: {http.StatusBadRequest, "validation_error"},
	dErrors.CodeInvalidState:       {http.StatusConflict, "invalid_state"},
	dErrors.CodeDuplicateKey:       {http.StatusConflict, "duplicate_key"},
	dErrors.CodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeForbidden:          {http.StatusForbidden, "forbidden"},
	dErrors.CodeTimeout:            {http.StatusGatewayTimeout, "timeout"},
}

var internalError = httpError{http.StatusInternalServerError, "internal_error"}

func lookup(code dErrors.Code) httpError {
	if e, ok := errorTable[code]; ok {
		return e
	}
	return internalError
}

// StatusFor returns the HTTP status a domain code is reported with.
func StatusFor(code dErrors.Code) int {
	return lookup(code).status
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encoding failure cannot change the status.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError reports err with the status of its domain code. Messages of
// internal errors and of plain Go errors are withheld from the client.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, internalError.status, ErrorBody{Error: internalError.label})
		return
	}
	e := lookup(domainErr.Code)
	body := ErrorBody{Error: e.label}
	if e != internalError {
		body.Description = domainErr.Message
	}
	WriteJSON(w, e.status, body)
}

// LogError logs expected business outcomes at INFO and everything else at
// ERROR.
func LogError(ctx context.Context, logger *slog.Logger, msg string, err error) {
	if logger == nil {
		return
	}
	level := slog.LevelError
	if dErrors.IsExpected(err) {
		level = slog.LevelInfo
	}
	logger.Log(ctx, level, msg, "error", err, "request_id", requestcontext.RequestID(ctx))
}

// RequireUserID returns the user the auth middleware authenticated. Its
// absence behind that middleware is a wiring bug and reported as internal.
func RequireUserID(ctx context.Context, logger *slog.Logger) (id.UserID, error) {
	userID := requestcontext.UserID(ctx)
	if !userID.IsNil() {
		return userID, nil
	}
	if logger != nil {
		logger.ErrorContext(ctx, "user missing from context behind auth middleware",
			"request_id", requestcontext.RequestID(ctx))
	}
	return id.UserID{}, dErrors.New(dErrors.CodeInternal, "authentication context error")
}
