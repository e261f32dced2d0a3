package web

// errors.go turns query errors into JSON responses.
//
// The technical error is logged with the request id; the client only sees
// the coded message from jobs.MapError.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/jobinsights/internal/jobs"
	"github.com/JonMunkholm/jobinsights/internal/logging"
)

// errUnknownDataset is returned for names missing from the catalog.
var errUnknownDataset = fmt.Errorf("%w: unknown dataset", jobs.ErrFileNotFound)

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	switch {
	case errors.Is(err, jobs.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, jobs.ErrFileNotFound), errors.Is(err, jobs.ErrEmptyResult):
		return http.StatusNotFound
	case errors.Is(err, jobs.ErrEmptyFile):
		return http.StatusUnprocessableEntity
	case errors.Is(err, jobs.ErrTooManyLoads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes its mapped message with statusFor(err).
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := jobs.MapError(err)
	requestID := middleware.GetReqID(r.Context())

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     msg.Message,
		Message:   msg.Message,
		Action:    msg.Action,
		Code:      msg.Code,
		RequestID: requestID,
	})
}

// writeJSON encodes v as JSON with status 200.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}
