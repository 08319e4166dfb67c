package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"
)

// ErrNoSnapshot means nothing has been ingested for the requested area yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// Error codes returned in the error envelope.
const (
	CodeInvalidMode     = "invalid_mode"
	CodeInvalidMetric   = "invalid_metric"
	CodeInvalidDay      = "invalid_day"
	CodeUnknownArea     = "unknown_area"
	CodeNotFound        = "not_found"
	CodeNoSnapshot      = "no_snapshot"
	CodeForecastExpired = "forecast_expired"
	CodeInternal        = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// apiError carries an HTTP status and envelope code through the view helpers.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.code + ": " + e.message }

func badRequest(code, msg string) *apiError {
	return &apiError{status: http.StatusBadRequest, code: code, message: msg}
}

type ctxKey struct{}

// requestIDMiddleware tags every request with a UUID, echoed in the
// X-Request-Id header and in error bodies.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// RequestID returns the id assigned by the request id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}

// writeError maps err onto the envelope. Anything that is not an apiError or
// ErrNoSnapshot is logged and reported as a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apiError
	switch {
	case errors.As(err, &ae):
	case errors.Is(err, ErrNoSnapshot):
		ae = &apiError{status: http.StatusServiceUnavailable, code: CodeNoSnapshot, message: "no forecast has been ingested yet"}
	default:
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		ae = &apiError{status: http.StatusInternalServerError, code: CodeInternal, message: "internal error"}
	}
	writeJSON(w, ae.status, ErrorResponse{
		Error:     ErrorDetail{Code: ae.code, Message: ae.message},
		RequestID: RequestID(r.Context()),
	})
}
