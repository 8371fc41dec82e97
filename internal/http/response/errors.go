package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/diagnosis/medcv-review/internal/domain"
	"github.com/diagnosis/medcv-review/pkg/logger"
)

// ErrorResponse represents a structured JSON error response
type ErrorResponse struct {
	Status string            `json:"status"`
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteError writes a structured JSON error response
func WriteError(w http.ResponseWriter, statusCode int, message string, code string) {
	writeError(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// WriteValidation writes a 400 listing the offending fields.
func WriteValidation(w http.ResponseWriter, message string, fields map[string]string) {
	writeError(w, http.StatusBadRequest, ErrorResponse{Error: message, Code: CodeInvalidInput, Fields: fields})
}

func writeError(w http.ResponseWriter, statusCode int, body ErrorResponse) {
	body.Status = "fail"
	if statusCode >= http.StatusInternalServerError {
		body.Status = "error"
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode error response", "error", err)
	}
}

// Common error codes
const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeConflict      = "CONFLICT"
	CodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	CodeInternalError = "INTERNAL_ERROR"
	CodeInvalidToken  = "INVALID_TOKEN"
	CodeEmailExists   = "EMAIL_EXISTS"
	CodeBadLogin      = "INVALID_CREDENTIALS"
)

// Convenience functions for common errors
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

// FromError maps a service error onto the failure envelope. Anything it
// does not recognise is logged and reported as a generic 500.
func FromError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthError
	)
	switch {
	case errors.As(err, &verr):
		WriteValidation(w, verr.Error(), verr.Fields)
	case errors.As(err, &aerr):
		Unauthorized(w, aerr.Reason)
	case errors.Is(err, domain.ErrValidation):
		BadRequest(w, message(err))
	case errors.Is(err, domain.ErrDuplicateEmail):
		WriteError(w, http.StatusBadRequest, message(err), CodeEmailExists)
	case errors.Is(err, domain.ErrInvalidCredentials):
		WriteError(w, http.StatusUnauthorized, message(err), CodeBadLogin)
	case errors.Is(err, domain.ErrNotAuthenticated):
		Unauthorized(w, domain.ReasonNotLoggedIn)
	case errors.Is(err, domain.ErrForbidden):
		Forbidden(w, message(err))
	case errors.Is(err, domain.ErrTokenInvalidOrExpired):
		WriteError(w, http.StatusBadRequest, message(err), CodeInvalidToken)
	case errors.Is(err, domain.ErrNotFound):
		NotFound(w, message(err))
	case errors.Is(err, domain.ErrConflict):
		WriteError(w, http.StatusBadRequest, message(err), CodeConflict)
	default:
		logger.ErrorContext(r.Context(), "Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		InternalError(w, "Something went wrong")
	}
}

// message prefers the client-facing text of a domain.Error.
func message(err error) string {
	var derr *domain.Error
	if errors.As(err, &derr) {
		return derr.Message
	}
	return err.Error()
}
