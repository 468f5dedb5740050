package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aura-labs/aura/internal/domain"
)

// AnswerPayload is one answered question on the wire.
type AnswerPayload struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// RunResponse is the successful response for a question-answering run.
type RunResponse struct {
	Success          bool            `json:"success"`
	DocumentURL      string          `json:"document_url"`
	Answers          []AnswerPayload `json:"answers"`
	ProcessingTimeMs int64           `json:"processing_time_ms"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// JSON writes a JSON response with the given status code
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// Error writes an error JSON response
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// DomainErrorToHTTP maps domain errors to HTTP status codes
func DomainErrorToHTTP(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var domainErr *domain.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError
	}

	switch domainErr.Code {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.ErrCodeUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case domain.ErrCodeDownloadFailed, domain.ErrCodeIngestionFailed, domain.ErrCodeContentFiltered:
		return http.StatusUnprocessableEntity
	case domain.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	case domain.ErrCodeServiceUnavailable, domain.ErrCodeQuotaExceeded:
		return http.StatusServiceUnavailable
	case domain.ErrCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// HandleError writes an appropriate error response based on the error type.
// Domain errors expose their message and cause; anything else stays opaque.
func HandleError(w http.ResponseWriter, err error) {
	status := DomainErrorToHTTP(err)

	resp := ErrorResponse{Error: "internal server error"}
	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		resp.Error = domainErr.Message
		if domainErr.Err != nil {
			resp.Details = domainErr.Err.Error()
		}
	}

	JSON(w, status, resp)
}
