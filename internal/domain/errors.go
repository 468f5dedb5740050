package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation         = "VALIDATION_ERROR"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeUnsupportedFormat  = "UNSUPPORTED_FORMAT"
	ErrCodeDownloadFailed     = "DOWNLOAD_FAILED"
	ErrCodeFileTooLarge       = "FILE_TOO_LARGE"
	ErrCodeRateLimited        = "RATE_LIMITED"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeQuotaExceeded      = "QUOTA_EXCEEDED"
	ErrCodeContentFiltered    = "CONTENT_FILTERED"
	ErrCodeIngestionFailed    = "INGESTION_FAILED"
	ErrCodeInternalError      = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidDocumentURL = NewDomainError(ErrCodeValidation, "invalid document url")
	ErrNoQuestions        = NewDomainError(ErrCodeValidation, "at least one question is required")
	ErrTooManyQuestions   = NewDomainError(ErrCodeValidation, "too many questions, maximum is 10")
	ErrQuestionTooLong    = NewDomainError(ErrCodeValidation, "question exceeds 1000 characters")
	ErrEmptyQuestion      = NewDomainError(ErrCodeValidation, "question cannot be empty")
	ErrEmptyDocument      = NewDomainError(ErrCodeValidation, "document contains no text")
	ErrInvalidChunkWindow = NewDomainError(ErrCodeValidation, "overlap must be non-negative and smaller than the window")
)

// Extraction errors
var (
	ErrUnsupportedFormat = NewDomainError(ErrCodeUnsupportedFormat, "unsupported document format")
	ErrDownloadFailed    = NewDomainError(ErrCodeDownloadFailed, "failed to download document")
	ErrFileTooLarge      = NewDomainError(ErrCodeFileTooLarge, "document exceeds maximum size")
)

// External service errors
var (
	ErrRateLimited        = NewDomainError(ErrCodeRateLimited, "external service rate limited")
	ErrServiceUnavailable = NewDomainError(ErrCodeServiceUnavailable, "external service unavailable")
	ErrQuotaExceeded      = NewDomainError(ErrCodeQuotaExceeded, "external service quota exceeded")
	ErrContentFiltered    = NewDomainError(ErrCodeContentFiltered, "generation blocked by content filter")
)

// Lookup and auth errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrInvalidToken     = NewDomainError(ErrCodeUnauthorized, "invalid bearer token")
)

// IsTransient reports whether an error is worth retrying at the adapter layer.
func IsTransient(err error) bool {
	domainErr, ok := err.(*DomainError)
	if !ok {
		return false
	}
	return domainErr.Code == ErrCodeRateLimited || domainErr.Code == ErrCodeServiceUnavailable
}
