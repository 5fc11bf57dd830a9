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
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeUnavailable   = "UNAVAILABLE"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrEmptyQuery          = NewDomainError(ErrCodeValidation, "query cannot be empty")
	ErrInvalidResultCap    = NewDomainError(ErrCodeValidation, "result cap out of range")
	ErrInvalidDocumentID   = NewDomainError(ErrCodeValidation, "invalid document id")
	ErrInvalidChunkType    = NewDomainError(ErrCodeValidation, "invalid chunk type")
	ErrInvalidStatus       = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrWrongEmbeddingDims  = NewDomainError(ErrCodeValidation, "embedding has wrong dimensions")
	ErrInvalidJobStatus    = NewDomainError(ErrCodeValidation, "invalid embedding job status")
	ErrMissingRequiredData = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrDocumentNotFound = NewDomainError(ErrCodeNotFound, "document not found")
	ErrChunkNotFound    = NewDomainError(ErrCodeNotFound, "chunk not found")
)

// Provider errors
var (
	ErrSearchUnavailable  = NewDomainError(ErrCodeUnavailable, "all search channels failed")
	ErrStorageUnavailable = NewDomainError(ErrCodeInternalError, "storage operation failed")
)
