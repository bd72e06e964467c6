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
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeEmbedding     = "EMBEDDING_ERROR"
	ErrCodeIndex         = "INDEX_ERROR"
	ErrCodeGeneration    = "GENERATION_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidContentType    = NewDomainError(ErrCodeValidation, "invalid content type")
	ErrNoteWithLink          = NewDomainError(ErrCodeValidation, "notes must not include a link")
	ErrMissingQuery          = NewDomainError(ErrCodeValidation, "query is required")
	ErrInvalidSearchFilter   = NewDomainError(ErrCodeValidation, "invalid search filter")
	ErrInvalidIngestJobState = NewDomainError(ErrCodeValidation, "invalid ingest job status")
	ErrMissingRequiredField  = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrContentNotFound = NewDomainError(ErrCodeNotFound, "content item not found")
	ErrUserNotFound    = NewDomainError(ErrCodeNotFound, "user not found")
	ErrAPIKeyNotFound  = NewDomainError(ErrCodeNotFound, "api key not found")
	ErrShareNotFound   = NewDomainError(ErrCodeNotFound, "shared content not found")
)

// Already exists errors
var (
	ErrUserAlreadyExists = NewDomainError(ErrCodeAlreadyExists, "user already exists")
)

// Authorization errors
var (
	ErrAPIKeyRevoked = NewDomainError(ErrCodeUnauthorized, "api key has been revoked")
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

// Pipeline errors. Embedding failures are isolated per chunk during
// ingestion but fatal during search; generation failures are fatal only
// in the answering step.
var (
	ErrEmbeddingFailed  = NewDomainError(ErrCodeEmbedding, "embedding generation failed")
	ErrIndexUnavailable = NewDomainError(ErrCodeIndex, "vector index operation failed")
	ErrGenerationFailed = NewDomainError(ErrCodeGeneration, "model response generation failed")
)
