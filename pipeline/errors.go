package pipeline

import (
	"errors"
	"fmt"
)

// ErrorCode tags a PipelineError with its position in the failure taxonomy.
// Codes are stable; callers map them to transport responses.
type ErrorCode string

const (
	CodeFileTooLarge      ErrorCode = "FILE_TOO_LARGE"
	CodeInvalidMimeType   ErrorCode = "INVALID_MIME_TYPE"
	CodeInvalidExtension  ErrorCode = "INVALID_EXTENSION"
	CodeUnsafeFilename    ErrorCode = "UNSAFE_FILENAME"
	CodeInvalidContent    ErrorCode = "INVALID_CONTENT"
	CodeSecurityThreat    ErrorCode = "SECURITY_THREAT"
	CodeInvalidPath       ErrorCode = "INVALID_PATH"
	CodeStorageFailed     ErrorCode = "STORAGE_FAILED"
	CodeProcessingFailed  ErrorCode = "PROCESSING_FAILED"
	CodeUploadFailed      ErrorCode = "UPLOAD_FAILED"
	CodeBatchUploadFailed ErrorCode = "BATCH_UPLOAD_FAILED"
)

// PipelineError is the tagged error produced by every stage of the pipeline.
type PipelineError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Detail carries structured metadata, e.g. per-item messages for a
	// failed batch.
	Detail []string
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// newError creates a PipelineError without a cause.
func newError(code ErrorCode, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// wrapError creates a PipelineError wrapping an underlying cause.
func wrapError(code ErrorCode, cause error, format string, args ...interface{}) *PipelineError {
	return &PipelineError{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// CodeOf returns the taxonomy code of err, or an empty code when err is not a
// PipelineError.
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// IsClientError reports whether the failure is correctable by the caller
// (as opposed to a policy bug or transient storage problem).
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeFileTooLarge, CodeInvalidMimeType, CodeInvalidExtension,
		CodeUnsafeFilename, CodeInvalidContent, CodeSecurityThreat:
		return true
	}
	return false
}
