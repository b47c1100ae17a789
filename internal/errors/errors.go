// Package errors provides structured error types for vecgen.
// All errors include a category, code, message, and retryable flag so callers
// can tell configuration mistakes from I/O failures and internal invariant
// violations.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory classifies errors by the component that raised them.
type ErrorCategory string

const (
	ErrCategoryConfiguration ErrorCategory = "CONFIGURATION"
	ErrCategoryIO            ErrorCategory = "IO"
	ErrCategoryEncoding      ErrorCategory = "ENCODING"
	ErrCategoryStorage       ErrorCategory = "STORAGE"
	ErrCategoryManifest      ErrorCategory = "MANIFEST"
	ErrCategoryInternal      ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Configuration codes
	CodeInvalidDimension   = "INVALID_DIMENSION"
	CodeInvalidLength      = "INVALID_LENGTH"
	CodeInvalidFileSize    = "INVALID_FILE_SIZE"
	CodeInvalidRowCount    = "INVALID_ROW_COUNT"
	CodeInvalidBatchSize   = "INVALID_BATCH_SIZE"
	CodeInvalidCompression = "INVALID_COMPRESSION"
	CodeInvalidOutput      = "INVALID_OUTPUT"
	CodeInvalidWorkers     = "INVALID_WORKERS"
	CodeInvalidStorage     = "INVALID_STORAGE"

	// IO codes
	CodeCreateFailed = "CREATE_FAILED"
	CodeWriteFailed  = "WRITE_FAILED"
	CodeCloseFailed  = "CLOSE_FAILED"
	CodeStatFailed   = "STAT_FAILED"
	CodeReadFailed   = "READ_FAILED"

	// Encoding codes
	CodeSchemaMismatch = "SCHEMA_MISMATCH"
	CodeLengthMismatch = "LENGTH_MISMATCH"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeObjectNotFound = "OBJECT_NOT_FOUND"

	// Manifest codes
	CodeRegisterFailed = "REGISTER_FAILED"
	CodeRunNotFound    = "RUN_NOT_FOUND"

	// Internal codes
	CodeUnexpected     = "UNEXPECTED"
	CodeVerifyMismatch = "VERIFY_MISMATCH"
)

// GenError is the structured error type used throughout the system.
type GenError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string. Details are rendered in key order
// so that messages are stable.
func (e *GenError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[%s:%s] %s", e.Category, e.Code, e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s=%v", k, e.Details[k])
		}
		sb.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&sb, ": %v", e.Cause)
	}
	return sb.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *GenError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *GenError) Is(target error) bool {
	var t *GenError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new GenError.
func New(category ErrorCategory, code, message string) *GenError {
	return &GenError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new GenError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *GenError {
	return &GenError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details merged in.
func (e *GenError) WithDetails(details map[string]interface{}) *GenError {
	cp := *e
	cp.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		cp.Details[k] = v
	}
	for k, v := range details {
		cp.Details[k] = v
	}
	return &cp
}

// WithFile is shorthand for attaching the file index and path being processed.
func (e *GenError) WithFile(index int, path string) *GenError {
	return e.WithDetails(map[string]interface{}{
		"file_index": index,
		"path":       path,
	})
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a GenError.
func GetCategory(err error) ErrorCategory {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a GenError.
func GetCode(err error) string {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Code
	}
	return ""
}

// GetDetail extracts a detail value from the first GenError in the chain.
func GetDetail(err error, key string) (interface{}, bool) {
	var ge *GenError
	if errors.As(err, &ge) {
		v, ok := ge.Details[key]
		return v, ok
	}
	return nil, false
}

// isRetryable reports whether a higher layer may retry the operation. The
// generation core never retries; only object storage uploads qualify.
func isRetryable(category ErrorCategory, code string) bool {
	return category == ErrCategoryStorage && code == CodeUploadFailed
}

// Convenience constructors for common errors.

func NewConfigurationError(code, message string) *GenError {
	return New(ErrCategoryConfiguration, code, message)
}

func NewIOError(code, message string, cause error) *GenError {
	return Wrap(ErrCategoryIO, code, message, cause)
}

func NewEncodingError(code, message string) *GenError {
	return New(ErrCategoryEncoding, code, message)
}

func NewStorageError(code, message string, cause error) *GenError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewManifestError(code, message string, cause error) *GenError {
	return Wrap(ErrCategoryManifest, code, message, cause)
}

func NewInternalError(message string, cause error) *GenError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
