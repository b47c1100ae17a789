package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestGenError_Error(t *testing.T) {
	err := New(ErrCategoryConfiguration, CodeInvalidDimension, "vector_dim must be positive")
	expected := "[CONFIGURATION:INVALID_DIMENSION] vector_dim must be positive"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestGenError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := Wrap(ErrCategoryIO, CodeWriteFailed, "write batch", cause)
	expected := "[IO:WRITE_FAILED] write batch: disk full"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestGenError_ErrorWithDetails(t *testing.T) {
	cause := fmt.Errorf("permission denied")
	err := NewIOError(CodeCreateFailed, "create table file", cause).WithFile(3, "/out/data-00000003.parquet")
	expected := "[IO:CREATE_FAILED] create table file (file_index=3, path=/out/data-00000003.parquet): permission denied"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestGenError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryManifest, CodeRegisterFailed, "insert file", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestGenError_Is(t *testing.T) {
	err1 := New(ErrCategoryIO, CodeWriteFailed, "first")
	err2 := New(ErrCategoryIO, CodeWriteFailed, "second")
	err3 := New(ErrCategoryIO, CodeCloseFailed, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("partition: %w", err1)
	if !errors.Is(wrapped, err2) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryStorage, CodeUploadFailed, true},
		{ErrCategoryStorage, CodeObjectNotFound, false},
		{ErrCategoryIO, CodeCreateFailed, false},
		{ErrCategoryIO, CodeWriteFailed, false},
		{ErrCategoryIO, CodeCloseFailed, false},
		{ErrCategoryEncoding, CodeSchemaMismatch, false},
		{ErrCategoryConfiguration, CodeInvalidFileSize, false},
		{ErrCategoryManifest, CodeRegisterFailed, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
}

func TestGetCategory(t *testing.T) {
	err := New(ErrCategoryEncoding, CodeLengthMismatch, "columns differ")
	if GetCategory(err) != ErrCategoryEncoding {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryEncoding)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-GenError should return empty category")
	}
}

func TestGetCode(t *testing.T) {
	err := New(ErrCategoryEncoding, CodeLengthMismatch, "columns differ")
	if GetCode(err) != CodeLengthMismatch {
		t.Errorf("got %q, want %q", GetCode(err), CodeLengthMismatch)
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-GenError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(ErrCategoryConfiguration, CodeInvalidOutput, "bad prefix")
	detailed := err.WithDetails(map[string]interface{}{"field": "prefix"})

	if detailed.Details["field"] != "prefix" {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}

	merged := detailed.WithFile(1, "p")
	if merged.Details["field"] != "prefix" || merged.Details["file_index"] != 1 {
		t.Errorf("WithFile should merge details, got %v", merged.Details)
	}
	if v, ok := GetDetail(fmt.Errorf("wrapped: %w", merged), "path"); !ok || v != "p" {
		t.Errorf("GetDetail path = %v, %v", v, ok)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	c := NewConfigurationError(CodeInvalidRowCount, "no rows")
	if c.Category != ErrCategoryConfiguration || c.Code != CodeInvalidRowCount {
		t.Error("NewConfigurationError mismatch")
	}

	io := NewIOError(CodeCloseFailed, "close", cause)
	if io.Category != ErrCategoryIO || !errors.Is(io, cause) {
		t.Error("NewIOError mismatch")
	}

	e := NewEncodingError(CodeSchemaMismatch, "schema")
	if e.Category != ErrCategoryEncoding {
		t.Error("NewEncodingError mismatch")
	}

	s := NewStorageError(CodeUploadFailed, "s3 down", cause)
	if s.Category != ErrCategoryStorage || !s.Retryable {
		t.Error("NewStorageError mismatch")
	}

	m := NewManifestError(CodeRegisterFailed, "locked", cause)
	if m.Category != ErrCategoryManifest {
		t.Error("NewManifestError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
