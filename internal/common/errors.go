package common

import (
	"fmt"
	"strings"
)

// ValidationError reports every required condition a submission failed.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return "Missing required fields: " + strings.Join(e.Fields, ", ")
}

// ImageDecodeError is returned when an uploaded buffer cannot be turned into a raster image.
type ImageDecodeError struct {
	Role string
	Err  error
}

func (e *ImageDecodeError) Error() string {
	if e.Role == "" {
		return fmt.Sprintf("failed to decode image: %v", e.Err)
	}
	return fmt.Sprintf("failed to decode %s image: %v", e.Role, e.Err)
}

func (e *ImageDecodeError) Unwrap() error {
	return e.Err
}

// StorageError wraps failures of the record store.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// WrapStorage returns nil for a nil err, otherwise a *StorageError for op.
func WrapStorage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}
