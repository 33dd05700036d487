package coverage

import (
	"errors"
	"fmt"
)

type ErrorCode int

const (
	ValidationError ErrorCode = iota
	EntityNotFound
	EntityAlreadyExists
	UnsupportedEncoding
	StoreFailure
	ShapeMismatch
	Aborted
)

// Access details
const (
	DetailEntity = 0
	DetailKeyID  = 1
	DetailID     = 2
)

type CoverageError struct {
	code    ErrorCode
	desc    string
	details []string
}

// NewValidationError creates a new error raised before any I/O (invalid dimensions, rotated geotransform...)
func NewValidationError(desc string, a ...interface{}) error {
	return CoverageError{code: ValidationError, desc: fmt.Sprintf(desc, a...)}
}

// NewEntityNotFound creates a new error stating that an entity has not been found
func NewEntityNotFound(entity, keyID, id, desc string, a ...interface{}) error {
	if desc == "" {
		desc = formatEntityWith(entity, keyID, id)
	}
	return CoverageError{code: EntityNotFound, desc: fmt.Sprintf(desc, a...), details: []string{entity, keyID, id}}
}

// NewEntityAlreadyExists creates a new error stating that an entity already exists
func NewEntityAlreadyExists(entity, keyID, id, desc string, a ...interface{}) error {
	if desc == "" {
		desc = formatEntityWith(entity, keyID, id)
	}
	return CoverageError{code: EntityAlreadyExists, desc: fmt.Sprintf(desc, a...), details: []string{entity, keyID, id}}
}

// NewUnsupportedEncoding creates a new error stating that a sample, pixel or compression combination cannot be handled
func NewUnsupportedEncoding(desc string, a ...interface{}) error {
	return CoverageError{code: UnsupportedEncoding, desc: fmt.Sprintf(desc, a...)}
}

// NewStoreFailure wraps a failed call to the store or to a tile codec.
// Such failures are never retried.
func NewStoreFailure(op string, err error) error {
	return CoverageError{code: StoreFailure, desc: fmt.Sprintf("%s: %v", op, err)}
}

// WrapStoreFailure returns err unchanged if it is already a CoverageError, a StoreFailure otherwise
func WrapStoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var cerr CoverageError
	if errors.As(err, &cerr) {
		return err
	}
	return NewStoreFailure(op, err)
}

// NewShapeMismatch creates a new error stating that a decoded buffer does not have the expected size
func NewShapeMismatch(got, expected int) error {
	return CoverageError{code: ShapeMismatch, desc: fmt.Sprintf("got %d bytes instead of %d", got, expected)}
}

// NewAborted creates a new error stating that the operation has been cancelled by the caller
func NewAborted(desc string, a ...interface{}) error {
	return CoverageError{code: Aborted, desc: fmt.Sprintf(desc, a...)}
}

// Error implements error
func (e CoverageError) Error() string {
	var s string
	switch e.code {
	case ValidationError:
		s = "ValidationError"
	case EntityNotFound:
		s = "EntityNotFound"
	case EntityAlreadyExists:
		s = "EntityAlreadyExists"
	case UnsupportedEncoding:
		s = "UnsupportedEncoding"
	case StoreFailure:
		s = "StoreFailure"
	case ShapeMismatch:
		s = "ShapeMismatch"
	case Aborted:
		s = "Aborted"
	}
	return s + ": " + e.desc
}

// Desc returns a description of the error
func (e CoverageError) Desc() string {
	return e.desc
}

// Code returns the code of the error
func (e CoverageError) Code() ErrorCode {
	return e.code
}

// Detail returns a detail of the error (see const above)
func (e CoverageError) Detail(i int) string {
	if i >= len(e.details) {
		return ""
	}
	return e.details[i]
}

// IsError tests whether error is a CoverageError
func IsError(err error, code ErrorCode) bool {
	var cerr CoverageError
	return errors.As(err, &cerr) && cerr.Code() == code
}

// AsError tests whether error is a CoverageError and returns it
func AsError(err error, code ErrorCode) (CoverageError, bool) {
	var cerr CoverageError
	return cerr, errors.As(err, &cerr) && cerr.Code() == code
}

func formatEntityWith(entity, keyID, id string) string {
	if entity != "" && id != "" {
		return entity + " with " + keyID + ": " + id
	}
	return ""
}
