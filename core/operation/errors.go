package operation

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownField          = errors.New("unknown field")
	ErrInvalidField          = errors.New("invalid field")
	ErrMissingField          = errors.New("missing field")
	ErrSignatureFormat       = errors.New("malformed signature")
	ErrSignatureVerification = errors.New("signature verification failed")
	ErrEncoding              = errors.New("encoding error")
	ErrBundleValidation      = errors.New("bundle validation failed")
)

// UnknownFieldError is returned when a field name is not part of the operation schema.
type UnknownFieldError struct {
	Schema string
	Field  string
}

func (e *UnknownFieldError) Error() string {
	return fmt.Sprintf("%s: unknown field %q", e.Schema, e.Field)
}

func (e *UnknownFieldError) Unwrap() error { return ErrUnknownField }

// InvalidFieldError carries the field name and the solidity type whose rule was violated.
type InvalidFieldError struct {
	Field  string
	Type   SolidityType
	Reason string
}

func (e *InvalidFieldError) Error() string {
	return fmt.Sprintf("invalid field %s (%s): %s", e.Field, e.Type, e.Reason)
}

func (e *InvalidFieldError) Is(target error) bool {
	return target == ErrInvalidField
}

// MissingFieldError is an InvalidFieldError variant for unset fields.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("field %s is not set", e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField || target == ErrInvalidField
}

// EncodingError wraps a failure of the ABI codec.
type EncodingError struct {
	Schema string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: abi encoding: %v", e.Schema, e.Err)
}

func (e *EncodingError) Unwrap() []error { return []error{ErrEncoding, e.Err} }

// BundleValidationError reports which operation of a bundle failed validation.
type BundleValidationError struct {
	Operation string
	Err       error
}

func (e *BundleValidationError) Error() string {
	return fmt.Sprintf("bundle validation failed: %s: %v", e.Operation, e.Err)
}

func (e *BundleValidationError) Unwrap() []error { return []error{ErrBundleValidation, e.Err} }

func signatureFormatError(reason string) error {
	return fmt.Errorf("%w: %s", ErrSignatureFormat, reason)
}

func signatureVerificationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSignatureVerification, fmt.Sprintf(format, args...))
}
