// errors.go - error taxonomy for descriptor validation and signing
package main

import (
	"errors"
	"fmt"
)

// InvalidValueError reports a descriptor field that fails a range or format
// constraint. Field names the offending field the way the descriptor spells
// it, possibly with the bad value appended.
type InvalidValueError struct {
	Field string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid value: %s", e.Field)
}

func invalidValue(format string, args ...interface{}) error {
	return &InvalidValueError{Field: fmt.Sprintf(format, args...)}
}

// ErrInvalidDebugFlags is returned when more than one of the mutually
// exclusive debug flags is set.
var ErrInvalidDebugFlags = errors.New("more than one debug flag is set (allow_debug, force_debug_prod and force_debug are mutually exclusive)")

// MissingFieldError reports a required descriptor list that was supplied
// neither directly nor through the combined service_access_control object.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field: %s", e.Field)
}

// KeyError reports a failure to read, parse or validate the RSA signing
// key. Key problems are configuration errors and are never retried.
type KeyError struct {
	Path string
	Err  error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key error (%s): %v", e.Path, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

func keyError(path string, format string, args ...interface{}) error {
	return &KeyError{Path: path, Err: fmt.Errorf(format, args...)}
}
