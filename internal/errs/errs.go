// Package errs defines the error kinds surfaced while decoding, adapting and
// normalizing legacy judge configuration.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failure so callers can report which field or file failed.
type Kind string

const (
	InvalidScalarValue      Kind = "invalid_scalar_value"
	UnrecognizedUnit        Kind = "unrecognized_unit"
	MalformedNumericPrefix  Kind = "malformed_numeric_prefix"
	NarrowingOverflow       Kind = "narrowing_overflow"
	MissingRequiredField    Kind = "missing_required_field"
	RenameCollision         Kind = "rename_collision"
	InvalidFilenameEncoding Kind = "invalid_filename_encoding"
	ConflictingFields       Kind = "conflicting_fields"
	UnsupportedSchema       Kind = "unsupported_schema"
	InvalidDocument         Kind = "invalid_document"
	MissingCaseNumber       Kind = "missing_case_number"
)

// Error is a kinded failure. Field holds a dotted field name or a file path.
type Error struct {
	Kind  Kind
	Field string
	Line  int
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", e.Line)
	}
	if e.Field != "" {
		b.WriteString(e.Field)
		b.WriteString(": ")
	}
	b.WriteString(e.Msg)
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an error of the given kind caused by err.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithField records the field or path an error belongs to. Kinded errors keep
// their innermost field when one is already set, so nested names read outside-in.
func WithField(err error, field string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		cp := *e
		if cp.Field == "" {
			cp.Field = field
		} else {
			cp.Field = field + "." + cp.Field
		}
		return &cp
	}
	return fmt.Errorf("%s: %w", field, err)
}

// WithLine records the source line an error was found on.
func WithLine(err error, line int) error {
	var e *Error
	if err == nil || line <= 0 || !errors.As(err, &e) {
		return err
	}
	cp := *e
	if cp.Line == 0 {
		cp.Line = line
	}
	return &cp
}

// KindOf returns the kind of the first kinded error in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
