package interp

import (
	"fmt"

	"github.com/mbuild/mbs/internal/lexer"
	"github.com/mbuild/mbs/internal/value"
	"golang.org/x/xerrors"
)

// ErrKind is one of the six-entry error taxonomy (§7), plus the lex/parse
// kind that internal/lexer and internal/parser raise directly.
type ErrKind int

const (
	KindType ErrKind = iota
	KindValue
	KindName
	KindResource
	KindDependencyNotFound
	KindInternal
)

func (k ErrKind) String() string {
	switch k {
	case KindType:
		return "type error"
	case KindValue:
		return "value error"
	case KindName:
		return "name error"
	case KindResource:
		return "resource error"
	case KindDependencyNotFound:
		return "dependency not found"
	case KindInternal:
		return "internal invariant violation"
	}
	return "error"
}

// Error is every diagnostic the interpreter raises: kind, message, source
// position, and (when relevant) the offending Value, per §7's required
// fields.
type Error struct {
	Kind    ErrKind
	Pos     lexer.Position
	Message string
	Offending *value.Value
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Pos, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Pos, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// newErr constructs an Error with no underlying cause. wrapErr below
// attaches a cause, wrapped with xerrors so stack context survives, matching
// the teacher's xerrors.Errorf("...: %w", err) idiom.
func newErr(kind ErrKind, pos lexer.Position, format string, args ...interface{}) error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

func wrapErr(kind ErrKind, pos lexer.Position, cause error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Pos: pos, Message: fmt.Sprintf(format, args...), Cause: xerrors.Errorf("%s: %w", fmt.Sprintf(format, args...), cause)}
}

func typeErrorf(pos lexer.Position, format string, args ...interface{}) error {
	return newErr(KindType, pos, format, args...)
}

func valueErrorf(pos lexer.Position, format string, args ...interface{}) error {
	return newErr(KindValue, pos, format, args...)
}

func nameErrorf(pos lexer.Position, format string, args ...interface{}) error {
	return newErr(KindName, pos, format, args...)
}

func resourceErrorf(pos lexer.Position, cause error, format string, args ...interface{}) error {
	return wrapErr(KindResource, pos, cause, format, args...)
}

func dependencyNotFoundErrorf(pos lexer.Position, format string, args ...interface{}) error {
	return newErr(KindDependencyNotFound, pos, format, args...)
}

func internalErrorf(pos lexer.Position, format string, args ...interface{}) error {
	return newErr(KindInternal, pos, format, args...)
}
