package rules

import (
	"errors"
	"fmt"
)

// UnknownContextKeyError is returned when a reference names a key missing from the context
type UnknownContextKeyError struct {
	Key string
}

func (e *UnknownContextKeyError) Error() string {
	return fmt.Sprintf("unknown context key %q", e.Key)
}

// TypeMismatchError is returned when operands cannot be coerced to a common type
type TypeMismatchError struct {
	Op       string
	Expected string
	Left     Type
	Right    Type
}

func (e *TypeMismatchError) Error() string {
	if e.Expected != "" {
		return fmt.Sprintf("type mismatch in %s: expected %s, got %s", e.Op, e.Expected, e.Left)
	}
	return fmt.Sprintf("type mismatch in %s: cannot compare %s with %s", e.Op, e.Left, e.Right)
}

// UnknownNodeKindError is returned when no handler is registered for a node kind
type UnknownNodeKindError struct {
	Kind Kind
}

func (e *UnknownNodeKindError) Error() string {
	return fmt.Sprintf("unknown rule node kind %q", e.Kind)
}

// MalformedRuleError is returned for structurally invalid trees
type MalformedRuleError struct {
	Path   string
	Reason string
}

func (e *MalformedRuleError) Error() string {
	if e.Path == "" {
		return "malformed rule: " + e.Reason
	}
	return fmt.Sprintf("malformed rule at %s: %s", e.Path, e.Reason)
}

// IsConfigurationError reports whether err was caused by a badly authored rule
func IsConfigurationError(err error) bool {
	var (
		keyErr     *UnknownContextKeyError
		typeErr    *TypeMismatchError
		kindErr    *UnknownNodeKindError
		malformErr *MalformedRuleError
	)
	return errors.As(err, &keyErr) ||
		errors.As(err, &typeErr) ||
		errors.As(err, &kindErr) ||
		errors.As(err, &malformErr)
}
