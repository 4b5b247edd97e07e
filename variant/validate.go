package variant

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/petal-labs/iris-messages/core"
)

// Validator is implemented by every shape.
type Validator interface {
	Validate() error
}

// Validate runs v's own validation. A nil member is invalid; values that do
// not implement Validator have nothing to check.
func Validate(v any) error {
	if v == nil {
		return Invalid("", "no value")
	}
	if val, ok := v.(Validator); ok {
		return val.Validate()
	}
	return nil
}

// Invalid builds a validation failure for field.
func Invalid(field, reason string) error {
	return &core.WireError{Kind: core.ErrValidation, Field: field, Reason: reason}
}

// Required fails when a required property is missing or empty.
func Required(field string, present bool) error {
	if present {
		return nil
	}
	return Invalid(field, "required")
}

// OneOf fails when value is not one of the known enumeration members.
func OneOf[S ~string](field string, value S, allowed ...S) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return Invalid(field, fmt.Sprintf("unknown value %q", string(value)))
}

// Nested validates a child value and prefixes failures with field.
func Nested(field string, child any) error {
	return prefix(field, Validate(child))
}

// Each validates every element, reporting failures as field.<index>, or just
// <index> when field is empty.
func Each[V any](field string, items []V) error {
	for i, item := range items {
		path := strconv.Itoa(i)
		if field != "" {
			path = field + "." + path
		}
		if err := Nested(path, item); err != nil {
			return err
		}
	}
	return nil
}

// First returns the first non-nil error, so shapes can list their checks in
// field order.
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func prefix(field string, err error) error {
	if err == nil || field == "" {
		return err
	}
	var we *core.WireError
	if errors.As(err, &we) && we.Kind == core.ErrValidation {
		out := *we
		if out.Field == "" {
			out.Field = field
		} else {
			out.Field = field + "." + out.Field
		}
		return &out
	}
	return &core.WireError{Kind: core.ErrValidation, Field: field, Cause: err}
}
