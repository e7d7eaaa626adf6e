package index

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their yaml names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct applies the validate tags and turns the first violation
// into a ValidationError
func validateStruct(s *Settings) error {
	if s == nil {
		return &ValidationError{Message: "settings required"}
	}
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) || len(errs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	e := errs[0]
	return &ValidationError{Path: fieldPath(e.Namespace()), Message: violation(e)}
}

// fieldPath drops the root type name and, inside a field list, points at
// the offending field declaration: "Settings.fields[0].type" -> "fields[0]"
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		ns = rest
	}
	if i := strings.LastIndexByte(ns, ']'); i >= 0 {
		return ns[:i+1]
	}
	return ns
}

func violation(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without":
		return e.Field() + " required"
	case "gte":
		return e.Field() + " must not be negative"
	case "oneof":
		return fmt.Sprintf("unknown %s %q, want one of %s", e.Field(), fmt.Sprint(e.Value()), e.Param())
	}
	return fmt.Sprintf("%s is invalid (%s)", e.Field(), e.Tag())
}
