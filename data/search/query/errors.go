package query

import (
	"errors"
	"fmt"
)

// ErrMatrixDistinct is returned when matrix stats are requested per distinct bucket
var ErrMatrixDistinct = errors.New("matrix aggregation not supported with distinct columns")

// ParamError is a malformed or insufficient descriptor, raised before any engine call
type ParamError struct {
	Op      string
	Field   string
	Message string
}

func (e *ParamError) Error() string {
	switch {
	case e.Op != "" && e.Field != "":
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Field, e.Message)
	case e.Field != "":
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func paramErr(field, message string) *ParamError {
	return &ParamError{Field: field, Message: message}
}

// IsParamError reports whether err is a ParamError
func IsParamError(err error) bool {
	var pe *ParamError
	return errors.As(err, &pe)
}
