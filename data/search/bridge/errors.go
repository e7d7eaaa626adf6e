package bridge

import (
	"errors"
	"fmt"

	"github.com/ncobase/querybridge/data/search"
	"github.com/ncobase/querybridge/data/search/query"
	"github.com/ncobase/querybridge/ecode"
)

// ParamError is a malformed descriptor, raised before any engine call
type ParamError = query.ParamError

// Error classes not reported by the engine
const (
	ClassParam       = "param"
	ClassUnsupported = "unsupported"
	ClassDecode      = "decode_error"
	ClassCircuitOpen = "circuit_open"
)

// QueryError is a failed engine request or an unusable engine answer
type QueryError struct {
	Op      string
	Class   string
	Message string
	Status  int
	Params  any
	Err     error
}

func (e *QueryError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: [%d] %s: %s", e.Op, e.Status, e.Class, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Class, e.Message)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}

// Code returns the ecode matching the failure
func (e *QueryError) Code() int {
	switch {
	case e.Status > 0:
		return e.Status
	case e.Class == ClassCircuitOpen:
		return ecode.Unavailable
	case e.Class == ClassUnsupported:
		return ecode.Unsupported
	}
	return ecode.ServerErr
}

// newQueryError wraps a transport failure of op
func newQueryError(op string, params any, err error) *QueryError {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	qe = &QueryError{Op: op, Class: "query_error", Message: err.Error(), Params: params, Err: err}
	var te *search.TransportError
	if errors.As(err, &te) {
		qe.Status = te.StatusCode
		qe.Class = te.Class
		if te.Type != "" {
			qe.Class = te.Type
		}
		if te.Reason != "" {
			qe.Message = te.Reason
		}
	}
	return qe
}

func decodeError(op string, params any, err error) *QueryError {
	return &QueryError{
		Op:      op,
		Class:   ClassDecode,
		Message: fmt.Sprintf("decode engine response: %v", err),
		Params:  params,
		Err:     err,
	}
}

func unsupportedError(op string, params any, err error) *QueryError {
	return &QueryError{Op: op, Class: ClassUnsupported, Message: err.Error(), Params: params, Err: err}
}

// IsNotFound reports whether err denotes a missing document or index
func IsNotFound(err error) bool {
	var te *search.TransportError
	if errors.As(err, &te) {
		return te.IsNotFound()
	}
	var qe *QueryError
	return errors.As(err, &qe) && qe.Status == ecode.NotFound
}

// IsParamError reports whether err is a descriptor error
func IsParamError(err error) bool {
	return query.IsParamError(err)
}

// classify returns the envelope code and class of err
func classify(err error) (int, string) {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code(), qe.Class
	}
	if IsParamError(err) {
		return ecode.ParamErr, ClassParam
	}
	return ecode.ServerErr, ""
}
