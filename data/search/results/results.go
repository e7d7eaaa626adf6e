// Package results holds the uniform envelope returned by every bridge
// operation together with the record and field types it carries.
package results

import (
	"reflect"

	"github.com/sirupsen/logrus"
)

// Error describes a failed operation inside the envelope
type Error struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Class   string `json:"class,omitempty"`
}

// Results is the envelope returned by bridge operations
type Results[T any] struct {
	Data     T              `json:"data"`
	Meta     map[string]any `json:"meta"`
	Params   any            `json:"params,omitempty"`
	QueryTag string         `json:"query_tag"`
	Err      *Error         `json:"error,omitempty"`
}

// New creates an envelope. Nil slices and maps in data become empty.
func New[T any](queryTag string, data T, params any) *Results[T] {
	return &Results[T]{
		Data:     normalize(data),
		Meta:     map[string]any{},
		Params:   params,
		QueryTag: queryTag,
	}
}

// Failed creates an envelope that already carries an error
func Failed[T any](queryTag string, params any, message string, code int, class string) *Results[T] {
	var zero T
	r := New(queryTag, zero, params)
	r.SetError(message, code, class)
	return r
}

// IsSuccessful reports whether the operation succeeded
func (r *Results[T]) IsSuccessful() bool {
	return r != nil && r.Err == nil
}

// SetError marks the envelope failed and clears Data
func (r *Results[T]) SetError(message string, code int, class string) {
	var zero T
	r.Data = normalize(zero)
	r.Err = &Error{Message: message, Code: code, Class: class}
}

// SetMeta stores a meta entry
func (r *Results[T]) SetMeta(key string, v any) *Results[T] {
	if r.Meta == nil {
		r.Meta = map[string]any{}
	}
	r.Meta[key] = v
	return r
}

// MetaValue returns a meta entry or nil
func (r *Results[T]) MetaValue(key string) any {
	if r == nil || r.Meta == nil {
		return nil
	}
	return r.Meta[key]
}

// LogFields returns structured log fields describing the envelope
func (r *Results[T]) LogFields() logrus.Fields {
	fields := logrus.Fields{"query_tag": r.QueryTag}
	for _, k := range []string{"total", "took", "count", "found", "deleted"} {
		if v, ok := r.Meta[k]; ok {
			fields[k] = v
		}
	}
	if r.Err != nil {
		fields["error"] = r.Err.Message
		fields["error_code"] = r.Err.Code
		if r.Err.Class != "" {
			fields["error_class"] = r.Err.Class
		}
	}
	return fields
}

func normalize[T any](data T) T {
	v := reflect.ValueOf(&data).Elem()
	switch v.Kind() {
	case reflect.Slice:
		if v.IsNil() {
			v.Set(reflect.MakeSlice(v.Type(), 0, 0))
		}
	case reflect.Map:
		if v.IsNil() {
			v.Set(reflect.MakeMap(v.Type()))
		}
	}
	return data
}
