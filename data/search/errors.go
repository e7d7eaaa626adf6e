package search

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// TransportError describes a failed engine request. StatusCode is zero when
// the request never got an answer.
type TransportError struct {
	Engine     Engine
	StatusCode int
	Type       string
	Reason     string
	Class      string
	Body       []byte
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: request failed: %v", e.Engine, e.Err)
	}
	if e.Reason != "" {
		return fmt.Sprintf("%s: [%d] %s: %s", e.Engine, e.StatusCode, e.Type, e.Reason)
	}
	return fmt.Sprintf("%s: [%d] %s", e.Engine, e.StatusCode, http.StatusText(e.StatusCode))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether the engine answered 404
func (e *TransportError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsServerSide reports whether the failure counts against engine health:
// no answer at all, or a 5xx status.
func (e *TransportError) IsServerSide() bool {
	return e.StatusCode == 0 || e.StatusCode >= 500
}

// errorBody is the error envelope shared by Elasticsearch and OpenSearch
type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

type errorCause struct {
	Type      string       `json:"type"`
	Reason    string       `json:"reason"`
	RootCause []errorCause `json:"root_cause"`
}

// NewResponseError builds the error for a status >= 400 response, nil otherwise
func NewResponseError(engine Engine, status int, body []byte) error {
	if status < 400 {
		return nil
	}

	te := &TransportError{
		Engine:     engine,
		StatusCode: status,
		Body:       body,
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil && len(eb.Error) > 0 {
		var cause errorCause
		if json.Unmarshal(eb.Error, &cause) == nil {
			te.Type = cause.Type
			te.Reason = cause.Reason
			if te.Reason == "" && len(cause.RootCause) > 0 {
				te.Reason = cause.RootCause[0].Reason
			}
		} else {
			var msg string
			if json.Unmarshal(eb.Error, &msg) == nil {
				te.Reason = msg
			}
		}
	}

	if te.Type == "" && status == http.StatusNotFound {
		te.Type = "not_found"
	}
	te.Class = te.Type
	if te.Class == "" {
		te.Class = fmt.Sprintf("http_%d", status)
	}
	return te
}

// NewRequestError wraps a failure that produced no engine answer
func NewRequestError(engine Engine, err error) error {
	if err == nil {
		return nil
	}
	var te *TransportError
	if errors.As(err, &te) {
		return err
	}
	return &TransportError{
		Engine: engine,
		Type:   "transport_error",
		Reason: err.Error(),
		Class:  fmt.Sprintf("%T", err),
		Err:    err,
	}
}
