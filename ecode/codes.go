package ecode

import "net/http"

// Error codes
const (
	OK          = 0
	ParamErr    = http.StatusBadRequest
	NotFound    = http.StatusNotFound
	Conflict    = http.StatusConflict
	ServerErr   = http.StatusInternalServerError
	Unsupported = http.StatusNotImplemented
	Unavailable = http.StatusServiceUnavailable
)

var codeText = map[int]string{
	OK:          "ok",
	ParamErr:    "invalid parameters",
	NotFound:    "not found",
	Conflict:    "conflict",
	ServerErr:   "server error",
	Unsupported: "unsupported",
	Unavailable: "service unavailable",
}

// Text returns the description of a code, falling back to the HTTP status text
func Text(code int) string {
	if s, ok := codeText[code]; ok {
		return s
	}
	if s := http.StatusText(code); s != "" {
		return s
	}
	return "unknown"
}

// IsServerSide reports whether the code denotes an engine or transport failure
func IsServerSide(code int) bool {
	return code == 0 || code >= http.StatusInternalServerError
}
