package ecode

import (
	"fmt"
)

const (
	emptyMsg       = "empty"
	requiredMsg    = "required"
	invalidMsg     = "invalid"
	failedMsg      = "failed"
	notExistMsg    = "does not exist"
	unsupportedMsg = "not supported"
	exceedsMsg     = "exceeds"
)

// FieldIsRequired returns field required message
func FieldIsRequired(k ...string) string {
	if len(k) > 0 {
		return fmt.Sprintf("%s %s", k[0], requiredMsg)
	}
	return requiredMsg
}

// FieldIsEmpty returns field empty message
func FieldIsEmpty(k ...string) string {
	if len(k) > 0 {
		return fmt.Sprintf("%s %s", k[0], emptyMsg)
	}
	return emptyMsg
}

// FieldIsInvalid returns field invalid message
func FieldIsInvalid(k ...string) string {
	if len(k) > 0 {
		return fmt.Sprintf("%s %s", k[0], invalidMsg)
	}
	return invalidMsg
}

// Failed returns failed message
func Failed(k ...string) string {
	if len(k) > 0 {
		return fmt.Sprintf("%s %s", k[0], failedMsg)
	}
	return failedMsg
}

// NotExist returns not exist message
func NotExist(k ...string) string {
	if len(k) > 0 {
		return fmt.Sprintf("%s %s", k[0], notExistMsg)
	}
	return notExistMsg
}

// NotSupported returns not supported message
func NotSupported(k ...string) string {
	if len(k) > 0 {
		return fmt.Sprintf("%s %s", k[0], unsupportedMsg)
	}
	return unsupportedMsg
}

// Exceeds returns a message for a value beyond its limit
func Exceeds(field string, limit any) string {
	return fmt.Sprintf("%s %s %v", field, exceedsMsg, limit)
}
