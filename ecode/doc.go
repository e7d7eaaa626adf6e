// Package ecode defines the error codes and message helpers shared by the
// query bridge.
//
// Codes follow HTTP status semantics so that a transport status reported by
// the search engine can be carried through unchanged:
//
//	ecode.ParamErr     // 400: malformed or insufficient query descriptor
//	ecode.NotFound     // 404: document or index does not exist
//	ecode.Conflict     // 409: version conflict reported by the engine
//	ecode.ServerErr    // 500: engine or transport failure
//	ecode.Unsupported  // 501: operation combination not supported
//	ecode.Unavailable  // 503: transport rejected the call (circuit open)
//
// # Messages
//
// The message helpers build short, consistent strings:
//
//	ecode.FieldIsRequired("index")   // "index required"
//	ecode.FieldIsInvalid("operator") // "operator invalid"
//	ecode.NotExist("document")       // "document does not exist"
package ecode
