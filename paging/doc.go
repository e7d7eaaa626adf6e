// Package paging encodes point-in-time positions as opaque cursor tokens.
//
// A token carries the pit id, the search_after values of the last hit and
// the keep-alive, so a caller can resume paging from a single string:
//
//	token, _ := paging.EncodeCursor(query.PitCursor{ID: pitID, SearchAfter: last.Meta.Sort})
//	cursor, err := paging.DecodeCursor(token)
//
// Tokens are URL-safe base64 of a JSON document. They are not signed.
package paging
