package paging

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ncobase/querybridge/data/search/query"
)

// ErrInvalidCursor is returned for tokens that do not decode to a cursor
var ErrInvalidCursor = errors.New("invalid cursor")

type token struct {
	PitID       string `json:"p"`
	SearchAfter []any  `json:"a,omitempty"`
	KeepAlive   string `json:"k,omitempty"`
}

// EncodeCursor encodes a point-in-time cursor to a token
func EncodeCursor(c query.PitCursor) (string, error) {
	if c.ID == "" {
		return "", fmt.Errorf("%w: pit id required", ErrInvalidCursor)
	}
	data, err := json.Marshal(token{PitID: c.ID, SearchAfter: c.SearchAfter, KeepAlive: c.KeepAlive})
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

// DecodeCursor decodes a token to a point-in-time cursor. Numbers in the
// search_after values keep their exact text.
func DecodeCursor(s string) (query.PitCursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return query.PitCursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var t token
	if err := dec.Decode(&t); err != nil {
		return query.PitCursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if t.PitID == "" {
		return query.PitCursor{}, fmt.Errorf("%w: pit id missing", ErrInvalidCursor)
	}
	return query.PitCursor{ID: t.PitID, SearchAfter: t.SearchAfter, KeepAlive: t.KeepAlive}, nil
}
