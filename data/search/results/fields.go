package results

import (
	"bytes"
	"encoding/json"
	"sort"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Fields is an insertion-ordered document field set. JSON encoding keeps
// the order; nested objects decode as map[string]any and numbers as
// json.Number so integers beyond 2^53 survive a read-modify-write.
type Fields struct {
	om *orderedmap.OrderedMap[string, any]
}

// NewFields creates an empty field set
func NewFields() *Fields {
	return &Fields{om: orderedmap.New[string, any]()}
}

// FieldsFromMap copies m with keys in lexical order
func FieldsFromMap(m map[string]any) *Fields {
	f := NewFields()
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f.Set(k, m[k])
	}
	return f
}

func (f *Fields) init() {
	if f.om == nil {
		f.om = orderedmap.New[string, any]()
	}
}

// Set stores v under key, keeping the position of an existing key
func (f *Fields) Set(key string, v any) *Fields {
	f.init()
	f.om.Set(key, v)
	return f
}

// Get returns the value under key
func (f *Fields) Get(key string) (any, bool) {
	if f == nil || f.om == nil {
		return nil, false
	}
	return f.om.Get(key)
}

// Value returns the value under key or nil
func (f *Fields) Value(key string) any {
	v, _ := f.Get(key)
	return v
}

// Has reports whether key is set
func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Delete removes key
func (f *Fields) Delete(key string) {
	if f == nil || f.om == nil {
		return
	}
	f.om.Delete(key)
}

// Len returns the number of fields
func (f *Fields) Len() int {
	if f == nil || f.om == nil {
		return 0
	}
	return f.om.Len()
}

// Keys returns the keys in order
func (f *Fields) Keys() []string {
	keys := make([]string, 0, f.Len())
	f.Range(func(k string, _ any) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Range calls fn for each field in order until fn returns false
func (f *Fields) Range(fn func(key string, value any) bool) {
	if f == nil || f.om == nil {
		return
	}
	for pair := f.om.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns a shallow copy
func (f *Fields) Clone() *Fields {
	out := NewFields()
	f.Range(func(k string, v any) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// Map returns the fields as a plain map
func (f *Fields) Map() map[string]any {
	m := make(map[string]any, f.Len())
	f.Range(func(k string, v any) bool {
		m[k] = v
		return true
	})
	return m
}

// MarshalJSON encodes the fields in insertion order
func (f *Fields) MarshalJSON() ([]byte, error) {
	if f == nil || f.om == nil {
		return []byte("{}"), nil
	}
	return f.om.MarshalJSON()
}

// UnmarshalJSON decodes an object keeping its key order
func (f *Fields) UnmarshalJSON(data []byte) error {
	raw := orderedmap.New[string, json.RawMessage]()
	if err := raw.UnmarshalJSON(data); err != nil {
		return err
	}
	om := orderedmap.New[string, any](raw.Len())
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		v, err := decodeValue(pair.Value)
		if err != nil {
			return err
		}
		om.Set(pair.Key, v)
	}
	f.om = om
	return nil
}

// decodeValue decodes one JSON value with numbers kept as json.Number
func decodeValue(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

var (
	_ json.Marshaler   = (*Fields)(nil)
	_ json.Unmarshaler = (*Fields)(nil)
)
