package results

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Reserved record keys, never stored as document fields
const (
	KeyID    = "_id"
	KeyIndex = "_index"
	KeyMeta  = "_meta"
)

// IsReserved reports whether key is a reserved record key
func IsReserved(key string) bool {
	return key == KeyID || key == KeyIndex || key == KeyMeta
}

// Meta is the always-present metadata of a record
type Meta struct {
	Index      string              `json:"_index,omitempty"`
	ID         string              `json:"_id,omitempty"`
	Score      *float64            `json:"_score,omitempty"`
	Sort       []any               `json:"sort,omitempty"`
	Highlights map[string][]string `json:"highlights,omitempty"`
	Extra      map[string]any      `json:"extra,omitempty"`
}

// Record is one document: ordered fields plus metadata
type Record struct {
	Fields *Fields
	Meta   Meta
}

// NewRecord creates an empty record
func NewRecord() *Record {
	return &Record{Fields: NewFields()}
}

// RecordFromMap builds a record from a plain map. Reserved keys move to Meta.
func RecordFromMap(m map[string]any) *Record {
	r := &Record{Fields: FieldsFromMap(m)}
	r.liftReserved()
	return r
}

// ID returns the document identifier, empty when the engine assigns it
func (r *Record) ID() string {
	if r == nil {
		return ""
	}
	return r.Meta.ID
}

// WithID sets the document identifier
func (r *Record) WithID(id string) *Record {
	r.Meta.ID = id
	return r
}

// Set stores a document field. Reserved keys update Meta instead.
func (r *Record) Set(key string, v any) *Record {
	if r.Fields == nil {
		r.Fields = NewFields()
	}
	switch key {
	case KeyID:
		r.Meta.ID = fmt.Sprint(v)
	case KeyIndex:
		r.Meta.Index = fmt.Sprint(v)
	case KeyMeta:
	default:
		r.Fields.Set(key, v)
	}
	return r
}

// Get returns a document field
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}
	return r.Fields.Get(key)
}

// Clone returns a copy with its own field set
func (r *Record) Clone() *Record {
	out := &Record{Fields: r.Fields.Clone(), Meta: r.Meta}
	if r.Meta.Extra != nil {
		out.Meta.Extra = make(map[string]any, len(r.Meta.Extra))
		for k, v := range r.Meta.Extra {
			out.Meta.Extra[k] = v
		}
	}
	return out
}

// liftReserved moves reserved keys found in Fields into Meta
func (r *Record) liftReserved() {
	if v, ok := r.Fields.Get(KeyID); ok {
		if r.Meta.ID == "" && v != nil {
			r.Meta.ID = fmt.Sprint(v)
		}
		r.Fields.Delete(KeyID)
	}
	if v, ok := r.Fields.Get(KeyIndex); ok {
		if r.Meta.Index == "" && v != nil {
			r.Meta.Index = fmt.Sprint(v)
		}
		r.Fields.Delete(KeyIndex)
	}
	r.Fields.Delete(KeyMeta)
}

// MarshalJSON writes the fields in order followed by "_meta"
func (r *Record) MarshalJSON() ([]byte, error) {
	fields, err := r.Fields.MarshalJSON()
	if err != nil {
		return nil, err
	}
	meta, err := json.Marshal(r.Meta)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(fields) + len(meta) + 12)
	fields = bytes.TrimSpace(fields)
	buf.Write(fields[:len(fields)-1])
	if r.Fields.Len() > 0 {
		buf.WriteByte(',')
	}
	buf.WriteString(`"_meta":`)
	buf.Write(meta)
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a record written by MarshalJSON or a plain document
func (r *Record) UnmarshalJSON(data []byte) error {
	fields := NewFields()
	if err := fields.UnmarshalJSON(data); err != nil {
		return err
	}
	r.Fields = fields
	r.Meta = Meta{}
	if raw, ok := fields.Get(KeyMeta); ok && raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, &r.Meta); err != nil {
			return fmt.Errorf("decode _meta: %w", err)
		}
	}
	r.liftReserved()
	return nil
}
