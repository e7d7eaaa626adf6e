package query

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/ncobase/querybridge/data/search/results"
	"github.com/ncobase/querybridge/ecode"
)

// WriteDocument returns the identifier and JSON body of rec with the
// reserved keys stripped. An empty id lets the engine assign one.
func WriteDocument(rec *results.Record) (string, []byte, error) {
	if rec == nil {
		return "", nil, paramErr("record", ecode.FieldIsRequired("record"))
	}
	id := rec.Meta.ID
	doc := results.NewFields()
	rec.Fields.Range(func(k string, v any) bool {
		if k == results.KeyID {
			if id == "" && v != nil {
				id = fmt.Sprint(v)
			}
			return true
		}
		if results.IsReserved(k) {
			return true
		}
		doc.Set(k, v)
		return true
	})
	body, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("encode document: %w", err)
	}
	return id, body, nil
}

// Bulk builds an NDJSON bulk body: one index action line and one document
// line per record, in input order
func Bulk(records []*results.Record) ([]byte, error) {
	if len(records) == 0 {
		return nil, paramErr("records", ecode.FieldIsEmpty("records"))
	}
	var buf bytes.Buffer
	for i, rec := range records {
		if rec == nil {
			return nil, paramErr(fmt.Sprintf("records[%d]", i), ecode.FieldIsRequired("record"))
		}
		id, body, err := WriteDocument(rec)
		if err != nil {
			return nil, err
		}
		action := map[string]any{}
		if id != "" {
			action["_id"] = id
		}
		line, err := json.Marshal(map[string]any{"index": action})
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
		buf.Write(body)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}
