package index

import "strings"

// CreateBody returns the create-index request body
func CreateBody(s *Settings) (map[string]any, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	body := map[string]any{}
	if settings := indexSettings(s); len(settings) > 0 {
		body["settings"] = settings
	}
	if len(s.Fields) > 0 || s.Dynamic != "" {
		body["mappings"] = mappings(s)
	}
	return body, nil
}

// MappingBody returns the put-mapping request body
func MappingBody(s *Settings) (map[string]any, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if len(s.Fields) == 0 {
		return nil, &ValidationError{Path: "fields", Message: "no fields to map"}
	}
	return mappings(s), nil
}

// AnalyzerBody returns a put-settings body carrying only the analysis
// section. Analysis settings can only be changed on a closed index.
func AnalyzerBody(s *Settings) (map[string]any, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Analysis.Empty() {
		return nil, &ValidationError{Path: "analysis", Message: "no analysis components"}
	}
	return map[string]any{"analysis": analysis(s.Analysis)}, nil
}

func indexSettings(s *Settings) map[string]any {
	out := map[string]any{}
	if s.Shards > 0 {
		out["number_of_shards"] = s.Shards
	}
	if s.Replicas != nil {
		out["number_of_replicas"] = *s.Replicas
	}
	if s.RefreshInterval != "" {
		out["refresh_interval"] = s.RefreshInterval
	}
	if s.MaxResultWindow > 0 {
		out["max_result_window"] = s.MaxResultWindow
	}
	if !s.Analysis.Empty() {
		out["analysis"] = analysis(s.Analysis)
	}
	return out
}

func analysis(a *Analysis) map[string]any {
	out := map[string]any{}
	put := func(key string, m map[string]map[string]any) {
		if len(m) > 0 {
			out[key] = m
		}
	}
	put("analyzer", a.Analyzers)
	put("normalizer", a.Normalizers)
	put("tokenizer", a.Tokenizers)
	put("filter", a.Filters)
	put("char_filter", a.CharFilters)
	return out
}

func mappings(s *Settings) map[string]any {
	m := map[string]any{}
	if s.Dynamic != "" {
		m["dynamic"] = dynamicValue(s.Dynamic)
	}
	if len(s.Fields) > 0 {
		m["properties"] = properties(s.Fields)
	}
	return m
}

func dynamicValue(d string) any {
	switch d {
	case "true":
		return true
	case "false":
		return false
	}
	return d
}

func properties(fields []Field) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Name] = property(f)
	}
	return props
}

func property(f Field) map[string]any {
	p := map[string]any{}
	typ := f.Type
	if typ == "" {
		typ = TypeObject
	}
	if typ != TypeObject {
		p["type"] = typ
	}
	if f.Analyzer != "" {
		p["analyzer"] = f.Analyzer
	}
	if f.SearchAnalyzer != "" {
		p["search_analyzer"] = f.SearchAnalyzer
	}
	if f.Normalizer != "" {
		p["normalizer"] = f.Normalizer
	}
	if f.Format != "" {
		p["format"] = f.Format
	}
	if f.Index != nil {
		p["index"] = *f.Index
	}
	if typ == TypeKeyword && f.IgnoreAbove > 0 {
		p["ignore_above"] = f.IgnoreAbove
	}
	if typ == TypeText && f.Keyword {
		ignore := f.IgnoreAbove
		if ignore <= 0 {
			ignore = DefaultIgnoreAbove
		}
		p["fields"] = map[string]any{
			"keyword": map[string]any{"type": TypeKeyword, "ignore_above": ignore},
		}
	}
	if len(f.Properties) > 0 {
		p["properties"] = properties(f.Properties)
	}
	return p
}

// FromFieldLists derives settings from searchable and filterable field
// names. Searchable fields become text with a keyword sub-field; a ^boost
// suffix is dropped. Filterable fields become keyword, except the
// created_at and updated_at timestamps, which are stored as long.
func FromFieldLists(searchable, filterable []string) *Settings {
	s := &Settings{}
	seen := map[string]bool{}
	for _, name := range searchable {
		name = stripBoost(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		s.Fields = append(s.Fields, Field{Name: name, Type: TypeText, Keyword: true})
	}
	for _, name := range filterable {
		name = stripBoost(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		typ := TypeKeyword
		if name == "created_at" || name == "updated_at" {
			typ = TypeLong
		}
		s.Fields = append(s.Fields, Field{Name: name, Type: typ})
	}
	return s
}

func stripBoost(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, '^'); i >= 0 {
		name = name[:i]
	}
	return name
}
