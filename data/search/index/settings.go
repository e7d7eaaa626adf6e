// Package index interprets declarative index settings into the create,
// mapping and analyzer request bodies understood by the search engines.
package index

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Field types used by FromFieldLists
const (
	TypeText    = "text"
	TypeKeyword = "keyword"
	TypeLong    = "long"
	TypeNested  = "nested"
	TypeObject  = "object"
)

// DefaultIgnoreAbove is the ignore_above of generated keyword sub-fields
const DefaultIgnoreAbove = 256

// Field declares one mapped field
type Field struct {
	Name           string  `yaml:"name" json:"name" validate:"required"`
	Type           string  `yaml:"type" json:"type" validate:"required_without=Properties"`
	Analyzer       string  `yaml:"analyzer,omitempty" json:"analyzer,omitempty"`
	SearchAnalyzer string  `yaml:"search_analyzer,omitempty" json:"search_analyzer,omitempty"`
	Normalizer     string  `yaml:"normalizer,omitempty" json:"normalizer,omitempty"`
	Keyword        bool    `yaml:"keyword,omitempty" json:"keyword,omitempty"`
	IgnoreAbove    int     `yaml:"ignore_above,omitempty" json:"ignore_above,omitempty" validate:"gte=0"`
	Format         string  `yaml:"format,omitempty" json:"format,omitempty"`
	Index          *bool   `yaml:"index,omitempty" json:"index,omitempty"`
	Properties     []Field `yaml:"properties,omitempty" json:"properties,omitempty" validate:"omitempty,dive"`
}

// Analysis holds custom analysis components, each keyed by name
type Analysis struct {
	Analyzers   map[string]map[string]any `yaml:"analyzers,omitempty" json:"analyzers,omitempty"`
	Normalizers map[string]map[string]any `yaml:"normalizers,omitempty" json:"normalizers,omitempty"`
	Tokenizers  map[string]map[string]any `yaml:"tokenizers,omitempty" json:"tokenizers,omitempty"`
	Filters     map[string]map[string]any `yaml:"filters,omitempty" json:"filters,omitempty"`
	CharFilters map[string]map[string]any `yaml:"char_filters,omitempty" json:"char_filters,omitempty"`
}

// Empty reports whether no component is declared
func (a *Analysis) Empty() bool {
	return a == nil || len(a.Analyzers)+len(a.Normalizers)+len(a.Tokenizers)+len(a.Filters)+len(a.CharFilters) == 0
}

// Settings declares an index
type Settings struct {
	Shards          int       `yaml:"shards,omitempty" json:"shards,omitempty" validate:"gte=0"`
	Replicas        *int      `yaml:"replicas,omitempty" json:"replicas,omitempty" validate:"omitempty,gte=0"`
	RefreshInterval string    `yaml:"refresh_interval,omitempty" json:"refresh_interval,omitempty"`
	MaxResultWindow int       `yaml:"max_result_window,omitempty" json:"max_result_window,omitempty" validate:"gte=0"`
	Dynamic         string    `yaml:"dynamic,omitempty" json:"dynamic,omitempty" validate:"omitempty,oneof=true false strict runtime"`
	Analysis        *Analysis `yaml:"analysis,omitempty" json:"analysis,omitempty" validate:"-"`
	Fields          []Field   `yaml:"fields,omitempty" json:"fields,omitempty" validate:"dive"`
}

// ValidationError reports an invalid settings declaration
type ValidationError struct {
	Path    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return "index settings: " + e.Message
	}
	return fmt.Sprintf("index settings: %s: %s", e.Path, e.Message)
}

// Validate checks the declaration: struct rules first, then duplicate
// names and references to analysis components
func (s *Settings) Validate() error {
	if err := validateStruct(s); err != nil {
		return err
	}
	return validateFields("fields", s.Fields, s.Analysis)
}

func validateFields(path string, fields []Field, analysis *Analysis) error {
	seen := make(map[string]bool, len(fields))
	for i, f := range fields {
		p := fmt.Sprintf("%s[%d]", path, i)
		if strings.TrimSpace(f.Name) == "" {
			return &ValidationError{Path: p, Message: "name required"}
		}
		if seen[f.Name] {
			return &ValidationError{Path: p, Message: fmt.Sprintf("duplicate field %q", f.Name)}
		}
		seen[f.Name] = true
		for _, a := range []string{f.Analyzer, f.SearchAnalyzer} {
			if a != "" && !builtinAnalyzer(a) && (analysis == nil || analysis.Analyzers[a] == nil) {
				return &ValidationError{Path: p, Message: fmt.Sprintf("unknown analyzer %q", a)}
			}
		}
		if f.Normalizer != "" && (analysis == nil || analysis.Normalizers[f.Normalizer] == nil) && f.Normalizer != "lowercase" {
			return &ValidationError{Path: p, Message: fmt.Sprintf("unknown normalizer %q", f.Normalizer)}
		}
		if err := validateFields(p+".properties", f.Properties, analysis); err != nil {
			return err
		}
	}
	return nil
}

var builtinAnalyzers = map[string]bool{
	"standard": true, "simple": true, "whitespace": true, "stop": true,
	"keyword": true, "pattern": true, "fingerprint": true, "english": true,
}

func builtinAnalyzer(name string) bool {
	return builtinAnalyzers[name]
}

// Parse decodes a YAML settings document and validates it
func Parse(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("index settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Load reads and validates a YAML settings file
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read index settings %s: %w", path, err)
	}
	return Parse(data)
}
