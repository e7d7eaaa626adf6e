// Package query translates engine-agnostic query descriptors into
// Elasticsearch / OpenSearch request bodies. It performs no I/O.
package query

// Operator is a condition operator
type Operator string

// Supported operators
const (
	OpEq        Operator = "="
	OpNe        Operator = "!="
	OpGt        Operator = ">"
	OpGte       Operator = ">="
	OpLt        Operator = "<"
	OpLte       Operator = "<="
	OpIn        Operator = "in"
	OpNotIn     Operator = "not in"
	OpBetween   Operator = "between"
	OpExists    Operator = "exists"
	OpNotExists Operator = "not exists"
	OpLike      Operator = "like"
	OpMatch     Operator = "match"
	OpHas       Operator = "has"
)

// Boolean joins a condition to the previous one
type Boolean string

// Boolean connectives
const (
	And Boolean = "and"
	Or  Boolean = "or"
)

// Condition is one predicate. Nested and Relation are alternatives to
// Attribute/Operator/Value.
type Condition struct {
	Attribute string      `json:"attribute,omitempty"`
	Operator  Operator    `json:"operator,omitempty"`
	Value     any         `json:"value,omitempty"`
	Boolean   Boolean     `json:"boolean,omitempty"`
	Nested    []Condition `json:"nested,omitempty"`
	Relation  *Relation   `json:"relation,omitempty"`
}

// Relation is a has-relation predicate on a nested path. Operator and
// Count express an optional threshold on the number of matching children.
type Relation struct {
	Name       string      `json:"name"`
	Conditions []Condition `json:"conditions,omitempty"`
	Operator   Operator    `json:"operator,omitempty"`
	Count      int         `json:"count,omitempty"`
}

// Where builds an and-joined condition
func Where(attribute string, op Operator, value any) Condition {
	return Condition{Attribute: attribute, Operator: op, Value: value, Boolean: And}
}

// OrWhere builds a condition starting a new OR-group
func OrWhere(attribute string, op Operator, value any) Condition {
	return Condition{Attribute: attribute, Operator: op, Value: value, Boolean: Or}
}

// Group builds a parenthesised condition group
func Group(boolean Boolean, conds ...Condition) Condition {
	return Condition{Boolean: boolean, Nested: conds}
}

// Has builds a relation predicate
func Has(name string, conds []Condition, op Operator, count int) Condition {
	return Condition{
		Operator: OpHas,
		Boolean:  And,
		Relation: &Relation{Name: name, Conditions: conds, Operator: op, Count: count},
	}
}

// Direction is a sort direction
type Direction string

// Sort directions
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// Sort is one sort key
type Sort struct {
	Field     string    `json:"field"`
	Direction Direction `json:"direction,omitempty"`
}

// SearchParams drives full-text search through multi_match
type SearchParams struct {
	Query     string   `json:"query"`
	Fields    []string `json:"fields,omitempty"`
	Type      string   `json:"type,omitempty"`
	Fuzziness string   `json:"fuzziness,omitempty"`
	Operator  string   `json:"operator,omitempty"`
}

// multi_match types
const (
	TypeBestFields   = "best_fields"
	TypeMostFields   = "most_fields"
	TypeCrossFields  = "cross_fields"
	TypePhrase       = "phrase"
	TypePhrasePrefix = "phrase_prefix"
	TypeBoolPrefix   = "bool_prefix"
)

var searchTypes = map[string]bool{
	TypeBestFields:   true,
	TypeMostFields:   true,
	TypeCrossFields:  true,
	TypePhrase:       true,
	TypePhrasePrefix: true,
	TypeBoolPrefix:   true,
}

// Options holds sort, paging and free-form request options. Limit 0 means unset.
type Options struct {
	Sort      []Sort         `json:"sort,omitempty"`
	Skip      int            `json:"skip,omitempty"`
	Limit     int            `json:"limit,omitempty"`
	Search    *SearchParams  `json:"search,omitempty"`
	Highlight []string       `json:"highlight,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Descriptor describes one read
type Descriptor struct {
	Conditions []Condition    `json:"conditions,omitempty"`
	Options    Options        `json:"options"`
	Columns    []string       `json:"columns,omitempty"`
	Stash      map[string]any `json:"stash,omitempty"`
}

// AllColumns reports whether the projection selects every column
func (d *Descriptor) AllColumns() bool {
	return allColumns(d.Columns)
}

func allColumns(columns []string) bool {
	if len(columns) == 0 {
		return true
	}
	for _, c := range columns {
		if c == "*" {
			return true
		}
	}
	return false
}

// Changes is the patch applied by multi-document updates
type Changes struct {
	Set map[string]any `json:"set,omitempty"`
	Inc map[string]any `json:"inc,omitempty"`
}

// Empty reports whether there is nothing to apply
func (c Changes) Empty() bool {
	return len(c.Set) == 0 && len(c.Inc) == 0
}

// PitCursor positions a point-in-time page
type PitCursor struct {
	ID          string `json:"id"`
	SearchAfter []any  `json:"search_after,omitempty"`
	KeepAlive   string `json:"keep_alive,omitempty"`
}

// KeywordResolver maps a field to its exact-match keyword field
type KeywordResolver interface {
	Keyword(field string) (string, bool)
}

// KeywordMap is a KeywordResolver backed by a plain map
type KeywordMap map[string]string

// Keyword implements KeywordResolver
func (m KeywordMap) Keyword(field string) (string, bool) {
	k, ok := m[field]
	return k, ok
}
