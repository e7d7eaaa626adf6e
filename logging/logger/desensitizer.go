package logger

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ncobase/querybridge/config"
	"github.com/sirupsen/logrus"
)

// maxDepth bounds recursion into nested params
const maxDepth = 16

// Desensitizer masks sensitive values inside log fields and request params.
// Keys are matched against the configured sensitive field names, string
// values against the configured patterns.
type Desensitizer struct {
	config   *config.Desensitization
	patterns []*regexp.Regexp
}

// NewDesensitizer creates a new desensitizer instance
func NewDesensitizer(cfg *config.Desensitization) *Desensitizer {
	if cfg == nil {
		cfg = config.DefaultDesensitization()
	}
	d := &Desensitizer{config: cfg}

	for _, pattern := range cfg.CustomPatterns {
		if regex, err := regexp.Compile(pattern); err == nil {
			d.patterns = append(d.patterns, regex)
		}
	}

	return d
}

// DesensitizeFields processes log fields and masks sensitive data
func (d *Desensitizer) DesensitizeFields(fields logrus.Fields) logrus.Fields {
	if !d.config.Enabled || len(fields) == 0 {
		return fields
	}

	result := make(logrus.Fields, len(fields))
	for key, value := range fields {
		result[key] = d.desensitizeValue(key, value, 0)
	}
	return result
}

// DeepDesensitize returns a masked copy of data. Values that are not plain
// JSON containers are round-tripped through encoding/json first, so the
// result is always safe to serialize.
func (d *Desensitizer) DeepDesensitize(data any) any {
	if !d.config.Enabled || data == nil {
		return data
	}
	return d.desensitizeValue("", normalize(data), 0)
}

func (d *Desensitizer) desensitizeValue(key string, value any, depth int) any {
	if value == nil || depth > maxDepth {
		return value
	}

	if d.isSensitiveField(key) {
		return d.maskValue(value)
	}

	switch v := value.(type) {
	case string:
		return d.desensitizeString(v)
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = d.desensitizeValue(k, item, depth+1)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = d.desensitizeValue("", item, depth+1)
		}
		return out
	case bool, float64, float32, int, int32, int64, uint, uint32, uint64, json.Number:
		return v
	default:
		return d.desensitizeValue(key, normalize(v), depth+1)
	}
}

// normalize converts arbitrary values to plain JSON containers
func normalize(value any) any {
	switch value.(type) {
	case map[string]any, []any, string, bool, float64, nil:
		return value
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return value
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return value
	}
	return out
}

// isSensitiveField checks if field name contains sensitive keywords
func (d *Desensitizer) isSensitiveField(fieldName string) bool {
	if fieldName == "" {
		return false
	}

	lowerName := strings.ToLower(fieldName)
	for _, sensitiveField := range d.config.SensitiveFields {
		lowerSensitiveField := strings.ToLower(sensitiveField)
		if d.config.ExactFieldMatch {
			if lowerName == lowerSensitiveField {
				return true
			}
		} else if strings.Contains(lowerName, lowerSensitiveField) {
			return true
		}
	}
	return false
}

// desensitizeString applies pattern-based desensitization to strings
func (d *Desensitizer) desensitizeString(str string) string {
	if str == "" {
		return str
	}
	for _, pattern := range d.patterns {
		str = pattern.ReplaceAllString(str, d.mask())
	}
	return str
}

func (d *Desensitizer) maskValue(value any) any {
	if s, ok := value.(string); ok {
		if s == "" {
			return s
		}
		return d.maskString(s)
	}
	return d.mask()
}

// maskString keeps the configured prefix/suffix around a fixed mask
func (d *Desensitizer) maskString(str string) string {
	prefix, suffix := d.config.PreservePrefix, d.config.PreserveSuffix
	if (prefix == 0 && suffix == 0) || len(str) <= prefix+suffix {
		return d.mask()
	}
	return str[:prefix] + d.mask() + str[len(str)-suffix:]
}

func (d *Desensitizer) mask() string {
	char := d.config.MaskChar
	if char == "" {
		char = "*"
	}
	n := d.config.FixedMaskLength
	if n <= 0 {
		n = 6
	}
	return strings.Repeat(char, n)
}
