package redact

import (
	"fmt"
	"regexp"
)

// Token is the literal substituted for every matched sensitive value.
const Token = "[REDACTED]"

// pattern is a named sensitive-data matcher. Order matters: patterns are
// applied in sequence against each string leaf, and several may fire on the
// same leaf.
type pattern struct {
	name string
	re   *regexp.Regexp
}

// defaultPatterns cover the identifier classes analysts commonly paste into
// free-text fields. None of them can match Token, which keeps Redact
// idempotent: a second pass over redacted output changes nothing.
var defaultPatterns = []pattern{
	{"tax_id", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
	{"email", regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{"payment_card", regexp.MustCompile(`\b\d{4}[ -]?\d{4}[ -]?\d{4}[ -]?\d{4}\b`)},
	{"phone", regexp.MustCompile(`(?:\(\d{3}\)\s?|\b\d{3}[-. ])\d{3}[-. ]?\d{4}\b`)},
	{"ipv4", regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)},
	{"passport", regexp.MustCompile(`\b[A-Z]{1,2}\d{7,9}\b`)},
	{"api_token", regexp.MustCompile(`\b[A-Za-z0-9]{24,}\b`)},
	{"coordinates", regexp.MustCompile(`-?\d{1,3}\.\d{4,}\s*,\s*-?\d{1,3}\.\d{4,}`)},
}

// Result is the outcome of one redaction pass.
type Result struct {
	Payload map[string]any
	Applied bool
	// Fields lists every altered leaf as "dotted.path[idx]:patternName".
	Fields []string
}

// Redactor scans arbitrary nested payloads for sensitive values. It holds no
// mutable state and is safe for concurrent use.
type Redactor struct {
	patterns []pattern
}

// NewRedactor returns a Redactor with the default pattern set.
func NewRedactor() *Redactor {
	return &Redactor{patterns: defaultPatterns}
}

// Redact returns a deep copy of payload with every sensitive match replaced
// by Token. The input is never mutated, and malformed nodes (anything that is
// not a string, map, or array) pass through unchanged.
func (r *Redactor) Redact(payload map[string]any) Result {
	res := Result{Payload: make(map[string]any, len(payload))}
	for key, val := range payload {
		res.Payload[key] = r.redactValue(val, key, &res.Fields)
	}
	res.Applied = len(res.Fields) > 0
	return res
}

func (r *Redactor) redactValue(v any, path string, fields *[]string) any {
	switch val := v.(type) {
	case string:
		return r.redactString(val, path, fields)
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, sub := range val {
			out[key] = r.redactValue(sub, path+"."+key, fields)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, sub := range val {
			out[i] = r.redactValue(sub, fmt.Sprintf("%s[%d]", path, i), fields)
		}
		return out
	default:
		// Numbers, booleans, nulls, and any unexpected node pass through.
		return val
	}
}

func (r *Redactor) redactString(s, path string, fields *[]string) string {
	for _, p := range r.patterns {
		if p.re.MatchString(s) {
			s = p.re.ReplaceAllString(s, Token)
			*fields = append(*fields, path+":"+p.name)
		}
	}
	return s
}
