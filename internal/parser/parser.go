// Package parser turns free-text AI responses into typed records.
//
// Parsing never fails. Each response is tried, in order, as an embedded JSON
// object, as a set of individually quoted fields, and finally as plain prose;
// the first strategy that yields data wins. Typed entry points (ParseAnalysis,
// ParseNewspaper, ParseHeadline) collapse the outcome into a fully populated
// record so callers never branch on how the text was parsed.
package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"
)

// Strategy identifies which tier produced a Result.
type Strategy int

const (
	// StrategyJSON means a balanced JSON object was decoded strictly.
	StrategyJSON Strategy = iota
	// StrategyFields means fields were pulled out individually from malformed JSON.
	StrategyFields
	// StrategyFallback means nothing structured was found and a deterministic record was built.
	StrategyFallback
)

func (s Strategy) String() string {
	switch s {
	case StrategyJSON:
		return "json"
	case StrategyFields:
		return "fields"
	case StrategyFallback:
		return "fallback"
	}
	return "unknown"
}

// FieldKind is the expected type of a schema field.
type FieldKind int

const (
	KindString FieldKind = iota
	KindList
	KindInt
)

// Field is one expected value. Path uses dots for nested objects ("headline.main").
type Field struct {
	Path string
	Kind FieldKind
}

func (f Field) leaf() string {
	if i := strings.LastIndexByte(f.Path, '.'); i >= 0 {
		return f.Path[i+1:]
	}
	return f.Path
}

// Schema lists the fields a response is expected to carry.
type Schema struct {
	Fields []Field
}

// Result is the tagged outcome of Parse. Only fields that were found are present in the maps.
type Result struct {
	Strategy Strategy
	Strings  map[string]string
	Lists    map[string][]string
	Ints     map[string]int
	Raw      string
}

func newResult(strategy Strategy, raw string) Result {
	return Result{
		Strategy: strategy,
		Strings:  map[string]string{},
		Lists:    map[string][]string{},
		Ints:     map[string]int{},
		Raw:      raw,
	}
}

func (r Result) found() int {
	return len(r.Strings) + len(r.Lists) + len(r.Ints)
}

// String returns the string field at path, or "" when absent.
func (r Result) String(path string) string { return r.Strings[path] }

// List returns the list field at path, never nil.
func (r Result) List(path string) []string {
	if l := r.Lists[path]; l != nil {
		return l
	}
	return []string{}
}

// Int returns the int field at path and whether it was present.
func (r Result) Int(path string) (int, bool) {
	v, ok := r.Ints[path]
	return v, ok
}

// maxJSONCandidates bounds how many '{' positions are tried before giving up on tier one.
const maxJSONCandidates = 16

// Parse applies the three strategies in order and never panics.
func Parse(raw string, schema Schema) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = newResult(StrategyFallback, raw)
		}
	}()

	for i, start := 0, 0; i < maxJSONCandidates; i++ {
		obj, end, ok := nextBalancedObject(raw, start)
		if !ok {
			break
		}
		if res, ok := fromJSON(obj, raw, schema); ok {
			return res
		}
		start = end
	}

	if res, ok := fromFields(raw, schema); ok {
		return res
	}

	return newResult(StrategyFallback, raw)
}

// nextBalancedObject finds the first '{' at or after from whose braces balance,
// ignoring braces inside JSON strings. It returns the object text and the index
// just past the opening brace, so the caller can resume scanning from there.
func nextBalancedObject(s string, from int) (string, int, bool) {
	for from < len(s) {
		open := strings.IndexByte(s[from:], '{')
		if open < 0 {
			return "", len(s), false
		}
		open += from

		depth := 0
		inString := false
		escaped := false
		for i := open; i < len(s); i++ {
			c := s[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					return s[open : i+1], open + 1, true
				}
			}
		}
		// Unbalanced from here on; a later '{' cannot close either.
		return "", len(s), false
	}
	return "", len(s), false
}

func fromJSON(obj, raw string, schema Schema) (Result, bool) {
	dec := json.NewDecoder(strings.NewReader(obj))
	dec.UseNumber()

	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return Result{}, false
	}

	res := newResult(StrategyJSON, raw)
	for _, f := range schema.Fields {
		v, ok := lookup(doc, f.Path)
		if !ok || v == nil {
			continue
		}
		switch f.Kind {
		case KindString:
			if s, ok := jsonString(v); ok {
				res.Strings[f.Path] = s
			}
		case KindList:
			if l, ok := jsonList(v); ok {
				res.Lists[f.Path] = l
			}
		case KindInt:
			if n, ok := jsonInt(v); ok {
				res.Ints[f.Path] = n
			}
		}
	}

	if res.found() == 0 {
		return Result{}, false
	}
	return res, true
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func jsonString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	case []any:
		parts, _ := jsonList(t)
		return strings.Join(parts, "\n"), len(parts) > 0
	}
	return "", false
}

func jsonList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			s, ok := jsonString(item)
			if !ok {
				continue
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case string:
		if s := strings.TrimSpace(t); s != "" {
			return []string{s}, true
		}
		return []string{}, true
	}
	return nil, false
}

func jsonInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(math.Round(f)), true
	case string:
		return parseNumber(t)
	}
	return 0, false
}

func parseNumber(s string) (int, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(math.Round(f)), true
}

var fieldPatterns sync.Map // pattern key -> *regexp.Regexp

func fieldPattern(kind FieldKind, leaf string) *regexp.Regexp {
	key := fmt.Sprintf("%d:%s", kind, leaf)
	if re, ok := fieldPatterns.Load(key); ok {
		return re.(*regexp.Regexp)
	}

	name := regexp.QuoteMeta(leaf)
	var expr string
	switch kind {
	case KindString:
		expr = `"` + name + `"\s*:\s*"((?:[^"\\]|\\.)*)"`
	case KindList:
		expr = `"` + name + `"\s*:\s*\[([^\]]*)\]`
	case KindInt:
		expr = `"` + name + `"\s*:\s*"?(-?\d+(?:\.\d+)?)`
	}
	re := regexp.MustCompile(expr)
	fieldPatterns.Store(key, re)
	return re
}

func fromFields(raw string, schema Schema) (Result, bool) {
	res := newResult(StrategyFields, raw)
	textual := 0

	for _, f := range schema.Fields {
		m := fieldPattern(f.Kind, f.leaf()).FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		switch f.Kind {
		case KindString:
			res.Strings[f.Path] = strings.TrimSpace(unescape(m[1]))
			textual++
		case KindList:
			res.Lists[f.Path] = splitList(m[1])
			textual++
		case KindInt:
			if n, ok := parseNumber(m[1]); ok {
				res.Ints[f.Path] = n
			}
		}
	}

	if textual == 0 {
		return Result{}, false
	}
	return res, true
}

func unescape(s string) string {
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// splitList splits the inside of a JSON-ish array on commas, trimming quotes and
// whitespace from each element and dropping empty ones.
func splitList(inner string) []string {
	out := []string{}
	for _, part := range strings.Split(inner, ",") {
		item := strings.TrimSpace(part)
		item = strings.Trim(item, `"'`)
		item = strings.TrimSpace(unescape(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Truncate keeps the first n runes of s, then trims surrounding whitespace.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}
	return strings.TrimSpace(s)
}

// stripFences removes markdown code fences so fallback prose does not start with ```json.
func stripFences(s string) string {
	if !strings.Contains(s, "```") {
		return s
	}
	var b bytes.Buffer
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
