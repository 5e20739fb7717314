package card

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Kind identifies which member of the Value union is populated.
type Kind uint8

const (
	KindNull Kind = iota
	KindString
	KindNumber
	KindBool
	KindList
	KindMap
)

// Value is a dynamically shaped field of a card. Numbers keep the literal
// text they were decoded from so that their canonical form is stable.
type Value struct {
	kind Kind
	str  string
	b    bool
	list []Value
	m    map[string]Value
}

// Null returns the null Value. The zero Value is also null.
func Null() Value { return Value{} }

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Number returns a number Value from its JSON literal.
func Number(literal string) Value { return Value{kind: KindNumber, str: literal} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// List returns a list Value holding items.
func List(items ...Value) Value { return Value{kind: KindList, list: items} }

// Map returns a map Value holding fields. The map is not copied.
func Map(fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindMap, m: fields}
}

// Kind reports the populated member.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is null or missing.
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the raw string of a string Value and "" for every other kind.
func (v Value) Text() string {
	if v.kind == KindString {
		return v.str
	}
	return ""
}

// Items returns the elements of a list Value.
func (v Value) Items() []Value {
	if v.kind == KindList {
		return v.list
	}
	return nil
}

// Len returns the number of list elements or map fields.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindMap:
		return len(v.m)
	case KindString:
		return utf8.RuneCountInString(v.str)
	}
	return 0
}

// Has reports whether a map Value contains key.
func (v Value) Has(key string) bool {
	if v.kind != KindMap {
		return false
	}
	_, ok := v.m[key]
	return ok
}

// Get returns the field key of a map Value, or null when v is not a map or
// the key is missing.
func (v Value) Get(key string) Value {
	if v.kind != KindMap {
		return Value{}
	}
	return v.m[key]
}

// With returns a copy of a map Value with key set to field. A non-map v is
// treated as an empty map.
func (v Value) With(key string, field Value) Value {
	out := make(map[string]Value, len(v.m)+1)
	if v.kind == KindMap {
		for k, f := range v.m {
			out[k] = f
		}
	}
	out[key] = field
	return Map(out)
}

// Truthy follows the usual scripting notion of emptiness: null, "", zero,
// false and empty containers are false.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindString:
		return v.str != ""
	case KindNumber:
		f, err := strconv.ParseFloat(v.str, 64)
		return err != nil || f != 0
	case KindBool:
		return v.b
	case KindList:
		return len(v.list) > 0
	case KindMap:
		return len(v.m) > 0
	}
	return false
}

// String returns the canonical text of v used when building seed strings.
// Lists join the canonical text of their non-empty elements with '|'; maps
// are rendered as JSON with sorted keys.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return canonicalNumber(v.str)
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	case KindList:
		parts := make([]string, 0, len(v.list))
		for _, item := range v.list {
			if s := item.String(); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "|")
	case KindMap:
		var sb strings.Builder
		writeCanonicalJSON(&sb, v)
		return sb.String()
	}
	return ""
}

// writeCanonicalJSON renders v with sorted keys, ", " and ": " separators and
// non-ASCII text left unescaped.
func writeCanonicalJSON(sb *strings.Builder, v Value) {
	switch v.kind {
	case KindNull:
		sb.WriteString("null")
	case KindString:
		writeJSONString(sb, v.str)
	case KindNumber:
		sb.WriteString(canonicalNumber(v.str))
	case KindBool:
		sb.WriteString(strconv.FormatBool(v.b))
	case KindList:
		sb.WriteByte('[')
		for i, item := range v.list {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeCanonicalJSON(sb, item)
		}
		sb.WriteByte(']')
	case KindMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteString(", ")
			}
			writeJSONString(sb, k)
			sb.WriteString(": ")
			writeCanonicalJSON(sb, v.m[k])
		}
		sb.WriteByte('}')
	}
}

func writeJSONString(sb *strings.Builder, s string) {
	const hex = "0123456789abcdef"
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 {
				sb.WriteString(`\u00`)
				sb.WriteByte(hex[r>>4])
				sb.WriteByte(hex[r&0xf])
				continue
			}
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
}

// canonicalNumber keeps integer literals as written and renders fractional
// or exponent literals as the shortest round-trip decimal: fixed notation
// with at least one fractional digit for exponents in [-4, 16), scientific
// notation otherwise.
func canonicalNumber(literal string) string {
	if !strings.ContainsAny(literal, ".eE") {
		return literal
	}
	f, err := strconv.ParseFloat(literal, 64)
	if err != nil {
		return literal
	}
	if f == 0 {
		if strings.HasPrefix(literal, "-") {
			return "-0.0"
		}
		return "0.0"
	}
	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, _ := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if exp < -4 || exp >= 16 {
		return sci
	}
	fixed := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(fixed, ".") {
		fixed += ".0"
	}
	return fixed
}

// fromAny converts a decoded JSON tree into a Value.
func fromAny(x any) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case string:
		return String(t)
	case json.Number:
		return Number(t.String())
	case float64:
		return Number(strconv.FormatFloat(t, 'g', -1, 64))
	case bool:
		return Bool(t)
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			items[i] = fromAny(item)
		}
		return List(items...)
	case map[string]any:
		fields := make(map[string]Value, len(t))
		for k, item := range t {
			fields[k] = fromAny(item)
		}
		return Map(fields)
	}
	return Value{}
}

// toAny converts v back into a tree encodable by a JSON encoder.
func toAny(v Value) any {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return json.Number(v.str)
	case KindBool:
		return v.b
	case KindList:
		out := make([]any, len(v.list))
		for i, item := range v.list {
			out[i] = toAny(item)
		}
		return out
	case KindMap:
		out := make(map[string]any, len(v.m))
		for k, item := range v.m {
			out[k] = toAny(item)
		}
		return out
	}
	return nil
}

// MarshalJSON encodes v as plain JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(toAny(v))
}

// UnmarshalJSON decodes any JSON document into v, keeping number literals.
func (v *Value) UnmarshalJSON(data []byte) error {
	var x any
	dec := json.NewDecoder(strings.NewReader(string(data)))
	dec.UseNumber()
	if err := dec.Decode(&x); err != nil {
		return err
	}
	*v = fromAny(x)
	return nil
}
