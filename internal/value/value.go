// Package value implements the Hurl runtime value model: a small tagged
// union that every query, filter, and template expression evaluates to.
package value

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Kind tags a Value's concrete shape.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindBytes
	KindList
	KindObject
	KindDate
	KindRegex
	KindUnit
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	case KindDate:
		return "date"
	case KindRegex:
		return "regex"
	case KindUnit:
		return "unit"
	default:
		return "unknown"
	}
}

// Object is an ordered string->Value map: insertion order is preserved
// so JSON/template rendering round-trips predictably.
type Object struct {
	keys   []string
	values map[string]Value
}

func NewObject() *Object {
	return &Object{values: make(map[string]Value)}
}

func (o *Object) Set(key string, v Value) {
	if _, exists := o.values[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *Object) Keys() []string {
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

func (o *Object) Len() int { return len(o.keys) }

// Value is the tagged variant described in spec §3.
type Value struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	bytes []byte
	list  []Value
	obj   *Object
	t     time.Time
}

func Null() Value                { return Value{kind: KindNull} }
func Unit() Value                { return Value{kind: KindUnit} }
func Bool(b bool) Value          { return Value{kind: KindBool, b: b} }
func Int(i int64) Value          { return Value{kind: KindInt, i: i} }
func Float(f float64) Value      { return Value{kind: KindFloat, f: f} }
func Str(s string) Value         { return Value{kind: KindString, s: s} }
func Bytes(b []byte) Value       { return Value{kind: KindBytes, bytes: b} }
func List(vs []Value) Value      { return Value{kind: KindList, list: vs} }
func Obj(o *Object) Value        { return Value{kind: KindObject, obj: o} }
func Date(t time.Time) Value     { return Value{kind: KindDate, t: t} }
func Regex(pattern string) Value { return Value{kind: KindRegex, s: pattern} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() (bool, bool)       { return v.b, v.kind == KindBool }
func (v Value) AsInt() (int64, bool)       { return v.i, v.kind == KindInt }
func (v Value) AsFloat() (float64, bool)   { return v.f, v.kind == KindFloat }
func (v Value) AsString() (string, bool)   { return v.s, v.kind == KindString }
func (v Value) AsBytes() ([]byte, bool)    { return v.bytes, v.kind == KindBytes }
func (v Value) AsList() ([]Value, bool)    { return v.list, v.kind == KindList }
func (v Value) AsObject() (*Object, bool)  { return v.obj, v.kind == KindObject }
func (v Value) AsDate() (time.Time, bool)  { return v.t, v.kind == KindDate }
func (v Value) AsRegexSrc() (string, bool) { return v.s, v.kind == KindRegex }

// AsNumber coerces Int or Float to float64; used by ordering comparisons.
func (v Value) AsNumber() (float64, bool) {
	switch v.kind {
	case KindInt:
		return float64(v.i), true
	case KindFloat:
		return v.f, true
	default:
		return 0, false
	}
}

func (v Value) IsEmpty() bool {
	switch v.kind {
	case KindNull:
		return true
	case KindString:
		return v.s == ""
	case KindBytes:
		return len(v.bytes) == 0
	case KindList:
		return len(v.list) == 0
	case KindObject:
		return v.obj == nil || v.obj.Len() == 0
	default:
		return false
	}
}

// Stringify renders a Value for a string-producing template context
// (spec §4.2). Bytes is an error in that context; callers check Kind
// first for byte-accepting bodies.
func (v Value) Stringify() (string, error) {
	switch v.kind {
	case KindNull:
		return "null", nil
	case KindBool:
		if v.b {
			return "true", nil
		}
		return "false", nil
	case KindInt:
		return strconv.FormatInt(v.i, 10), nil
	case KindFloat:
		return FormatFloat(v.f), nil
	case KindString:
		return v.s, nil
	case KindBytes:
		return "", fmt.Errorf("cannot stringify bytes value in this context")
	case KindList, KindObject:
		return v.toJSONCompact(), nil
	case KindDate:
		return v.t.UTC().Format(time.RFC3339), nil
	case KindRegex:
		return v.s, nil
	case KindUnit:
		return "", nil
	default:
		return "", fmt.Errorf("cannot stringify value of kind %s", v.kind)
	}
}

// FormatFloat is the single canonical decimal rule for Float values,
// resolving spec.md §9 Open Question 3: shortest round-tripping decimal.
// Used identically by template rendering and predicate repr so the two
// never disagree.
func FormatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func (v Value) toJSONCompact() string {
	var sb strings.Builder
	v.writeJSON(&sb)
	return sb.String()
}

func (v Value) writeJSON(sb *strings.Builder) {
	switch v.kind {
	case KindNull, KindUnit:
		sb.WriteString("null")
	case KindBool:
		if v.b {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case KindInt:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case KindFloat:
		sb.WriteString(FormatFloat(v.f))
	case KindString:
		sb.WriteString(strconv.Quote(v.s))
	case KindBytes:
		sb.WriteString(strconv.Quote(string(v.bytes)))
	case KindDate:
		sb.WriteString(strconv.Quote(v.t.UTC().Format(time.RFC3339)))
	case KindRegex:
		sb.WriteString(strconv.Quote(v.s))
	case KindList:
		sb.WriteByte('[')
		for i, e := range v.list {
			if i > 0 {
				sb.WriteByte(',')
			}
			e.writeJSON(sb)
		}
		sb.WriteByte(']')
	case KindObject:
		sb.WriteByte('{')
		if v.obj != nil {
			for i, k := range v.obj.keys {
				if i > 0 {
					sb.WriteByte(',')
				}
				sb.WriteString(strconv.Quote(k))
				sb.WriteByte(':')
				val := v.obj.values[k]
				val.writeJSON(sb)
			}
		}
		sb.WriteByte('}')
	}
}

// Repr is a human diagnostic representation (not necessarily valid JSON)
// used in predicate failure messages.
func (v Value) Repr() string {
	switch v.kind {
	case KindString:
		return strconv.Quote(v.s)
	case KindBytes:
		return fmt.Sprintf("hex,%x;", v.bytes)
	default:
		return v.toJSONCompact()
	}
}

// Equal implements spec §4.5 structural equality: number<->number
// compares numerically, bool<->bool and str<->str strict, lists/objects
// structurally.
func Equal(a, b Value) bool {
	an, aok := a.AsNumber()
	bn, bok := b.AsNumber()
	if aok && bok {
		return an == bn
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull, KindUnit:
		return true
	case KindBool:
		return a.b == b.b
	case KindString:
		return a.s == b.s
	case KindBytes:
		return string(a.bytes) == string(b.bytes)
	case KindDate:
		return a.t.Equal(b.t)
	case KindRegex:
		return a.s == b.s
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if a.obj == nil || b.obj == nil {
			return a.obj == b.obj
		}
		if a.obj.Len() != b.obj.Len() {
			return false
		}
		for _, k := range a.obj.keys {
			av := a.obj.values[k]
			bv, ok := b.obj.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Less implements spec §4.5 ordering: defined for numbers (int/float
// mixed) and Dates; any other pairing is an error.
func Less(a, b Value) (bool, error) {
	an, aok := a.AsNumber()
	bn, bok := b.AsNumber()
	if aok && bok {
		return an < bn, nil
	}
	at, aok := a.AsDate()
	bt, bok := b.AsDate()
	if aok && bok {
		return at.Before(bt), nil
	}
	return false, fmt.Errorf("ordering not defined between %s and %s", a.kind, b.kind)
}

// Contains implements spec §4.5 `contains`: substring/sub-byte on
// Str/Bytes, deep-equality membership on List.
func Contains(haystack, needle Value) (bool, error) {
	switch haystack.kind {
	case KindString:
		s, ok := needle.AsString()
		if !ok {
			return false, fmt.Errorf("contains on string requires a string operand")
		}
		return strings.Contains(haystack.s, s), nil
	case KindBytes:
		b, ok := needle.AsBytes()
		if !ok {
			return false, fmt.Errorf("contains on bytes requires a bytes operand")
		}
		return bytesContains(haystack.bytes, b), nil
	case KindList:
		for _, e := range haystack.list {
			if Equal(e, needle) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("contains not applicable to %s", haystack.kind)
	}
}

func bytesContains(haystack, needle []byte) bool {
	if len(needle) == 0 {
		return true
	}
	if len(needle) > len(haystack) {
		return false
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// SortedObjectKeys returns o's keys in sorted order, for callers that
// want deterministic key order distinct from insertion order. No
// serializer in this module calls it; JSON rendering and reports use
// insertion order.
func SortedObjectKeys(o *Object) []string {
	keys := o.Keys()
	sort.Strings(keys)
	return keys
}

func (v Value) String() string {
	s, err := v.Stringify()
	if err != nil {
		return v.Repr()
	}
	return s
}
