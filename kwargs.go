package weathermart

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Kind discriminates the variant held by a Value.
type Kind int

const (
	KindBool Kind = iota + 1
	KindString
	KindInt
	KindFloat
	KindInts
	KindFloats
	KindStrings
)

// Value is the variant type for source-specific extra options. Retrievers
// receive values as passed; the canonicalizer pattern-matches on the kind to
// build the cache path fragment.
type Value struct {
	kind Kind

	b  bool
	s  string
	i  int64
	f  float64
	is []int64
	fs []float64
	ss []string
}

func Bool(v bool) Value     { return Value{kind: KindBool, b: v} }
func String(v string) Value { return Value{kind: KindString, s: v} }
func Int(v int) Value       { return Value{kind: KindInt, i: int64(v)} }
func Float(v float64) Value { return Value{kind: KindFloat, f: v} }

func Ints(v ...int) Value {
	is := make([]int64, len(v))
	for i, n := range v {
		is[i] = int64(n)
	}
	return Value{kind: KindInts, is: is}
}

func Floats(v ...float64) Value { return Value{kind: KindFloats, fs: append([]float64(nil), v...)} }
func Strings(v ...string) Value { return Value{kind: KindStrings, ss: append([]string(nil), v...)} }

// Kind returns the variant's discriminator; zero for the zero Value.
func (v Value) Kind() Kind { return v.kind }

// Accessors for retriever implementations. Each returns the zero value when
// the Value holds a different kind.
func (v Value) AsBool() bool         { return v.b }
func (v Value) AsString() string     { return v.s }
func (v Value) AsInt() int           { return int(v.i) }
func (v Value) AsFloat() float64     { return v.f }
func (v Value) AsInts() []int64      { return v.is }
func (v Value) AsFloats() []float64  { return v.fs }
func (v Value) AsStrings() []string  { return v.ss }

// String renders the value for error messages.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindString:
		return strconv.Quote(v.s)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindInts:
		return fmt.Sprint(v.is)
	case KindFloats:
		return fmt.Sprint(v.fs)
	case KindStrings:
		return fmt.Sprint(v.ss)
	default:
		return "<unset>"
	}
}

// Kwargs maps option names to variant values.
type Kwargs map[string]Value

// Names returns the option names in sorted order.
func (k Kwargs) Names() []string {
	out := make([]string, 0, len(k))
	for name := range k {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Fragment computes the canonical cache-path fragment: the non-empty tokens
// of every option, joined with "_" in sorted key order. Pure function of its
// input; never contains a path separator.
func (k Kwargs) Fragment() (string, error) {
	var tokens []string
	for _, name := range k.Names() {
		tok, err := FormatKwarg(name, k[name])
		if err != nil {
			return "", err
		}
		if tok != "" {
			tokens = append(tokens, tok)
		}
	}
	return strings.Join(tokens, "_"), nil
}

// kwargFormat carries the rendering prefix and documented default (if any)
// for a known option name. Options not listed render with no prefix and have
// no default.
type kwargFormat struct {
	prefix string
	def    *int64
}

var kwargFormats = map[string]kwargFormat{
	"levels":           {prefix: "level"},
	"step_hours":       {prefix: "step"},
	"ensemble_members": {prefix: "ens"},
	"use_limitation":   {prefix: "limitation", def: int64ptr(20)},
}

func int64ptr(v int64) *int64 { return &v }

// FormatKwarg maps one (key, value) pair to its cache-path token. An empty
// token means the option is omitted from the fragment (false booleans and
// default-valued options keep the base path stable). Malformed values fail
// with a KwargValueError.
func FormatKwarg(key string, v Value) (string, error) {
	spec := kwargFormats[key]

	switch v.Kind() {
	case KindBool:
		if !v.b {
			return "", nil
		}
		// The key itself becomes the token, so it gets the same separator
		// rejection and cleanup as a string value.
		return sanitizeStringToken(key, key)

	case KindInt:
		if spec.def != nil && v.i == *spec.def {
			return "", nil
		}
		return spec.prefix + strconv.FormatInt(v.i, 10), nil

	case KindFloat:
		if spec.def != nil && v.f == float64(*spec.def) {
			return "", nil
		}
		return spec.prefix + formatFloatToken(v.f), nil

	case KindInts:
		if len(v.is) == 0 {
			return "", &KwargValueError{Key: key, Value: v.String(), Reason: "empty list"}
		}
		for i := 1; i < len(v.is); i++ {
			if v.is[i] == v.is[i-1] {
				return "", &KwargValueError{Key: key, Value: v.String(), Reason: "duplicate entries"}
			}
			if v.is[i] < v.is[i-1] {
				return "", &KwargValueError{Key: key, Value: v.String(), Reason: "not sorted ascending"}
			}
		}
		if len(v.is) == 1 {
			if spec.def != nil && v.is[0] == *spec.def {
				return "", nil
			}
			return spec.prefix + strconv.FormatInt(v.is[0], 10), nil
		}
		return fmt.Sprintf("%s%dto%d", spec.prefix, v.is[0], v.is[len(v.is)-1]), nil

	case KindFloats:
		if len(v.fs) == 0 {
			return "", &KwargValueError{Key: key, Value: v.String(), Reason: "empty list"}
		}
		for i := 1; i < len(v.fs); i++ {
			if v.fs[i] == v.fs[i-1] {
				return "", &KwargValueError{Key: key, Value: v.String(), Reason: "duplicate entries"}
			}
			if v.fs[i] < v.fs[i-1] {
				return "", &KwargValueError{Key: key, Value: v.String(), Reason: "not sorted ascending"}
			}
		}
		if len(v.fs) == 1 && spec.def != nil && v.fs[0] == float64(*spec.def) {
			return "", nil
		}
		parts := make([]string, len(v.fs))
		for i, f := range v.fs {
			parts[i] = formatFloatToken(f)
		}
		return spec.prefix + strings.Join(parts, "_"), nil

	case KindString:
		tok, err := sanitizeStringToken(key, v.s)
		if err != nil {
			return "", err
		}
		return spec.prefix + tok, nil

	case KindStrings:
		if len(v.ss) == 0 {
			return "", &KwargValueError{Key: key, Value: v.String(), Reason: "empty list"}
		}
		parts := make([]string, len(v.ss))
		for i, s := range v.ss {
			tok, err := sanitizeStringToken(key, s)
			if err != nil {
				return "", err
			}
			parts[i] = tok
		}
		return spec.prefix + strings.Join(parts, "_"), nil

	default:
		return "", &KwargValueError{Key: key, Value: v.String(), Reason: "unset value"}
	}
}

// formatFloatToken renders a float with the decimal point stripped
// (1.1 -> "11") so the token stays filesystem-safe.
func formatFloatToken(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	return strings.ReplaceAll(s, ".", "")
}

// sanitizeStringToken rejects path separators, strips dots and replaces any
// other punctuation with underscores.
func sanitizeStringToken(key, s string) (string, error) {
	if strings.ContainsAny(s, `/\`) {
		return "", &KwargValueError{Key: key, Value: strconv.Quote(s), Reason: "contains a path separator"}
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.':
			// dropped
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String(), nil
}
