// Package filter implements the chained Value->Value transforms of
// spec §4.4: each hast.Filter names one step and carries its already
// AST-parsed argument templates; Apply renders those templates against
// the active variable store and runs the step.
package filter

import (
	"encoding/base64"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/query"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

// Apply runs the whole filter chain in order, feeding each step's output
// into the next.
func Apply(filters []hast.Filter, in value.Value, store *render.Store) (value.Value, error) {
	cur := in
	for _, f := range filters {
		next, err := applyOne(f, cur, store)
		if err != nil {
			return value.Value{}, err
		}
		cur = next
	}
	return cur, nil
}

func applyOne(f hast.Filter, in value.Value, store *render.Store) (value.Value, error) {
	args, err := renderArgs(f, store)
	if err != nil {
		return value.Value{}, err
	}

	switch f.Name {
	case "base64Decode":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
		}
		return value.Bytes(decoded), nil
	case "base64Encode":
		b, ok := bytesOf(in)
		if !ok {
			return typeErr(f, "string or bytes")
		}
		return value.Str(base64.StdEncoding.EncodeToString(b)), nil
	case "count":
		switch in.Kind() {
		case value.KindList:
			l, _ := in.AsList()
			return value.Int(int64(len(l))), nil
		case value.KindObject:
			o, _ := in.AsObject()
			return value.Int(int64(o.Len())), nil
		case value.KindString:
			s, _ := in.AsString()
			return value.Int(int64(len([]rune(s)))), nil
		case value.KindBytes:
			b, _ := in.AsBytes()
			return value.Int(int64(len(b))), nil
		default:
			return typeErr(f, "list, object, string, or bytes")
		}
	case "nth":
		idx, err := argInt(f, args, 0)
		if err != nil {
			return value.Value{}, err
		}
		l, ok := in.AsList()
		if !ok {
			return typeErr(f, "list")
		}
		if idx < 0 || int(idx) >= len(l) {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: fmt.Sprintf("index %d out of range (len %d)", idx, len(l)), Span: f.Span}
		}
		return l[idx], nil
	case "decode":
		b, ok := bytesOf(in)
		if !ok {
			return typeErr(f, "string or bytes")
		}
		enc := args[0]
		decoded, err := decodeCharset(b, enc)
		if err != nil {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
		}
		return value.Str(decoded), nil
	case "format":
		t, ok := in.AsDate()
		if !ok {
			return typeErr(f, "date")
		}
		return value.Str(t.Format(goLayout(args[0]))), nil
	case "htmlEscape":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		return value.Str(html.EscapeString(s)), nil
	case "htmlUnescape":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		return value.Str(html.UnescapeString(s)), nil
	case "jsonpath":
		return applyJSONPath(f, in, args[0])
	case "regex":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		re, err := regexp.Compile(args[0])
		if err != nil {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
		}
		m := re.FindStringSubmatch(s)
		if m == nil {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: "regex did not match", Span: f.Span}
		}
		if len(m) > 1 {
			return value.Str(m[1]), nil
		}
		return value.Str(m[0]), nil
	case "replace":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		re, err := regexp.Compile(args[0])
		if err != nil {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
		}
		return value.Str(re.ReplaceAllString(s, args[1])), nil
	case "split":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		parts := strings.Split(s, args[0])
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.Str(p)
		}
		return value.List(items), nil
	case "toDate":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		t, err := time.Parse(goLayout(args[0]), s)
		if err != nil {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
		}
		return value.Date(t), nil
	case "toFloat":
		switch in.Kind() {
		case value.KindFloat:
			return in, nil
		case value.KindInt:
			i, _ := in.AsInt()
			return value.Float(float64(i)), nil
		case value.KindString:
			s, _ := in.AsString()
			f64, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
			}
			return value.Float(f64), nil
		default:
			return typeErr(f, "int, float, or string")
		}
	case "toInt":
		switch in.Kind() {
		case value.KindInt:
			return in, nil
		case value.KindFloat:
			f64, _ := in.AsFloat()
			return value.Int(int64(f64)), nil
		case value.KindString:
			s, _ := in.AsString()
			i64, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
			}
			return value.Int(i64), nil
		default:
			return typeErr(f, "int, float, or string")
		}
	case "urlDecode":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		decoded, err := url.QueryUnescape(s)
		if err != nil {
			return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
		}
		return value.Str(decoded), nil
	case "urlEncode":
		s, ok := in.AsString()
		if !ok {
			return typeErr(f, "string")
		}
		return value.Str(url.QueryEscape(s)), nil
	case "xpath":
		return applyXPath(f, in, args[0])
	case "daysAfterNow":
		t, ok := in.AsDate()
		if !ok {
			return typeErr(f, "date")
		}
		return value.Int(int64(time.Until(t).Hours() / 24)), nil
	case "daysBeforeNow":
		t, ok := in.AsDate()
		if !ok {
			return typeErr(f, "date")
		}
		return value.Int(int64(time.Since(t).Hours() / 24)), nil
	case "location":
		// Projects the "location" field out of one redirects-query
		// record (spec §4.3/§4.4: applied after `redirects nth N`).
		obj, ok := in.AsObject()
		if !ok {
			return typeErr(f, "object")
		}
		loc, ok := obj.Get("location")
		if !ok {
			return typeErr(f, "object with a \"location\" field")
		}
		return loc, nil
	default:
		return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: "unknown filter", Span: f.Span}
	}
}

func renderArgs(f hast.Filter, store *render.Store) ([]string, error) {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		s, err := store.String(a)
		if err != nil {
			return nil, err
		}
		args[i] = s
	}
	return args, nil
}

func typeErr(f hast.Filter, want string) (value.Value, error) {
	return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: "expected a " + want + " value", Span: f.Span}
}

func bytesOf(v value.Value) ([]byte, bool) {
	if b, ok := v.AsBytes(); ok {
		return b, true
	}
	if s, ok := v.AsString(); ok {
		return []byte(s), true
	}
	return nil, false
}

func argInt(f hast.Filter, args []string, i int) (int64, error) {
	n, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, &diag.FilterError{Filter: f.Name, Reason: "argument is not an integer", Span: f.Span}
	}
	return n, nil
}

// goLayout translates the small set of strftime-ish tokens Hurl
// documents for "format"/"toDate" into a time.Parse/Format layout. Most
// Hurl fixtures just use RFC3339, which passes through unchanged.
func goLayout(spec string) string {
	switch spec {
	case "%Y-%m-%dT%H:%M:%SZ":
		return "2006-01-02T15:04:05Z"
	case "%Y-%m-%d":
		return "2006-01-02"
	default:
		return spec
	}
}

func decodeCharset(b []byte, enc string) (string, error) {
	switch strings.ToLower(enc) {
	case "", "utf-8", "utf8":
		return string(b), nil
	default:
		return "", fmt.Errorf("unsupported charset %q", enc)
	}
}

func applyJSONPath(f hast.Filter, in value.Value, expr string) (value.Value, error) {
	body, ok := bytesOf(in)
	if !ok {
		return typeErr(f, "string or bytes")
	}
	resp := &query.Response{Body: body}
	out, err := query.Evaluate(hast.Query{Name: "jsonpath", Arg: literalArg(expr)}, resp, render.NewStore())
	if err != nil {
		return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
	}
	return out, nil
}

func applyXPath(f hast.Filter, in value.Value, expr string) (value.Value, error) {
	body, ok := bytesOf(in)
	if !ok {
		return typeErr(f, "string or bytes")
	}
	resp := &query.Response{Body: body}
	out, err := query.Evaluate(hast.Query{Name: "xpath", Arg: literalArg(expr)}, resp, render.NewStore())
	if err != nil {
		return value.Value{}, &diag.FilterError{Filter: f.Name, Reason: err.Error(), Span: f.Span}
	}
	return out, nil
}

func literalArg(s string) *hast.Template {
	return &hast.Template{Parts: []hast.TemplatePart{{Literal: s}}}
}
