// Package render evaluates hast.Template fragments against a variable
// store, producing either a plain string (header values, URLs, body
// text) or a typed value.Value (predicate/option/filter operands). The
// structure mirrors the teacher's TemplateContext/ProcessTemplate split
// between string-producing and variable-preserving rendering, adapted
// to the parser's already-split literal/placeholder parts instead of a
// second regex pass.
package render

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/value"
)

// Store is the per-session variable table: captures, --variable/-v CLI
// values, and entries from a --variables-file all live here, in the
// documented precedence order (spec §5).
type Store struct {
	vars     map[string]value.Value
	redactor *diag.Redactor
}

func NewStore() *Store {
	return &Store{vars: make(map[string]value.Value)}
}

// SetRedactor attaches the session-wide secret redactor so captures
// marked `redact` (spec §3's capture "redact marker") can register
// their rendered value for scrubbing from stderr/report output.
func (s *Store) SetRedactor(r *diag.Redactor) { s.redactor = r }

func (s *Store) Redactor() *diag.Redactor { return s.redactor }

func (s *Store) Set(name string, v value.Value) { s.vars[name] = v }

func (s *Store) Get(name string) (value.Value, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Snapshot returns a shallow copy of the variable table, used when the
// entry runner needs to roll back a failed retry attempt's captures (spec §4.7 step 9: "rewind: discard captures performed in
// this attempt").
func (s *Store) Snapshot() *Store {
	cp := make(map[string]value.Value, len(s.vars))
	for k, v := range s.vars {
		cp[k] = v
	}
	return &Store{vars: cp, redactor: s.redactor}
}

// Restore replaces s's variable table with snapshot's, undoing any Set
// calls made since snapshot was taken.
func (s *Store) Restore(snapshot *Store) {
	s.vars = snapshot.vars
}

// builtinFunctions are the zero-argument template functions (spec
// §4.2): "newUuid" and "newDate" generate a fresh value on every
// evaluation, so they are deliberately not memoized in the Store.
var builtinFunctions = map[string]func() value.Value{
	"newUuid": func() value.Value { return value.Str(uuid.NewString()) },
	"newDate": func() value.Value { return value.Str(time.Now().UTC().Format(time.RFC3339)) },
}

func (s *Store) resolveExpr(e *hast.Expr) (value.Value, error) {
	if e.Function != "" {
		fn, ok := builtinFunctions[e.Function]
		if !ok {
			return value.Value{}, &diag.TemplateError{Kind: diag.BadFunction, Span: e.Span, Name: e.Function}
		}
		return fn(), nil
	}
	v, ok := s.Get(e.Variable)
	if !ok {
		return value.Value{}, &diag.TemplateError{Kind: diag.UndefinedVariable, Span: e.Span, Name: e.Variable}
	}
	return v, nil
}

// String renders t as a plain string: every placeholder is stringified
// and concatenated with the surrounding literal text (spec §4.2's
// string-producing context — URLs, header/cookie/query values, JSON/XML
// body templates, plain option values).
func (s *Store) String(t hast.Template) (string, error) {
	if len(t.Parts) == 0 {
		return "", nil
	}
	var out string
	for _, part := range t.Parts {
		if part.Expr == nil {
			out += part.Literal
			continue
		}
		v, err := s.resolveExpr(part.Expr)
		if err != nil {
			return "", err
		}
		str, err := v.Stringify()
		if err != nil {
			return "", &diag.TemplateError{Kind: diag.BadFunction, Span: part.Span, Name: part.Expr.Variable + part.Expr.Function}
		}
		out += str
	}
	return out, nil
}

// Typed renders t in a typed-operand context: predicate/option/filter
// arguments that should keep their native Kind rather than always
// becoming a string (spec §9 Open Question 3's sibling rule).
//
//   - a single {{ expr }} placeholder with no surrounding literal text
//     evaluates to that variable's/function's native value unchanged;
//   - a quoted template (Template.Quoted) always renders as a string;
//   - a bare single literal (no placeholders, unquoted) is parsed as
//     int, float, bool, or null when it lexes as one, else kept as a
//     string;
//   - any other mix of literal text and placeholders renders as a
//     concatenated string, same as String.
func (s *Store) Typed(t hast.Template) (value.Value, error) {
	if len(t.Parts) == 1 && t.Parts[0].Expr != nil && t.Parts[0].Literal == "" {
		return s.resolveExpr(t.Parts[0].Expr)
	}
	if !t.Quoted && len(t.Parts) <= 1 {
		lit := ""
		if len(t.Parts) == 1 {
			lit = t.Parts[0].Literal
		}
		if v, ok := parseBareLiteral(lit); ok {
			return v, nil
		}
	}
	str, err := s.String(t)
	if err != nil {
		return value.Value{}, err
	}
	return value.Str(str), nil
}

func parseBareLiteral(lit string) (value.Value, bool) {
	switch lit {
	case "null":
		return value.Null(), true
	case "true":
		return value.Bool(true), true
	case "false":
		return value.Bool(false), true
	}
	if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
		return value.Int(i), true
	}
	if f, err := strconv.ParseFloat(lit, 64); err == nil {
		return value.Float(f), true
	}
	return value.Value{}, false
}

// Regex renders a predicate's /pattern/ operand through the template
// engine (a regex literal may itself contain {{ }} placeholders) and
// returns the resulting pattern source string.
func (s *Store) Regex(span diag.Span, src string) (string, error) {
	t := hast.Template{Span: span, Parts: []hast.TemplatePart{{Span: span, Literal: src}}}
	return s.String(t)
}

// Bytes renders a body's Text template for a byte-producing context
// (e.g. an XML/JSON body sent as the raw wire payload): identical to
// String but named for call-site clarity.
func (s *Store) Bytes(t hast.Template) ([]byte, error) {
	str, err := s.String(t)
	if err != nil {
		return nil, err
	}
	return []byte(str), nil
}

// MustString is a convenience for call sites that have already proven
// rendering cannot fail (e.g. a literal with no placeholders at all).
func (s *Store) MustString(t hast.Template) string {
	str, err := s.String(t)
	if err != nil {
		panic(fmt.Sprintf("render: unexpected error on literal-only template: %v", err))
	}
	return str
}
