package render

import (
	"testing"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/value"
)

func lit(s string) hast.TemplatePart { return hast.TemplatePart{Literal: s} }

func varPart(name string) hast.TemplatePart {
	return hast.TemplatePart{Expr: &hast.Expr{Variable: name}}
}

func fnPart(name string) hast.TemplatePart {
	return hast.TemplatePart{Expr: &hast.Expr{Function: name}}
}

func TestStringConcatenatesLiteralsAndVariables(t *testing.T) {
	s := NewStore()
	s.Set("name", value.Str("world"))

	tmpl := hast.Template{Parts: []hast.TemplatePart{lit("hello "), varPart("name"), lit("!")}}
	got, err := s.String(tmpl)
	if err != nil {
		t.Fatalf("String() error = %v", err)
	}
	if got != "hello world!" {
		t.Errorf("String() = %q, want %q", got, "hello world!")
	}
}

func TestStringUndefinedVariableErrors(t *testing.T) {
	s := NewStore()
	tmpl := hast.Template{Parts: []hast.TemplatePart{varPart("missing")}}
	_, err := s.String(tmpl)
	if err == nil {
		t.Fatal("expected an error for an undefined variable")
	}
	terr, ok := err.(*diag.TemplateError)
	if !ok {
		t.Fatalf("error = %T, want *diag.TemplateError", err)
	}
	if terr.Kind != diag.UndefinedVariable {
		t.Errorf("Kind = %q, want UndefinedVariable", terr.Kind)
	}
}

func TestStringUnknownFunctionErrors(t *testing.T) {
	s := NewStore()
	tmpl := hast.Template{Parts: []hast.TemplatePart{fnPart("bogusFn")}}
	_, err := s.String(tmpl)
	if err == nil {
		t.Fatal("expected an error for an unknown template function")
	}
	terr, ok := err.(*diag.TemplateError)
	if !ok {
		t.Fatalf("error = %T, want *diag.TemplateError", err)
	}
	if terr.Kind != diag.BadFunction {
		t.Errorf("Kind = %q, want BadFunction", terr.Kind)
	}
}

func TestTypedSinglePlaceholderPreservesKind(t *testing.T) {
	s := NewStore()
	s.Set("n", value.Int(42))

	tmpl := hast.Template{Parts: []hast.TemplatePart{varPart("n")}}
	got, err := s.Typed(tmpl)
	if err != nil {
		t.Fatalf("Typed() error = %v", err)
	}
	if n, ok := got.AsInt(); !ok || n != 42 {
		t.Errorf("Typed() = %v, want int 42", got)
	}
}

func TestTypedBareLiteralInfersKind(t *testing.T) {
	tests := []struct {
		lit      string
		wantKind value.Kind
	}{
		{"42", value.KindInt},
		{"3.14", value.KindFloat},
		{"true", value.KindBool},
		{"false", value.KindBool},
		{"null", value.KindNull},
		{"hello", value.KindString},
	}
	s := NewStore()
	for _, tt := range tests {
		t.Run(tt.lit, func(t *testing.T) {
			tmpl := hast.Template{Parts: []hast.TemplatePart{lit(tt.lit)}}
			got, err := s.Typed(tmpl)
			if err != nil {
				t.Fatalf("Typed(%q) error = %v", tt.lit, err)
			}
			if got.Kind() != tt.wantKind {
				t.Errorf("Typed(%q).Kind() = %v, want %v", tt.lit, got.Kind(), tt.wantKind)
			}
		})
	}
}

func TestTypedQuotedTemplateStaysString(t *testing.T) {
	tmpl := hast.Template{Quoted: true, Parts: []hast.TemplatePart{lit("42")}}
	s := NewStore()
	got, err := s.Typed(tmpl)
	if err != nil {
		t.Fatalf("Typed() error = %v", err)
	}
	if got.Kind() != value.KindString {
		t.Errorf("Typed() on a quoted template = %v, want a string", got.Kind())
	}
}

func TestTypedMixedLiteralAndPlaceholderConcatenates(t *testing.T) {
	s := NewStore()
	s.Set("n", value.Int(7))
	tmpl := hast.Template{Parts: []hast.TemplatePart{lit("count="), varPart("n")}}
	got, err := s.Typed(tmpl)
	if err != nil {
		t.Fatalf("Typed() error = %v", err)
	}
	if str, ok := got.AsString(); !ok || str != "count=7" {
		t.Errorf("Typed() = %v, want string \"count=7\"", got)
	}
}

func TestBuiltinFunctionsProduceFreshValuesEachCall(t *testing.T) {
	s := NewStore()
	tmpl := hast.Template{Parts: []hast.TemplatePart{fnPart("newUuid")}}

	first, err := s.Typed(tmpl)
	if err != nil {
		t.Fatalf("Typed() error = %v", err)
	}
	second, err := s.Typed(tmpl)
	if err != nil {
		t.Fatalf("Typed() error = %v", err)
	}
	a, _ := first.AsString()
	b, _ := second.AsString()
	if a == "" || b == "" {
		t.Fatal("expected newUuid to produce non-empty strings")
	}
	if a == b {
		t.Error("expected successive newUuid calls to produce different values")
	}
}

func TestSnapshotIsIndependentOfOriginal(t *testing.T) {
	s := NewStore()
	s.Set("a", value.Str("1"))

	snap := s.Snapshot()
	snap.Set("b", value.Str("2"))

	if _, ok := s.Get("b"); ok {
		t.Error("mutating a snapshot must not affect the original store")
	}
	if _, ok := snap.Get("a"); !ok {
		t.Error("snapshot should retain variables set before it was taken")
	}
}
