package predicate

import (
	"testing"

	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

func literalOperand(lit string, quoted bool) *hast.PredicateOperand {
	tpl := hast.Template{
		Parts:  []hast.TemplatePart{{Literal: lit}},
		Quoted: quoted,
	}
	return &hast.PredicateOperand{Template: &tpl}
}

func TestEvaluateComparisons(t *testing.T) {
	store := render.NewStore()
	tests := []struct {
		name   string
		pred   hast.Predicate
		actual value.Value
		want   bool
	}{
		{"int equals int literal", hast.Predicate{Operator: "==", Operand: literalOperand("200", false)}, value.Int(200), true},
		{"int equals mismatched literal", hast.Predicate{Operator: "==", Operand: literalOperand("201", false)}, value.Int(200), false},
		{"string equals quoted literal", hast.Predicate{Operator: "==", Operand: literalOperand("ok", true)}, value.Str("ok"), true},
		{"not equals", hast.Predicate{Operator: "!=", Operand: literalOperand("201", false)}, value.Int(200), true},
		{"less than", hast.Predicate{Operator: "<", Operand: literalOperand("10", false)}, value.Int(5), true},
		{"less than or equal, equal case", hast.Predicate{Operator: "<=", Operand: literalOperand("5", false)}, value.Int(5), true},
		{"greater than", hast.Predicate{Operator: ">", Operand: literalOperand("1", false)}, value.Int(5), true},
		{"greater than or equal, equal case", hast.Predicate{Operator: ">=", Operand: literalOperand("5", false)}, value.Int(5), true},
		{"contains substring", hast.Predicate{Operator: "contains", Operand: literalOperand("ell", true)}, value.Str("hello"), true},
		{"negated equals", hast.Predicate{Operator: "==", Negate: true, Operand: literalOperand("201", false)}, value.Int(200), true},
		{"exists on non-null", hast.Predicate{Operator: "exists"}, value.Int(1), true},
		{"exists on null", hast.Predicate{Operator: "exists"}, value.Null(), false},
		{"isString true", hast.Predicate{Operator: "isString"}, value.Str("x"), true},
		{"isString false", hast.Predicate{Operator: "isString"}, value.Int(1), false},
		{"isNumber on float", hast.Predicate{Operator: "isNumber"}, value.Float(1.5), true},
		{"isEmpty on empty string", hast.Predicate{Operator: "isEmpty"}, value.Str(""), true},
		{"isEmpty on non-empty list", hast.Predicate{Operator: "isEmpty"}, value.List([]value.Value{value.Int(1)}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Evaluate(tt.pred, tt.actual, store)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got.Passed != tt.want {
				t.Errorf("Evaluate() Passed = %v, want %v (actual=%s expected=%s)", got.Passed, tt.want, got.ActualRepr, got.ExpectedRepr)
			}
		})
	}
}

func TestStartsWithEndsWithPreferBytes(t *testing.T) {
	store := render.NewStore()
	bytesOperand := func(name string, b []byte) *hast.PredicateOperand {
		store.Set(name, value.Bytes(b))
		tpl := hast.Template{Parts: []hast.TemplatePart{{Expr: &hast.Expr{Variable: name}}}}
		return &hast.PredicateOperand{Template: &tpl}
	}

	startsPred := hast.Predicate{Operator: "startsWith", Operand: bytesOperand("prefix", []byte("ab"))}
	got, err := Evaluate(startsPred, value.Bytes([]byte("abcdef")), store)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got.Passed {
		t.Errorf("expected bytes startsWith to pass, got %+v", got)
	}

	endsPred := hast.Predicate{Operator: "endsWith", Operand: bytesOperand("suffix", []byte("ef"))}
	got, err = Evaluate(endsPred, value.Bytes([]byte("abcdef")), store)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got.Passed {
		t.Errorf("expected bytes endsWith to pass, got %+v", got)
	}

	noMatch := hast.Predicate{Operator: "endsWith", Operand: bytesOperand("other", []byte("zz"))}
	got, err = Evaluate(noMatch, value.Bytes([]byte("abcdef")), store)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.Passed {
		t.Errorf("expected bytes endsWith mismatch to fail, got %+v", got)
	}
}

func TestMatchesRegex(t *testing.T) {
	store := render.NewStore()
	pred := hast.Predicate{
		Operator: "matches",
		Operand:  &hast.PredicateOperand{IsRegex: true, RegexSrc: `^\d+$`},
	}
	got, err := Evaluate(pred, value.Str("12345"), store)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got.Passed {
		t.Errorf("expected regex match to pass, got %+v", got)
	}

	got, err = Evaluate(pred, value.Str("abc"), store)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.Passed {
		t.Errorf("expected regex mismatch to fail, got %+v", got)
	}
}

func TestIsUuid(t *testing.T) {
	store := render.NewStore()
	pred := hast.Predicate{Operator: "isUuid"}

	got, err := Evaluate(pred, value.Str("550e8400-e29b-41d4-a716-446655440000"), store)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got.Passed {
		t.Errorf("expected valid uuid to pass isUuid")
	}

	got, err = Evaluate(pred, value.Str("not-a-uuid"), store)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if got.Passed {
		t.Errorf("expected invalid uuid to fail isUuid")
	}
}
