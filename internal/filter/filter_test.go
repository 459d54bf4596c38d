package filter

import (
	"testing"

	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

func litTemplate(s string) hast.Template {
	return hast.Template{Parts: []hast.TemplatePart{{Literal: s}}}
}

func TestBase64RoundTrip(t *testing.T) {
	store := render.NewStore()
	in := value.Str("aGVsbG8=")

	decoded, err := Apply([]hast.Filter{{Name: "base64Decode"}}, in, store)
	if err != nil {
		t.Fatalf("base64Decode error = %v", err)
	}
	b, ok := decoded.AsBytes()
	if !ok || string(b) != "hello" {
		t.Fatalf("base64Decode = %v, want bytes \"hello\"", decoded)
	}

	encoded, err := Apply([]hast.Filter{{Name: "base64Encode"}}, decoded, store)
	if err != nil {
		t.Fatalf("base64Encode error = %v", err)
	}
	s, ok := encoded.AsString()
	if !ok || s != "aGVsbG8=" {
		t.Fatalf("base64Encode round trip = %v, want aGVsbG8=", encoded)
	}
}

func TestCount(t *testing.T) {
	store := render.NewStore()
	tests := []struct {
		name string
		in   value.Value
		want int64
	}{
		{"list", value.List([]value.Value{value.Int(1), value.Int(2), value.Int(3)}), 3},
		{"string counts runes", value.Str("héllo"), 5},
		{"bytes counts bytes", value.Bytes([]byte{1, 2, 3, 4}), 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Apply([]hast.Filter{{Name: "count"}}, tt.in, store)
			if err != nil {
				t.Fatalf("count error = %v", err)
			}
			n, ok := got.AsInt()
			if !ok || n != tt.want {
				t.Errorf("count = %v, want %d", got, tt.want)
			}
		})
	}
}

func TestSplitCountLaw(t *testing.T) {
	store := render.NewStore()
	sep := litTemplate(",")
	split, err := Apply([]hast.Filter{{Name: "split", Args: []hast.Template{sep}}}, value.Str("a,b,c,d"), store)
	if err != nil {
		t.Fatalf("split error = %v", err)
	}
	counted, err := Apply([]hast.Filter{{Name: "count"}}, split, store)
	if err != nil {
		t.Fatalf("count error = %v", err)
	}
	n, _ := counted.AsInt()
	if n != 4 {
		t.Errorf("count(split(\"a,b,c,d\", \",\")) = %d, want 4", n)
	}
}

func TestNthBounds(t *testing.T) {
	store := render.NewStore()
	list := value.List([]value.Value{value.Str("a"), value.Str("b"), value.Str("c")})

	got, err := Apply([]hast.Filter{{Name: "nth", Args: []hast.Template{litTemplate("1")}}}, list, store)
	if err != nil {
		t.Fatalf("nth error = %v", err)
	}
	s, _ := got.AsString()
	if s != "b" {
		t.Errorf("nth(1) = %q, want \"b\"", s)
	}

	_, err = Apply([]hast.Filter{{Name: "nth", Args: []hast.Template{litTemplate("10")}}}, list, store)
	if err == nil {
		t.Error("nth(10) on a 3-element list should error, got nil")
	}
}

func TestToIntToFloat(t *testing.T) {
	store := render.NewStore()

	i, err := Apply([]hast.Filter{{Name: "toInt"}}, value.Str("42"), store)
	if err != nil {
		t.Fatalf("toInt error = %v", err)
	}
	if n, ok := i.AsInt(); !ok || n != 42 {
		t.Errorf("toInt(\"42\") = %v, want 42", i)
	}

	f, err := Apply([]hast.Filter{{Name: "toFloat"}}, value.Str("3.5"), store)
	if err != nil {
		t.Fatalf("toFloat error = %v", err)
	}
	if n, ok := f.AsFloat(); !ok || n != 3.5 {
		t.Errorf("toFloat(\"3.5\") = %v, want 3.5", f)
	}
}

func TestUrlEncodeDecodeRoundTrip(t *testing.T) {
	store := render.NewStore()
	original := "a b/c=d"

	encoded, err := Apply([]hast.Filter{{Name: "urlEncode"}}, value.Str(original), store)
	if err != nil {
		t.Fatalf("urlEncode error = %v", err)
	}
	decoded, err := Apply([]hast.Filter{{Name: "urlDecode"}}, encoded, store)
	if err != nil {
		t.Fatalf("urlDecode error = %v", err)
	}
	s, _ := decoded.AsString()
	if s != original {
		t.Errorf("urlDecode(urlEncode(%q)) = %q, want %q", original, s, original)
	}
}

func TestHtmlEscapeUnescapeRoundTrip(t *testing.T) {
	store := render.NewStore()
	original := `<a href="x">&y</a>`

	escaped, err := Apply([]hast.Filter{{Name: "htmlEscape"}}, value.Str(original), store)
	if err != nil {
		t.Fatalf("htmlEscape error = %v", err)
	}
	unescaped, err := Apply([]hast.Filter{{Name: "htmlUnescape"}}, escaped, store)
	if err != nil {
		t.Fatalf("htmlUnescape error = %v", err)
	}
	s, _ := unescaped.AsString()
	if s != original {
		t.Errorf("htmlUnescape(htmlEscape(%q)) = %q, want %q", original, s, original)
	}
}

func TestReplace(t *testing.T) {
	store := render.NewStore()
	filters := []hast.Filter{{
		Name: "replace",
		Args: []hast.Template{litTemplate("o"), litTemplate("0")},
	}}
	got, err := Apply(filters, value.Str("foo bar"), store)
	if err != nil {
		t.Fatalf("replace error = %v", err)
	}
	s, _ := got.AsString()
	if s != "f00 bar" {
		t.Errorf("replace = %q, want \"f00 bar\"", s)
	}
}

func TestChainedFilters(t *testing.T) {
	store := render.NewStore()
	filters := []hast.Filter{
		{Name: "split", Args: []hast.Template{litTemplate(",")}},
		{Name: "count"},
	}
	got, err := Apply(filters, value.Str("x,y,z"), store)
	if err != nil {
		t.Fatalf("chained filters error = %v", err)
	}
	n, ok := got.AsInt()
	if !ok || n != 3 {
		t.Errorf("split|count = %v, want 3", got)
	}
}

func TestUnknownFilterErrors(t *testing.T) {
	store := render.NewStore()
	_, err := Apply([]hast.Filter{{Name: "notAFilter"}}, value.Str("x"), store)
	if err == nil {
		t.Error("expected an error for an unknown filter name")
	}
}

func TestTypeMismatchErrors(t *testing.T) {
	store := render.NewStore()
	_, err := Apply([]hast.Filter{{Name: "base64Decode"}}, value.Int(1), store)
	if err == nil {
		t.Error("expected base64Decode on an int to error")
	}
}
