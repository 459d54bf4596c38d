package query

import (
	"strings"
	"testing"
	"time"

	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

func quotedArg(s string) *hast.Template {
	return &hast.Template{Quoted: true, Parts: []hast.TemplatePart{{Literal: s}}}
}

func newStore() *render.Store { return render.NewStore() }

func TestEvaluateStatusAndVersion(t *testing.T) {
	resp := &Response{StatusCode: 200, HTTPVersion: "1.1"}
	s := newStore()

	v, err := Evaluate(hast.Query{Name: "status"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(status) error = %v", err)
	}
	if n, ok := v.AsInt(); !ok || n != 200 {
		t.Errorf("status = %v, want int 200", v)
	}

	v, err = Evaluate(hast.Query{Name: "version"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(version) error = %v", err)
	}
	if str, ok := v.AsString(); !ok || str != "1.1" {
		t.Errorf("version = %v, want \"1.1\"", v)
	}
}

func TestEvaluateHeaderSingleAndMultiValued(t *testing.T) {
	resp := &Response{NameValues: []NameValue{
		{Name: "Content-Type", Value: "application/json"},
		{Name: "Set-Cookie", Value: "a=1"},
		{Name: "Set-Cookie", Value: "b=2"},
	}}
	s := newStore()

	v, err := Evaluate(hast.Query{Name: "header", Arg: quotedArg("Content-Type")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(header) error = %v", err)
	}
	if str, ok := v.AsString(); !ok || str != "application/json" {
		t.Errorf("header Content-Type = %v, want \"application/json\"", v)
	}

	v, err = Evaluate(hast.Query{Name: "header", Arg: quotedArg("Set-Cookie")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(header) error = %v", err)
	}
	if v.Kind() != value.KindList {
		t.Errorf("repeated header should evaluate to a list, got %v", v.Kind())
	}
}

func TestEvaluateHeaderMissingIsNoNodeNotError(t *testing.T) {
	resp := &Response{}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "header", Arg: quotedArg("X-Missing")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(header) error = %v, want no error for a missing header", err)
	}
	if v.Kind() != value.KindNull {
		t.Errorf("missing header = %v, want no-node so exists/not exists can tell", v)
	}
}

func TestEvaluateBodyDecodesLatin1Charset(t *testing.T) {
	// 0xE9 is "é" in ISO-8859-1/Latin-1.
	resp := &Response{Body: []byte{0xE9}, ContentType: "text/plain; charset=ISO-8859-1"}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "body"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(body) error = %v", err)
	}
	str, _ := v.AsString()
	if str != "é" {
		t.Errorf("body = %q, want decoded %q", str, "é")
	}
}

func TestEvaluateBodyDefaultsToUTF8(t *testing.T) {
	resp := &Response{Body: []byte("hello"), ContentType: "text/plain"}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "body"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(body) error = %v", err)
	}
	if str, _ := v.AsString(); str != "hello" {
		t.Errorf("body = %q, want %q", str, "hello")
	}
}

func TestEvaluateBytesAndRawbytes(t *testing.T) {
	resp := &Response{Body: []byte{1, 2, 3}}
	s := newStore()
	for _, name := range []string{"bytes", "rawbytes"} {
		v, err := Evaluate(hast.Query{Name: name}, resp, s)
		if err != nil {
			t.Fatalf("Evaluate(%s) error = %v", name, err)
		}
		if v.Kind() != value.KindBytes {
			t.Errorf("%s should be KindBytes, got %v", name, v.Kind())
		}
	}
}

func TestEvaluateCookieAttributes(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	resp := &Response{Cookies: []Cookie{
		{Name: "session", Value: "abc", Domain: "example.com", Path: "/", Expires: exp, Secure: true},
	}}
	s := newStore()

	v, err := Evaluate(hast.Query{Name: "cookie", Arg: quotedArg("session")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(cookie) error = %v", err)
	}
	if str, _ := v.AsString(); str != "abc" {
		t.Errorf("cookie value = %q, want \"abc\"", str)
	}

	v, err = Evaluate(hast.Query{Name: "cookie", Arg: quotedArg("session/Secure")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(cookie/Secure) error = %v", err)
	}
	if b, _ := v.AsBool(); !b {
		t.Error("cookie/Secure = false, want true")
	}

	v, err = Evaluate(hast.Query{Name: "cookie", Arg: quotedArg("session/HttpOnly")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(cookie/HttpOnly) error = %v", err)
	}
	if v.Kind() != value.KindNull {
		t.Errorf("cookie/HttpOnly on a cookie that never set it = %v, want no-node, not false", v)
	}

	v, err = Evaluate(hast.Query{Name: "cookie", Arg: quotedArg("missing")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(cookie) error = %v, want no error for a missing cookie", err)
	}
	if v.Kind() != value.KindNull {
		t.Errorf("missing cookie = %v, want no-node so exists/not exists can tell", v)
	}
}

func TestEvaluateJSONPathStripsDollarAndReturnsScalar(t *testing.T) {
	resp := &Response{Body: []byte(`{"status":"ok","tags":["a","b"]}`)}
	s := newStore()

	v, err := Evaluate(hast.Query{Name: "jsonpath", Arg: quotedArg("$.status")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(jsonpath) error = %v", err)
	}
	if str, _ := v.AsString(); str != "ok" {
		t.Errorf("jsonpath $.status = %q, want \"ok\"", str)
	}

	v, err = Evaluate(hast.Query{Name: "jsonpath", Arg: quotedArg("$.tags")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(jsonpath) error = %v", err)
	}
	if v.Kind() != value.KindList {
		t.Errorf("jsonpath $.tags should be a list, got %v", v.Kind())
	}
}

func TestEvaluateJSONPathOnInvalidBodyErrors(t *testing.T) {
	resp := &Response{Body: []byte("not json")}
	s := newStore()
	_, err := Evaluate(hast.Query{Name: "jsonpath", Arg: quotedArg("$.x")}, resp, s)
	if err == nil {
		t.Fatal("expected an error for a non-JSON body")
	}
}

func TestEvaluateRegexCapturesFirstGroup(t *testing.T) {
	resp := &Response{Body: []byte("order-id: 42")}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "regex", Arg: quotedArg(`order-id: (\d+)`)}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(regex) error = %v", err)
	}
	if str, _ := v.AsString(); str != "42" {
		t.Errorf("regex capture = %q, want \"42\"", str)
	}
}

func TestEvaluateRegexNoMatchReturnsNull(t *testing.T) {
	resp := &Response{Body: []byte("nothing here")}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "regex", Arg: quotedArg(`\d+`)}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(regex) error = %v", err)
	}
	if v.Kind() != value.KindNull {
		t.Errorf("regex no-match = %v, want null", v.Kind())
	}
}

func TestEvaluateSha256AndMd5(t *testing.T) {
	resp := &Response{Body: []byte("hello")}
	s := newStore()

	v, err := Evaluate(hast.Query{Name: "sha256"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(sha256) error = %v", err)
	}
	if v.Kind() != value.KindBytes {
		t.Errorf("sha256 should be KindBytes, got %v", v.Kind())
	}

	v, err = Evaluate(hast.Query{Name: "md5"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(md5) error = %v", err)
	}
	if v.Kind() != value.KindBytes {
		t.Errorf("md5 should be KindBytes, got %v", v.Kind())
	}
}

func TestEvaluateVariableLooksUpStore(t *testing.T) {
	resp := &Response{}
	s := newStore()
	s.Set("token", value.Str("abc123"))

	v, err := Evaluate(hast.Query{Name: "variable", Arg: quotedArg("token")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(variable) error = %v", err)
	}
	if str, _ := v.AsString(); str != "abc123" {
		t.Errorf("variable token = %q, want \"abc123\"", str)
	}

	_, err = Evaluate(hast.Query{Name: "variable", Arg: quotedArg("missing")}, resp, s)
	if err == nil {
		t.Fatal("expected an error for an undefined variable query")
	}
}

func TestEvaluateCertificateWithoutTLSErrors(t *testing.T) {
	resp := &Response{}
	s := newStore()
	_, err := Evaluate(hast.Query{Name: "certificate", Arg: quotedArg("Subject")}, resp, s)
	if err == nil {
		t.Fatal("expected an error when the response has no certificate")
	}
	if !strings.Contains(err.Error(), "TLS") {
		t.Errorf("error = %q, want it to mention TLS", err.Error())
	}
}

func TestEvaluateUnknownQueryErrors(t *testing.T) {
	resp := &Response{}
	s := newStore()
	_, err := Evaluate(hast.Query{Name: "nonsense"}, resp, s)
	if err == nil {
		t.Fatal("expected an error for an unknown query name")
	}
}

func TestEvaluateDurationIsIntMilliseconds(t *testing.T) {
	resp := &Response{Duration: 250 * time.Millisecond}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "duration"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(duration) error = %v", err)
	}
	n, ok := v.AsInt()
	if !ok || n != 250 {
		t.Errorf("duration = %v, want int 250", v)
	}
}

func TestEvaluateRedirectsIsListOfLocationStatusObjects(t *testing.T) {
	resp := &Response{Redirects: []Redirect{
		{Location: "https://example.com/next", Status: 302},
	}}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "redirects"}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(redirects) error = %v", err)
	}
	items, ok := v.AsList()
	if !ok || len(items) != 1 {
		t.Fatalf("redirects = %v, want a one-element list", v)
	}
	obj, ok := items[0].AsObject()
	if !ok {
		t.Fatalf("redirects[0] = %v, want an object", items[0])
	}
	loc, _ := obj.Get("location")
	if str, _ := loc.AsString(); str != "https://example.com/next" {
		t.Errorf("redirects[0].location = %v, want the redirect URL", loc)
	}
	status, _ := obj.Get("status")
	if n, _ := status.AsInt(); n != 302 {
		t.Errorf("redirects[0].status = %v, want 302", status)
	}
}

func TestEvaluateCookieAttributeIsCaseInsensitive(t *testing.T) {
	resp := &Response{Cookies: []Cookie{
		{Name: "session", Value: "abc", Secure: true},
	}}
	s := newStore()
	v, err := Evaluate(hast.Query{Name: "cookie", Arg: quotedArg("session/secure")}, resp, s)
	if err != nil {
		t.Fatalf("Evaluate(cookie/secure) error = %v", err)
	}
	if b, _ := v.AsBool(); !b {
		t.Error("cookie/secure (lowercase attribute) = false, want true")
	}
}
