package parser

import (
	"testing"

	"github.com/hurlrunner/hurl/internal/diag"
)

func TestParseSimpleGetWithStatusAssert(t *testing.T) {
	src := `GET https://example.org/api
HTTP 200
`
	f, err := Parse("test.hurl", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(f.Entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(f.Entries))
	}
	req := f.Entries[0].Request
	if req.Method != "GET" {
		t.Errorf("Method = %q, want GET", req.Method)
	}
	resp := f.Entries[0].Response
	if resp == nil {
		t.Fatal("expected a response section")
	}
	if resp.Status.Wildcard || resp.Status.Code != 200 {
		t.Errorf("Status = %+v, want code 200", resp.Status)
	}
}

func TestParseHeadersAndCaptures(t *testing.T) {
	src := `GET https://example.org/api
X-Custom: value1
HTTP 200
[Captures]
token: header "X-Token"
[Asserts]
status == 200
header "Content-Type" == "application/json"
`
	f, err := Parse("test.hurl", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	req := f.Entries[0].Request
	if len(req.Headers) != 1 || req.Headers[0].Name.Parts[0].Literal != "X-Custom" {
		t.Fatalf("Headers = %+v, want one X-Custom header", req.Headers)
	}
	resp := f.Entries[0].Response
	if len(resp.Captures) != 1 || resp.Captures[0].Name != "token" {
		t.Fatalf("Captures = %+v, want one capture named token", resp.Captures)
	}
	if resp.Captures[0].Query.Name != "header" {
		t.Errorf("capture query = %q, want header", resp.Captures[0].Query.Name)
	}
	if len(resp.Asserts) != 2 {
		t.Fatalf("Asserts = %+v, want 2", resp.Asserts)
	}
}

func TestParseRedactedCapture(t *testing.T) {
	src := `GET https://example.org/login
HTTP 200
[Captures]
secret: header "X-Secret" redact
`
	f, err := Parse("test.hurl", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	resp := f.Entries[0].Response
	if len(resp.Captures) != 1 {
		t.Fatalf("expected one capture, got %d", len(resp.Captures))
	}
	if !resp.Captures[0].Redact {
		t.Error("expected the capture's Redact flag to be set")
	}
}

func TestParseOperatorAliasesNormalize(t *testing.T) {
	src := `GET https://example.org/api
HTTP 200
[Asserts]
jsonpath "$.status" equals "ok"
jsonpath "$.tags" includes "admin"
`
	f, err := Parse("test.hurl", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	resp := f.Entries[0].Response
	if len(resp.Asserts) != 2 {
		t.Fatalf("expected 2 asserts, got %d", len(resp.Asserts))
	}
	if resp.Asserts[0].Predicate.Operator != "==" {
		t.Errorf("equals should normalize to ==, got %q", resp.Asserts[0].Predicate.Operator)
	}
	if resp.Asserts[1].Predicate.Operator != "contains" {
		t.Errorf("includes should normalize to contains, got %q", resp.Asserts[1].Predicate.Operator)
	}
}

func TestParseMultipleEntries(t *testing.T) {
	src := `GET https://example.org/a
HTTP 200

POST https://example.org/b
HTTP 201
`
	f, err := Parse("test.hurl", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(f.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(f.Entries))
	}
	if f.Entries[0].Request.Method != "GET" || f.Entries[1].Request.Method != "POST" {
		t.Errorf("methods = %q, %q", f.Entries[0].Request.Method, f.Entries[1].Request.Method)
	}
}

func TestParseRejectsMultipartAfterForm(t *testing.T) {
	src := `POST https://example.org/upload
[Form]
a: 1
[Multipart]
b: 2
HTTP 200
`
	_, err := Parse("test.hurl", []byte(src))
	if err == nil {
		t.Fatal("expected a parse error for a request with both [Form] and [Multipart]")
	}
	perr, ok := err.(*diag.ParseError)
	if !ok {
		t.Fatalf("error = %T, want *diag.ParseError", err)
	}
	if perr.Kind != diag.BodyAfterAnotherBody {
		t.Errorf("Kind = %q, want bodyAfterAnotherBody", perr.Kind)
	}
}

func TestParseDuplicateSectionIsConflict(t *testing.T) {
	src := `GET https://example.org/api
[Query]
a: 1
[Query]
b: 2
HTTP 200
`
	_, err := Parse("test.hurl", []byte(src))
	if err == nil {
		t.Fatal("expected a parse error for a duplicated [Query] section")
	}
	perr, ok := err.(*diag.ParseError)
	if !ok {
		t.Fatalf("error = %T, want *diag.ParseError", err)
	}
	if perr.Kind != diag.SectionConflict {
		t.Errorf("Kind = %q, want sectionConflict", perr.Kind)
	}
}

func TestParseWildcardStatus(t *testing.T) {
	src := `GET https://example.org/api
HTTP *
`
	f, err := Parse("test.hurl", []byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !f.Entries[0].Response.Status.Wildcard {
		t.Error("expected a wildcard status")
	}
}
