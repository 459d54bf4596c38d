// Package diag defines the stable error taxonomy and span-annotated
// diagnostics described in spec §7, and the redaction pass applied to
// every diagnostic string before it reaches a report or stderr.
package diag

import (
	"fmt"
	"strings"
)

// Span is a byte-offset + line/column range into the original input.
// Every AST node carries one; every error that can be localized carries
// one too.
type Span struct {
	File        string
	StartOffset int
	EndOffset   int
	StartLine   int
	StartCol    int
	EndLine     int
	EndCol      int
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.StartLine, s.StartCol)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.StartLine, s.StartCol)
}

// ExitCode maps an error class to the process exit code from spec §6.4.
type ExitCode int

const (
	ExitOK           ExitCode = 0
	ExitCLIOption    ExitCode = 1
	ExitParse        ExitCode = 2
	ExitRuntime      ExitCode = 3
	ExitAssert       ExitCode = 4
)

// ParseErrorKind enumerates the parser's error kinds (spec §4.1).
type ParseErrorKind string

const (
	UnexpectedChar            ParseErrorKind = "unexpectedChar"
	Expected                  ParseErrorKind = "expected"
	UnterminatedString        ParseErrorKind = "unterminatedString"
	InvalidEscape             ParseErrorKind = "invalidEscape"
	InvalidNumber             ParseErrorKind = "invalidNumber"
	UnknownSection            ParseErrorKind = "unknownSection"
	SectionConflict           ParseErrorKind = "sectionConflict"
	BodyAfterAnotherBody      ParseErrorKind = "bodyAfterAnotherBody"
	InvalidTemplate           ParseErrorKind = "invalidTemplate"
	InvalidPredicateOperand   ParseErrorKind = "invalidPredicateOperand"
)

// ParseError is fatal to the file that produced it (spec §7).
type ParseError struct {
	Kind ParseErrorKind
	Span Span
	Hint string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Span, e.Hint, e.Kind)
}

func (e *ParseError) ExitCode() ExitCode { return ExitParse }

// TemplateErrorKind enumerates template-evaluation failure kinds.
type TemplateErrorKind string

const (
	UndefinedVariable TemplateErrorKind = "UndefinedVariable"
	BadFunction       TemplateErrorKind = "BadFunction"
)

type TemplateError struct {
	Kind TemplateErrorKind
	Span Span
	Name string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Span, e.Kind, e.Name)
}

func (e *TemplateError) ExitCode() ExitCode { return ExitRuntime }

// QueryEvalError signals a query that could not be evaluated against the
// current response shape (bad XPath/JSONPath, query not applicable).
type QueryEvalError struct {
	Kind string
	Span Span
	Err  error
}

func (e *QueryEvalError) Error() string {
	return fmt.Sprintf("%s: query evaluation failed (%s): %v", e.Span, e.Kind, e.Err)
}

func (e *QueryEvalError) Unwrap() error  { return e.Err }
func (e *QueryEvalError) ExitCode() ExitCode { return ExitRuntime }

// FilterError signals a type mismatch or bad argument inside the filter
// pipeline (spec §4.4).
type FilterError struct {
	Filter string
	Reason string
	Span   Span
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("%s: filter %q failed: %s", e.Span, e.Filter, e.Reason)
}

func (e *FilterError) ExitCode() ExitCode { return ExitRuntime }

// AssertFailure is a predicate that evaluated cleanly and came back
// false.
type AssertFailure struct {
	Predicate string
	Actual    string
	Expected  string
	Span      Span
}

func (e *AssertFailure) Error() string {
	return fmt.Sprintf("%s: assert failed: %s (actual: %s, expected: %s)", e.Span, e.Predicate, e.Actual, e.Expected)
}

func (e *AssertFailure) ExitCode() ExitCode { return ExitAssert }

// HttpErrorKind enumerates transport-layer failures (spec §7).
type HttpErrorKind string

const (
	HttpConnectRefused     HttpErrorKind = "ConnectRefused"
	HttpDNSFailure         HttpErrorKind = "DNSFailure"
	HttpTLSFailure         HttpErrorKind = "TLSFailure"
	HttpTimeout            HttpErrorKind = "Timeout"
	HttpTooManyRedirects   HttpErrorKind = "TooManyRedirects"
	HttpUnsupportedProto   HttpErrorKind = "UnsupportedProtocol"
	HttpOther              HttpErrorKind = "Other"
)

type HttpError struct {
	Kind   HttpErrorKind
	URL    string
	Detail string
}

func (e *HttpError) Error() string {
	return fmt.Sprintf("http error (%s) on %s: %s", e.Kind, e.URL, e.Detail)
}

func (e *HttpError) ExitCode() ExitCode { return ExitRuntime }

// Redactor replaces every occurrence of a set of secret literal strings
// with a fixed token, applied to every diagnostic string before it is
// emitted to stderr or written to a report (spec §3, §7). Standard
// output (raw body passthrough) is never passed through a Redactor.
type Redactor struct {
	secrets []string
}

const redactedToken = "***"

func NewRedactor() *Redactor {
	return &Redactor{}
}

// Add registers a literal value to be redacted. Called once per secret
// variable/`--secret` value as it is resolved; empty strings are
// ignored so an unset secret never turns every character into noise.
func (r *Redactor) Add(secret string) {
	if secret == "" {
		return
	}
	r.secrets = append(r.secrets, secret)
}

// Redact replaces every occurrence of every registered secret in s.
// Longest-first so a secret that is a prefix of another is not redacted
// partially, which would still leak the remaining suffix.
func (r *Redactor) Redact(s string) string {
	if len(r.secrets) == 0 {
		return s
	}
	ordered := make([]string, len(r.secrets))
	copy(ordered, r.secrets)
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && len(ordered[j]) > len(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	out := s
	for _, secret := range ordered {
		out = strings.ReplaceAll(out, secret, redactedToken)
	}
	return out
}
