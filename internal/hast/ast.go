// Package hast is the Hurl file format's abstract syntax: an ordered
// sequence of Entries, each with a mandatory Request and an optional
// Response (spec §3). Every node carries a diag.Span.
package hast

import "github.com/hurlrunner/hurl/internal/diag"

// File is a whole parsed .hurl document.
type File struct {
	Name    string
	Entries []Entry
}

type Entry struct {
	Span     diag.Span
	Request  Request
	Response *Response
}

// TemplatePart is one piece of a template fragment: either literal text
// or a placeholder expression (spec §3, §4.2).
type TemplatePart struct {
	Span    diag.Span
	Literal string // set when Expr == nil
	Expr    *Expr  // set when this part is a {{ ... }} placeholder
}

// Template is a sequence of literal/placeholder parts forming one
// template-enabled string. Quoted records whether the source wrote this
// template inside double quotes: a quoted literal always renders as a
// string, while a bare literal (used for predicate/option/filter
// operands) renders as its typed value when it parses as one (spec §9
// Open Question 3's sibling rule for bare vs. quoted operands).
type Template struct {
	Span   diag.Span
	Parts  []TemplatePart
	Quoted bool
}

// Expr is a template placeholder's inner expression: either a variable
// reference or a zero-argument function call (spec §4.2).
type Expr struct {
	Span     diag.Span
	Variable string // non-empty when this is a variable reference
	Function string // non-empty when this is a function call ("newUuid", "newDate")
}

type Header struct {
	Span  diag.Span
	Name  Template
	Value Template
}

// Request is the mandatory half of an Entry.
type Request struct {
	Span    diag.Span
	Method  string // uppercase tag, open set
	URL     Template
	Headers []Header

	Options      []Option
	Query        []KeyValue // [Query]/[QueryStringParams]
	Form         []KeyValue // [Form]/[FormParams]
	Multipart    []MultipartField
	Cookies      []CookieField
	BasicAuth    *BasicAuth

	Body *Body
}

type KeyValue struct {
	Span  diag.Span
	Key   Template
	Value Template
}

type MultipartField struct {
	Span        diag.Span
	Name        Template
	Value       Template // set for a plain field
	FilePath    *Template // set for a file part
	ContentType *Template // optional explicit content type for a file part
	IsFile      bool
}

type CookieField struct {
	Span  diag.Span
	Name  Template
	Value Template
}

type BasicAuth struct {
	Span     diag.Span
	Username Template
	Password Template
}

// Option is one line of [Options]; Name is one of the documented option
// keys (spec §6.3), Value is a raw literal (string/bool/int/duration)
// captured as a Template so it can itself reference variables.
type Option struct {
	Span  diag.Span
	Name  string
	Value Template
}

// BodyKind enumerates the body literal forms (spec §3).
type BodyKind int

const (
	BodyJSON BodyKind = iota
	BodyXML
	BodyMultilineString
	BodyOnelineString
	BodyBase64
	BodyHex
	BodyFile
)

// Body is the optional request/response payload, always the last
// element in its section order.
type Body struct {
	Span diag.Span
	Kind BodyKind

	// BodyMultilineString only: language tag, one of
	// json|xml|graphql|raw|"" (empty = no tag).
	LanguageTag string

	// Template form used by JSON/XML/multiline/oneline string bodies;
	// when LanguageTag == "raw" the renderer skips substitution.
	Text *Template

	// Base64/Hex literal payload, already decoded at parse time.
	Raw []byte

	// File body: path template, resolved against --file-root.
	FilePath *Template
}

// ResponseVersion is the discriminator produced by both "HTTP" and
// "HTTP/1.1"-style version tags (spec §9 Open Question 2).
type ResponseVersion string

const (
	VersionAny  ResponseVersion = "*"
	Version10   ResponseVersion = "1.0"
	Version11   ResponseVersion = "1.1"
	Version2    ResponseVersion = "2"
	Version3    ResponseVersion = "3"
	VersionAnyHTTP ResponseVersion = "HTTP" // bare "HTTP", matches any version
)

// Response is the optional half of an Entry, used as an expected-response
// specification: implicit asserts plus explicit [Captures]/[Asserts].
type Response struct {
	Span    diag.Span
	Version ResponseVersion
	Status  StatusSpec
	Headers []Header

	Captures []Capture
	Asserts  []Assert

	Body *Body
}

// StatusSpec is either a literal status code or the wildcard "*".
type StatusSpec struct {
	Span      diag.Span
	Wildcard  bool
	Code      int
}

// Query is a named extractor (spec §4.3); Arg carries the
// query-specific argument template (header name, XPath/JSONPath/regex
// expression, cookie "NAME[/ATTR]", certificate attribute, ...). Not
// every Query kind uses Arg.
type Query struct {
	Span diag.Span
	Name string // "status", "header", "jsonpath", "cookie", ...
	Arg  *Template
}

// Filter is one step of the filter pipeline (spec §4.4): a filter name
// plus its argument templates.
type Filter struct {
	Span diag.Span
	Name string
	Args []Template
}

// Capture writes a query (optionally filtered) into the variable store.
type Capture struct {
	Span    diag.Span
	Name    string
	Query   Query
	Filters []Filter
	Redact  bool
}

// Predicate is one of the documented comparison operators (spec §4.6),
// with zero or one typed operand.
type Predicate struct {
	Span     diag.Span
	Negate   bool
	Operator string // normalized: "includes"->"contains", "equals"->"==", etc.
	Operand  *PredicateOperand
}

// PredicateOperand carries the RHS literal in typed form: either Template
// is set, or IsRegex is true and RegexSrc holds the pattern.
type PredicateOperand struct {
	Span     diag.Span
	Template *Template // string/number/bool/null literal rendered through templating
	IsRegex  bool
	RegexSrc string // pattern text when IsRegex
}

// Assert is a query+filter chain checked against a predicate.
type Assert struct {
	Span      diag.Span
	Query     Query
	Filters   []Filter
	Predicate Predicate
}
