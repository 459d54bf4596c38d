// Package query evaluates the named extractors of spec §4.3 against a
// captured HTTP response: status/version/url/redirects/ip, headers and
// cookies, the body in its various shapes, XPath and JSONPath
// expressions, digests, and certificate attributes. Each query produces
// a value.Value fed either straight into an Assert's predicate or into
// the filter pipeline (package filter).
package query

import (
	"bytes"
	"crypto/md5"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/itchyny/gojq"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

// Cookie mirrors the attributes a Set-Cookie response header can carry,
// used by the "cookie" query's optional "/Attribute" suffix.
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Expires  time.Time
	HasMaxAge bool
	MaxAge   int
	Secure   bool
	HttpOnly bool
	SameSite string
}

// CertificateInfo is populated from the TLS connection state when the
// request went over https (spec §4.3 "certificate" query).
type CertificateInfo struct {
	Subject      string
	Issuer       string
	ExpireDate   time.Time
	SerialNumber string
}

// Redirect is one hop of a followed redirect chain (spec §4.3
// "redirects" query: "List of Objects {location: Str, status: Int}").
type Redirect struct {
	Location string
	Status   int
}

// Response is the runtime-evaluated half of an entry: everything a
// Query can read. The HTTP engine adapter is responsible for producing
// one of these from a real transaction.
type Response struct {
	HTTPVersion string // "1.0", "1.1", "2", "3"
	StatusCode  int
	NameValues  []NameValue
	Cookies     []Cookie
	Body        []byte // fully decoded (Content-Encoding reversed) body bytes
	ContentType string
	URL         string // final URL after following redirects
	Redirects   []Redirect
	RemoteIP    string
	Duration    time.Duration
	Certificate *CertificateInfo
}

// NameValue is a case-preserving header entry; HTTP allows repeated
// header names, so this is a slice rather than a map.
type NameValue struct {
	Name  string
	Value string
}

func headerValues(nvs []NameValue, name string) []string {
	var out []string
	lower := strings.ToLower(name)
	for _, nv := range nvs {
		if strings.ToLower(nv.Name) == lower {
			out = append(out, nv.Value)
		}
	}
	return out
}

// decodeBody decodes raw bytes into text for the "body" query, honoring
// the response's Content-Type charset parameter (falling back to UTF-8
// when absent or unrecognized, per spec §4.3).
func decodeBody(body []byte, contentType string) string {
	charset := charsetOf(contentType)
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return string(body)
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return string(body)
	}
	return string(decoded)
}

func charsetOf(contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return params["charset"]
}

// Evaluate runs a single Query against resp, rendering its argument
// template (header name, XPath/JSONPath expression, ...) through store
// first.
func Evaluate(q hast.Query, resp *Response, store *render.Store) (value.Value, error) {
	var arg string
	if q.Arg != nil {
		rendered, err := store.String(*q.Arg)
		if err != nil {
			return value.Value{}, err
		}
		arg = rendered
	}

	switch q.Name {
	case "status":
		return value.Int(int64(resp.StatusCode)), nil
	case "version":
		return value.Str(resp.HTTPVersion), nil
	case "url":
		return value.Str(resp.URL), nil
	case "ip":
		return value.Str(resp.RemoteIP), nil
	case "redirects":
		items := make([]value.Value, len(resp.Redirects))
		for i, r := range resp.Redirects {
			obj := value.NewObject()
			obj.Set("location", value.Str(r.Location))
			obj.Set("status", value.Int(int64(r.Status)))
			items[i] = value.Obj(obj)
		}
		return value.List(items), nil
	case "duration":
		return value.Int(resp.Duration.Milliseconds()), nil
	case "header":
		vals := headerValues(resp.NameValues, arg)
		if len(vals) == 0 {
			// No node, not an error: "header NAME not exists" must pass
			// and "header NAME exists" must fail (spec §8), the same
			// no-match convention xpath/jsonpath/regex use below.
			return value.Null(), nil
		}
		if len(vals) == 1 {
			return value.Str(vals[0]), nil
		}
		items := make([]value.Value, len(vals))
		for i, v := range vals {
			items[i] = value.Str(v)
		}
		return value.List(items), nil
	case "cookie":
		return evalCookie(q, resp, arg)
	case "body":
		return value.Str(decodeBody(resp.Body, resp.ContentType)), nil
	case "bytes", "rawbytes":
		return value.Bytes(resp.Body), nil
	case "xpath":
		return evalXPath(q, resp, arg)
	case "jsonpath":
		return evalJSONPath(q, resp, arg)
	case "regex":
		return evalRegex(q, resp, arg)
	case "sha256":
		sum := sha256.Sum256(resp.Body)
		return value.Bytes(sum[:]), nil
	case "md5":
		sum := md5.Sum(resp.Body)
		return value.Bytes(sum[:]), nil
	case "variable":
		v, ok := store.Get(arg)
		if !ok {
			return value.Value{}, &diag.QueryEvalError{Kind: "variable", Span: q.Span, Err: fmt.Errorf("undefined variable %q", arg)}
		}
		return v, nil
	case "certificate":
		return evalCertificate(q, resp, arg)
	default:
		return value.Value{}, &diag.QueryEvalError{Kind: q.Name, Span: q.Span, Err: fmt.Errorf("unknown query %q", q.Name)}
	}
}

// evalCookie supports both "cookie Name" (the cookie's value) and
// "cookie Name/Attribute" (Value|Domain|Path|Expires|Secure|HttpOnly|
// SameSite|MaxAge).
func evalCookie(q hast.Query, resp *Response, arg string) (value.Value, error) {
	name, attr, hasAttr := strings.Cut(arg, "/")
	var found *Cookie
	for i := range resp.Cookies {
		if resp.Cookies[i].Name == name {
			found = &resp.Cookies[i]
			break
		}
	}
	if found == nil {
		// No node, not an error: "cookie NAME not exists" must pass
		// (spec §8), mirroring the header query's no-match convention.
		return value.Null(), nil
	}
	if !hasAttr {
		return value.Str(found.Value), nil
	}
	// Attribute lookup is case-insensitive (spec §4.3: "case-insensitive
	// match on Value|Expires|Max-Age|Domain|Path|Secure|HttpOnly|SameSite").
	switch strings.ToLower(attr) {
	case "value":
		return value.Str(found.Value), nil
	case "domain":
		return value.Str(found.Domain), nil
	case "path":
		return value.Str(found.Path), nil
	case "expires":
		if found.Expires.IsZero() {
			return value.Null(), nil
		}
		return value.Str(found.Expires.UTC().Format(time.RFC1123)), nil
	case "max-age", "maxage":
		if !found.HasMaxAge {
			return value.Null(), nil
		}
		return value.Int(int64(found.MaxAge)), nil
	case "secure":
		// Only exists/not exists apply (spec §4.3): a cookie that never
		// set the flag produces no node rather than value.Bool(false),
		// so "not exists" can tell the two cases apart.
		if !found.Secure {
			return value.Null(), nil
		}
		return value.Bool(true), nil
	case "httponly":
		if !found.HttpOnly {
			return value.Null(), nil
		}
		return value.Bool(true), nil
	case "samesite":
		if found.SameSite == "" {
			return value.Null(), nil
		}
		return value.Str(found.SameSite), nil
	default:
		return value.Value{}, &diag.QueryEvalError{Kind: "cookie", Span: q.Span, Err: fmt.Errorf("unknown cookie attribute %q", attr)}
	}
}

func evalXPath(q hast.Query, resp *Response, expr string) (value.Value, error) {
	doc, err := htmlquery.Parse(strings.NewReader(string(resp.Body)))
	if err != nil {
		return value.Value{}, &diag.QueryEvalError{Kind: "xpath", Span: q.Span, Err: err}
	}
	nodes, err := htmlquery.QueryAll(doc, expr)
	if err != nil {
		return value.Value{}, &diag.QueryEvalError{Kind: "xpath", Span: q.Span, Err: err}
	}
	if len(nodes) == 0 {
		return value.Null(), nil
	}
	if len(nodes) == 1 {
		return value.Str(htmlquery.InnerText(nodes[0])), nil
	}
	items := make([]value.Value, len(nodes))
	for i, n := range nodes {
		items[i] = value.Str(htmlquery.InnerText(n))
	}
	return value.List(items), nil
}

// evalJSONPath evaluates expr as a gojq program against the JSON body.
// Leading "$" is stripped to match jq's implicit root, matching the
// teacher's own "json_path" convention of running a gojq program under
// that name (spec §9 design note).
func evalJSONPath(q hast.Query, resp *Response, expr string) (value.Value, error) {
	normalized := strings.TrimPrefix(strings.TrimSpace(expr), "$")
	if normalized == "" {
		normalized = "."
	}
	program, err := gojq.Parse(normalized)
	if err != nil {
		return value.Value{}, &diag.QueryEvalError{Kind: "jsonpath", Span: q.Span, Err: fmt.Errorf("invalid jsonpath expression %q: %w", expr, err)}
	}
	doc, err := decodeJSONDoc(resp.Body)
	if err != nil {
		return value.Value{}, &diag.QueryEvalError{Kind: "jsonpath", Span: q.Span, Err: fmt.Errorf("response body is not valid JSON: %w", err)}
	}
	iter := program.Run(doc)
	var results []value.Value
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return value.Value{}, &diag.QueryEvalError{Kind: "jsonpath", Span: q.Span, Err: err}
		}
		results = append(results, fromJSON(v))
	}
	if len(results) == 0 {
		return value.Null(), nil
	}
	if len(results) == 1 {
		return results[0], nil
	}
	return value.List(results), nil
}

func evalRegex(q hast.Query, resp *Response, pattern string) (value.Value, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return value.Value{}, &diag.QueryEvalError{Kind: "regex", Span: q.Span, Err: fmt.Errorf("invalid regex %q: %w", pattern, err)}
	}
	m := re.FindStringSubmatch(string(resp.Body))
	if m == nil {
		return value.Null(), nil
	}
	if len(m) > 1 {
		return value.Str(m[1]), nil
	}
	return value.Str(m[0]), nil
}

func evalCertificate(q hast.Query, resp *Response, attr string) (value.Value, error) {
	if resp.Certificate == nil {
		return value.Value{}, &diag.QueryEvalError{Kind: "certificate", Span: q.Span, Err: fmt.Errorf("response was not served over TLS")}
	}
	switch attr {
	case "Subject":
		return value.Str(resp.Certificate.Subject), nil
	case "Issuer":
		return value.Str(resp.Certificate.Issuer), nil
	case "Expire-Date":
		return value.Str(resp.Certificate.ExpireDate.UTC().Format(time.RFC1123)), nil
	case "Serial-Number":
		return value.Str(resp.Certificate.SerialNumber), nil
	default:
		return value.Value{}, &diag.QueryEvalError{Kind: "certificate", Span: q.Span, Err: fmt.Errorf("unknown certificate attribute %q", attr)}
	}
}

// decodeJSONDoc parses a response body for jsonpath evaluation.
func decodeJSONDoc(body []byte) (interface{}, error) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// fromJSON converts a decoded JSON value (or a gojq result value, which
// uses the same shapes plus *big.Int for oversized integers) into a
// value.Value. A float with no fractional part becomes KindInt; this is
// a pragmatic heuristic since plain encoding/json collapses the JSON
// number grammar into float64.
func fromJSON(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(t)
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t <= math.MaxInt64 {
			return value.Int(int64(t))
		}
		return value.Float(t)
	case int:
		return value.Int(int64(t))
	case int64:
		return value.Int(t)
	case *big.Int:
		return value.Int(t.Int64())
	case string:
		return value.Str(t)
	case []interface{}:
		items := make([]value.Value, len(t))
		for i, e := range t {
			items[i] = fromJSON(e)
		}
		return value.List(items)
	case map[string]interface{}:
		obj := value.NewObject()
		for k, e := range t {
			obj.Set(k, fromJSON(e))
		}
		return value.Obj(obj)
	default:
		return value.Str(fmt.Sprintf("%v", t))
	}
}
