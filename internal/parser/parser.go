package parser

import (
	"strconv"
	"strings"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
)

type parserState struct {
	s *scanner
}

// Parse parses a whole .hurl document. Input is bytes plus a filename
// used in diagnostics (spec §4.1 contract). It never builds a separate
// token stream: each helper consumes bytes directly.
func Parse(filename string, src []byte) (*hast.File, error) {
	p := &parserState{s: newScanner(filename, src)}
	file := &hast.File{Name: filename}

	p.s.skipBlankLinesAndComments()
	for !p.s.eof() {
		entry, err := p.parseEntry()
		if err != nil {
			return nil, err
		}
		file.Entries = append(file.Entries, entry)
		p.s.skipBlankLinesAndComments()
	}
	return file, nil
}

func (p *parserState) parseEntry() (hast.Entry, error) {
	start := p.s.mark()
	req, err := p.parseRequest()
	if err != nil {
		return hast.Entry{}, err
	}
	p.s.skipBlankLinesAndComments()

	var resp *hast.Response
	if p.atResponseStart() {
		r, err := p.parseResponse()
		if err != nil {
			return hast.Entry{}, err
		}
		resp = &r
	}
	return hast.Entry{Span: p.s.spanFrom(start), Request: req, Response: resp}, nil
}

// atResponseStart reports whether the scanner is positioned at a
// response line ("HTTP ..." in any of its spellings), as opposed to the
// next entry's request line.
func (p *parserState) atResponseStart() bool {
	save := *p.s
	defer func() { *p.s = save }()
	p.s.skipSpacesAndTabs()
	return hasPrefixWord(p.s.src[p.s.pos:], "HTTP")
}

func hasPrefixWord(src []byte, word string) bool {
	if !strings.HasPrefix(string(src), word) {
		return false
	}
	return true
}

// ---- Request ----

func (p *parserState) parseRequest() (hast.Request, error) {
	start := p.s.mark()

	method, err := p.readBareWord()
	if err != nil {
		return hast.Request{}, err
	}
	p.s.skipSpacesAndTabs()

	url, err := p.readTemplateLine()
	if err != nil {
		return hast.Request{}, err
	}
	if !p.s.consumeNewline() && !p.s.eof() {
		return hast.Request{}, p.s.errorf(diag.Expected, p.s.mark(), "expected end of line after request URL")
	}

	req := hast.Request{Method: method, URL: url}

	headers, err := p.parseHeaders()
	if err != nil {
		return hast.Request{}, err
	}
	req.Headers = headers

	seenSections := map[string]bool{}
	for p.s.atSectionHeader() {
		name, err := p.peekSectionName()
		if err != nil {
			return hast.Request{}, err
		}
		canon := canonicalRequestSection(name)
		if canon == "" {
			return hast.Request{}, p.s.errorf(diag.UnknownSection, p.s.mark(), "unknown section [%s]", name)
		}
		if seenSections[canon] {
			return hast.Request{}, p.s.errorf(diag.SectionConflict, p.s.mark(), "section [%s] given more than once", name)
		}
		seenSections[canon] = true

		if err := p.parseRequestSection(&req, canon); err != nil {
			return hast.Request{}, err
		}
		p.s.skipBlankLinesAndComments()
	}

	if seenSections["Form"] && seenSections["Multipart"] {
		return hast.Request{}, p.s.errorf(diag.BodyAfterAnotherBody, p.s.mark(), "a request may carry at most one of [Form], [Multipart], or a body")
	}

	if bodyPresent := p.atBodyStart(); bodyPresent {
		if seenSections["Form"] || seenSections["Multipart"] {
			return hast.Request{}, p.s.errorf(diag.BodyAfterAnotherBody, p.s.mark(), "a request may carry at most one of [Form], [Multipart], or a body")
		}
		b, err := p.parseBody()
		if err != nil {
			return hast.Request{}, err
		}
		req.Body = &b
	}

	req.Span = p.s.spanFrom(start)
	return req, nil
}

func canonicalRequestSection(name string) string {
	switch name {
	case "Options":
		return "Options"
	case "QueryStringParams", "Query":
		return "Query"
	case "FormParams", "Form":
		return "Form"
	case "MultipartFormData", "Multipart":
		return "Multipart"
	case "Cookies":
		return "Cookies"
	case "BasicAuth":
		return "BasicAuth"
	default:
		return ""
	}
}

func (p *parserState) parseRequestSection(req *hast.Request, canon string) error {
	p.consumeSectionHeaderLine()
	switch canon {
	case "Options":
		opts, err := p.parseOptionLines()
		if err != nil {
			return err
		}
		req.Options = opts
	case "Query":
		kvs, err := p.parseKeyValueLines()
		if err != nil {
			return err
		}
		req.Query = kvs
	case "Form":
		kvs, err := p.parseKeyValueLines()
		if err != nil {
			return err
		}
		req.Form = kvs
	case "Multipart":
		fields, err := p.parseMultipartLines()
		if err != nil {
			return err
		}
		req.Multipart = fields
	case "Cookies":
		cookies, err := p.parseKeyValueLines()
		if err != nil {
			return err
		}
		for _, kv := range cookies {
			req.Cookies = append(req.Cookies, hast.CookieField{Span: kv.Span, Name: kv.Key, Value: kv.Value})
		}
	case "BasicAuth":
		auth, err := p.parseBasicAuthLine()
		if err != nil {
			return err
		}
		req.BasicAuth = &auth
	}
	return nil
}

// ---- Response ----

func (p *parserState) parseResponse() (hast.Response, error) {
	start := p.s.mark()

	versionTag, err := p.readBareWord()
	if err != nil {
		return hast.Response{}, err
	}
	version, err := normalizeVersionTag(versionTag)
	if err != nil {
		return hast.Response{}, p.s.errorf(diag.Expected, start, "%v", err)
	}
	p.s.skipSpacesAndTabs()

	statusStart := p.s.mark()
	status, err := p.parseStatusSpec(statusStart)
	if err != nil {
		return hast.Response{}, err
	}
	p.s.skipLineCommentIfAny()
	if !p.s.consumeNewline() && !p.s.eof() {
		return hast.Response{}, p.s.errorf(diag.Expected, p.s.mark(), "expected end of line after response status")
	}

	resp := hast.Response{Version: version, Status: status}

	headers, err := p.parseHeaders()
	if err != nil {
		return hast.Response{}, err
	}
	resp.Headers = headers

	seenSections := map[string]bool{}
	for p.s.atSectionHeader() {
		name, err := p.peekSectionName()
		if err != nil {
			return hast.Response{}, err
		}
		canon := canonicalResponseSection(name)
		if canon == "" {
			return hast.Response{}, p.s.errorf(diag.UnknownSection, p.s.mark(), "unknown section [%s]", name)
		}
		if seenSections[canon] {
			return hast.Response{}, p.s.errorf(diag.SectionConflict, p.s.mark(), "section [%s] given more than once", name)
		}
		seenSections[canon] = true

		p.consumeSectionHeaderLine()
		switch canon {
		case "Captures":
			caps, err := p.parseCaptureLines()
			if err != nil {
				return hast.Response{}, err
			}
			resp.Captures = caps
		case "Asserts":
			asserts, err := p.parseAssertLines()
			if err != nil {
				return hast.Response{}, err
			}
			resp.Asserts = asserts
		}
		p.s.skipBlankLinesAndComments()
	}

	if p.atBodyStart() {
		b, err := p.parseBody()
		if err != nil {
			return hast.Response{}, err
		}
		resp.Body = &b
	}

	resp.Span = p.s.spanFrom(start)
	return resp, nil
}

func canonicalResponseSection(name string) string {
	switch name {
	case "Captures":
		return "Captures"
	case "Asserts":
		return "Asserts"
	default:
		return ""
	}
}

func normalizeVersionTag(tag string) (hast.ResponseVersion, error) {
	switch tag {
	case "*":
		return hast.VersionAny, nil
	case "HTTP":
		return hast.VersionAnyHTTP, nil
	case "HTTP/1.0":
		return hast.Version10, nil
	case "HTTP/1.1":
		return hast.Version11, nil
	case "HTTP/2":
		return hast.Version2, nil
	case "HTTP/3":
		return hast.Version3, nil
	default:
		return "", errInvalidVersionTag(tag)
	}
}

type invalidVersionTagError string

func (e invalidVersionTagError) Error() string { return "invalid HTTP version tag: " + string(e) }
func errInvalidVersionTag(tag string) error    { return invalidVersionTagError(tag) }

func (p *parserState) parseStatusSpec(start diag.Span) (hast.StatusSpec, error) {
	if p.s.peekByte() == '*' {
		p.s.advanceByte()
		return hast.StatusSpec{Span: p.s.spanFrom(start), Wildcard: true}, nil
	}
	var digits strings.Builder
	for !p.s.eof() && p.s.peekByte() >= '0' && p.s.peekByte() <= '9' {
		digits.WriteByte(p.s.advanceByte())
	}
	if digits.Len() == 0 {
		return hast.StatusSpec{}, p.s.errorf(diag.InvalidNumber, start, "expected a status code or '*'")
	}
	code, err := strconv.Atoi(digits.String())
	if err != nil {
		return hast.StatusSpec{}, p.s.errorf(diag.InvalidNumber, start, "invalid status code: %v", err)
	}
	return hast.StatusSpec{Span: p.s.spanFrom(start), Code: code}, nil
}

// ---- Headers ----

func (p *parserState) parseHeaders() ([]hast.Header, error) {
	var headers []hast.Header
	for {
		p.s.skipBlankLinesAndComments()
		if p.s.eof() || p.s.atSectionHeader() || p.atBodyStart() || p.atResponseStart() {
			return headers, nil
		}
		h, err := p.parseHeaderLine()
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
}

func (p *parserState) parseHeaderLine() (hast.Header, error) {
	start := p.s.mark()
	name, err := p.readTemplateUntil(':')
	if err != nil {
		return hast.Header{}, err
	}
	if p.s.peekByte() != ':' {
		return hast.Header{}, p.s.errorf(diag.Expected, start, "expected ':' in header line")
	}
	p.s.advanceByte()
	p.s.skipSpacesAndTabs()
	value, err := p.readTemplateLine()
	if err != nil {
		return hast.Header{}, err
	}
	if !p.s.consumeNewline() && !p.s.eof() {
		return hast.Header{}, p.s.errorf(diag.Expected, p.s.mark(), "expected end of line after header value")
	}
	return hast.Header{Span: p.s.spanFrom(start), Name: name, Value: value}, nil
}

// readTemplateUntil reads a template run up to (not including) the first
// unescaped occurrence of stop, on the current line only.
func (p *parserState) readTemplateUntil(stop byte) (hast.Template, error) {
	start := p.s.mark()
	var parts []hast.TemplatePart
	var lit strings.Builder
	litStart := p.s.mark()
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, hast.TemplatePart{Span: p.s.spanFrom(litStart), Literal: lit.String()})
			lit.Reset()
		}
	}
	for !p.s.eof() {
		b := p.s.peekByte()
		if b == stop || b == '\n' {
			break
		}
		if b == '{' && p.s.peekByteAt(1) == '{' {
			flush()
			expr, err := p.readPlaceholder()
			if err != nil {
				return hast.Template{}, err
			}
			parts = append(parts, hast.TemplatePart{Span: expr.Span, Expr: expr})
			litStart = p.s.mark()
			continue
		}
		if lit.Len() == 0 {
			litStart = p.s.mark()
		}
		lit.WriteByte(p.s.advanceByte())
	}
	flush()
	return hast.Template{Span: p.s.spanFrom(start), Parts: parts}, nil
}

// ---- Bare words ----

func (p *parserState) readBareWord() (string, error) {
	start := p.s.mark()
	var sb strings.Builder
	for !p.s.eof() {
		b := p.s.peekByte()
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			break
		}
		sb.WriteByte(p.s.advanceByte())
	}
	if sb.Len() == 0 {
		return "", p.s.errorf(diag.Expected, start, "expected a word")
	}
	return sb.String(), nil
}

// ---- Sections ----

func (p *parserState) peekSectionName() (string, error) {
	save := *p.s
	defer func() { *p.s = save }()
	p.s.skipSpacesAndTabs()
	start := p.s.mark()
	if p.s.peekByte() != '[' {
		return "", p.s.errorf(diag.Expected, start, "expected '['")
	}
	p.s.advanceByte()
	var sb strings.Builder
	for !p.s.eof() && p.s.peekByte() != ']' && p.s.peekByte() != '\n' {
		sb.WriteByte(p.s.advanceByte())
	}
	if p.s.peekByte() != ']' {
		return "", p.s.errorf(diag.Expected, start, "unterminated section header")
	}
	return sb.String(), nil
}

func (p *parserState) consumeSectionHeaderLine() {
	p.s.skipSpacesAndTabs()
	p.s.advanceByte() // [
	for !p.s.eof() && p.s.peekByte() != ']' {
		p.s.advanceByte()
	}
	if !p.s.eof() {
		p.s.advanceByte() // ]
	}
	p.s.skipLineCommentIfAny()
	p.s.consumeNewline()
}

// parseKeyValueLines reads "key: value" lines until the next section,
// body, or entry boundary — used by [Query], [Form], [Cookies].
func (p *parserState) parseKeyValueLines() ([]hast.KeyValue, error) {
	var out []hast.KeyValue
	for {
		p.s.skipBlankLinesAndComments()
		if p.s.eof() || p.s.atSectionHeader() || p.atBodyStart() || p.atResponseStart() {
			return out, nil
		}
		start := p.s.mark()
		key, err := p.readTemplateUntil(':')
		if err != nil {
			return nil, err
		}
		if p.s.peekByte() != ':' {
			return nil, p.s.errorf(diag.Expected, start, "expected ':' in key/value line")
		}
		p.s.advanceByte()
		p.s.skipSpacesAndTabs()
		value, err := p.readTemplateLine()
		if err != nil {
			return nil, err
		}
		p.s.consumeNewline()
		out = append(out, hast.KeyValue{Span: p.s.spanFrom(start), Key: key, Value: value})
	}
}

// parseOptionLines reads "name: value" lines for [Options].
func (p *parserState) parseOptionLines() ([]hast.Option, error) {
	kvs, err := p.parseKeyValueLines()
	if err != nil {
		return nil, err
	}
	out := make([]hast.Option, 0, len(kvs))
	for _, kv := range kvs {
		name := templateLiteralOrRaw(kv.Key)
		out = append(out, hast.Option{Span: kv.Span, Name: name, Value: kv.Value})
	}
	return out, nil
}

func templateLiteralOrRaw(t hast.Template) string {
	var sb strings.Builder
	for _, p := range t.Parts {
		if p.Expr == nil {
			sb.WriteString(p.Literal)
		}
	}
	return strings.TrimSpace(sb.String())
}

func (p *parserState) parseBasicAuthLine() (hast.BasicAuth, error) {
	p.s.skipBlankLinesAndComments()
	start := p.s.mark()
	user, err := p.readTemplateUntil(':')
	if err != nil {
		return hast.BasicAuth{}, err
	}
	if p.s.peekByte() != ':' {
		return hast.BasicAuth{}, p.s.errorf(diag.Expected, start, "expected ':' in basic auth line")
	}
	p.s.advanceByte()
	pass, err := p.readTemplateLine()
	if err != nil {
		return hast.BasicAuth{}, err
	}
	p.s.consumeNewline()
	return hast.BasicAuth{Span: p.s.spanFrom(start), Username: user, Password: pass}, nil
}

func (p *parserState) parseMultipartLines() ([]hast.MultipartField, error) {
	var out []hast.MultipartField
	for {
		p.s.skipBlankLinesAndComments()
		if p.s.eof() || p.s.atSectionHeader() || p.atBodyStart() || p.atResponseStart() {
			return out, nil
		}
		start := p.s.mark()
		name, err := p.readTemplateUntil(':')
		if err != nil {
			return nil, err
		}
		if p.s.peekByte() != ':' {
			return nil, p.s.errorf(diag.Expected, start, "expected ':' in multipart field line")
		}
		p.s.advanceByte()
		p.s.skipSpacesAndTabs()

		field := hast.MultipartField{Span: start, Name: name}
		if p.matchWord("file,") {
			pathStart := p.s.mark()
			path, err := p.readTemplateUntil(';')
			if err != nil {
				return nil, err
			}
			if p.s.peekByte() == ';' {
				p.s.advanceByte()
			}
			p.s.skipSpacesAndTabs()
			field.IsFile = true
			field.FilePath = &path
			if !p.s.eof() && p.s.peekByte() != '\n' && p.s.peekByte() != '\r' {
				ct, err := p.readTemplateLine()
				if err != nil {
					return nil, err
				}
				field.ContentType = &ct
			}
			_ = pathStart
		} else {
			val, err := p.readTemplateLine()
			if err != nil {
				return nil, err
			}
			field.Value = val
		}
		p.s.consumeNewline()
		field.Span = p.s.spanFrom(start)
		out = append(out, field)
	}
}

// matchWord consumes the given literal prefix (case sensitive) if the
// scanner is currently positioned at it, reporting whether it matched.
func (p *parserState) matchWord(word string) bool {
	if p.s.pos+len(word) > len(p.s.src) {
		return false
	}
	if string(p.s.src[p.s.pos:p.s.pos+len(word)]) != word {
		return false
	}
	for range word {
		p.s.advanceByte()
	}
	return true
}

