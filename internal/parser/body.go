package parser

import (
	"encoding/base64"
	"encoding/hex"
	"strings"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
)

// atBodyStart reports whether the scanner, after skipping blank lines and
// comments, sits at one of the documented body literal openers (spec
// §3/§4.1): a fenced code block, an inline oneline string, an explicit
// base64/hex/file encoding, or a bare JSON/XML literal.
func (p *parserState) atBodyStart() bool {
	save := *p.s
	defer func() { *p.s = save }()
	p.s.skipBlankLinesAndComments()
	if p.s.eof() || p.s.atSectionHeader() || p.atResponseStart() {
		return false
	}
	b := p.s.peekByte()
	switch {
	case b == '`':
		return true
	case b == '{' || b == '[' || b == '<':
		return true
	case hasBarePrefix(p.s, "base64,"), hasBarePrefix(p.s, "hex,"), hasBarePrefix(p.s, "file,"):
		return true
	default:
		return false
	}
}

func hasBarePrefix(s *scanner, word string) bool {
	if s.pos+len(word) > len(s.src) {
		return false
	}
	return string(s.src[s.pos:s.pos+len(word)]) == word
}

// parseBody dispatches across the body literal forms (spec §3, §4.1):
//
//	```[json|xml|graphql|raw]\n ... \n```   multiline string
//	`one line`                              oneline string
//	base64,<b64 with optional whitespace>;  base64 literal
//	hex,<hex with optional whitespace>;     hex literal
//	file,<path>;                            file reference
//	{ ... } or [ ... ]                      bare JSON literal
//	< ... >                                 bare XML literal
func (p *parserState) parseBody() (hast.Body, error) {
	p.s.skipBlankLinesAndComments()
	start := p.s.mark()

	switch {
	case p.matchWord("base64,"):
		return p.parseEncodedBody(hast.BodyBase64, ';', start)
	case p.matchWord("hex,"):
		return p.parseEncodedBody(hast.BodyHex, ';', start)
	case p.matchWord("file,"):
		path, err := p.readTemplateUntil(';')
		if err != nil {
			return hast.Body{}, err
		}
		if p.s.peekByte() == ';' {
			p.s.advanceByte()
		}
		p.s.skipLineCommentIfAny()
		p.s.consumeNewline()
		return hast.Body{Span: p.s.spanFrom(start), Kind: hast.BodyFile, FilePath: &path}, nil
	case p.s.peekByte() == '`' && p.s.peekByteAt(1) == '`' && p.s.peekByteAt(2) == '`':
		return p.parseMultilineBody(start)
	case p.s.peekByte() == '`':
		return p.parseOnelineBody(start)
	case p.s.peekByte() == '<':
		text, err := p.readBodyToEndOfEntry()
		if err != nil {
			return hast.Body{}, err
		}
		return hast.Body{Span: p.s.spanFrom(start), Kind: hast.BodyXML, Text: &text}, nil
	default: // '{' or '['
		text, err := p.readBodyToEndOfEntry()
		if err != nil {
			return hast.Body{}, err
		}
		return hast.Body{Span: p.s.spanFrom(start), Kind: hast.BodyJSON, Text: &text}, nil
	}
}

// parseEncodedBody reads the run of bytes up to `stop`, stripping ASCII
// whitespace (the documented base64/hex literal forms allow embedded
// newlines for readability), then decodes it immediately so parse errors
// surface at parse time rather than render time.
func (p *parserState) parseEncodedBody(kind hast.BodyKind, stop byte, start diag.Span) (hast.Body, error) {
	var sb strings.Builder
	for !p.s.eof() && p.s.peekByte() != stop {
		b := p.s.advanceByte()
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		sb.WriteByte(b)
	}
	if p.s.peekByte() != stop {
		return hast.Body{}, p.s.errorf(diag.UnterminatedString, start, "unterminated encoded body literal, expected %q", string(stop))
	}
	p.s.advanceByte()
	p.s.skipLineCommentIfAny()
	p.s.consumeNewline()

	raw, err := decodeBodyLiteral(kind, sb.String())
	if err != nil {
		return hast.Body{}, p.s.errorf(diag.InvalidNumber, start, "invalid %s body literal: %v", bodyKindName(kind), err)
	}
	return hast.Body{Span: p.s.spanFrom(start), Kind: kind, Raw: raw}, nil
}

func decodeBodyLiteral(kind hast.BodyKind, s string) ([]byte, error) {
	switch kind {
	case hast.BodyHex:
		return hex.DecodeString(s)
	default: // BodyBase64
		return base64.StdEncoding.DecodeString(s)
	}
}

func bodyKindName(kind hast.BodyKind) string {
	if kind == hast.BodyHex {
		return "hex"
	}
	return "base64"
}

// parseMultilineBody reads a ```[lang]\n ... \n``` block. A "raw" language
// tag disables template substitution in the renderer; any other tag is
// carried through purely as metadata.
func (p *parserState) parseMultilineBody(start diag.Span) (hast.Body, error) {
	p.s.advanceByte()
	p.s.advanceByte()
	p.s.advanceByte()

	var lang strings.Builder
	for !p.s.eof() && p.s.peekByte() != '\n' {
		lang.WriteByte(p.s.advanceByte())
	}
	p.s.consumeNewline()
	tag := strings.TrimSpace(lang.String())

	kind := hast.BodyMultilineString
	switch tag {
	case "json":
		kind = hast.BodyJSON
	case "xml":
		kind = hast.BodyXML
	}

	bodyStart := p.s.mark()
	var parts []hast.TemplatePart
	var lit strings.Builder
	litStart := bodyStart
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, hast.TemplatePart{Span: p.s.spanFrom(litStart), Literal: lit.String()})
			lit.Reset()
		}
	}
	for {
		if p.s.eof() {
			return hast.Body{}, p.s.errorf(diag.UnterminatedString, start, "unterminated multiline body, expected closing ```")
		}
		if p.s.peekByte() == '`' && p.s.peekByteAt(1) == '`' && p.s.peekByteAt(2) == '`' {
			break
		}
		b := p.s.peekByte()
		if tag != "raw" && b == '{' && p.s.peekByteAt(1) == '{' {
			flush()
			expr, err := p.readPlaceholder()
			if err != nil {
				return hast.Body{}, err
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
	text := hast.Template{Span: p.s.spanFrom(bodyStart), Parts: parts}

	p.s.advanceByte()
	p.s.advanceByte()
	p.s.advanceByte()
	p.s.skipLineCommentIfAny()
	p.s.consumeNewline()

	return hast.Body{Span: p.s.spanFrom(start), Kind: kind, LanguageTag: tag, Text: &text}, nil
}

// parseOnelineBody reads a `single backtick` body confined to one line.
func (p *parserState) parseOnelineBody(start diag.Span) (hast.Body, error) {
	p.s.advanceByte()
	bodyStart := p.s.mark()
	var parts []hast.TemplatePart
	var lit strings.Builder
	litStart := bodyStart
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, hast.TemplatePart{Span: p.s.spanFrom(litStart), Literal: lit.String()})
			lit.Reset()
		}
	}
	for {
		if p.s.eof() || p.s.peekByte() == '\n' {
			return hast.Body{}, p.s.errorf(diag.UnterminatedString, start, "unterminated oneline body, expected closing '`'")
		}
		if p.s.peekByte() == '`' {
			break
		}
		if p.s.peekByte() == '{' && p.s.peekByteAt(1) == '{' {
			flush()
			expr, err := p.readPlaceholder()
			if err != nil {
				return hast.Body{}, err
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
	text := hast.Template{Span: p.s.spanFrom(bodyStart), Parts: parts}
	p.s.advanceByte() // closing `
	p.s.skipLineCommentIfAny()
	p.s.consumeNewline()
	return hast.Body{Span: p.s.spanFrom(start), Kind: hast.BodyOnelineString, Text: &text}, nil
}

// readBodyToEndOfEntry reads a bare JSON/XML literal: every line up to the
// next blank line, section header, response start, or EOF, preserving
// internal newlines verbatim.
func (p *parserState) readBodyToEndOfEntry() (hast.Template, error) {
	start := p.s.mark()
	var parts []hast.TemplatePart
	var lit strings.Builder
	litStart := start
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, hast.TemplatePart{Span: p.s.spanFrom(litStart), Literal: lit.String()})
			lit.Reset()
		}
	}
	for !p.s.eof() {
		if p.atLogicalLineBreakBeforeBoundary() {
			break
		}
		b := p.s.peekByte()
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

// atLogicalLineBreakBeforeBoundary reports whether the scanner, at a
// newline, is followed by a blank line, a section header, or a response
// start — the documented end of a bare body literal.
func (p *parserState) atLogicalLineBreakBeforeBoundary() bool {
	if p.s.peekByte() != '\n' {
		return false
	}
	save := *p.s
	defer func() { *p.s = save }()
	p.s.advanceByte()
	p.s.skipSpacesAndTabs()
	if p.s.eof() {
		return true
	}
	if p.s.peekByte() == '\n' {
		return true
	}
	if p.s.peekByte() == '[' {
		return true
	}
	return hasBarePrefix(p.s, "HTTP")
}
