package parser

import (
	"strings"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
)

// readTemplateLine reads a template-enabled string running to the end of
// the current physical line (trimming a trailing comment and trailing
// horizontal whitespace), recognizing {{ expr }} placeholders. Used for
// URLs, header values, and other single-line template contexts.
func (p *parserState) readTemplateLine() (hast.Template, error) {
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
		if b == '\n' || (b == '\r' && p.s.peekByteAt(1) == '\n') {
			break
		}
		if b == '#' {
			break
		}
		if b == '\\' && p.s.peekByteAt(1) == '#' {
			p.s.advanceByte()
			lit.WriteByte(p.s.advanceByte())
			continue
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

	return trimTrailingHorizontalWhitespace(hast.Template{Span: p.s.spanFrom(start), Parts: parts}), nil
}

// readPlaceholder reads a "{{ name }}" or "{{ func() }}" expression,
// assuming the scanner is positioned at the opening "{{".
func (p *parserState) readPlaceholder() (*hast.Expr, error) {
	start := p.s.mark()
	p.s.advanceByte() // {
	p.s.advanceByte() // {
	p.s.skipSpacesAndTabs()

	var name strings.Builder
	for !p.s.eof() {
		b := p.s.peekByte()
		if b == '}' && p.s.peekByteAt(1) == '}' {
			break
		}
		if b == '\n' {
			return nil, p.s.errorf(diag.InvalidTemplate, start, "unterminated template placeholder")
		}
		name.WriteByte(p.s.advanceByte())
	}
	if p.s.eof() {
		return nil, p.s.errorf(diag.InvalidTemplate, start, "unterminated template placeholder")
	}
	p.s.advanceByte() // }
	p.s.advanceByte() // }

	raw := strings.TrimSpace(name.String())
	if raw == "" {
		return nil, p.s.errorf(diag.InvalidTemplate, start, "empty template placeholder")
	}

	span := p.s.spanFrom(start)
	if strings.HasSuffix(raw, "()") {
		return &hast.Expr{Span: span, Function: strings.TrimSuffix(raw, "()")}, nil
	}
	return &hast.Expr{Span: span, Variable: raw}, nil
}

// trimTrailingHorizontalWhitespace trims trailing spaces/tabs from the
// final literal part of a template, matching the "trailing whitespace
// trimmed" lexical rule for single-line template contexts.
func trimTrailingHorizontalWhitespace(t hast.Template) hast.Template {
	if len(t.Parts) == 0 {
		return t
	}
	last := &t.Parts[len(t.Parts)-1]
	if last.Expr == nil {
		last.Literal = strings.TrimRight(last.Literal, " \t")
		if last.Literal == "" {
			t.Parts = t.Parts[:len(t.Parts)-1]
		}
	}
	return t
}

// readQuotedTemplate reads a double-quoted template string, honoring the
// escapes in spec §4.1 (\" \\ \b \f \n \r \t \u{HEX+}) and {{ }}
// placeholders.
func (p *parserState) readQuotedTemplate() (hast.Template, error) {
	start := p.s.mark()
	if p.s.peekByte() != '"' {
		return hast.Template{}, p.s.errorf(diag.Expected, start, `expected '"'`)
	}
	p.s.advanceByte()

	var parts []hast.TemplatePart
	var lit strings.Builder
	litStart := p.s.mark()
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, hast.TemplatePart{Span: p.s.spanFrom(litStart), Literal: lit.String()})
			lit.Reset()
		}
	}

	for {
		if p.s.eof() {
			return hast.Template{}, p.s.errorf(diag.UnterminatedString, start, "unterminated quoted string")
		}
		b := p.s.peekByte()
		if b == '"' {
			p.s.advanceByte()
			break
		}
		if b == '\n' {
			return hast.Template{}, p.s.errorf(diag.UnterminatedString, start, "unterminated quoted string")
		}
		if b == '\\' {
			r, err := p.readEscape()
			if err != nil {
				return hast.Template{}, err
			}
			lit.WriteRune(r)
			continue
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
	return hast.Template{Span: p.s.spanFrom(start), Parts: parts, Quoted: true}, nil
}

// readEscape consumes one backslash escape sequence, assuming the
// scanner is positioned at the leading '\'.
func (p *parserState) readEscape() (rune, error) {
	start := p.s.mark()
	p.s.advanceByte() // backslash
	if p.s.eof() {
		return 0, p.s.errorf(diag.InvalidEscape, start, "unterminated escape")
	}
	c := p.s.advanceByte()
	switch c {
	case '"':
		return '"', nil
	case '\\':
		return '\\', nil
	case 'b':
		return '\b', nil
	case 'f':
		return '\f', nil
	case 'n':
		return '\n', nil
	case 'r':
		return '\r', nil
	case 't':
		return '\t', nil
	case 'u':
		if p.s.peekByte() != '{' {
			return 0, p.s.errorf(diag.InvalidEscape, start, `expected '{' after \u`)
		}
		p.s.advanceByte()
		var hex strings.Builder
		for !p.s.eof() && p.s.peekByte() != '}' {
			hex.WriteByte(p.s.advanceByte())
		}
		if p.s.eof() {
			return 0, p.s.errorf(diag.InvalidEscape, start, "unterminated \\u{...} escape")
		}
		p.s.advanceByte() // }
		var code rune
		for _, ch := range hex.String() {
			v, ok := hexDigit(ch)
			if !ok {
				return 0, p.s.errorf(diag.InvalidEscape, start, "invalid hex digit in \\u{...}")
			}
			code = code*16 + rune(v)
		}
		return code, nil
	default:
		return 0, p.s.errorf(diag.InvalidEscape, start, "invalid escape \\%c", c)
	}
}

func hexDigit(c rune) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
