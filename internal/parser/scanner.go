// Package parser implements the Hurl file format parser: a single-pass,
// hand-written recursive-descent reader over UTF-8 bytes that produces a
// hast.File with full source spans (spec §4.1). There is no separate
// token stream; scanner helpers consume whitespace, comments, literals,
// and template fragments directly off the byte buffer.
package parser

import (
	"fmt"
	"unicode/utf8"

	"github.com/hurlrunner/hurl/internal/diag"
)

type scanner struct {
	file string
	src  []byte
	pos  int
	line int
	col  int
}

func newScanner(file string, src []byte) *scanner {
	// Tolerate a leading UTF-8 BOM without consuming it into any span.
	if len(src) >= 3 && src[0] == 0xEF && src[1] == 0xBB && src[2] == 0xBF {
		src = src[3:]
	}
	return &scanner{file: file, src: src, pos: 0, line: 1, col: 1}
}

func (s *scanner) eof() bool { return s.pos >= len(s.src) }

func (s *scanner) mark() diag.Span {
	return diag.Span{File: s.file, StartOffset: s.pos, StartLine: s.line, StartCol: s.col}
}

func (s *scanner) spanFrom(start diag.Span) diag.Span {
	start.EndOffset = s.pos
	start.EndLine = s.line
	start.EndCol = s.col
	return start
}

func (s *scanner) peekByte() byte {
	if s.eof() {
		return 0
	}
	return s.src[s.pos]
}

func (s *scanner) peekByteAt(off int) byte {
	if s.pos+off >= len(s.src) {
		return 0
	}
	return s.src[s.pos+off]
}

func (s *scanner) peekRune() (rune, int) {
	if s.eof() {
		return 0, 0
	}
	r, size := utf8.DecodeRune(s.src[s.pos:])
	return r, size
}

func (s *scanner) advanceByte() byte {
	b := s.src[s.pos]
	s.pos++
	if b == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return b
}

func (s *scanner) advanceRune() rune {
	r, size := s.peekRune()
	for i := 0; i < size; i++ {
		s.advanceByte()
	}
	return r
}

// skipSpacesAndTabs consumes horizontal whitespace only, never newlines.
func (s *scanner) skipSpacesAndTabs() {
	for !s.eof() {
		b := s.peekByte()
		if b == ' ' || b == '\t' {
			s.advanceByte()
			continue
		}
		break
	}
}

// skipLineCommentIfAny consumes a trailing comment ("# ... "), not consuming
// the terminating newline itself.
func (s *scanner) skipLineCommentIfAny() {
	s.skipSpacesAndTabs()
	if s.peekByte() == '#' {
		for !s.eof() && s.peekByte() != '\n' {
			s.advanceByte()
		}
	}
}

// consumeNewline consumes CRLF or LF; returns false if none present.
func (s *scanner) consumeNewline() bool {
	if s.peekByte() == '\r' && s.peekByteAt(1) == '\n' {
		s.advanceByte()
		s.advanceByte()
		return true
	}
	if s.peekByte() == '\n' {
		s.advanceByte()
		return true
	}
	return false
}

// skipBlankLinesAndComments skips over lines that are empty or
// comment-only, stopping at the first line with real content.
func (s *scanner) skipBlankLinesAndComments() {
	for !s.eof() {
		save := s.pos
		s.skipSpacesAndTabs()
		if s.peekByte() == '#' {
			for !s.eof() && s.peekByte() != '\n' {
				s.advanceByte()
			}
		}
		if s.peekByte() == '\n' || (s.peekByte() == '\r' && s.peekByteAt(1) == '\n') {
			s.consumeNewline()
			continue
		}
		if s.eof() {
			return
		}
		// Real content: the horizontal-whitespace skip is kept, so callers
		// see the line from its first non-blank column.
		_ = save
		return
	}
}

// atSectionHeader reports whether the scanner is positioned (after
// skipping only spaces/tabs) at a "[Name]" section header.
func (s *scanner) atSectionHeader() bool {
	save := *s
	s.skipSpacesAndTabs()
	is := s.peekByte() == '['
	*s = save
	return is
}

func (s *scanner) errorf(kind diag.ParseErrorKind, start diag.Span, format string, args ...interface{}) *diag.ParseError {
	return &diag.ParseError{Kind: kind, Span: s.spanFrom(start), Hint: fmt.Sprintf(format, args...)}
}
