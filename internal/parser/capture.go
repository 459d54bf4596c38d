package parser

import (
	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
)

// parseCaptureLines reads "[Captures]" lines of the form
//
//	name: Query [filter ...] [redact]
func (p *parserState) parseCaptureLines() ([]hast.Capture, error) {
	var out []hast.Capture
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
			return nil, p.s.errorf(diag.Expected, start, "expected ':' in capture line")
		}
		p.s.advanceByte()
		p.s.skipSpacesAndTabs()

		query, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		filters, err := p.parseFilters()
		if err != nil {
			return nil, err
		}

		p.s.skipSpacesAndTabs()
		redact := false
		save := *p.s
		if w, _ := p.tryReadBareWord(); w == "redact" {
			redact = true
		} else {
			*p.s = save
		}

		p.s.skipLineCommentIfAny()
		p.s.consumeNewline()

		out = append(out, hast.Capture{
			Span:    p.s.spanFrom(start),
			Name:    templateLiteralOrRaw(name),
			Query:   query,
			Filters: filters,
			Redact:  redact,
		})
	}
}
