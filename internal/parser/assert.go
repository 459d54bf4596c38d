package parser

import (
	"github.com/hurlrunner/hurl/internal/hast"
)

// parseAssertLines reads "[Asserts]" lines of the form
//
//	Query [filter ...] [not] Predicate [operand]
func (p *parserState) parseAssertLines() ([]hast.Assert, error) {
	var out []hast.Assert
	for {
		p.s.skipBlankLinesAndComments()
		if p.s.eof() || p.s.atSectionHeader() || p.atBodyStart() || p.atResponseStart() {
			return out, nil
		}
		start := p.s.mark()

		query, err := p.parseQuery()
		if err != nil {
			return nil, err
		}
		filters, err := p.parseFilters()
		if err != nil {
			return nil, err
		}
		pred, err := p.parsePredicate()
		if err != nil {
			return nil, err
		}

		p.s.skipLineCommentIfAny()
		p.s.consumeNewline()

		out = append(out, hast.Assert{
			Span:      p.s.spanFrom(start),
			Query:     query,
			Filters:   filters,
			Predicate: pred,
		})
	}
}
