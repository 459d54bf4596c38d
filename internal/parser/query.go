package parser

import (
	"strings"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
)

// queryTakesArg says whether a query name takes a trailing quoted/template
// argument.
var queryTakesArg = map[string]bool{
	"header": true, "cookie": true, "xpath": true, "jsonpath": true,
	"regex": true, "variable": true, "certificate": true,
}

var knownQueries = map[string]bool{
	"status": true, "version": true, "url": true, "redirects": true, "ip": true,
	"header": true, "cookie": true, "body": true, "bytes": true, "rawbytes": true,
	"xpath": true, "jsonpath": true, "regex": true, "sha256": true, "md5": true,
	"variable": true, "duration": true, "certificate": true,
}

// filterArity is the number of quoted/bare trailing arguments each filter
// consumes (spec §4.4).
var filterArity = map[string]int{
	"base64Decode": 0, "base64Encode": 0, "count": 0, "daysAfterNow": 0, "daysBeforeNow": 0,
	"htmlEscape": 0, "htmlUnescape": 0, "toFloat": 0, "toInt": 0, "urlDecode": 0, "urlEncode": 0,
	"location": 0,
	"decode":   1, "format": 1, "jsonpath": 1, "nth": 1, "regex": 1, "split": 1, "toDate": 1, "xpath": 1,
	"replace": 2,
}

func (p *parserState) parseQuery() (hast.Query, error) {
	start := p.s.mark()
	name, err := p.readBareWord()
	if err != nil {
		return hast.Query{}, err
	}
	if !knownQueries[name] {
		return hast.Query{}, p.s.errorf(diag.Expected, start, "unknown query %q", name)
	}
	q := hast.Query{Name: name}
	if queryTakesArg[name] {
		p.s.skipSpacesAndTabs()
		arg, err := p.readOperandTemplate()
		if err != nil {
			return hast.Query{}, err
		}
		q.Arg = &arg
	}
	q.Span = p.s.spanFrom(start)
	return q, nil
}

// readOperandTemplate reads either a double-quoted template string or a
// /regex/ literal (equivalent to a double-quoted pattern with doubled
// backslash escaping, per spec §4.1) as an inline Template.
func (p *parserState) readOperandTemplate() (hast.Template, error) {
	p.s.skipSpacesAndTabs()
	if p.s.peekByte() == '"' {
		return p.readQuotedTemplate()
	}
	if p.s.peekByte() == '/' {
		pattern, err := p.readRegexLiteral()
		if err != nil {
			return hast.Template{}, err
		}
		return hast.Template{Span: pattern.Span, Parts: []hast.TemplatePart{{Span: pattern.Span, Literal: pattern.text}}}, nil
	}
	return p.readBareOperandTemplate()
}

type regexLiteral struct {
	Span diag.Span
	text string
}

func (p *parserState) readRegexLiteral() (regexLiteral, error) {
	start := p.s.mark()
	p.s.advanceByte() // '/'
	var sb strings.Builder
	for !p.s.eof() {
		b := p.s.peekByte()
		if b == '/' {
			break
		}
		if b == '\n' {
			return regexLiteral{}, p.s.errorf(diag.UnterminatedString, start, "unterminated regex literal")
		}
		if b == '\\' {
			sb.WriteByte(p.s.advanceByte())
			if !p.s.eof() {
				sb.WriteByte(p.s.advanceByte())
			}
			continue
		}
		sb.WriteByte(p.s.advanceByte())
	}
	if p.s.peekByte() != '/' {
		return regexLiteral{}, p.s.errorf(diag.UnterminatedString, start, "unterminated regex literal")
	}
	p.s.advanceByte()
	return regexLiteral{Span: p.s.spanFrom(start), text: sb.String()}, nil
}

// readBareOperandTemplate reads an unquoted run (used for numbers,
// true/false/null literals, and bare filter numeric args) up to the next
// whitespace.
func (p *parserState) readBareOperandTemplate() (hast.Template, error) {
	start := p.s.mark()
	var sb strings.Builder
	for !p.s.eof() {
		b := p.s.peekByte()
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '#' {
			break
		}
		sb.WriteByte(p.s.advanceByte())
	}
	return hast.Template{Span: p.s.spanFrom(start), Parts: []hast.TemplatePart{{Span: p.s.spanFrom(start), Literal: sb.String()}}}, nil
}

func (p *parserState) parseFilters() ([]hast.Filter, error) {
	var filters []hast.Filter
	for {
		p.s.skipSpacesAndTabs()
		save := *p.s
		word, err := p.tryReadBareWord()
		if err != nil || word == "" {
			*p.s = save
			return filters, nil
		}
		arity, known := filterArity[word]
		if !known {
			*p.s = save
			return filters, nil
		}
		start := save.mark()
		f := hast.Filter{Name: word}
		for i := 0; i < arity; i++ {
			p.s.skipSpacesAndTabs()
			arg, err := p.readOperandTemplate()
			if err != nil {
				return nil, err
			}
			f.Args = append(f.Args, arg)
		}
		f.Span = p.s.spanFrom(start)
		filters = append(filters, f)
	}
}

// tryReadBareWord reads a bare word without failing on empty input.
func (p *parserState) tryReadBareWord() (string, error) {
	var sb strings.Builder
	for !p.s.eof() {
		b := p.s.peekByte()
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			break
		}
		sb.WriteByte(p.s.advanceByte())
	}
	return sb.String(), nil
}

var nullaryPredicates = map[string]bool{
	"exists": true, "isString": true, "isInt": true, "isFloat": true, "isNumber": true,
	"isBool": true, "isList": true, "isObject": true, "isEmpty": true, "isIsoDate": true,
	"isIpv4": true, "isIpv6": true, "isUuid": true,
}

// normalizePredicateOperator resolves the documented operator-spelling
// aliases to a single AST constructor (spec §9 Open Question 1).
func normalizePredicateOperator(op string) string {
	switch op {
	case "equals":
		return "=="
	case "includes":
		return "contains"
	default:
		return op
	}
}

func (p *parserState) parsePredicate() (hast.Predicate, error) {
	start := p.s.mark()
	p.s.skipSpacesAndTabs()

	negate := false
	save := *p.s
	if w, _ := p.tryReadBareWord(); w == "not" {
		negate = true
	} else {
		*p.s = save
	}
	p.s.skipSpacesAndTabs()

	opStart := p.s.mark()
	op, err := p.readPredicateOperator()
	if err != nil {
		return hast.Predicate{}, err
	}
	op = normalizePredicateOperator(op)

	pred := hast.Predicate{Negate: negate, Operator: op}
	if nullaryPredicates[op] {
		pred.Span = p.s.spanFrom(start)
		return pred, nil
	}

	p.s.skipSpacesAndTabs()
	operandStart := p.s.mark()
	if op == "matches" && p.s.peekByte() == '/' {
		lit, err := p.readRegexLiteral()
		if err != nil {
			return hast.Predicate{}, err
		}
		pred.Operand = &hast.PredicateOperand{Span: lit.Span, IsRegex: true, RegexSrc: lit.text}
	} else {
		tmpl, err := p.readOperandTemplate()
		if err != nil {
			return hast.Predicate{}, err
		}
		pred.Operand = &hast.PredicateOperand{Span: p.s.spanFrom(operandStart), Template: &tmpl}
	}
	_ = opStart
	pred.Span = p.s.spanFrom(start)
	return pred, nil
}

var predicateOperatorWords = map[string]bool{
	"equals": true, "contains": true, "includes": true, "startsWith": true, "endsWith": true,
	"matches": true, "exists": true, "isString": true, "isInt": true, "isFloat": true,
	"isNumber": true, "isBool": true, "isList": true, "isObject": true, "isEmpty": true,
	"isIsoDate": true, "isIpv4": true, "isIpv6": true, "isUuid": true,
}

var predicateOperatorSymbols = []string{"==", "!=", "<=", ">=", "<", ">"}

func (p *parserState) readPredicateOperator() (string, error) {
	start := p.s.mark()
	for _, sym := range predicateOperatorSymbols {
		if p.matchWord(sym) {
			return sym, nil
		}
	}
	word, err := p.tryReadBareWord()
	if err != nil {
		return "", err
	}
	if word == "" || !predicateOperatorWords[word] {
		return "", p.s.errorf(diag.InvalidPredicateOperand, start, "expected a predicate operator, got %q", word)
	}
	return word, nil
}
