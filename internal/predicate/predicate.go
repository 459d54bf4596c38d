// Package predicate evaluates the comparison operators of spec §4.6
// against a query/filter chain's result, producing a Result carrying
// the pass/fail verdict plus the actual/expected representations used
// in assert-failure diagnostics.
package predicate

import (
	"bytes"
	"fmt"
	"net"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

// Result is what an evaluated Predicate produces: whether it passed,
// plus repr strings for the failure message (spec §7 AssertFailure).
type Result struct {
	Passed       bool
	ActualRepr   string
	ExpectedRepr string
}

var isoDateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)

// Evaluate applies pred to actual, rendering pred's operand (if any)
// through store first. Negate is honored last, after the base operator
// result is computed.
func Evaluate(pred hast.Predicate, actual value.Value, store *render.Store) (Result, error) {
	res, err := evalBase(pred, actual, store)
	if err != nil {
		return Result{}, err
	}
	if pred.Negate {
		res.Passed = !res.Passed
	}
	return res, nil
}

func evalBase(pred hast.Predicate, actual value.Value, store *render.Store) (Result, error) {
	switch pred.Operator {
	case "exists":
		return Result{Passed: actual.Kind() != value.KindNull, ActualRepr: actual.Repr(), ExpectedRepr: "exists"}, nil
	case "isString":
		return kindCheck(actual, value.KindString, "isString")
	case "isInt":
		return kindCheck(actual, value.KindInt, "isInt")
	case "isFloat":
		return kindCheck(actual, value.KindFloat, "isFloat")
	case "isNumber":
		_, ok := actual.AsNumber()
		return Result{Passed: ok, ActualRepr: actual.Repr(), ExpectedRepr: "isNumber"}, nil
	case "isBool":
		return kindCheck(actual, value.KindBool, "isBool")
	case "isList":
		return kindCheck(actual, value.KindList, "isList")
	case "isObject":
		return kindCheck(actual, value.KindObject, "isObject")
	case "isEmpty":
		return Result{Passed: actual.IsEmpty(), ActualRepr: actual.Repr(), ExpectedRepr: "isEmpty"}, nil
	case "isIsoDate":
		s, ok := actual.AsString()
		return Result{Passed: ok && isoDateRegex.MatchString(s), ActualRepr: actual.Repr(), ExpectedRepr: "isIsoDate"}, nil
	case "isIpv4":
		s, ok := actual.AsString()
		ip := net.ParseIP(s)
		return Result{Passed: ok && ip != nil && ip.To4() != nil, ActualRepr: actual.Repr(), ExpectedRepr: "isIpv4"}, nil
	case "isIpv6":
		s, ok := actual.AsString()
		ip := net.ParseIP(s)
		return Result{Passed: ok && ip != nil && ip.To4() == nil, ActualRepr: actual.Repr(), ExpectedRepr: "isIpv6"}, nil
	case "isUuid":
		s, ok := actual.AsString()
		_, perr := uuid.Parse(s)
		return Result{Passed: ok && perr == nil, ActualRepr: actual.Repr(), ExpectedRepr: "isUuid"}, nil
	}

	if pred.Operand == nil {
		return Result{}, fmt.Errorf("predicate %q requires an operand", pred.Operator)
	}

	if pred.Operator == "matches" {
		pattern := pred.Operand.RegexSrc
		if !pred.Operand.IsRegex {
			s, err := store.String(*pred.Operand.Template)
			if err != nil {
				return Result{}, err
			}
			pattern = s
		} else {
			rendered, err := store.Regex(pred.Operand.Span, pattern)
			if err != nil {
				return Result{}, err
			}
			pattern = rendered
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Result{}, fmt.Errorf("invalid regex in matches predicate: %w", err)
		}
		s, ok := actual.AsString()
		return Result{Passed: ok && re.MatchString(s), ActualRepr: actual.Repr(), ExpectedRepr: "matches /" + pattern + "/"}, nil
	}

	expected, err := store.Typed(*pred.Operand.Template)
	if err != nil {
		return Result{}, err
	}

	switch pred.Operator {
	case "==":
		return Result{Passed: value.Equal(actual, expected), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case "!=":
		return Result{Passed: !value.Equal(actual, expected), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case "<":
		ok, err := value.Less(actual, expected)
		if err != nil {
			return Result{}, err
		}
		return Result{Passed: ok, ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case "<=":
		lt, err := value.Less(actual, expected)
		if err != nil {
			return Result{}, err
		}
		return Result{Passed: lt || value.Equal(actual, expected), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case ">":
		lt, err := value.Less(actual, expected)
		if err != nil {
			return Result{}, err
		}
		return Result{Passed: !lt && !value.Equal(actual, expected), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case ">=":
		lt, err := value.Less(actual, expected)
		if err != nil {
			return Result{}, err
		}
		return Result{Passed: !lt, ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case "contains":
		ok, err := value.Contains(actual, expected)
		if err != nil {
			return Result{}, err
		}
		return Result{Passed: ok, ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case "startsWith":
		if ab, aok := actual.AsBytes(); aok {
			eb, eok := expected.AsBytes()
			return Result{Passed: eok && bytes.HasPrefix(ab, eb), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
		}
		s, sok := actual.AsString()
		pfx, pok := expected.AsString()
		return Result{Passed: sok && pok && strings.HasPrefix(s, pfx), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	case "endsWith":
		if ab, aok := actual.AsBytes(); aok {
			eb, eok := expected.AsBytes()
			return Result{Passed: eok && bytes.HasSuffix(ab, eb), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
		}
		s, sok := actual.AsString()
		sfx, sfxok := expected.AsString()
		return Result{Passed: sok && sfxok && strings.HasSuffix(s, sfx), ActualRepr: actual.Repr(), ExpectedRepr: expected.Repr()}, nil
	default:
		return Result{}, fmt.Errorf("unknown predicate operator %q", pred.Operator)
	}
}

func kindCheck(v value.Value, k value.Kind, name string) (Result, error) {
	return Result{Passed: v.Kind() == k, ActualRepr: v.Repr(), ExpectedRepr: name}, nil
}
