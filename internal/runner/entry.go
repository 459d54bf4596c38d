// Package runner executes a parsed hast.File: the Entry runner sends
// one request/response pair (render -> send -> capture -> assert, with
// the retry/skip/repeat/delay state machine spec §5 documents), and the
// Session runner drives a whole file's entries in order, propagating
// variables and cookies between them, then fans a worker pool of
// Sessions out across multiple files (spec §5 "workers with no shared
// mutable state").
package runner

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/armon/circbuf"

	"github.com/hurlrunner/hurl/internal/cookiejar"
	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/filter"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/httpengine"
	"github.com/hurlrunner/hurl/internal/predicate"
	"github.com/hurlrunner/hurl/internal/query"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

// AssertOutcome is one evaluated Assert or implicit status/header check.
type AssertOutcome struct {
	Description string
	Span        diag.Span
	Err         error // non-nil for a QueryEvalError/FilterError/AssertFailure
}

// EntryResult is everything observable about running one Entry. For an
// entry with a `repeat: N` option, the fields below reflect the last
// repetition executed; Timings carries one duration per repetition that
// ran to completion (spec §8: "a passing repeat: N entry's recorded
// timings list has length exactly N").
type EntryResult struct {
	Entry     hast.Entry
	Skipped   bool
	Attempts  int
	Response  *query.Response
	Asserts   []AssertOutcome
	FatalErr  error // ParseError-class issues never reach here; this is Template/Http/QueryEval class
	Trace     *circbuf.Buffer // nil unless verbose tracing was requested
	Timings   []time.Duration
}

// Passed reports whether every assert (implicit and explicit) held and
// no fatal error occurred.
func (r *EntryResult) Passed() bool {
	if r.FatalErr != nil {
		return false
	}
	for _, a := range r.Asserts {
		if a.Err != nil {
			return false
		}
	}
	return true
}

type entryOptions struct {
	skip          bool
	retry         int
	retryInterval time.Duration
	delay         time.Duration
	repeat        int
}

func parseEntryOptions(opts []hast.Option, store *render.Store) (entryOptions, error) {
	out := entryOptions{repeat: 1}
	for _, o := range opts {
		s, err := store.String(o.Value)
		if err != nil {
			return out, err
		}
		switch o.Name {
		case "skip":
			out.skip = s == "true"
		case "retry":
			n, err := strconv.Atoi(s)
			if err != nil {
				return out, fmt.Errorf("invalid retry option %q: %w", s, err)
			}
			out.retry = n
		case "retry-interval":
			d, err := parseDurationMs(s)
			if err != nil {
				return out, fmt.Errorf("invalid retry-interval option %q: %w", s, err)
			}
			out.retryInterval = d
		case "delay":
			d, err := parseDurationMs(s)
			if err != nil {
				return out, fmt.Errorf("invalid delay option %q: %w", s, err)
			}
			out.delay = d
		case "repeat":
			n, err := strconv.Atoi(s)
			if err != nil {
				return out, fmt.Errorf("invalid repeat option %q: %w", s, err)
			}
			out.repeat = n
		case "variable":
			name, val, ok := strings.Cut(s, "=")
			if ok {
				store.Set(name, literalValue(val))
			}
		}
	}
	if out.retryInterval == 0 {
		out.retryInterval = time.Second
	}
	if out.repeat == 0 {
		out.repeat = 1
	}
	return out, nil
}

// parseDurationMs accepts a bare integer (milliseconds, Hurl's
// convention for these options) or a Go duration string like "500ms".
func parseDurationMs(s string) (time.Duration, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Millisecond, nil
	}
	return time.ParseDuration(s)
}

// literalValue types an "variable: name=value" option value the same
// way a bare template-operand literal is typed (render.Store.Typed's
// unquoted-single-literal rule).
func literalValue(s string) value.Value {
	switch s {
	case "true":
		return value.Bool(true)
	case "false":
		return value.Bool(false)
	case "null":
		return value.Null()
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return value.Int(i)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return value.Float(f)
	}
	return value.Str(s)
}

// RunEntry executes one entry against engine, updating store and jar in
// place as captures and Set-Cookie headers are produced. fileRoot
// resolves relative file-body and multipart file-part paths; verbose
// requests a bounded wire trace of every attempt (--verbose/--very-verbose).
func RunEntry(ctx context.Context, entry hast.Entry, store *render.Store, jar *cookiejar.Jar, engine *httpengine.Engine, fileRoot string, verbose bool) (*EntryResult, error) {
	result := &EntryResult{Entry: entry}
	if verbose {
		result.Trace = newWireTrace()
	}

	opts, err := parseEntryOptions(entry.Request.Options, store)
	if err != nil {
		result.FatalErr = err
		return result, nil
	}
	if opts.skip {
		result.Skipped = true
		return result, nil
	}

	for rep := 0; rep < opts.repeat; rep++ {
		start := time.Now()
		if !runOneAttemptCycle(ctx, entry, store, jar, engine, fileRoot, opts, result) {
			return result, nil
		}
		result.Timings = append(result.Timings, time.Since(start))
		if result.FatalErr != nil || !result.Passed() {
			return result, nil
		}
	}
	return result, nil
}

// runOneAttemptCycle drives the delay + attempt/retry state machine for
// a single repetition of entry, writing its outcome into result.
// Returns false if the caller's ctx was cancelled mid-cycle (result is
// already terminal in that case).
func runOneAttemptCycle(ctx context.Context, entry hast.Entry, store *render.Store, jar *cookiejar.Jar, engine *httpengine.Engine, fileRoot string, opts entryOptions, result *EntryResult) bool {
	if opts.delay > 0 {
		select {
		case <-time.After(opts.delay):
		case <-ctx.Done():
			result.FatalErr = ctx.Err()
			return false
		}
	}

	maxAttempts := opts.retry + 1
	if opts.retry < 0 {
		maxAttempts = 1 << 30 // "retry: -1" means retry until success (spec: unbounded)
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.Attempts = attempt
		// Snapshot before this attempt's work so a failed attempt's
		// captures can be rewound before the next retry (spec §4.7
		// step 9): a retried attempt must not see captures from a
		// prior attempt that ultimately failed its asserts.
		snapshot := store.Snapshot()

		wireReq, err := renderRequest(entry.Request, store, jar, fileRoot)
		if err != nil {
			result.FatalErr = err
			return true
		}
		if result.Trace != nil {
			writeRequestTrace(result.Trace, wireReq)
		}

		resp, err := engine.Execute(ctx, wireReq)
		if err != nil {
			store.Restore(snapshot)
			if attempt < maxAttempts {
				if !sleepOrDone(ctx, opts.retryInterval) {
					result.FatalErr = ctx.Err()
					return false
				}
				continue
			}
			result.FatalErr = err
			return true
		}
		if result.Trace != nil {
			writeResponseTrace(result.Trace, resp)
		}

		jar.SetFromResponse(requestHost(wireReq.URL), resp.Cookies)
		result.Response = resp

		asserts, fatal := evaluateChecks(entry, resp, store)
		if fatal != nil {
			store.Restore(snapshot)
			result.FatalErr = fatal
			return true
		}
		result.Asserts = asserts

		if allPassed(asserts) {
			return true
		}
		store.Restore(snapshot)
		if attempt < maxAttempts {
			if !sleepOrDone(ctx, opts.retryInterval) {
				result.FatalErr = ctx.Err()
				return false
			}
			continue
		}
		return true
	}
	return true
}

func allPassed(asserts []AssertOutcome) bool {
	for _, a := range asserts {
		if a.Err != nil {
			return false
		}
	}
	return true
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}

// evaluateChecks runs every implicit check from the Response spec
// (status, version, headers) plus explicit [Captures]/[Asserts],
// capturing first so asserts can reference captured variables.
func evaluateChecks(entry hast.Entry, resp *query.Response, store *render.Store) ([]AssertOutcome, error) {
	if entry.Response == nil {
		return nil, nil
	}
	spec := entry.Response
	var outcomes []AssertOutcome

	if v := spec.Version; v != "" && v != hast.VersionAny && v != hast.VersionAnyHTTP {
		if !strings.HasPrefix(resp.HTTPVersion, string(v)) {
			outcomes = append(outcomes, AssertOutcome{
				Description: "version",
				Span:        spec.Span,
				Err: &diag.AssertFailure{
					Predicate: "version ==", Span: spec.Span,
					Actual:   resp.HTTPVersion,
					Expected: string(v),
				},
			})
		}
	}

	if !spec.Status.Wildcard {
		if resp.StatusCode != spec.Status.Code {
			outcomes = append(outcomes, AssertOutcome{
				Description: "status",
				Span:        spec.Status.Span,
				Err: &diag.AssertFailure{
					Predicate: "status ==", Span: spec.Status.Span,
					Actual:   strconv.Itoa(resp.StatusCode),
					Expected: strconv.Itoa(spec.Status.Code),
				},
			})
		}
	}

	for _, h := range spec.Headers {
		name, err := store.String(h.Name)
		if err != nil {
			return nil, err
		}
		want, err := store.String(h.Value)
		if err != nil {
			return nil, err
		}
		got := headerValue(resp, name)
		if got != want {
			outcomes = append(outcomes, AssertOutcome{
				Description: "header " + name,
				Span:        h.Span,
				Err: &diag.AssertFailure{
					Predicate: "header == ", Span: h.Span, Actual: got, Expected: want,
				},
			})
		}
	}

	for _, c := range spec.Captures {
		v, err := query.Evaluate(c.Query, resp, store)
		if err != nil {
			return nil, err
		}
		filtered, err := filter.Apply(c.Filters, v, store)
		if err != nil {
			return nil, err
		}
		store.Set(c.Name, filtered)
		if c.Redact {
			if r := store.Redactor(); r != nil {
				if s, err := filtered.Stringify(); err == nil {
					r.Add(s)
				}
			}
		}
	}

	for _, a := range spec.Asserts {
		v, err := query.Evaluate(a.Query, resp, store)
		if err != nil {
			outcomes = append(outcomes, AssertOutcome{Description: a.Query.Name, Span: a.Span, Err: err})
			continue
		}
		filtered, err := filter.Apply(a.Filters, v, store)
		if err != nil {
			outcomes = append(outcomes, AssertOutcome{Description: a.Query.Name, Span: a.Span, Err: err})
			continue
		}
		res, err := predicate.Evaluate(a.Predicate, filtered, store)
		if err != nil {
			outcomes = append(outcomes, AssertOutcome{Description: a.Query.Name, Span: a.Span, Err: err})
			continue
		}
		var assertErr error
		if !res.Passed {
			assertErr = &diag.AssertFailure{
				Predicate: a.Predicate.Operator, Span: a.Span,
				Actual: res.ActualRepr, Expected: res.ExpectedRepr,
			}
		}
		outcomes = append(outcomes, AssertOutcome{Description: a.Query.Name, Span: a.Span, Err: assertErr})
	}

	return outcomes, nil
}

func headerValue(resp *query.Response, name string) string {
	for _, nv := range resp.NameValues {
		if strings.EqualFold(nv.Name, name) {
			return nv.Value
		}
	}
	return ""
}
