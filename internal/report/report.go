// Package report turns a completed run's []*runner.FileResult into the
// Run record spec §3/§6.5 describes, and renders it as JSON, JUnit XML,
// TAP, or HTML — the minimal set of writers carried into this module's scope
// (spec.md treats full report writers as an external collaborator;
// SPEC_FULL keeps a narrow, stdlib-backed rendition of each format
// rather than dropping the concern entirely).
package report

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"html"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/hurlrunner/hurl/internal/runner"
)

// AssertRecord is one evaluated assert/capture-adjacent check.
type AssertRecord struct {
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	Error       string `json:"error,omitempty"`
}

// EntryRecord is the per-entry slice of the Run record (spec §3).
type EntryRecord struct {
	Index      int            `json:"index"`
	Method     string         `json:"method"`
	URL        string         `json:"url"`
	Skipped    bool           `json:"skipped"`
	Attempts   int            `json:"attempts"`
	StatusCode int            `json:"status_code,omitempty"`
	BodyBytes  int            `json:"body_bytes,omitempty"`
	Duration   time.Duration  `json:"duration_ns"`
	Timings    []time.Duration `json:"repeat_timings_ns,omitempty"`
	Asserts    []AssertRecord `json:"asserts,omitempty"`
	FatalError string         `json:"fatal_error,omitempty"`
	Passed     bool           `json:"passed"`
}

// FileRecord is one .hurl file's Run record.
type FileRecord struct {
	Name    string        `json:"name"`
	Passed  bool          `json:"passed"`
	Entries []EntryRecord `json:"entries"`
}

// Run is the full report: every file from this invocation.
type Run struct {
	Files []FileRecord `json:"files"`
}

// Build collapses runner results into a Run record, redacting every
// diagnostic string through redactor first (spec §3's "a redacted
// secret value never appears in any diagnostic text, JSON report, or
// HTML report" invariant).
func Build(results []*runner.FileResult, redact func(string) string) Run {
	if redact == nil {
		redact = func(s string) string { return s }
	}
	run := Run{Files: make([]FileRecord, 0, len(results))}
	for _, fr := range results {
		fileName := ""
		if fr.File != nil {
			fileName = fr.File.Name
		}
		rec := FileRecord{Name: fileName, Passed: fr.Passed()}
		if fr.Err != nil {
			rec.Entries = append(rec.Entries, EntryRecord{FatalError: redact(fr.Err.Error())})
		}
		for i, e := range fr.Entries {
			entry := EntryRecord{
				Index:    i + 1,
				Method:   e.Entry.Request.Method,
				Skipped:  e.Skipped,
				Attempts: e.Attempts,
				Passed:   e.Skipped || e.Passed(),
				Timings:  e.Timings,
			}
			if e.Response != nil {
				entry.StatusCode = e.Response.StatusCode
				entry.Duration = e.Response.Duration
				entry.BodyBytes = len(e.Response.Body)
			}
			if e.FatalErr != nil {
				entry.FatalError = redact(e.FatalErr.Error())
			}
			for _, a := range e.Asserts {
				ar := AssertRecord{Description: a.Description, Passed: a.Err == nil}
				if a.Err != nil {
					ar.Error = redact(a.Err.Error())
				}
				entry.Asserts = append(entry.Asserts, ar)
			}
			rec.Entries = append(rec.Entries, entry)
		}
		run.Files = append(run.Files, rec)
	}
	return run
}

// WriteJSON writes the Run record as indented JSON (--json / --report-json).
func WriteJSON(w io.Writer, run Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// junitTestsuite/junitTestcase model just enough of the JUnit XML schema
// for a CI consumer to render pass/fail counts and per-entry messages.
type junitTestsuites struct {
	XMLName xml.Name        `xml:"testsuites"`
	Suites  []junitTestsuite `xml:"testsuite"`
}

type junitTestsuite struct {
	Name      string         `xml:"name,attr"`
	Tests     int            `xml:"tests,attr"`
	Failures  int            `xml:"failures,attr"`
	Cases     []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Name    string       `xml:"name,attr"`
	Time    string       `xml:"time,attr"`
	Failure *junitFailure `xml:"failure,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Text    string `xml:",chardata"`
}

// WriteJUnit writes the Run record as JUnit XML (--report-junit).
func WriteJUnit(w io.Writer, run Run) error {
	out := junitTestsuites{}
	for _, f := range run.Files {
		suite := junitTestsuite{Name: f.Name}
		for _, e := range f.Entries {
			suite.Tests++
			tc := junitTestcase{
				Name: fmt.Sprintf("entry %d: %s", e.Index, e.Method),
				Time: fmt.Sprintf("%.3f", e.Duration.Seconds()),
			}
			if !e.Passed && !e.Skipped {
				suite.Failures++
				msg := e.FatalError
				if msg == "" {
					msg = firstAssertError(e.Asserts)
				}
				tc.Failure = &junitFailure{Message: msg, Text: msg}
			}
			suite.Cases = append(suite.Cases, tc)
		}
		out.Suites = append(out.Suites, suite)
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(out)
}

func firstAssertError(asserts []AssertRecord) string {
	for _, a := range asserts {
		if !a.Passed {
			return a.Error
		}
	}
	return "assertion failed"
}

// WriteTAP writes the Run record in Test Anything Protocol format
// (--report-tap), one line per entry across every file.
func WriteTAP(w io.Writer, run Run) error {
	total := 0
	for _, f := range run.Files {
		total += len(f.Entries)
	}
	if _, err := fmt.Fprintf(w, "1..%d\n", total); err != nil {
		return err
	}
	n := 0
	for _, f := range run.Files {
		for _, e := range f.Entries {
			n++
			status := "ok"
			if !e.Passed && !e.Skipped {
				status = "not ok"
			}
			desc := fmt.Sprintf("%s entry %d (%s, %s, %s)", f.Name, e.Index, e.Method, e.Duration.Round(time.Millisecond), humanize.Bytes(uint64(e.BodyBytes)))
			if e.Skipped {
				if _, err := fmt.Fprintf(w, "%s %d - %s # SKIP\n", status, n, desc); err != nil {
					return err
				}
				continue
			}
			if _, err := fmt.Fprintf(w, "%s %d - %s\n", status, n, desc); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteHTML writes a minimal, dependency-free HTML summary
// (--report-html): one table row per entry, no CSS framework.
func WriteHTML(w io.Writer, run Run) error {
	if _, err := io.WriteString(w, "<!doctype html><html><body><table border=\"1\">\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(w, "<tr><th>File</th><th>Entry</th><th>Method</th><th>Status</th><th>Duration</th><th>Size</th><th>Result</th></tr>\n"); err != nil {
		return err
	}
	for _, f := range run.Files {
		for _, e := range f.Entries {
			result := "PASS"
			switch {
			case e.Skipped:
				result = "SKIP"
			case !e.Passed:
				result = "FAIL"
			}
			if _, err := fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td>%s</td><td>%d</td><td>%s</td><td>%s</td><td>%s</td></tr>\n",
				html.EscapeString(f.Name), e.Index, html.EscapeString(e.Method), e.StatusCode, e.Duration.Round(time.Millisecond), humanize.Bytes(uint64(e.BodyBytes)), result); err != nil {
				return err
			}
		}
	}
	_, err := io.WriteString(w, "</table></body></html>\n")
	return err
}
