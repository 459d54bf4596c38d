package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hurlrunner/hurl/internal/config"
	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/httpengine"
	"github.com/hurlrunner/hurl/internal/parser"
	"github.com/hurlrunner/hurl/internal/report"
	"github.com/hurlrunner/hurl/internal/runner"
)

// runFlags mirrors the subset of spec §6.3's option surface this module
// implements directly rather than leaving to the "full CLI argument
// parser" non-goal.
type runFlags struct {
	variables     []string
	variablesFile string
	secrets       []string
	insecure      bool
	maxRedirects  int
	connectTimeout int
	maxTime       int
	retry         int
	retryInterval int
	delay         int
	continueOnErr bool
	test          bool
	jobs          int
	fileRoot      string
	cookieJar     string
	proxy         string
	fromEntry     int
	toEntry       int
	repeat        int
	glob          []string
	noColor       bool
	verbose       bool
	veryVerbose   bool
	jsonOut       bool
	reportJSON    string
	reportJUnit   string
	reportTAP     string
	reportHTML    string
	ignoreAsserts bool
}

// NewRootCmd creates the hurl root command: a direct file-list runner,
// not a subcommand dispatcher, matching the real hurl CLI's own shape
// ("hurl [OPTIONS] [FILE...]") rather than the teacher's noun-first
// ("rocketship run ...") convention — the one place this module departs
// from NewRootCmd's subcommand style, because spec §6.3 fixes the verb.
func NewRootCmd() *cobra.Command {
	InitLogging()

	var flags runFlags
	cmd := &cobra.Command{
		Use:   "hurl [OPTIONS] FILE...",
		Short: "Run Hurl files and report results",
		Long:  `hurl is a command-line HTTP client and test runner that executes .hurl files.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMain(cmd, args, &flags)
		},
	}
	cmd.AddCommand(NewVersionCmd())

	f := cmd.Flags()
	f.StringArrayVarP(&flags.variables, "variable", "", nil, "define a variable (name=value)")
	f.StringVar(&flags.variablesFile, "variables-file", "", "load variables from a YAML file")
	f.StringArrayVar(&flags.secrets, "secret", nil, "define and redact a secret variable (name=value)")
	f.BoolVarP(&flags.insecure, "insecure", "k", false, "skip TLS certificate verification")
	f.IntVar(&flags.maxRedirects, "max-redirs", 50, "maximum number of redirects to follow, -1 for unlimited")
	f.IntVar(&flags.connectTimeout, "connect-timeout", 300, "seconds to wait for a connection")
	f.IntVar(&flags.maxTime, "max-time", 300, "seconds to wait for the whole transaction")
	f.IntVar(&flags.retry, "retry", 0, "accepted but not applied: entries retry only per their [Options] retry")
	f.IntVar(&flags.retryInterval, "retry-interval", 1000, "accepted but not applied: the interval comes from each entry's [Options] retry-interval")
	f.IntVar(&flags.delay, "delay", 0, "accepted but not applied: entries are delayed only by their [Options] delay")
	f.BoolVar(&flags.continueOnErr, "continue-on-error", false, "continue to the next entry after an assert failure")
	f.BoolVar(&flags.test, "test", false, "run in test mode (parallel by default)")
	f.IntVar(&flags.jobs, "jobs", 0, "number of files to run in parallel (default: 8 under --test, else 1)")
	f.StringVar(&flags.fileRoot, "file-root", "", "base directory for file,<path>; bodies and multipart file parts")
	f.StringVar(&flags.cookieJar, "cookie-jar", "", "read/write cookies from/to this Netscape-format file")
	f.StringVar(&flags.proxy, "proxy", "", "HTTP proxy to use for every request")
	f.IntVar(&flags.fromEntry, "from-entry", 1, "first entry (1-based) to run in each file")
	f.IntVar(&flags.toEntry, "to-entry", -1, "last entry (1-based) to run in each file, -1 for all")
	f.IntVar(&flags.repeat, "repeat", 1, "repeat the whole file list N times")
	f.StringArrayVar(&flags.glob, "glob", nil, "expand an additional glob pattern into the file list")
	f.BoolVar(&flags.noColor, "no-color", false, "disable colored output")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "print request/response wire traces")
	f.BoolVar(&flags.veryVerbose, "very-verbose", false, "print request/response wire traces, more verbosely")
	f.BoolVar(&flags.jsonOut, "json", false, "print the run record as JSON to stdout instead of a summary")
	f.StringVar(&flags.reportJSON, "report-json", "", "write a JSON run report to this path")
	f.StringVar(&flags.reportJUnit, "report-junit", "", "write a JUnit XML run report to this path")
	f.StringVar(&flags.reportTAP, "report-tap", "", "write a TAP run report to this path")
	f.StringVar(&flags.reportHTML, "report-html", "", "write an HTML run report to this path")
	f.BoolVar(&flags.ignoreAsserts, "ignore-asserts", false, "downgrade assert failures to warnings")

	return cmd
}

func runMain(cmd *cobra.Command, args []string, flags *runFlags) error {
	if flags.verbose || flags.veryVerbose {
		RaiseVerbosity(flags.veryVerbose)
	}

	opts, err := buildSessionOptions(flags)
	if err != nil {
		return &cliOptionError{err}
	}

	files, err := collectFiles(args, flags.glob)
	if err != nil {
		return &cliOptionError{err}
	}
	if len(files) == 0 {
		return &cliOptionError{fmt.Errorf("no input files; pass one or more .hurl paths or --glob patterns")}
	}

	// A parse error is fatal only to the file it occurs in (spec §4.1):
	// it is folded into that file's FileResult and the rest of the batch
	// still parses and runs.
	parsed := make([]*hast.File, 0, len(files))
	var parseFailures []*runner.FileResult
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return &cliOptionError{err}
		}
		f, perr := parser.Parse(path, data)
		if perr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: parse error: %v\n", path, redact(opts, perr.Error()))
			parseFailures = append(parseFailures, &runner.FileResult{File: &hast.File{Name: path}, Err: perr})
			continue
		}
		parsed = append(parsed, f)
	}

	engine := httpengine.New(httpengine.Options{
		Insecure:       opts.Insecure,
		MaxRedirects:   opts.MaxRedirects,
		ConnectTimeout: opts.ConnectTimeout,
		Timeout:        opts.Timeout,
		ProxyURL:       opts.ProxyURL,
	})

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	results := runner.RunFiles(ctx, parsed, engine, opts)
	repeat := opts.Repeat
	if repeat < 1 {
		repeat = 1
	}
	for i := 0; i < repeat; i++ {
		results = append(results, parseFailures...)
	}

	run := report.Build(results, func(s string) string { return redact(opts, s) })

	if err := writeReports(flags, run); err != nil {
		return &cliOptionError{err}
	}

	if flags.jsonOut {
		if err := report.WriteJSON(cmd.OutOrStdout(), run); err != nil {
			return &cliOptionError{err}
		}
	} else {
		printSummary(cmd, results, !flags.noColor && opts.Color)
	}

	code := runner.Summarize(results)
	if flags.ignoreAsserts && code == diag.ExitAssert {
		code = diag.ExitOK
	}
	if code != diag.ExitOK {
		return exitErr{code}
	}
	return nil
}

func redact(opts config.SessionOptions, s string) string {
	if opts.Redactor == nil {
		return s
	}
	return opts.Redactor.Redact(s)
}

func buildSessionOptions(flags *runFlags) (config.SessionOptions, error) {
	opts := config.Default()
	opts.ApplyEnv(os.Environ())

	for _, v := range flags.variables {
		if err := opts.SetCLIVariable(v); err != nil {
			return opts, err
		}
	}
	if flags.variablesFile != "" {
		if err := opts.LoadVariablesFile(flags.variablesFile); err != nil {
			return opts, err
		}
	}
	for _, s := range flags.secrets {
		if err := opts.SetCLISecret(s); err != nil {
			return opts, err
		}
	}

	opts.Insecure = flags.insecure
	opts.MaxRedirects = flags.maxRedirects
	opts.ConnectTimeout = time.Duration(flags.connectTimeout) * time.Second
	opts.Timeout = time.Duration(flags.maxTime) * time.Second
	opts.Retry = flags.retry
	opts.RetryInterval = time.Duration(flags.retryInterval) * time.Millisecond
	opts.ContinueOnError = flags.continueOnErr
	opts.FileRoot = flags.fileRoot
	opts.CookieJarPath = flags.cookieJar
	if flags.proxy != "" {
		opts.ProxyURL = flags.proxy
	}
	opts.FromEntry = flags.fromEntry
	opts.ToEntry = flags.toEntry
	opts.Repeat = flags.repeat
	opts.Verbose = flags.verbose
	opts.VeryVerbose = flags.veryVerbose
	if flags.noColor {
		opts.Color = false
	}

	opts.Parallel = flags.jobs
	if opts.Parallel <= 0 {
		if flags.test {
			opts.Parallel = 8
		} else {
			opts.Parallel = 1
		}
	}

	return opts, nil
}

// collectFiles resolves positional .hurl paths plus any --glob patterns
// into a sorted, de-duplicated file list.
func collectFiles(args []string, globs []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}
	for _, a := range args {
		add(a)
	}
	for _, g := range globs {
		matches, err := filepath.Glob(g)
		if err != nil {
			return nil, fmt.Errorf("invalid --glob pattern %q: %w", g, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(out)
	return out, nil
}

func writeReports(flags *runFlags, run report.Run) error {
	type writer struct {
		path string
		fn   func(*os.File, report.Run) error
	}
	writers := []writer{
		{flags.reportJSON, func(f *os.File, r report.Run) error { return report.WriteJSON(f, r) }},
		{flags.reportJUnit, func(f *os.File, r report.Run) error { return report.WriteJUnit(f, r) }},
		{flags.reportTAP, func(f *os.File, r report.Run) error { return report.WriteTAP(f, r) }},
		{flags.reportHTML, func(f *os.File, r report.Run) error { return report.WriteHTML(f, r) }},
	}
	for _, w := range writers {
		if w.path == "" {
			continue
		}
		f, err := os.Create(w.path)
		if err != nil {
			return err
		}
		err = w.fn(f, run)
		closeErr := f.Close()
		if err != nil {
			return err
		}
		if closeErr != nil {
			return closeErr
		}
	}
	return nil
}

// printSummary renders a pass/fail line per file plus an aggregate
// count, in the teacher's colored-checkmark style (run.go's
// printFinalSummary), gated on useColor so --no-color/NO_COLOR/non-tty
// output stays plain.
func printSummary(cmd *cobra.Command, results []*runner.FileResult, useColor bool) {
	color.NoColor = !useColor
	out := cmd.OutOrStdout()

	passedFiles, failedFiles := 0, 0
	for _, r := range results {
		name := "<file>"
		if r.File != nil {
			name = r.File.Name
		}
		if r.Passed() {
			passedFiles++
			fmt.Fprintf(out, "%s %s\n", color.GreenString("✓"), name)
		} else {
			failedFiles++
			fmt.Fprintf(out, "%s %s\n", color.RedString("✗"), name)
			if r.Err != nil {
				fmt.Fprintf(out, "  %v\n", r.Err)
			}
			for i, e := range r.Entries {
				if e.Skipped || e.Passed() {
					continue
				}
				if e.FatalErr != nil {
					fmt.Fprintf(out, "  entry %d: %v\n", i+1, e.FatalErr)
					continue
				}
				for _, a := range e.Asserts {
					if a.Err != nil {
						fmt.Fprintf(out, "  entry %d: %s: %v\n", i+1, a.Description, a.Err)
					}
				}
			}
		}
	}

	fmt.Fprintf(out, "\n%d/%d files passed (%s failed)\n",
		passedFiles, passedFiles+failedFiles, strconv.Itoa(failedFiles))
}

// exitErr carries a spec §6.4 exit code out of RunE without printing
// cobra's default "Error:" preamble for what is a normal test-failure
// outcome, not a usage error.
type exitErr struct{ code diag.ExitCode }

func (e exitErr) Error() string { return "" }

// cliOptionError is a spec §6.4 class-1 CLI option parse error.
type cliOptionError struct{ err error }

func (e *cliOptionError) Error() string { return e.err.Error() }
func (e *cliOptionError) Unwrap() error { return e.err }

// ExitCode extracts the process exit code spec §6.4 documents from an
// error RunE returned, defaulting to 1 (CLI option error) for anything
// else and 0 for nil.
func ExitCode(err error) int {
	if err == nil {
		return int(diag.ExitOK)
	}
	if ee, ok := err.(exitErr); ok {
		return int(ee.code)
	}
	return int(diag.ExitCLIOption)
}
