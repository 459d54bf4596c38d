package runner

import (
	"context"
	"sync"

	"github.com/hurlrunner/hurl/internal/config"
	"github.com/hurlrunner/hurl/internal/cookiejar"
	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/hast"
	"github.com/hurlrunner/hurl/internal/httpengine"
	"github.com/hurlrunner/hurl/internal/render"
	"github.com/hurlrunner/hurl/internal/value"
)

// FileResult is everything observable about running one .hurl file.
type FileResult struct {
	File    *hast.File
	Entries []*EntryResult
	Err     error // set when the file itself could not be run at all
}

// Passed reports whether every entry in the file passed (skipped
// entries do not count against it).
func (r *FileResult) Passed() bool {
	if r.Err != nil {
		return false
	}
	for _, e := range r.Entries {
		if !e.Skipped && !e.Passed() {
			return false
		}
	}
	return true
}

// RunFile drives every entry of f in order against a fresh per-file
// store and cookie jar seeded from base, honoring --from-entry/--to-entry
// and --continue-on-error (spec §5, §6.3). The jar this file ends with
// (including any Set-Cookie responses observed) is returned alongside
// the result so a caller persisting --cookie-jar can merge it back.
func RunFile(ctx context.Context, f *hast.File, baseVars map[string]value.Value, baseJar *cookiejar.Jar, engine *httpengine.Engine, opts config.SessionOptions) (*FileResult, *cookiejar.Jar) {
	store := render.NewStore()
	store.SetRedactor(opts.Redactor)
	for k, v := range baseVars {
		store.Set(k, v)
	}
	jar := baseJar.Clone()

	result := &FileResult{File: f}

	from := opts.FromEntry
	to := opts.ToEntry
	if from < 1 {
		from = 1
	}
	if to < 1 || to > len(f.Entries) {
		to = len(f.Entries)
	}

	for i, entry := range f.Entries {
		n := i + 1
		if n < from || n > to {
			continue
		}
		entryResult, err := RunEntry(ctx, entry, store, jar, engine, opts.FileRoot, opts.Verbose || opts.VeryVerbose)
		if err != nil {
			result.Err = err
			return result, jar
		}
		result.Entries = append(result.Entries, entryResult)
		if !entryResult.Skipped && !entryResult.Passed() && !opts.ContinueOnError {
			return result, jar
		}
	}

	return result, jar
}

// RunFiles fans a worker pool of opts.Parallel goroutines out across
// files, each with its own Store/Jar forked from the shared base
// (spec §5: "workers with no shared mutable state, not a durable
// workflow engine" — mirrors the teacher's Scheduler worker-pool shape,
// generalized from Temporal workflow dispatch to per-file HTTP runs).
//
// --repeat N expands the schedule to N back-to-back passes over the
// whole file list before dispatch, rather than retrying a single file
// on failure (the per-entry "repeat:" option, applied inside RunEntry
// itself, is the other meaning of "repeat" spec §9 distinguishes).
func RunFiles(ctx context.Context, files []*hast.File, engine *httpengine.Engine, opts config.SessionOptions) []*FileResult {
	baseJar := cookiejar.New()
	if opts.CookieJarPath != "" {
		if loaded, err := cookiejar.Load(opts.CookieJarPath); err == nil {
			baseJar = loaded
		}
	}

	schedule := expandSchedule(files, opts.Repeat)
	results := make([]*FileResult, len(schedule))

	workers := opts.Parallel
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	var jarMu sync.Mutex
	finalJar := cookiejar.New()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				var fileJar *cookiejar.Jar
				results[idx], fileJar = RunFile(ctx, schedule[idx], opts.Variables, baseJar, engine, opts)
				if opts.CookieJarPath != "" {
					jarMu.Lock()
					for _, c := range fileJar.All() {
						finalJar.Set(c)
					}
					jarMu.Unlock()
				}
			}
		}()
	}

	for idx := range schedule {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	if opts.CookieJarPath != "" {
		_ = finalJar.Save(opts.CookieJarPath)
	}

	return results
}

func expandSchedule(files []*hast.File, repeat int) []*hast.File {
	if repeat < 1 {
		repeat = 1
	}
	out := make([]*hast.File, 0, len(files)*repeat)
	for i := 0; i < repeat; i++ {
		out = append(out, files...)
	}
	return out
}

// Summarize collapses a run's FileResults into the exit code spec §6.4
// documents: the maximum exit class observed across every file and
// entry, not just the first one found.
func Summarize(results []*FileResult) diag.ExitCode {
	code := diag.ExitOK
	for _, r := range results {
		if r.Err != nil {
			code = maxExit(code, exitCodeOf(r.Err))
			continue
		}
		for _, e := range r.Entries {
			if e.Skipped {
				continue
			}
			if e.FatalErr != nil {
				code = maxExit(code, exitCodeOf(e.FatalErr))
				continue
			}
			if !e.Passed() {
				code = maxExit(code, diag.ExitAssert)
			}
		}
	}
	return code
}

// exiter is implemented by every diag error type; exitCodeOf falls back
// to ExitRuntime for anything that doesn't (there shouldn't be any).
type exiter interface{ ExitCode() diag.ExitCode }

func exitCodeOf(err error) diag.ExitCode {
	if e, ok := err.(exiter); ok {
		return e.ExitCode()
	}
	return diag.ExitRuntime
}

func maxExit(a, b diag.ExitCode) diag.ExitCode {
	if b > a {
		return b
	}
	return a
}
