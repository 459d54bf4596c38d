// Package config builds the immutable SessionOptions a run is executed
// with: CLI flags, --variables-file contents, and the documented
// environment variables (spec §5/§6.3), snapshotted once at startup the
// way the teacher's InitLogging reads ROCKETSHIP_LOG once rather than
// re-reading os.Getenv throughout a run.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hurlrunner/hurl/internal/diag"
	"github.com/hurlrunner/hurl/internal/value"
)

// SessionOptions is built once per invocation and passed by value/pointer
// to every collaborator; nothing mutates its option fields after the CLI
// has finished building it from Default, ApplyEnv and the flag setters.
type SessionOptions struct {
	Variables      map[string]value.Value
	Secrets        []string
	Insecure       bool
	MaxRedirects   int
	ConnectTimeout time.Duration
	Timeout        time.Duration
	ProxyURL       string
	NoProxy        bool
	Retry          int
	RetryInterval  time.Duration
	ContinueOnError bool
	Parallel       int
	FileRoot       string
	CookieJarPath  string
	Color          bool
	Verbose        bool
	VeryVerbose    bool
	FromEntry      int
	ToEntry        int
	Repeat         int

	// Redactor accumulates every --secret value and every captured
	// value marked `redact`, scrubbing them from stderr and report
	// output (spec §3, §7, scenario S4). Built lazily so a run with no
	// secrets never allocates one.
	Redactor *diag.Redactor
}

// Default returns the documented defaults (spec §6.3) before CLI flags
// or env vars are applied.
func Default() SessionOptions {
	return SessionOptions{
		Variables:      map[string]value.Value{},
		MaxRedirects:   50,
		ConnectTimeout: 300 * time.Second,
		Timeout:        300 * time.Second,
		Parallel:       1,
		Color:          stdoutIsTerminal(),
		FromEntry:      1,
		ToEntry:        -1,
		Repeat:         1,
	}
}

// ApplyEnv overlays the documented environment variables onto opts:
// HURL_VARIABLE_<name> and the legacy HURL_<name> form set a variable,
// NO_COLOR disables color, and the usual proxy env vars configure the
// transport when no --proxy flag was given.
func (o *SessionOptions) ApplyEnv(environ []string) {
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(name, "HURL_VARIABLE_"):
			o.Variables[strings.TrimPrefix(name, "HURL_VARIABLE_")] = inferValue(val)
		case strings.HasPrefix(name, "HURL_"):
			o.Variables[strings.TrimPrefix(name, "HURL_")] = inferValue(val)
		case name == "NO_COLOR":
			o.Color = false
		case name == "HTTPS_PROXY" || name == "https_proxy", name == "HTTP_PROXY" || name == "http_proxy":
			if o.ProxyURL == "" {
				o.ProxyURL = val
			}
		case name == "NO_PROXY" || name == "no_proxy":
			o.NoProxy = true
		}
	}
}

// LoadVariablesFile parses a --variables-file document (spec §5's
// supplemented feature): a flat YAML mapping of name -> literal value.
func (o *SessionOptions) LoadVariablesFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading variables file %q: %w", path, err)
	}
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parsing variables file %q: %w", path, err)
	}
	for k, v := range raw {
		o.Variables[k] = fromYAML(v)
	}
	return nil
}

// SetCLIVariable parses one --variable name=value flag (spec §6.3); the
// value is typed the same way a bare template-operand literal is, so
// --variable count=3 produces an Int, not a String.
func (o *SessionOptions) SetCLIVariable(assignment string) error {
	name, val, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("invalid --variable %q, expected name=value", assignment)
	}
	o.Variables[name] = inferValue(val)
	return nil
}

// SetCLISecret parses one --secret name=value flag: it both defines the
// variable (like --variable) and registers the literal value for
// redaction from every diagnostic, stderr line, and report field (spec
// §3, §7 AssertFailure scenario S4). The variable is always a string:
// secrets are opaque tokens, not typed literals.
func (o *SessionOptions) SetCLISecret(assignment string) error {
	name, val, ok := strings.Cut(assignment, "=")
	if !ok {
		return fmt.Errorf("invalid --secret %q, expected name=value", assignment)
	}
	o.Variables[name] = value.Str(val)
	o.Secrets = append(o.Secrets, val)
	if o.Redactor == nil {
		o.Redactor = diag.NewRedactor()
	}
	o.Redactor.Add(val)
	return nil
}

func inferValue(s string) value.Value {
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

func fromYAML(v interface{}) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(t)
	case int:
		return value.Int(int64(t))
	case int64:
		return value.Int(t)
	case float64:
		return value.Float(t)
	case string:
		return value.Str(t)
	default:
		return value.Str(fmt.Sprintf("%v", t))
	}
}

func stdoutIsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
