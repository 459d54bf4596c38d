// Package cli wires the spec §6.3 CLI surface (argument parsing,
// logging, output rendering) the core treats as an external
// collaborator — given a concrete, minimal cobra-based implementation
// in the teacher's own idiom.
package cli

import (
	"log/slog"
	"os"
	"strings"
)

// Logger is the global logger instance, following the teacher's
// package-level *slog.Logger set once at startup.
var Logger *slog.Logger

// InitLogging initializes the logger with the level named by HURL_LOG
// (mirroring the teacher's ROCKETSHIP_LOG), defaulting to INFO.
func InitLogging() {
	level := new(slog.LevelVar)

	switch strings.ToUpper(os.Getenv("HURL_LOG")) {
	case "DEBUG":
		level.Set(slog.LevelDebug)
	case "WARN":
		level.Set(slog.LevelWarn)
	case "ERROR":
		level.Set(slog.LevelError)
	default:
		level.Set(slog.LevelInfo)
	}

	Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(Logger)
}

// RaiseVerbosity is called once flags are parsed: -v/--verbose raises
// the level to DEBUG the same way the teacher's -v flag would reach
// into InitLogging's level var, except here the var isn't exported, so
// we just rebuild the logger at the new level.
func RaiseVerbosity(veryVerbose bool) {
	level := slog.LevelDebug
	opts := &slog.HandlerOptions{Level: level}
	Logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
	slog.SetDefault(Logger)
	if veryVerbose {
		Logger.Debug("very-verbose logging enabled")
	}
}
