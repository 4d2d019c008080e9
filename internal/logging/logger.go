// Package logging provides the process-wide structured logger for Aura.
//
// Every handler writes to stderr, never stdout: the MCP stdio transport
// (internal/mcpserver) owns stdout for JSON-RPC framing, and anything else
// written there corrupts the protocol stream.
package logging

import (
	"log/slog"
	"os"
	"sync"
)

var (
	mu     sync.RWMutex
	global *slog.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
)

// Format selects the stderr handler's encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Init builds the process logger and installs it as the default returned by L.
// debug raises the level to slog.LevelDebug; otherwise slog.LevelInfo.
func Init(format Format, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)

	mu.Lock()
	global = logger
	mu.Unlock()

	return logger
}

// L returns the current process logger. Safe to call before Init; defaults
// to a text handler on stderr at info level.
func L() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// With returns a derived logger scoped to the given attributes, the way
// callers thread workflow_id/step_id/workspace_id through a call chain.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
