package internal

import (
	"io"

	"github.com/starford/daybook/internal/daycount"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	logOutput io.Writer
	clock     daycount.Clock
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the JSON log stream. MCP mode needs stderr since
// stdout carries the protocol.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithClock replaces the wall clock used for day counts and entry timestamps.
func WithClock(c daycount.Clock) Option {
	return func(a *application) {
		a.clock = c
	}
}
