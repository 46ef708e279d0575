// Package logger defines the narrow logging surface the payment pipeline
// writes to. Implementations must be safe for concurrent use.
package logger

// Logger accepts a message plus alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Noop discards everything. It is the default when no logger is injected.
type Noop struct{}

func (Noop) Debug(string, ...any) {}

func (Noop) Info(string, ...any) {}

func (Noop) Warn(string, ...any) {}

func (Noop) Error(string, ...any) {}
