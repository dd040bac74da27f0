// Package logging defines the structured logger contract used throughout the
// resilience strategies, plus a zerolog-backed implementation and a no-op
// default so callers who don't wire a logger pay no cost.
package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// Logger is the structured logging contract every strategy depends on.
// Fields are passed as a map rather than variadic key-value pairs so call
// sites read naturally and implementations are free to choose their own
// encoding.
type Logger interface {
	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, err error, fields map[string]any)

	// WithComponent returns a Logger that annotates every subsequent call
	// with component, e.g. "circuit-breaker" or "retry".
	WithComponent(component string) Logger
}

// NoOp is a Logger that discards everything. It is the default when a
// strategy's Options.Logger is left nil.
type NoOp struct{}

func (NoOp) Debug(string, map[string]any)            {}
func (NoOp) Info(string, map[string]any)              {}
func (NoOp) Warn(string, map[string]any)              {}
func (NoOp) Error(string, error, map[string]any)      {}
func (NoOp) WithComponent(string) Logger              { return NoOp{} }

// zerologLogger adapts zerolog.Logger to the Logger interface.
type zerologLogger struct {
	logger    zerolog.Logger
	component string
}

// NewZerolog builds a Logger writing structured JSON lines to w via zerolog,
// matching the console/JSON conventions the rest of the pack uses.
func NewZerolog(w io.Writer) Logger {
	return &zerologLogger{logger: zerolog.New(w).With().Timestamp().Logger()}
}

func (l *zerologLogger) event(e *zerolog.Event, fields map[string]any) *zerolog.Event {
	if l.component != "" {
		e = e.Str("component", l.component)
	}
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

func (l *zerologLogger) Debug(msg string, fields map[string]any) {
	l.event(l.logger.Debug(), fields).Msg(msg)
}

func (l *zerologLogger) Info(msg string, fields map[string]any) {
	l.event(l.logger.Info(), fields).Msg(msg)
}

func (l *zerologLogger) Warn(msg string, fields map[string]any) {
	l.event(l.logger.Warn(), fields).Msg(msg)
}

func (l *zerologLogger) Error(msg string, err error, fields map[string]any) {
	e := l.logger.Error()
	if err != nil {
		e = e.Err(err)
	}
	l.event(e, fields).Msg(msg)
}

func (l *zerologLogger) WithComponent(component string) Logger {
	return &zerologLogger{logger: l.logger, component: component}
}
