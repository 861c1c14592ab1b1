package logging

import (
	"io"
	"log"
	"math"
)

// Level represents a logging level, identical to [slog.Level].
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
	LevelNever Level = math.MaxInt
)

// Logger represents a simple logging interface.
type Logger interface {
	// Level returns the current logging level for this Logger.
	Level() Level

	// Logf logs a message with a logging level.
	Logf(level Level, format string, v ...any)

	// Debugf logs a message with level debug.
	Debugf(format string, v ...any)

	// Infof logs a message with level info.
	Infof(format string, v ...any)

	// Printf is an alias for Infof.
	Printf(format string, v ...any)

	// Warnf logs a message with level warn.
	Warnf(format string, v ...any)

	// Errorf logs a message with level error.
	Errorf(format string, v ...any)
}

// DiscardLogger returns a logger that discards all output.
func DiscardLogger() Logger {
	return &logger{level: LevelNever}
}

// NewLogger returns a new leveled logger that writes to out.
func NewLogger(out io.Writer, level Level) Logger {
	return &logger{
		level:  level,
		logger: log.New(out, "", 0),
	}
}

type logger struct {
	level  Level
	logger *log.Logger
}

func (l *logger) Level() Level {
	return l.level
}

func (l *logger) Logf(level Level, format string, v ...any) {
	if l.level > level || l.logger == nil {
		return
	}
	l.logger.Printf(format, v...)
}

func (l *logger) Debugf(format string, v ...any) {
	l.Logf(LevelDebug, format, v...)
}

func (l *logger) Infof(format string, v ...any) {
	l.Logf(LevelInfo, format, v...)
}

func (l *logger) Printf(format string, v ...any) {
	l.Logf(LevelInfo, format, v...)
}

func (l *logger) Warnf(format string, v ...any) {
	l.Logf(LevelWarn, format, v...)
}

func (l *logger) Errorf(format string, v ...any) {
	l.Logf(LevelError, format, v...)
}

// Named wraps l so every message is prefixed with "[name] ", used to tag
// log lines by pipeline component (loader, resolver, reflector) when
// several run against the same output stream.
func Named(name string, l Logger) Logger {
	return &named{name: "[" + name + "] ", inner: l}
}

type named struct {
	name  string
	inner Logger
}

func (n *named) Level() Level { return n.inner.Level() }

func (n *named) Logf(level Level, format string, v ...any) {
	n.inner.Logf(level, n.name+format, v...)
}

func (n *named) Debugf(format string, v ...any) { n.Logf(LevelDebug, format, v...) }
func (n *named) Infof(format string, v ...any)  { n.Logf(LevelInfo, format, v...) }
func (n *named) Printf(format string, v ...any) { n.Logf(LevelInfo, format, v...) }
func (n *named) Warnf(format string, v ...any)  { n.Logf(LevelWarn, format, v...) }
func (n *named) Errorf(format string, v ...any) { n.Logf(LevelError, format, v...) }
