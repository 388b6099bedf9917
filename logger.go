package latch

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewZerologLogger returns a Logger that writes to w at the given
// level ("debug", "info", "warn", "error").
func NewZerologLogger(w io.Writer, level string) Logger {
	if w == nil {
		w = os.Stderr
	}
	zl := zerolog.New(w).With().Timestamp().Logger().Level(ParseLogLevel(level))
	return &zerologLogger{zl: zl}
}

// NewZerologProvider returns a LoggerProvider that tags each logger
// with its name.
func NewZerologProvider(w io.Writer, level string) LoggerProvider {
	base := NewZerologLogger(w, level).(*zerologLogger)
	return zerologProvider{base: base.zl}
}

// ParseLogLevel maps a level name to a zerolog level, defaulting to info.
func ParseLogLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

type zerologLogger struct {
	zl zerolog.Logger
}

func (l *zerologLogger) Debug(msg string, args ...any) { l.write(l.zl.Debug(), msg, args) }
func (l *zerologLogger) Info(msg string, args ...any)  { l.write(l.zl.Info(), msg, args) }
func (l *zerologLogger) Warn(msg string, args ...any)  { l.write(l.zl.Warn(), msg, args) }
func (l *zerologLogger) Error(msg string, args ...any) { l.write(l.zl.Error(), msg, args) }

func (l *zerologLogger) write(evt *zerolog.Event, msg string, args []any) {
	if evt == nil {
		return
	}
	for i := 0; i < len(args); i += 2 {
		key := fmt.Sprint(args[i])
		if i+1 >= len(args) {
			evt = evt.Interface("!BADKEY", args[i])
			break
		}
		switch v := args[i+1].(type) {
		case error:
			evt = evt.AnErr(key, v)
		case string:
			evt = evt.Str(key, v)
		default:
			evt = evt.Interface(key, v)
		}
	}
	evt.Msg(msg)
}

type zerologProvider struct {
	base zerolog.Logger
}

func (p zerologProvider) GetLogger(name string) Logger {
	return &zerologLogger{zl: p.base.With().Str("logger", name).Logger()}
}

type staticLoggerProvider struct {
	logger Logger
}

func (p staticLoggerProvider) GetLogger(string) Logger {
	return p.logger
}

type fallbackLoggerProvider struct {
	provider LoggerProvider
	fallback Logger
}

func (p fallbackLoggerProvider) GetLogger(name string) Logger {
	if l := p.provider.GetLogger(name); l != nil {
		return l
	}
	return p.fallback
}

var defaultProvider LoggerProvider = NewZerologProvider(os.Stderr, "info")

// ResolveLogger picks the logger a component should use. An explicit
// logger wins, then the provider's named logger, then the package default.
func ResolveLogger(name string, provider LoggerProvider, logger Logger) (LoggerProvider, Logger) {
	if provider == nil {
		if logger != nil {
			return staticLoggerProvider{logger: logger}, logger
		}
		provider = defaultProvider
	}

	if logger != nil {
		return fallbackLoggerProvider{provider: provider, fallback: logger}, logger
	}

	resolved := provider.GetLogger(name)
	if resolved == nil {
		resolved = defaultProvider.GetLogger(name)
		return fallbackLoggerProvider{provider: provider, fallback: resolved}, resolved
	}

	return provider, resolved
}
