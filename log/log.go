// Package log provides logging utilities built on [log/slog].
//
// The package exposes a process-wide default logger used by all
// components when no logger is provided via options, plus a couple of
// preconfigured handlers: a console handler for regular use and a
// developer handler with sorted keys and pretty value dumps.
package log

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/golang-cz/devslog"
	"github.com/phsym/console-slog"
	slogformatter "github.com/samber/slog-formatter"

	"github.com/ghettovoice/sipcore/internal/constraints"
)

var newHandler = slogformatter.NewFormatterHandler(
	slogformatter.ErrorFormatter("error"),
)

// NewConsoleLogger returns a logger with the console handler writing to stdout.
func NewConsoleLogger(lvl slog.Level) *slog.Logger {
	return slog.New(newHandler(
		console.NewHandler(os.Stdout, &console.HandlerOptions{
			AddSource:  true,
			Level:      lvl,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}

// NewDevLogger returns a logger with the developer handler writing to stdout.
func NewDevLogger(lvl slog.Level) *slog.Logger {
	return slog.New(newHandler(
		devslog.NewHandler(os.Stdout, &devslog.Options{
			HandlerOptions: &slog.HandlerOptions{
				AddSource: true,
				Level:     lvl,
			},
			SortKeys:   true,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}

var defLog atomic.Pointer[slog.Logger]

func init() {
	defLog.Store(NewConsoleLogger(slog.LevelInfo))
}

// Default returns the package level default logger.
func Default() *slog.Logger { return defLog.Load() }

// SetDefault replaces the package level default logger.
// Passing nil resets it to the console logger.
func SetDefault(l *slog.Logger) {
	if l == nil {
		l = NewConsoleLogger(slog.LevelInfo)
	}
	defLog.Store(l)
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool { return false }

func (noopHandler) Handle(context.Context, slog.Record) error { return nil }

func (h noopHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h noopHandler) WithGroup(string) slog.Handler { return h }

var noopLog = slog.New(noopHandler{})

// Noop returns a logger that discards all records.
func Noop() *slog.Logger { return noopLog }

type fmtValue struct {
	v        any
	goSyntax bool
}

func (v fmtValue) LogValue() slog.Value {
	if v.goSyntax {
		return slog.StringValue(fmt.Sprintf("%#v", v.v))
	}
	return slog.StringValue(fmt.Sprintf("%+v", v.v))
}

// FmtValue returns a value logger that formats values using '%+v' or '%#v' syntax.
func FmtValue(v any, goSyntax bool) slog.LogValuer { return fmtValue{v, goSyntax} }

type calcValue struct{ fn func() any }

func (v calcValue) LogValue() slog.Value {
	cv := v.fn()
	switch cv := cv.(type) {
	case slog.Value:
		return cv
	default:
		return slog.AnyValue(cv)
	}
}

// CalcValue returns a value logger that computes a value using a fn.
func CalcValue(fn func() any) slog.LogValuer { return calcValue{fn} }

type stringValue[T constraints.Byteseq] struct {
	v T
}

func (v stringValue[T]) LogValue() slog.Value {
	return slog.StringValue(string(v.v))
}

// StringValue returns a value logger that formats v as string.
func StringValue[T constraints.Byteseq](v T) slog.LogValuer { return stringValue[T]{v} }

// LoggerFromValues returns the logger carried by one of the given values.
// A value provides its logger by implementing `interface{ Logger() *slog.Logger }`.
// When no value carries a logger, the default logger is returned.
func LoggerFromValues(_ context.Context, vals ...any) *slog.Logger {
	for _, v := range vals {
		if lp, ok := v.(interface{ Logger() *slog.Logger }); ok && lp != nil {
			if l := lp.Logger(); l != nil {
				return l
			}
		}
	}
	return Default()
}
