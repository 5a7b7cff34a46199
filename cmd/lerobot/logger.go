package main

import (
	"bytes"
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// newLogger returns a tint logger writing to w. Colors are used only when w
// is a terminal.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		AddSource:  len(opts.Verbose) > 1,
		TimeFormat: "15:04:05",
		NoColor:    noColor,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Value.Kind() == slog.KindAny {
				if _, ok := a.Value.Any().(error); ok {
					return tint.Attr(9, a)
				}
			}
			return a
		},
	}))
}

// logSink feeds log lines to a TUI. Lines are dropped when the reader falls
// behind.
type logSink struct {
	lines chan string
}

func newLogSink() *logSink {
	return &logSink{lines: make(chan string, 32)}
}

func (s *logSink) Write(p []byte) (int, error) {
	line := string(bytes.TrimRight(p, "\n"))
	select {
	case s.lines <- line:
	default:
	}
	return len(p), nil
}

func (s *logSink) Lines() <-chan string {
	return s.lines
}
