package plugin_logrotate

import (
	"io"
	"log/slog"

	"github.com/alchemy/rotoslog"
	"github.com/phsym/console-slog"
	"m7s.live/player/pkg"
	"m7s.live/player/pkg/config"
)

const TimeFormat = "2006-01-02 15:04:05.000"

// NewConsoleHandler formats records for a terminal.
func NewConsoleHandler(w io.Writer, level slog.Leveler, noColor bool) slog.Handler {
	return console.NewHandler(w, &console.HandlerOptions{NoColor: noColor, Level: level, TimeFormat: TimeFormat})
}

// NewHandler writes records into size and time rotated files under conf.Path.
func NewHandler(conf config.Log) (slog.Handler, error) {
	builder := func(w io.Writer, opts *slog.HandlerOptions) slog.Handler {
		return NewConsoleHandler(w, pkg.ParseLevel(conf.Level), true)
	}
	return rotoslog.NewHandler(rotoslog.LogHandlerBuilder(builder), rotoslog.LogDir(conf.Path), rotoslog.MaxFileSize(conf.Size), rotoslog.DateTimeLayout(conf.Formatter), rotoslog.MaxRotatedFiles(conf.MaxFiles))
}

// NewLogger combines console output with rotated files when conf.Path is set.
func NewLogger(w io.Writer, conf config.Log) (*slog.Logger, *pkg.MultiLogHandler, error) {
	level := pkg.ParseLevel(conf.Level)
	handler := pkg.NewMultiLogHandler(level, NewConsoleHandler(w, level, false))
	if conf.Path != "" {
		fileHandler, err := NewHandler(conf)
		if err != nil {
			return nil, nil, err
		}
		handler.Add(fileHandler)
	}
	return slog.New(handler), handler, nil
}
