package pkg

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"m7s.live/player/pkg/task"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"trace": task.TraceLevel,
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("%s: expected %v, got %v", in, want, got)
		}
	}
}

func TestMultiLogHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := NewMultiLogHandler(slog.LevelInfo,
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	logger := slog.New(h).With("track", 1)
	logger.Debug("hidden")
	logger.Info("shown")
	for _, out := range []string{a.String(), b.String()} {
		if strings.Contains(out, "hidden") {
			t.Errorf("debug record leaked: %s", out)
		}
		if !strings.Contains(out, "shown") || !strings.Contains(out, "track=1") {
			t.Errorf("missing record: %s", out)
		}
	}
	h.SetLevel(slog.LevelDebug)
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Errorf("child handler should follow parent level")
	}
}
