package pkg

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"m7s.live/player/pkg/task"
)

var _ slog.Handler = (*MultiLogHandler)(nil)

func ParseLevel(level string) slog.Level {
	var lv slog.LevelVar
	if level == "trace" {
		lv.Set(task.TraceLevel)
	} else {
		lv.UnmarshalText([]byte(level))
	}
	return lv.Level()
}

// MultiLogHandler fans records out to several handlers behind one level.
// Handlers derived with WithAttrs or WithGroup share the level of the handler
// they came from but keep the handler list they were derived with.
type MultiLogHandler struct {
	mu       sync.RWMutex
	level    *slog.LevelVar
	handlers []slog.Handler
}

func NewMultiLogHandler(level slog.Level, handlers ...slog.Handler) *MultiLogHandler {
	m := &MultiLogHandler{level: new(slog.LevelVar), handlers: slices.Clone(handlers)}
	m.level.Set(level)
	return m
}

func (m *MultiLogHandler) Add(h slog.Handler) {
	m.mu.Lock()
	m.handlers = append(m.handlers, h)
	m.mu.Unlock()
}

func (m *MultiLogHandler) Remove(h slog.Handler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := slices.Index(m.handlers, h); i >= 0 {
		m.handlers = slices.Delete(m.handlers, i, i+1)
	}
}

func (m *MultiLogHandler) SetLevel(level slog.Level) {
	m.level.Set(level)
}

func (m *MultiLogHandler) Level() slog.Level {
	return m.level.Level()
}

func (m *MultiLogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= m.level.Level()
}

func (m *MultiLogHandler) snapshot() []slog.Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.handlers)
}

// Handle passes a copy of rec to every handler that accepts its level.
func (m *MultiLogHandler) Handle(ctx context.Context, rec slog.Record) error {
	var errs []error
	for _, h := range m.snapshot() {
		if h.Enabled(ctx, rec.Level) {
			if err := h.Handle(ctx, rec.Clone()); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *MultiLogHandler) derive(fn func(slog.Handler) slog.Handler) *MultiLogHandler {
	handlers := m.snapshot()
	for i, h := range handlers {
		handlers[i] = fn(h)
	}
	return &MultiLogHandler{level: m.level, handlers: handlers}
}

func (m *MultiLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (m *MultiLogHandler) WithGroup(name string) slog.Handler {
	return m.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}
