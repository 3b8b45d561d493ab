package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// lifecycle runs shutdown steps in reverse registration order, once.
type lifecycle struct {
	mu      sync.Mutex
	hooks   []stopHook
	stopped bool
}

type stopHook struct {
	name string
	fn   func(context.Context) error
}

// onStop registers fn to run during shutdown.
func (l *lifecycle) onStop(name string, fn func(context.Context) error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, stopHook{name: name, fn: fn})
}

// onClose registers a closer to run during shutdown.
func (l *lifecycle) onClose(name string, c interface{ Close() error }) {
	l.onStop(name, func(context.Context) error {
		return c.Close()
	})
}

// stop runs every hook, newest first. Later calls are no-ops.
func (l *lifecycle) stop(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.stopped {
		return nil
	}
	l.stopped = true

	var errs []error
	for i := len(l.hooks) - 1; i >= 0; i-- {
		h := l.hooks[i]
		if err := h.fn(ctx); err != nil {
			slog.Warn("shutdown step failed", "step", h.name, slogKeyError, err)
			errs = append(errs, fmt.Errorf("%s: %w", h.name, err))
		}
	}
	return errors.Join(errs...)
}
