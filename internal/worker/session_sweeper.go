package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/posnet-gateway/internal/application"
)

// SessionSweeper deletes 3-D Secure sessions that have been idle longer than
// the session TTL, whatever phase they stopped in. Only stores without native
// expiry need it.
type SessionSweeper struct {
	store    application.SessionSweeper
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func NewSessionSweeper(
	store application.SessionSweeper,
	ttl time.Duration,
	interval time.Duration,
	logger *slog.Logger,
) *SessionSweeper {
	return &SessionSweeper{
		store:    store,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		now:      time.Now,
	}
}

func (w *SessionSweeper) Start(ctx context.Context) {
	w.logger.Info("session sweeper started", "interval", w.interval, "ttl", w.ttl)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("session sweeper stopping")
			return
		case <-ticker.C:
			if _, err := w.sweep(ctx); err != nil {
				w.logger.Error("session sweep failed", "error", err)
			}
		}
	}
}

func (w *SessionSweeper) sweep(ctx context.Context) (int, error) {
	deleted, err := w.store.DeleteAbandoned(ctx, w.now().Add(-w.ttl))
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		w.logger.Info("abandoned 3ds sessions deleted", "count", deleted)
	}
	return deleted, nil
}
