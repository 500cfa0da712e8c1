package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const maxBackoff = 4 * time.Hour

// StartRefresher re-syncs progress at a fixed cadence until ctx is done.
// Consecutive failures stretch the wait (see calculateBackoff). Runs are
// skipped while no credential is stored. It returns immediately.
func StartRefresher(ctx context.Context, a *App, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		failures := 0
		for {
			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			if refresh(ctx, a) {
				failures = 0
			} else {
				failures++
			}
		}
	}()
}

// refresh reports whether the sync succeeded or was skipped.
func refresh(ctx context.Context, a *App) bool {
	ran, err := a.SyncIfConfigured(ctx)
	if err != nil {
		a.Logger.Warn("scheduled sync failed", zap.Error(err))
		return false
	}
	if ran {
		a.Logger.Debug("scheduled sync complete")
	}
	return true
}

// calculateBackoff doubles base for every consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
