package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"achievehub/internal/config"
	"achievehub/internal/repository"
)

// StartNotificationPruneJob periodically deletes read notifications older
// than the retention window. Disabled unless configured.
func StartNotificationPruneJob(ctx context.Context, cfg config.Config, store *repository.Store, logger *zap.Logger) {
	if !cfg.NotificationPruneEnabled {
		return
	}
	interval := cfg.NotificationPruneInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-cfg.NotificationRetention)
				tickCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				deleted, err := store.DeleteReadNotificationsBefore(tickCtx, cutoff)
				cancel()
				if err != nil {
					logger.Warn("notification prune error", zap.Error(err))
					continue
				}
				if deleted > 0 {
					logger.Info("pruned notifications", zap.Int64("deleted", deleted))
				}
			}
		}
	}()
}
