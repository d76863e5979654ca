package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/cairn"
)

// WatchAndReload consumes the engine's definition change channel and
// reloads on every notification, blocking until ctx is cancelled or
// the channel closes. Learned weights survive each reload; a broken
// definition is logged and the previous graph stays live.
func WatchAndReload(ctx context.Context, engine *cairn.Engine, logger *slog.Logger) error {
	ch, err := engine.Watch(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case changed, ok := <-ch:
			if !ok {
				return nil
			}
			logger.Info("change detected, reloading definition", "source", changed)
			// Let the file settle; editors write in bursts.
			time.Sleep(100 * time.Millisecond)
			if err := engine.Reload(ctx); err != nil {
				logger.Error("reload failed, keeping previous definition", "err", err)
			}
		}
	}
}
