package coordinator

import (
	"context"
	"log/slog"
	"time"
)

// RunJanitor calls Expire on the coordinators returned by coords at each
// interval until ctx ends.
func RunJanitor(ctx context.Context, interval, ttl time.Duration, logger *slog.Logger, coords func() []*Coordinator) {
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, c := range coords() {
				if n := c.Expire(ttl); n > 0 {
					logger.Debug("expired transactions", "device", c.Device().Name, "count", n)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}
