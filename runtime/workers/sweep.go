package workers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gridchat/contract"
	"gridchat/domain"
)

var _ contract.Worker = (*SweepWorker)(nil)

// SweepWorker periodically evicts expired messages from every channel store.
// It deliberately stays silent towards clients: history shrinking is only
// observed at join time, never streamed.
type SweepWorker struct {
	log      *slog.Logger
	channels []*domain.Channel
	interval time.Duration
	now      func() time.Time
}

func NewSweepWorker(log *slog.Logger, channels []*domain.Channel,
	interval time.Duration, now func() time.Time) *SweepWorker {
	return &SweepWorker{log: log, channels: channels, interval: interval, now: now}
}

func (w *SweepWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping sweep")
			return nil
		case <-ticker.C:
			if cleaned := w.SweepOnce(); cleaned > 0 {
				w.log.Info(fmt.Sprintf("Cleaned %d expired messages", cleaned))
			}
		}
	}
}

// SweepOnce evicts across all channels and returns the total removed.
// One misbehaving store never prevents sweeping the others.
func (w *SweepWorker) SweepOnce() int {
	now := w.now()
	total := 0
	for _, c := range w.channels {
		total += w.evict(c, now)
	}
	return total
}

func (w *SweepWorker) evict(c *domain.Channel, now time.Time) (evicted int) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Eviction failed for channel", "channel", c.ID, "panic", r)
			evicted = 0
		}
	}()
	return c.Store.Evict(now)
}
