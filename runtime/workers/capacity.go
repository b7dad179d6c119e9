package workers

import (
	"context"
	"log/slog"
	"reflect"
	"time"

	"gridchat/contract"
)

var _ contract.Worker = (*ChannelCapacityWorker)(nil)

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacityWorker periodically reports the current capacity and length
// of the broker's internal Go channels. Reading len(ch) and cap(ch) is
// non-blocking, so this never interferes with the pipeline; the values are
// sampled, not exact.
type ChannelCapacityWorker struct {
	log      *slog.Logger
	channels []NamedChannel
	interval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel, interval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{log: log, channels: channels, interval: interval}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping capacity sampling")
			return nil
		case <-ticker.C:
			for _, nc := range w.channels {
				v := reflect.ValueOf(nc.Channel)
				if v.Kind() != reflect.Chan {
					w.log.Error("Provided object is not a channel", "name", nc.Name)
					continue
				}
				w.log.Debug("Pipeline depth",
					"name", nc.Name,
					"length", v.Len(),
					"capacity", v.Cap(),
				)
			}
		}
	}
}
