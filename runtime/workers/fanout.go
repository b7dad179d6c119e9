package workers

import (
	"context"
	"log/slog"
	"time"

	"gridchat/contract"
	"gridchat/domain/event"
)

// Ensure *FanoutWorker implements the contract.Worker interface at compile time.
var _ contract.Worker = (*FanoutWorker)(nil)

// FanoutWorker drains the broker's event pipeline and delivers each event to
// the sinks that must see it: targeted events go to a single connection,
// everything else to every current member of the event's channel plus the
// permanent sinks.
//
// It provides best-effort fan-out with no guarantees regarding delivery,
// durability, or retries. A single worker drains the pipeline, so delivery
// order follows publish order for every channel and connection.
//
// Each Consume call is bounded by the sink timeout; a slow or dead consumer
// only loses its own events and never stalls the others.
type FanoutWorker struct {
	log            *slog.Logger
	registry       contract.IRegistry
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
}

func NewFanoutWorker(log *slog.Logger, registry contract.IRegistry,
	events chan event.DomainEvent, permanentSinks []contract.EventSink,
	sinkTimeout time.Duration) *FanoutWorker {
	return &FanoutWorker{
		log:            log,
		registry:       registry,
		events:         events,
		permanentSinks: permanentSinks,
		sinkTimeout:    sinkTimeout,
	}
}

func (w *FanoutWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping fanout")
			return nil
		case evt, ok := <-w.events:
			if !ok {
				w.log.Debug("Channel is closed")
				return nil
			}
			w.Fanout(ctx, evt)
		}
	}
}

// Fanout routes one event to its audience.
func (w *FanoutWorker) Fanout(ctx context.Context, evt event.DomainEvent) {
	if targeted, ok := evt.(event.Targeted); ok {
		if sink, exists := w.registry.SinkFor(targeted.TargetID()); exists {
			w.consume(ctx, sink, evt)
		}
		return
	}

	for _, sink := range w.registry.SinksFor(evt.ChannelID()) {
		w.consume(ctx, sink, evt)
	}
	for _, sink := range w.permanentSinks {
		w.consume(ctx, sink, evt)
	}
}

func (w *FanoutWorker) consume(ctx context.Context, sink contract.EventSink, evt event.DomainEvent) {
	sinkCtx, cancel := context.WithTimeout(ctx, w.sinkTimeout)
	defer cancel()

	if err := sink.Consume(sinkCtx, evt); err != nil {
		w.log.Debug("Sink delivery failed", "channel", evt.ChannelID(), "error", err)
	}
}
