// Package runtime wires the membership registry, the channel stores, and the
// background workers into one process-scoped broker. It orchestrates event
// propagation without containing domain rules itself.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"gridchat/contract"
	"gridchat/domain"
	"gridchat/domain/event"
	errs "gridchat/errors"
	"gridchat/runtime/workers"
)

// Broker is the connection lifecycle state machine:
// Disconnected -> Connected(no channel) -> Connected(in channel X).
//
// It validates requests against the fixed channel catalog, mutates the
// registry and the per-channel stores, and publishes the resulting events
// onto a buffered pipeline drained by a single fanout worker, which keeps
// delivery ordered per channel and per connection.
//
// Per-connection sequencing is provided by the transport: each connection's
// lifecycle calls come from its single reader goroutine, and Disconnect runs
// in that same goroutine after the read loop exits, so a join and a
// disconnect for one connection can never run concurrently.
type Broker struct {
	log            *slog.Logger
	channels       map[domain.ChannelID]*domain.Channel
	registry       contract.IRegistry
	supervisor     contract.ISupervisor
	events         chan event.DomainEvent
	permanentSinks []contract.EventSink
	sinkTimeout    time.Duration
	sweepInterval  time.Duration
	now            func() time.Time // test seam
}

func NewBroker(log *slog.Logger, supervisor contract.ISupervisor, registry contract.IRegistry,
	bufferSize int, sinkTimeout, sweepInterval time.Duration) *Broker {
	channels := make(map[domain.ChannelID]*domain.Channel, len(domain.ChannelIDs()))
	for _, id := range domain.ChannelIDs() {
		channels[id] = domain.NewChannel(id)
	}
	return &Broker{
		log:           log,
		channels:      channels,
		registry:      registry,
		supervisor:    supervisor,
		events:        make(chan event.DomainEvent, bufferSize),
		sinkTimeout:   sinkTimeout,
		sweepInterval: sweepInterval,
		now:           time.Now,
	}
}

// WithClock replaces the broker's time source. Used by tests to control TTL
// arithmetic; production code never calls it.
func (b *Broker) WithClock(now func() time.Time) *Broker {
	b.now = now
	return b
}

// Add appends permanent sinks receiving every broadcast event regardless of
// membership, e.g. audit or metrics consumers. Must be called before Start.
func (b *Broker) Add(sinks ...contract.EventSink) {
	b.permanentSinks = append(b.permanentSinks, sinks...)
}

// Connect registers a new connection identity with no channel.
// A reconnect after Disconnect is a new identity, never a resumption.
func (b *Broker) Connect(connID string, sink contract.EventSink) {
	b.registry.Connect(connID, sink)
	b.log.Debug("Connection established", "conn_id", connID)
}

// Join moves the connection into the target channel, pushes the channel's
// history snapshot to the joiner, then broadcasts the updated online count
// to the whole channel (joiner included). When the connection came from a
// different channel, the vacated channel gets its decremented count too.
func (b *Broker) Join(connID string, channel domain.ChannelID) error {
	c, ok := b.channels[channel]
	if !ok {
		return errs.ErrUnknownChannel
	}

	res := b.registry.Join(connID, channel)
	if !res.OK {
		// Disconnect already won; final state stays "not joined".
		b.log.Debug("Join for unknown connection dropped", "conn_id", connID)
		return nil
	}

	b.publish(event.HistorySnapshot{
		Channel:  channel,
		Target:   connID,
		Messages: c.Store.Snapshot(b.now()),
	})
	b.publish(event.OnlineCount{Channel: channel, Count: res.Count})
	if res.Moved {
		b.publish(event.OnlineCount{Channel: res.From, Count: res.FromCount})
	}
	return nil
}

// Leave vacates the connection's current channel, if any, and broadcasts the
// decremented count there. Idempotent.
func (b *Broker) Leave(connID string) {
	channel, count, ok := b.registry.Leave(connID)
	if !ok {
		return
	}
	b.publish(event.OnlineCount{Channel: channel, Count: count})
}

// Send appends a message to the channel's store and broadcasts it to every
// member, sender included. The sender must currently be a member of the
// channel it sends to; the original backend did not enforce this, see the
// membership note in DESIGN.md.
func (b *Broker) Send(connID string, channel domain.ChannelID, senderID, displayName, content string) error {
	c, ok := b.channels[channel]
	if !ok {
		return errs.ErrUnknownChannel
	}
	if !b.registry.IsMember(connID, channel) {
		return errs.ErrNotAMember
	}

	msg := domain.Message{
		ID:          uuid.New(),
		Channel:     channel,
		SenderID:    senderID,
		DisplayName: displayName,
		Content:     content,
		CreatedAt:   b.now().UTC(),
	}
	c.Store.Append(msg)
	b.publish(event.MessagePosted{Message: msg})
	return nil
}

// Disconnect is terminal for the connection identity. The registry removes
// the session before computing the vacated channel's count, so the remaining
// members receive the true post-removal cardinality and the leaver receives
// nothing.
func (b *Broker) Disconnect(connID string) {
	channel, count, ok := b.registry.Disconnect(connID)
	b.log.Debug("Connection closed", "conn_id", connID)
	if !ok {
		return
	}
	b.publish(event.OnlineCount{Channel: channel, Count: count})
}

// Channels exposes the fixed channel set, e.g. for the catalog endpoint.
func (b *Broker) Channels() []*domain.Channel {
	out := make([]*domain.Channel, 0, len(b.channels))
	for _, id := range domain.ChannelIDs() {
		out = append(out, b.channels[id])
	}
	return out
}

// Pipeline exposes the internal event channel so capacity telemetry can
// sample its depth. Consumers must never receive from it.
func (b *Broker) Pipeline() chan event.DomainEvent {
	return b.events
}

// publish hands an event to the fanout pipeline without ever blocking the
// caller. A full pipeline drops the event and logs, matching the
// fire-and-forget delivery contract.
func (b *Broker) publish(evt event.DomainEvent) {
	select {
	case b.events <- evt:
	default:
		b.log.Warn(fmt.Sprintf("Event pipeline full for channel %s, dropping event", evt.ChannelID()))
	}
}

// Start registers the background workers with the supervisor and launches
// the supervision tree. It returns immediately; the tree lives until ctx is
// canceled or Stop is called.
func (b *Broker) Start(ctx context.Context) error {
	fanout := workers.NewFanoutWorker(b.log, b.registry, b.events, b.permanentSinks, b.sinkTimeout)
	sweep := workers.NewSweepWorker(b.log, b.Channels(), b.sweepInterval, b.now)

	b.supervisor.Add(fanout)
	b.supervisor.Add(sweep)

	b.log.Info("Starting broker and all supervised workers")
	go b.supervisor.Run(ctx)
	return nil
}

// Stop initiates a graceful shutdown of the supervision tree.
func (b *Broker) Stop() {
	b.log.Info("Requesting broker shutdown")
	b.supervisor.Stop()
}
