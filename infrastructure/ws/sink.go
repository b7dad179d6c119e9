package ws

import (
	"context"

	"gridchat/domain/event"
)

// Sink is the outbound queue of one websocket connection.
// Fan-out pushes events here; the connection's write loop drains it.
type Sink struct {
	events chan event.DomainEvent
}

func NewSink(bufferSize int) *Sink {
	return &Sink{events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by fanout. It never blocks: when the buffer is full the
// event is dropped and only this connection misses it. The write loop owns
// the receiving side.
func (s *Sink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		// Full buffer means a slow consumer; dropping here keeps the
		// sender and the other subscribers unaffected.
		return nil
	}
}

func (s *Sink) Events() <-chan event.DomainEvent {
	return s.events
}
