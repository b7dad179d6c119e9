package ws

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gridchat/domain"
	"gridchat/domain/event"
)

func TestSink_ConsumeAndDrain(t *testing.T) {
	req := require.New(t)
	sink := NewSink(2)

	// Given two buffered events
	req.NoError(sink.Consume(context.Background(), event.OnlineCount{Channel: domain.Tech, Count: 1}))
	req.NoError(sink.Consume(context.Background(), event.OnlineCount{Channel: domain.Tech, Count: 2}))

	// Then the write loop side receives them in order
	first := <-sink.Events()
	second := <-sink.Events()
	req.Equal(1, first.(event.OnlineCount).Count)
	req.Equal(2, second.(event.OnlineCount).Count)
}

func TestSink_FullBufferDropsWithoutBlocking(t *testing.T) {
	req := require.New(t)
	sink := NewSink(1)

	req.NoError(sink.Consume(context.Background(), event.OnlineCount{Channel: domain.Tech, Count: 1}))

	// When the buffer is full, Consume returns immediately without error
	req.NoError(sink.Consume(context.Background(), event.OnlineCount{Channel: domain.Tech, Count: 2}))

	// Then only the first event survived
	evt := <-sink.Events()
	req.Equal(1, evt.(event.OnlineCount).Count)
	select {
	case extra := <-sink.Events():
		req.Fail("unexpected event", "%v", extra)
	default:
	}
}

func TestSink_CanceledContext(t *testing.T) {
	req := require.New(t)
	sink := NewSink(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A canceled fanout context is still a non-blocking no-op on a free buffer
	err := sink.Consume(ctx, event.OnlineCount{Channel: domain.Tech, Count: 1})
	if err != nil {
		req.ErrorIs(err, context.Canceled)
	}
}
