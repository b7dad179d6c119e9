package runtime

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gridchat/domain"
	"gridchat/domain/event"
)

type stubSink struct{}

func (s stubSink) Consume(_ context.Context, _ event.DomainEvent) error {
	return nil
}

func TestRegistry_Join_One_Channel_One_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	sink := stubSink{}

	// Given a connected session with no channel
	registry.Connect(connID, sink)
	req.Equal(0, registry.CountOf(domain.Tech))

	// When the connection joins a channel
	res := registry.Join(connID, domain.Tech)

	// Then the move succeeded and the count reflects the true cardinality
	req.True(res.OK)
	req.False(res.Moved)
	req.Equal(1, res.Count)
	req.Equal(1, registry.CountOf(domain.Tech))
	req.True(registry.IsMember(connID, domain.Tech))

	req.Len(registry.SinksFor(domain.Tech), 1)
	req.Contains(registry.SinksFor(domain.Tech), sink)
}

func TestRegistry_Join_One_Channel_Multiple_Connections(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID1 := uuid.NewString()
	connID2 := uuid.NewString()

	// When two connections join the same channel
	registry.Connect(connID1, stubSink{})
	registry.Connect(connID2, stubSink{})
	req.Equal(1, registry.Join(connID1, domain.Tech).Count)
	req.Equal(2, registry.Join(connID2, domain.Tech).Count)

	// Then both are members
	req.Equal(2, registry.CountOf(domain.Tech))
	req.Len(registry.SinksFor(domain.Tech), 2)
}

func TestRegistry_Join_MovesConnectionAtomically(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()
	other := uuid.NewString()

	// Given a connection in tech, alongside another member
	registry.Connect(connID, stubSink{})
	registry.Connect(other, stubSink{})
	registry.Join(connID, domain.Tech)
	registry.Join(other, domain.Tech)

	// When it joins politics
	res := registry.Join(connID, domain.Politics)

	// Then it moved: tech decremented, politics incremented
	req.True(res.OK)
	req.True(res.Moved)
	req.Equal(domain.Tech, res.From)
	req.Equal(1, res.FromCount)
	req.Equal(1, res.Count)

	// And membership in at most one channel holds
	req.False(registry.IsMember(connID, domain.Tech))
	req.True(registry.IsMember(connID, domain.Politics))
}

func TestRegistry_Join_SameChannelAgainIsNotAMove(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	registry.Connect(connID, stubSink{})
	registry.Join(connID, domain.Tech)

	// When re-joining the channel it already occupies
	res := registry.Join(connID, domain.Tech)

	// Then nothing moved and the count is unchanged
	req.True(res.OK)
	req.False(res.Moved)
	req.Equal(1, res.Count)
	req.Equal(1, registry.CountOf(domain.Tech))
}

func TestRegistry_Join_UnknownConnectionIsDropped(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	// When a join arrives for a connection that already disconnected
	res := registry.Join(uuid.NewString(), domain.Tech)

	// Then the final state stays "not joined"
	req.False(res.OK)
	req.Equal(0, registry.CountOf(domain.Tech))
}

func TestRegistry_Leave_IsIdempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	registry.Connect(connID, stubSink{})
	registry.Join(connID, domain.Tech)

	// When leaving once
	channel, count, ok := registry.Leave(connID)
	req.True(ok)
	req.Equal(domain.Tech, channel)
	req.Equal(0, count)

	// Then leaving again is a no-op both times, no error, no count change
	_, _, ok = registry.Leave(connID)
	req.False(ok)
	_, _, ok = registry.Leave(connID)
	req.False(ok)
	req.Equal(0, registry.CountOf(domain.Tech))

	// And the session itself is still connected
	_, exists := registry.SinkFor(connID)
	req.True(exists)
}

func TestRegistry_Disconnect_RemovesSessionBeforeCounting(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	leaver := uuid.NewString()
	stayer := uuid.NewString()

	// Given two members of tech
	registry.Connect(leaver, stubSink{})
	registry.Connect(stayer, stubSink{})
	registry.Join(leaver, domain.Tech)
	registry.Join(stayer, domain.Tech)

	// When one disconnects
	channel, count, ok := registry.Disconnect(leaver)

	// Then the reported count is the true post-removal cardinality
	req.True(ok)
	req.Equal(domain.Tech, channel)
	req.Equal(1, count)

	// And the leaver's sink is gone, so it cannot receive the broadcast
	_, exists := registry.SinkFor(leaver)
	req.False(exists)
	req.Len(registry.SinksFor(domain.Tech), 1)

	// And a later leave for the stale connection id is a no-op
	_, _, ok = registry.Leave(leaver)
	req.False(ok)
}

func TestRegistry_Disconnect_ExactlyOncePerConnection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	registry.Connect(connID, stubSink{})
	registry.Join(connID, domain.Tech)

	_, _, ok := registry.Disconnect(connID)
	req.True(ok)

	// A second disconnect for the same identity changes nothing
	_, _, ok = registry.Disconnect(connID)
	req.False(ok)
}

func TestRegistry_Disconnect_WithoutChannel(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	connID := uuid.NewString()

	// Given a session that never joined anything
	registry.Connect(connID, stubSink{})

	// When it disconnects, there is no channel to vacate
	_, _, ok := registry.Disconnect(connID)
	req.False(ok)
	_, exists := registry.SinkFor(connID)
	req.False(exists)
}
