package runtime

import (
	"sync"

	"gridchat/contract"
	"gridchat/domain"
)

type Set map[string]struct{}

// Registry is the source of truth for membership and online counts.
// Invariant: a connection appears in at most one channel's member set at any
// time; joining a new channel atomically removes it from the previous one.
//
// All bookkeeping is O(1) map work under a single RWMutex, kept deliberately
// short; message buffers have their own per-channel locks and never pass
// through here.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink // connection -> outbound sink
	current  map[string]domain.ChannelID   // connection -> its single channel
	members  map[domain.ChannelID]Set      // channel -> member connections
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.EventSink),
		current:  make(map[string]domain.ChannelID),
		members:  make(map[domain.ChannelID]Set),
	}
}

// Connect registers a live connection with no channel yet.
func (r *Registry) Connect(connID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[connID] = sink
}

// Join moves the connection into the target channel. The removal from the
// previous channel and the insertion into the new one happen under one lock,
// so no interleaving can ever observe the connection in two sets.
//
// Returns OK=false when the connection is unknown, which happens when a
// disconnect won the race against this join: the final state stays
// "not joined" and the caller drops the request.
func (r *Registry) Join(connID string, channel domain.ChannelID) contract.JoinResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; !ok {
		return contract.JoinResult{}
	}

	var res contract.JoinResult
	res.OK = true

	if prev, ok := r.current[connID]; ok && prev != channel {
		res.Moved = true
		res.From = prev
		res.FromCount = r.removeMember(connID, prev)
	}

	if _, ok := r.members[channel]; !ok {
		r.members[channel] = make(Set)
	}
	r.members[channel][connID] = struct{}{}
	r.current[connID] = channel
	res.Count = len(r.members[channel])
	return res
}

// Leave removes the connection from whatever channel it occupies.
// No-op when it has none: calling it twice in a row changes nothing.
func (r *Registry) Leave(connID string) (domain.ChannelID, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	channel, ok := r.current[connID]
	if !ok {
		return "", 0, false
	}
	delete(r.current, connID)
	count := r.removeMember(connID, channel)
	return channel, count, true
}

// Disconnect tears the session down. The sink is removed before the vacated
// channel's count is computed, so the disconnecting connection can never
// receive the resulting broadcast and the reported count is already the true
// post-removal cardinality. Idempotent: a second call for the same id is a
// no-op.
func (r *Registry) Disconnect(connID string) (domain.ChannelID, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[connID]; !ok {
		return "", 0, false
	}
	delete(r.sessions, connID)

	channel, ok := r.current[connID]
	if !ok {
		return "", 0, false
	}
	delete(r.current, connID)
	count := r.removeMember(connID, channel)
	return channel, count, true
}

func (r *Registry) IsMember(connID string, channel domain.ChannelID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current[connID] == channel
}

func (r *Registry) CountOf(channel domain.ChannelID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[channel])
}

// SinksFor resolves the live sinks of every member of a channel.
// Returns nil when the channel has no members.
func (r *Registry) SinksFor(channel domain.ChannelID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.members[channel]
	if !ok {
		return nil
	}
	sinks := make([]contract.EventSink, 0, len(set))
	for connID := range set {
		if sink, exists := r.sessions[connID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

func (r *Registry) SinkFor(connID string) (contract.EventSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[connID]
	return sink, ok
}

// removeMember drops connID from a channel set and returns the remaining
// count. Empty sets are deleted so dead channels don't accumulate.
// Caller must hold the write lock.
func (r *Registry) removeMember(connID string, channel domain.ChannelID) int {
	set, ok := r.members[channel]
	if !ok {
		return 0
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.members, channel)
		return 0
	}
	return len(set)
}
