package domain

import (
	"sync"
	"time"
)

// MessageTTL is the retention window. A message is eligible for eviction
// once now - CreatedAt >= MessageTTL.
const MessageTTL = 24 * time.Hour

// MessageStore is the per-channel ordered buffer of retained messages.
// Insertion order is arrival order and is never changed afterwards, even
// when timestamps collide at millisecond resolution.
//
// Each channel owns its own store with its own lock, so traffic on one
// channel never blocks another.
type MessageStore struct {
	mu       sync.Mutex
	messages []Message
}

func NewMessageStore() *MessageStore {
	return &MessageStore{}
}

// Append adds a message at the end of the buffer. No dedup, no content
// validation: both are collaborator concerns handled before this call.
func (s *MessageStore) Append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

// Snapshot returns the non-expired messages in arrival order without
// mutating the store. Expired entries still present between two sweeps
// are filtered out here, so reads always reflect the truth.
func (s *MessageStore) Snapshot(now time.Time) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, msg := range s.messages {
		if now.Sub(msg.CreatedAt) < MessageTTL {
			out = append(out, msg)
		}
	}
	return out
}

// Evict removes every expired message and returns how many were dropped.
// The survivors are copied into a fresh slice so the backing array of a
// channel with heavy historical traffic is actually reclaimed.
func (s *MessageStore) Evict(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make([]Message, 0, len(s.messages))
	for _, msg := range s.messages {
		if now.Sub(msg.CreatedAt) < MessageTTL {
			kept = append(kept, msg)
		}
	}
	evicted := len(s.messages) - len(kept)
	s.messages = kept
	return evicted
}

// Len reports the current buffer size, expired entries included.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}
