// Package domain contains core concepts of the chat system.
// This file defines the fixed channel catalog and its lookup rules.
// No runtime, network, or UI logic should be added here.
package domain

type ChannelID string

const (
	Tech          ChannelID = "tech"
	Politics      ChannelID = "politics"
	Entertainment ChannelID = "entertainment"
	Education     ChannelID = "education"
	Life          ChannelID = "life"
	Random        ChannelID = "random"
)

// ChannelInfo describes one entry of the fixed channel catalog.
// The catalog is process-wide static configuration, never extended at runtime.
type ChannelInfo struct {
	ID          ChannelID
	Name        string
	Code        string
	Description string
}

var catalog = []ChannelInfo{
	{ID: Tech, Name: "Technology", Code: "NODE_01", Description: "AI, Cybersec, Crypto"},
	{ID: Politics, Name: "Politics", Code: "NODE_02", Description: "Global Affairs, Policies"},
	{ID: Entertainment, Name: "Entertainment", Code: "NODE_03", Description: "Media, Arts, Games"},
	{ID: Education, Name: "Education", Code: "NODE_04", Description: "Knowledge Base, Research"},
	{ID: Life, Name: "Life / Advice", Code: "NODE_05", Description: "Human Protocols, Support"},
	{ID: Random, Name: "Random Uplink", Code: "NODE_06", Description: "Unstructured Data Stream"},
}

var validChannels = func() map[ChannelID]struct{} {
	m := make(map[ChannelID]struct{}, len(catalog))
	for _, c := range catalog {
		m[c.ID] = struct{}{}
	}
	return m
}()

// Channels returns the full fixed catalog, in stable order.
func Channels() []ChannelInfo {
	out := make([]ChannelInfo, len(catalog))
	copy(out, catalog)
	return out
}

// ChannelIDs returns the ids of the fixed catalog, in stable order.
func ChannelIDs() []ChannelID {
	ids := make([]ChannelID, 0, len(catalog))
	for _, c := range catalog {
		ids = append(ids, c.ID)
	}
	return ids
}

// IsValidChannel reports whether id belongs to the fixed catalog.
// Pure lookup, no side effects.
func IsValidChannel(id ChannelID) bool {
	_, ok := validChannels[id]
	return ok
}

// Channel owns the retained message buffer of one catalog entry.
type Channel struct {
	ID    ChannelID
	Store *MessageStore
}

func NewChannel(id ChannelID) *Channel {
	return &Channel{ID: id, Store: NewMessageStore()}
}
