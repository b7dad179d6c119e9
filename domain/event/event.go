package event

import (
	"gridchat/domain"
)

// DomainEvent is anything the broker fans out to channel members.
type DomainEvent interface {
	ChannelID() domain.ChannelID
}

// Targeted marks events delivered to a single connection instead of the
// whole channel, e.g. the history snapshot pushed right after a join.
type Targeted interface {
	TargetID() string
}

// MessagePosted is broadcast to every member of the channel, sender included.
type MessagePosted struct {
	Message domain.Message
}

func (e MessagePosted) ChannelID() domain.ChannelID {
	return e.Message.Channel
}

// OnlineCount is broadcast to every member of a channel whenever its
// membership changes. Count is the true cardinality of the membership set
// at the moment of the change.
type OnlineCount struct {
	Channel domain.ChannelID
	Count   int
}

func (e OnlineCount) ChannelID() domain.ChannelID {
	return e.Channel
}

// HistorySnapshot carries the retained messages of a channel, pushed once
// to the joining connection immediately after a successful join.
type HistorySnapshot struct {
	Channel  domain.ChannelID
	Target   string
	Messages []domain.Message
}

func (e HistorySnapshot) ChannelID() domain.ChannelID {
	return e.Channel
}

func (e HistorySnapshot) TargetID() string {
	return e.Target
}
