//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"gridchat/domain"
	"gridchat/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives fanned-out events for one consumer. Implementations
// must never block: the fanout worker bounds each Consume with a timeout
// and a slow consumer only loses its own events.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// JoinResult reports the outcome of an atomic membership move.
type JoinResult struct {
	OK        bool             // false when the connection is unknown (already disconnected)
	Count     int              // online count of the joined channel after the move
	Moved     bool             // true when the connection came from another channel
	From      domain.ChannelID // previous channel, when Moved
	FromCount int              // online count of the previous channel after the move
}

// IRegistry is the membership tracker: each live connection maps to at most
// one channel at any time, and each channel to its current member set.
type IRegistry interface {
	Connect(connID string, sink EventSink)
	Join(connID string, channel domain.ChannelID) JoinResult
	Leave(connID string) (domain.ChannelID, int, bool)
	Disconnect(connID string) (domain.ChannelID, int, bool)
	IsMember(connID string, channel domain.ChannelID) bool
	CountOf(channel domain.ChannelID) int
	SinksFor(channel domain.ChannelID) []EventSink
	SinkFor(connID string) (EventSink, bool)
}

// IBroker is the connection lifecycle state machine.
type IBroker interface {
	Connect(connID string, sink EventSink)
	Join(connID string, channel domain.ChannelID) error
	Leave(connID string)
	Send(connID string, channel domain.ChannelID, senderID, displayName, content string) error
	Disconnect(connID string)
	Start(ctx context.Context) error
	Stop()
}
