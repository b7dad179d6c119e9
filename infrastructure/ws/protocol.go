package ws

import (
	"encoding/json"

	"github.com/samber/lo"

	"gridchat/domain"
	"gridchat/domain/event"
)

// Client frame types.
const (
	TypeJoinRoom    = "join_room"
	TypeLeaveRoom   = "leave_room"
	TypeSendMessage = "send_message"
)

// Server frame types.
const (
	TypeChatHistory = "chat_history"
	TypeNewMessage  = "new_message"
	TypeOnlineCount = "online_count"
)

// Frame is the envelope of every client message.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type JoinPayload struct {
	Channel string `json:"channel" validate:"required,max=32"`
}

type LeavePayload struct {
	Channel string `json:"channel"`
}

type SendPayload struct {
	Channel     string `json:"channel" validate:"required,max=32"`
	Text        string `json:"text" validate:"required,max=2000"`
	DisplayName string `json:"displayName" validate:"required,max=32"`
	SenderID    string `json:"senderId" validate:"required,max=64"`
}

// ServerFrame is the envelope of every broker-to-client event.
type ServerFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// WireMessage mirrors the original wire format: timestamps travel as unix
// milliseconds.
type WireMessage struct {
	ID          string `json:"id"`
	Channel     string `json:"channel"`
	SenderID    string `json:"senderId"`
	DisplayName string `json:"displayName"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
}

// ChannelEntry is one row of the GET /channels catalog.
type ChannelEntry struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

func toWireMessage(m domain.Message) WireMessage {
	return WireMessage{
		ID:          m.ID.String(),
		Channel:     string(m.Channel),
		SenderID:    m.SenderID,
		DisplayName: m.DisplayName,
		Text:        m.Content,
		Timestamp:   m.CreatedAt.UnixMilli(),
	}
}

func toChannelEntries(infos []domain.ChannelInfo) []ChannelEntry {
	return lo.Map(infos, func(item domain.ChannelInfo, _ int) ChannelEntry {
		return ChannelEntry{
			ID:          string(item.ID),
			Name:        item.Name,
			Code:        item.Code,
			Description: item.Description,
		}
	})
}

// toServerFrame converts a fanned-out domain event into its wire shape.
// The online_count payload is a bare integer, as in the original protocol:
// a client only ever receives counts for the channel it is currently in,
// except for history which is targeted anyway.
func toServerFrame(evt event.DomainEvent) (ServerFrame, bool) {
	switch e := evt.(type) {
	case event.HistorySnapshot:
		return ServerFrame{
			Type:    TypeChatHistory,
			Payload: lo.Map(e.Messages, func(m domain.Message, _ int) WireMessage { return toWireMessage(m) }),
		}, true
	case event.MessagePosted:
		return ServerFrame{Type: TypeNewMessage, Payload: toWireMessage(e.Message)}, true
	case event.OnlineCount:
		return ServerFrame{Type: TypeOnlineCount, Payload: e.Count}, true
	default:
		return ServerFrame{}, false
	}
}
