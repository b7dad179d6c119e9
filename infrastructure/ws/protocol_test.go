package ws

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gridchat/domain"
	"gridchat/domain/event"
)

func TestSendPayload_Validation(t *testing.T) {
	req := require.New(t)
	validate := validator.New()

	tests := []struct {
		name    string
		payload SendPayload
		valid   bool
	}{
		{
			name:    "Valid payload",
			payload: SendPayload{Channel: "tech", Text: "hello", DisplayName: "Anon1", SenderID: "abc"},
			valid:   true,
		},
		{
			name:    "Empty text",
			payload: SendPayload{Channel: "tech", Text: "", DisplayName: "Anon1", SenderID: "abc"},
			valid:   false,
		},
		{
			name:    "Text over limit",
			payload: SendPayload{Channel: "tech", Text: strings.Repeat("x", 2001), DisplayName: "Anon1", SenderID: "abc"},
			valid:   false,
		},
		{
			name:    "Missing channel",
			payload: SendPayload{Text: "hello", DisplayName: "Anon1", SenderID: "abc"},
			valid:   false,
		},
		{
			name:    "Display name over limit",
			payload: SendPayload{Channel: "tech", Text: "hello", DisplayName: strings.Repeat("n", 33), SenderID: "abc"},
			valid:   false,
		},
		{
			name:    "Missing sender id",
			payload: SendPayload{Channel: "tech", Text: "hello", DisplayName: "Anon1"},
			valid:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.payload)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}

	req.Error(validate.Struct(JoinPayload{}))
	req.NoError(validate.Struct(JoinPayload{Channel: "tech"}))
}

func TestToServerFrame_WireShapes(t *testing.T) {
	req := require.New(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := domain.Message{
		ID:          uuid.New(),
		Channel:     domain.Tech,
		SenderID:    "abc",
		DisplayName: "Anon1",
		Content:     "hello",
		CreatedAt:   created,
	}

	// A posted message travels as new_message with a millisecond timestamp
	frame, ok := toServerFrame(event.MessagePosted{Message: msg})
	req.True(ok)
	req.Equal(TypeNewMessage, frame.Type)
	wire := frame.Payload.(WireMessage)
	req.Equal(msg.ID.String(), wire.ID)
	req.Equal("tech", wire.Channel)
	req.Equal(created.UnixMilli(), wire.Timestamp)

	// A history snapshot travels as chat_history carrying the message list
	frame, ok = toServerFrame(event.HistorySnapshot{Channel: domain.Tech, Target: "abc", Messages: []domain.Message{msg}})
	req.True(ok)
	req.Equal(TypeChatHistory, frame.Type)
	req.Len(frame.Payload.([]WireMessage), 1)

	// An online count travels as a bare integer payload
	frame, ok = toServerFrame(event.OnlineCount{Channel: domain.Tech, Count: 3})
	req.True(ok)
	req.Equal(TypeOnlineCount, frame.Type)
	raw, err := json.Marshal(frame)
	req.NoError(err)
	req.JSONEq(`{"type":"online_count","payload":3}`, string(raw))
}

func TestToChannelEntries_MirrorsCatalog(t *testing.T) {
	req := require.New(t)

	entries := toChannelEntries(domain.Channels())

	req.Len(entries, 6)
	req.Equal("tech", entries[0].ID)
	req.Equal("NODE_01", entries[0].Code)
	for _, e := range entries {
		req.NotEmpty(e.Name)
		req.NotEmpty(e.Description)
	}
}
