package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"gridchat/moderation"
	"gridchat/runtime"
	"gridchat/runtime/workers"
)

type wireFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// startServer wires the full stack: registry, broker, fanout worker, and the
// websocket handler with a real moderator in censor mode.
func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewRegistry()
	broker := runtime.NewBroker(log, nil, registry, 256, time.Second, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	fanout := workers.NewFanoutWorker(log, registry, broker.Pipeline(), nil, time.Second)
	go func() { _ = fanout.Run(ctx) }()

	data, err := moderation.LoadDefault()
	require.NoError(t, err)
	mod, err := moderation.NewModerator(data.Words, '*', log)
	require.NoError(t, err)

	srv := NewServer(log, broker, &mod, Options{
		ConnectionBufferSize: 64,
		ModerationMode:       ModerationCensor,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) wireFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame wireFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func writeFrame(t *testing.T, conn *websocket.Conn, frameType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteJSON(Frame{Type: frameType, Payload: raw}))
}

func TestServer_JoinSendAndReceive(t *testing.T) {
	req := require.New(t)
	ts := startServer(t)

	// Given a client joining tech
	connA := dial(t, ts)
	writeFrame(t, connA, TypeJoinRoom, JoinPayload{Channel: "tech"})

	// Then it receives the empty history first, then its own count
	frame := readFrame(t, connA)
	req.Equal(TypeChatHistory, frame.Type)
	var history []WireMessage
	req.NoError(json.Unmarshal(frame.Payload, &history))
	req.Empty(history)

	frame = readFrame(t, connA)
	req.Equal(TypeOnlineCount, frame.Type)
	req.Equal("1", string(frame.Payload))

	// When a second client joins the same channel
	connB := dial(t, ts)
	writeFrame(t, connB, TypeJoinRoom, JoinPayload{Channel: "tech"})

	frame = readFrame(t, connB) // chat_history
	req.Equal(TypeChatHistory, frame.Type)
	frame = readFrame(t, connB)
	req.Equal("2", string(frame.Payload))
	frame = readFrame(t, connA)
	req.Equal("2", string(frame.Payload))

	// When A sends a message
	writeFrame(t, connA, TypeSendMessage, SendPayload{
		Channel: "tech", Text: "hello all", DisplayName: "Anon1", SenderID: "sender-a",
	})

	// Then both members receive it
	for _, conn := range []*websocket.Conn{connA, connB} {
		frame = readFrame(t, conn)
		req.Equal(TypeNewMessage, frame.Type)
		var msg WireMessage
		req.NoError(json.Unmarshal(frame.Payload, &msg))
		req.Equal("hello all", msg.Text)
		req.Equal("Anon1", msg.DisplayName)
		req.NotEmpty(msg.ID)
		req.NotZero(msg.Timestamp)
	}

	// And a late joiner receives that message in its history snapshot
	connC := dial(t, ts)
	writeFrame(t, connC, TypeJoinRoom, JoinPayload{Channel: "tech"})
	frame = readFrame(t, connC)
	req.Equal(TypeChatHistory, frame.Type)
	req.NoError(json.Unmarshal(frame.Payload, &history))
	req.Len(history, 1)
	req.Equal("hello all", history[0].Text)
}

func TestServer_CensorsForbiddenTerms(t *testing.T) {
	req := require.New(t)
	ts := startServer(t)

	conn := dial(t, ts)
	writeFrame(t, conn, TypeJoinRoom, JoinPayload{Channel: "random"})
	readFrame(t, conn) // chat_history
	readFrame(t, conn) // online_count

	// When the message contains a blacklisted term
	writeFrame(t, conn, TypeSendMessage, SendPayload{
		Channel: "random", Text: "visit scamlink now", DisplayName: "Anon1", SenderID: "s",
	})

	// Then the broadcast carries the censored text
	frame := readFrame(t, conn)
	req.Equal(TypeNewMessage, frame.Type)
	var msg WireMessage
	req.NoError(json.Unmarshal(frame.Payload, &msg))
	req.Equal("visit ******** now", msg.Text)
}

func TestServer_DisconnectBroadcastsCount(t *testing.T) {
	req := require.New(t)
	ts := startServer(t)

	connA := dial(t, ts)
	writeFrame(t, connA, TypeJoinRoom, JoinPayload{Channel: "life"})
	readFrame(t, connA) // chat_history
	readFrame(t, connA) // online_count 1

	connB := dial(t, ts)
	writeFrame(t, connB, TypeJoinRoom, JoinPayload{Channel: "life"})
	readFrame(t, connB) // chat_history
	readFrame(t, connB) // online_count 2
	readFrame(t, connA) // online_count 2

	// When B's socket closes
	req.NoError(connB.Close())

	// Then A observes the decremented count
	frame := readFrame(t, connA)
	req.Equal(TypeOnlineCount, frame.Type)
	req.Equal("1", string(frame.Payload))
}

func TestServer_InvalidFramesAreDropped(t *testing.T) {
	req := require.New(t)
	ts := startServer(t)

	conn := dial(t, ts)
	writeFrame(t, conn, TypeJoinRoom, JoinPayload{Channel: "education"})
	readFrame(t, conn) // chat_history
	readFrame(t, conn) // online_count

	// Given garbage, an unknown type, an unknown channel, and an empty text
	req.NoError(conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	writeFrame(t, conn, "upload_file", map[string]string{"name": "x"})
	writeFrame(t, conn, TypeSendMessage, SendPayload{
		Channel: "nowhere", Text: "hi", DisplayName: "Anon1", SenderID: "s",
	})
	writeFrame(t, conn, TypeSendMessage, SendPayload{
		Channel: "education", Text: "", DisplayName: "Anon1", SenderID: "s",
	})

	// Then the connection survives and a valid send still goes through
	writeFrame(t, conn, TypeSendMessage, SendPayload{
		Channel: "education", Text: "still alive", DisplayName: "Anon1", SenderID: "s",
	})
	frame := readFrame(t, conn)
	req.Equal(TypeNewMessage, frame.Type)
	var msg WireMessage
	req.NoError(json.Unmarshal(frame.Payload, &msg))
	req.Equal("still alive", msg.Text)
}

func TestServer_ChannelCatalogEndpoint(t *testing.T) {
	req := require.New(t)
	ts := startServer(t)

	resp, err := http.Get(ts.URL + "/channels")
	req.NoError(err)
	defer resp.Body.Close()

	req.Equal(http.StatusOK, resp.StatusCode)
	req.Equal("application/json", resp.Header.Get("Content-Type"))

	var entries []ChannelEntry
	req.NoError(json.NewDecoder(resp.Body).Decode(&entries))
	req.Len(entries, 6)
	req.Equal("tech", entries[0].ID)
}
