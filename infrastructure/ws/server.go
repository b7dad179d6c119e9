// Package ws exposes the broker over websocket. Each connection gets an
// opaque identity, an outbound sink drained by a write loop, and a read loop
// that turns client frames into broker lifecycle calls, so every connection
// has a single goroutine issuing its events in order.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"gridchat/contract"
	"gridchat/domain"
	"gridchat/moderation"
)

const (
	writeTimeout   = 10 * time.Second
	pongTimeout    = 60 * time.Second
	pingPeriod     = 45 * time.Second
	maxFrameLength = 8192
)

// Moderation modes.
const (
	ModerationBlock  = "block"
	ModerationCensor = "censor"
	ModerationOff    = "off"
)

// ContentChecker is the collaborator consulted before a send reaches the
// broker. Flagged content never reaches the core.
type ContentChecker interface {
	Check(text string) moderation.Verdict
	Censor(text string) (string, []string)
}

type Options struct {
	ConnectionBufferSize int
	ModerationMode       string
}

type Server struct {
	log      *slog.Logger
	broker   contract.IBroker
	checker  ContentChecker
	validate *validator.Validate
	upgrader websocket.Upgrader
	opts     Options
}

func NewServer(log *slog.Logger, broker contract.IBroker, checker ContentChecker, opts Options) *Server {
	if checker == nil {
		// Fail open: chat keeps working without a moderator.
		opts.ModerationMode = ModerationOff
	}
	return &Server{
		log:      log,
		broker:   broker,
		checker:  checker,
		validate: validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Anonymous public chat: any origin may connect.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		opts: opts,
	}
}

// Handler returns the HTTP surface: the websocket endpoint and the fixed
// channel catalog.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/channels", s.handleChannels)
	return mux
}

func (s *Server) handleChannels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(toChannelEntries(domain.Channels())); err != nil {
		s.log.Error("Failed to encode channel catalog", "error", err)
	}
}

// handleWS owns one connection's whole lifetime. Disconnect is invoked
// exactly once, after the read loop returns, in the same goroutine that
// processed the connection's lifecycle frames.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	sink := NewSink(s.opts.ConnectionBufferSize)
	s.broker.Connect(connID, sink)
	s.log.Info("Client connected", "conn_id", connID, "remote", r.RemoteAddr)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go s.writeLoop(ctx, conn, connID, sink)

	s.readLoop(conn, connID)

	s.broker.Disconnect(connID)
	s.log.Info("Client disconnected", "conn_id", connID)
}

func (s *Server) readLoop(conn *websocket.Conn, connID string) {
	conn.SetReadLimit(maxFrameLength)
	_ = conn.SetReadDeadline(time.Now().Add(pongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Warn("Read failed", "conn_id", connID, "error", err)
			}
			return
		}
		s.dispatch(connID, data)
	}
}

// dispatch decodes one client frame and applies it. Malformed or invalid
// frames are dropped with a log line; nothing a client sends can take the
// broker down.
func (s *Server) dispatch(connID string, data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		s.log.Debug("Malformed frame dropped", "conn_id", connID, "error", err)
		return
	}

	switch frame.Type {
	case TypeJoinRoom:
		var p JoinPayload
		if !s.decode(connID, frame.Payload, &p) {
			return
		}
		if err := s.broker.Join(connID, domain.ChannelID(p.Channel)); err != nil {
			s.log.Debug("Join ignored", "conn_id", connID, "channel", p.Channel, "reason", err)
		}
	case TypeLeaveRoom:
		s.broker.Leave(connID)
	case TypeSendMessage:
		var p SendPayload
		if !s.decode(connID, frame.Payload, &p) {
			return
		}
		s.handleSend(connID, p)
	default:
		s.log.Debug("Unknown frame type dropped", "conn_id", connID, "type", frame.Type)
	}
}

func (s *Server) handleSend(connID string, p SendPayload) {
	text := p.Text
	switch s.opts.ModerationMode {
	case ModerationBlock:
		if verdict := s.checker.Check(text); verdict.Flagged {
			s.log.Info("Message blocked",
				"conn_id", connID,
				"channel", p.Channel,
				"lang", verdict.Lang,
				"reason", verdict.Reason)
			return
		}
	case ModerationCensor:
		sanitized, found := s.checker.Censor(text)
		if len(found) > 0 {
			s.log.Info("Message censored", "conn_id", connID, "channel", p.Channel, "hits", len(found))
		}
		text = sanitized
	}

	err := s.broker.Send(connID, domain.ChannelID(p.Channel), p.SenderID, p.DisplayName, text)
	if err != nil {
		s.log.Debug("Send ignored", "conn_id", connID, "channel", p.Channel, "reason", err)
	}
}

// decode unmarshals and validates one payload; false means drop the frame.
func (s *Server) decode(connID string, raw json.RawMessage, out any) bool {
	if err := json.Unmarshal(raw, out); err != nil {
		s.log.Debug("Malformed payload dropped", "conn_id", connID, "error", err)
		return false
	}
	if err := s.validate.Struct(out); err != nil {
		s.log.Debug("Invalid payload dropped", "conn_id", connID, "error", err)
		return false
	}
	return true
}

// writeLoop drains the connection's sink and pushes frames on the wire.
// A write failure ends the loop; the read loop observes the broken socket
// and performs the single Disconnect.
func (s *Server) writeLoop(ctx context.Context, conn *websocket.Conn, connID string, sink *Sink) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case evt := <-sink.Events():
			frame, ok := toServerFrame(evt)
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				s.log.Debug(fmt.Sprintf("Push to client %s failed", connID), "error", err)
				return
			}
		}
	}
}
