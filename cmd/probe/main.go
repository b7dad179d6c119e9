// Command probe is a small operator client for a running broker:
//
//	probe -list            render the fixed channel catalog
//	probe -channel tech    join a channel, tail its events, type to send
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/olekukonko/tablewriter"

	"gridchat/infrastructure/ws"
)

func main() {
	listFlag := flag.Bool("list", false, "print the channel catalog and exit")
	channelFlag := flag.String("channel", "tech", "channel to join")
	flag.Parse()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	if *listFlag {
		if err := listChannels(cfg); err != nil {
			log.Fatalf("Catalog unavailable: %v", err)
		}
		return
	}

	if err := tail(cfg, *channelFlag); err != nil {
		log.Fatalf("Session ended: %v", err)
	}
}

func listChannels(cfg Config) error {
	resp, err := http.Get(fmt.Sprintf("http://%s/channels", cfg.ServerAddr))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var entries []ws.ChannelEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Code", "Description"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	for _, e := range entries {
		table.Append([]string{e.ID, e.Name, e.Code, e.Description})
	}
	table.Render()
	return nil
}

// inboundFrame defers payload decoding until the type is known.
type inboundFrame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func tail(cfg Config, channel string) error {
	u := url.URL{Scheme: "ws", Host: cfg.ServerAddr, Path: "/ws"}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := send(conn, ws.TypeJoinRoom, ws.JoinPayload{Channel: channel}); err != nil {
		return err
	}

	senderID := uuid.NewString()
	go readStdin(conn, channel, senderID, cfg.DisplayName)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return err
		}
		printFrame(cfg, frame)
	}
}

// readStdin turns typed lines into send_message frames.
func readStdin(conn *websocket.Conn, channel, senderID, displayName string) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		if err := send(conn, ws.TypeSendMessage, ws.SendPayload{
			Channel:     channel,
			Text:        text,
			DisplayName: displayName,
			SenderID:    senderID,
		}); err != nil {
			return
		}
	}
}

func send(conn *websocket.Conn, frameType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return conn.WriteJSON(ws.Frame{Type: frameType, Payload: raw})
}

func printFrame(cfg Config, frame inboundFrame) {
	switch frame.Type {
	case ws.TypeChatHistory:
		var history []ws.WireMessage
		if err := json.Unmarshal(frame.Payload, &history); err != nil {
			return
		}
		printLine(cfg, color.Gray, fmt.Sprintf("--- history: %d retained messages ---", len(history)))
		for _, m := range history {
			printMessage(cfg, m)
		}
	case ws.TypeNewMessage:
		var m ws.WireMessage
		if err := json.Unmarshal(frame.Payload, &m); err != nil {
			return
		}
		printMessage(cfg, m)
	case ws.TypeOnlineCount:
		var count int
		if err := json.Unmarshal(frame.Payload, &count); err != nil {
			return
		}
		printLine(cfg, color.Yellow, fmt.Sprintf("* online: %d", count))
	}
}

func printMessage(cfg Config, m ws.WireMessage) {
	stamp := time.UnixMilli(m.Timestamp).Local().Format("15:04:05")
	if cfg.Colours {
		color.Gray.Printf("[%s] ", stamp)
		color.Green.Printf("%s", m.DisplayName)
		fmt.Printf(": %s\n", m.Text)
		return
	}
	fmt.Printf("[%s] %s: %s\n", stamp, m.DisplayName, m.Text)
}

func printLine(cfg Config, c color.Color, line string) {
	if cfg.Colours {
		c.Println(line)
		return
	}
	fmt.Println(line)
}
