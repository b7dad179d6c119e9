// Package domain contains core concepts of the chat system.
// This file defines Message events and related rules.
// Messages are immutable and validated before they reach the domain.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
// SenderID and DisplayName are client-asserted and never verified.
type Message struct {
	ID          uuid.UUID // unique identifier
	Channel     ChannelID
	SenderID    string
	DisplayName string
	Content     string
	CreatedAt   time.Time
}
