// Package notify delivers outbound messages to ticket threads, the staff log
// channel and requesters.
package notify

import (
	"context"
	"errors"
	"time"
)

// ErrChannelNotFound means the target thread or channel no longer exists.
var ErrChannelNotFound = errors.New("notify: channel not found")

// Embed colours used across notices.
const (
	ColorInfo    = 0x5865F2
	ColorSuccess = 0x57F287
	ColorWarning = 0xFEE75C
	ColorDanger  = 0xED4245
	ColorNeutral = 0x99AAB5
)

// Field is a titled value inside an embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Timestamp   time.Time
}

// Message is a platform-neutral outbound message.
type Message struct {
	Content string
	Embeds  []Embed
}

// Sink delivers messages. Implementations must be safe for concurrent use.
type Sink interface {
	SendThread(ctx context.Context, channelID string, msg Message) error
	SendLog(ctx context.Context, msg Message) error
	SendDirect(ctx context.Context, userID string, msg Message) error
	ArchiveThread(ctx context.Context, channelID string) error
}
