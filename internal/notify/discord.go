package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// DiscordSink posts messages through the bot REST API. No gateway
// connection is opened.
type DiscordSink struct {
	session      *discordgo.Session
	logChannelID string
	logger       *zap.Logger
}

// NewDiscordSink creates a REST-only session for the bot token.
func NewDiscordSink(token, logChannelID string, logger *zap.Logger) (*DiscordSink, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session: %w", err)
	}
	session.Client = &http.Client{Timeout: 15 * time.Second}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscordSink{session: session, logChannelID: logChannelID, logger: logger.Named("discord")}, nil
}

func (s *DiscordSink) SendThread(ctx context.Context, channelID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.session.ChannelMessageSendComplex(channelID, toMessageSend(msg))
	return mapDiscordError(err)
}

// SendLog is a no-op when no log channel is configured.
func (s *DiscordSink) SendLog(ctx context.Context, msg Message) error {
	if s.logChannelID == "" {
		s.logger.Debug("log channel not configured; dropping message")
		return nil
	}
	return s.SendThread(ctx, s.logChannelID, msg)
}

func (s *DiscordSink) SendDirect(ctx context.Context, userID string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ch, err := s.session.UserChannelCreate(userID)
	if err != nil {
		return mapDiscordError(err)
	}
	return s.SendThread(ctx, ch.ID, msg)
}

func (s *DiscordSink) ArchiveThread(ctx context.Context, channelID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	yes := true
	_, err := s.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{Archived: &yes, Locked: &yes})
	return mapDiscordError(err)
}

func toMessageSend(msg Message) *discordgo.MessageSend {
	out := &discordgo.MessageSend{Content: msg.Content}
	for _, e := range msg.Embeds {
		out.Embeds = append(out.Embeds, toEmbed(e))
	}
	return out
}

func toEmbed(e Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	if !e.Timestamp.IsZero() {
		embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}

func mapDiscordError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", ErrChannelNotFound, err)
		}
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("%w: %v", ErrChannelNotFound, err)
		}
	}
	return err
}
