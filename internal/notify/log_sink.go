package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes every message to the logger. It is used when no bot token
// is configured so the service still runs end to end.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink that only logs.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.Named("notify")}
}

func (s *LogSink) SendThread(_ context.Context, channelID string, msg Message) error {
	s.logger.Info("thread message", zap.String("channel_id", channelID), messageFields(msg))
	return nil
}

func (s *LogSink) SendLog(_ context.Context, msg Message) error {
	s.logger.Info("log channel message", messageFields(msg))
	return nil
}

func (s *LogSink) SendDirect(_ context.Context, userID string, msg Message) error {
	s.logger.Info("direct message", zap.String("user_id", userID), messageFields(msg))
	return nil
}

func (s *LogSink) ArchiveThread(_ context.Context, channelID string) error {
	s.logger.Info("thread archived", zap.String("channel_id", channelID))
	return nil
}

func messageFields(msg Message) zap.Field {
	titles := make([]string, 0, len(msg.Embeds))
	for _, e := range msg.Embeds {
		titles = append(titles, e.Title)
	}
	return zap.Dict("message",
		zap.String("content", msg.Content),
		zap.Strings("embeds", titles),
	)
}
