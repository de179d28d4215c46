package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/weaver-helpdesk/internal/events"
	"github.com/spec-kit/weaver-helpdesk/internal/lifecycle"
	"github.com/spec-kit/weaver-helpdesk/internal/notify"
	"github.com/spec-kit/weaver-helpdesk/internal/observability"
)

// NotificationDependencies wires the notification service.
type NotificationDependencies struct {
	Dispatcher     events.Dispatcher
	Sink           notify.Sink
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	SupportRoleID  string
	AutoCloseAfter time.Duration
	Clock          func() time.Time
}

// NotificationService turns ticket events into chat messages.
type NotificationService struct {
	dispatcher     events.Dispatcher
	sink           notify.Sink
	metrics        *observability.Metrics
	logger         *zap.Logger
	supportRoleID  string
	autoCloseAfter time.Duration
	clock          func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	autoClose := deps.AutoCloseAfter
	if autoClose <= 0 {
		autoClose = lifecycle.DefaultRules().AutoCloseAfter
	}
	return &NotificationService{
		dispatcher:     deps.Dispatcher,
		sink:           deps.Sink,
		metrics:        deps.Metrics,
		logger:         logger,
		supportRoleID:  deps.SupportRoleID,
		autoCloseAfter: autoClose,
		clock:          clock,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil || n.sink == nil {
		return
	}
	for _, et := range events.TransitionTypes {
		n.dispatcher.Subscribe(et, n.handleTransition)
	}
}

func (n *NotificationService) handleTransition(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.TransitionPayload)
	if !ok {
		return fmt.Errorf("notification: unexpected payload %T for %s", event.Payload, event.Type)
	}
	t := payload.Ticket
	now := n.clock().UTC()

	var errs []error
	threadGone := false
	for _, notice := range payload.Notices {
		msg, ok := n.renderNotice(t, notice, now)
		if !ok {
			continue
		}
		var err error
		switch notice.Audience {
		case lifecycle.AudienceThread:
			if threadGone {
				continue
			}
			err = n.sink.SendThread(ctx, t.ChannelID, msg)
			if errors.Is(err, notify.ErrChannelNotFound) {
				threadGone = true
			}
		case lifecycle.AudienceLog:
			err = n.sink.SendLog(ctx, msg)
		case lifecycle.AudienceRequester:
			err = n.deliverDirect(ctx, t.UserID, t.ChannelID, msg, notice, payload)
		}
		if err != nil {
			n.fail(event, notice.Kind, err)
			errs = append(errs, err)
		}
	}

	if payload.Archive && !threadGone {
		if err := n.sink.ArchiveThread(ctx, t.ChannelID); err != nil && !errors.Is(err, notify.ErrChannelNotFound) {
			n.fail(event, "archive", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// deliverDirect messages the requester and falls back to a mention in the
// thread when direct messages are closed.
func (n *NotificationService) deliverDirect(ctx context.Context, userID, channelID string, msg notify.Message, notice lifecycle.Notify, payload events.TransitionPayload) error {
	if err := n.sink.SendDirect(ctx, userID, msg); err != nil {
		n.logger.Info("direct message failed, posting in thread",
			zap.Int64("ticket_id", payload.Ticket.ID),
			zap.Error(err),
		)
		return n.sink.SendThread(ctx, channelID, feedbackFallback(payload.Ticket, notice.Reason))
	}
	return n.sink.SendThread(ctx, channelID, notify.Message{
		Content: fmt.Sprintf("📨 A feedback request has been sent to %s via DM.", mention(userID)),
	})
}

func (n *NotificationService) fail(event events.Event, kind lifecycle.NoticeKind, err error) {
	n.metrics.Inc(observability.CounterNotificationsFailed, string(kind))
	n.logger.Warn("notification delivery failed",
		zap.String("event_type", string(event.Type)),
		zap.Int64("ticket_id", event.TicketID),
		zap.String("notice", string(kind)),
		zap.Error(err),
	)
}
