package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/config"
	"github.com/spec-kit/support-desk/internal/events"
)

// NotificationService hands domain events off to external notification
// sinks. Delivery itself is out of scope: this service only builds and hands
// off the payload.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handleTicketCreated)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handleTicketStatusChanged)
	n.dispatcher.Subscribe(events.EventTicketAssigneesChanged, n.handleTicketAssigneesChanged)
}

func (n *NotificationService) handleTicketCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketCreated", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.handOffEmail(ctx, event)
	n.handOffWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketStatusChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.handOffWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handleTicketAssigneesChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketAssigneesChanged", zap.String("ticket_id", event.TicketID), zap.Any("payload", event.Payload))
	n.handOffEmail(ctx, event)
	n.handOffWebhook(ctx, event)
	return nil
}

func (n *NotificationService) handOffEmail(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("email notification hand-off",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) handOffWebhook(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("webhook notification hand-off",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("ticket_id", event.TicketID),
		zap.String("event_type", string(event.Type)))
}
