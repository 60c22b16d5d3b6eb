// Package alerts notifies a human operator when a conversation leaves the
// automated flow.
package alerts

import (
	"context"
	"fmt"

	"salesagent_backend/internal/events"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/logger"
	"salesagent_backend/platform/phone"
)

// MessageSender delivers the alert over the same gateway used for customer
// traffic.
type MessageSender interface {
	SendMessage(ctx context.Context, channelAddress, message string) (string, error)
}

// Module listens for escalation events and pings the configured operator.
type Module struct {
	sender        MessageSender
	operatorPhone string
	channelSuffix string
	log           *logger.Logger
}

func New(sender MessageSender, cfg interface {
	config.AlertConfig
	config.WhatsAppConfig
}, log *logger.Logger) *Module {
	return &Module{
		sender:        sender,
		operatorPhone: cfg.GetOperatorAlertPhone(),
		channelSuffix: cfg.GetChannelSuffix(),
		log:           log,
	}
}

// RegisterHandlers subscribes the module to the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ConversationEscalated{}.EventName(), events.HandlerFunc(m.handleEscalated))
}

func (m *Module) handleEscalated(ctx context.Context, event events.Event) error {
	escalated, ok := event.(events.ConversationEscalated)
	if !ok {
		return nil
	}

	log := m.log.WithConversationID(escalated.ConversationID.String())

	if m.sender == nil || m.operatorPhone == "" {
		log.Warn("escalation alert skipped, operator channel not configured", "reason", escalated.Reason)
		return nil
	}

	message := fmt.Sprintf(
		"⚠️ Escalade : la conversation avec %s (%s) nécessite une intervention humaine.\nRaison : %s\nScore : %d/100",
		escalated.CustomerName, escalated.CustomerPhone, escalated.Reason, escalated.Score,
	)

	address := phone.ChannelAddress(m.operatorPhone, m.channelSuffix)
	if _, err := m.sender.SendMessage(ctx, address, message); err != nil {
		log.GatewayError(address, err)
		return err
	}

	log.Info("operator alerted about escalation", "reason", escalated.Reason)
	return nil
}
