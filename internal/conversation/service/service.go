// Package service runs the decision engine: it admits inbound messages,
// applies the scoring and state rules, and hands the outcome to the response
// orchestrator.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/internal/events"
	"salesagent_backend/platform/apperr"
	"salesagent_backend/platform/logger"
	"salesagent_backend/platform/phone"
)

// Store is the persistence surface the engine needs.
type Store interface {
	Create(ctx context.Context, params repository.CreateConversationParams) (domain.Conversation, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error)
	GetActiveByChannelAddress(ctx context.Context, channelAddress string) (domain.Conversation, error)
	UpdateDecision(ctx context.Context, c domain.Conversation) error
	List(ctx context.Context, params repository.ListConversationsParams) ([]domain.Conversation, error)
	CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error)
	UpdateMessageDelivery(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus, externalID *string) error
	IncrementRelance(ctx context.Context, id uuid.UUID, expectedCount int, now time.Time) (bool, error)
	Stats(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) (repository.WorkspaceStats, error)
}

// Engine coordinates everything that mutates a conversation. All mutations of
// one conversation are serialized through a per-conversation lock.
type Engine struct {
	store         Store
	orchestrator  *Orchestrator
	bus           events.Bus
	log           *logger.Logger
	channelSuffix string
	locks         keyedMutex
	now           func() time.Time
}

func NewEngine(store Store, orchestrator *Orchestrator, bus events.Bus, log *logger.Logger, channelSuffix string) *Engine {
	return &Engine{
		store:         store,
		orchestrator:  orchestrator,
		bus:           bus,
		log:           log,
		channelSuffix: channelSuffix,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

type CreateConversationInput struct {
	WorkspaceID    uuid.UUID
	OrderReference *string
	CustomerName   string
	CustomerPhone  string
	ProductName    string
	ProductPrice   float64
}

// CreateConversation registers an order for automated delivery confirmation.
func (e *Engine) CreateConversation(ctx context.Context, in CreateConversationInput) (domain.Conversation, error) {
	if !phone.Valid(in.CustomerPhone) {
		return domain.Conversation{}, apperr.Validation("invalid customer phone number").WithOp("Engine.CreateConversation")
	}
	normalized := phone.NormalizeE164(in.CustomerPhone)

	conv, err := e.store.Create(ctx, repository.CreateConversationParams{
		WorkspaceID:    in.WorkspaceID,
		OrderReference: in.OrderReference,
		CustomerName:   in.CustomerName,
		CustomerPhone:  normalized,
		ChannelAddress: phone.ChannelAddress(normalized, e.channelSuffix),
		ProductName:    in.ProductName,
		ProductPrice:   in.ProductPrice,
	})
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}

	e.bus.Publish(ctx, events.ConversationCreated{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		WorkspaceID:    conv.WorkspaceID,
		CustomerPhone:  conv.CustomerPhone,
	})

	return conv, nil
}

// InboundMessage is one webhook delivery after transport decoding.
type InboundMessage struct {
	ExternalMessageID string
	ChannelAddress    string
	Body              string
}

// InboundResult reports what one admitted message did to the conversation.
type InboundResult struct {
	Conversation domain.Conversation
	Duplicate    bool
	Intent       domain.Intent
	Sentiment    domain.Sentiment
	Impact       int
	Confirmed    bool
	Escalated    bool
}

// ProcessInbound runs the full decision pipeline for one inbound message:
// dedup gate, classification, scoring, state transition, persistence and the
// automated response. A duplicate delivery is a successful no-op.
func (e *Engine) ProcessInbound(ctx context.Context, in InboundMessage) (InboundResult, error) {
	conv, err := e.store.GetActiveByChannelAddress(ctx, in.ChannelAddress)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return InboundResult{}, apperr.NotFound("no active conversation for sender").WithOp("Engine.ProcessInbound")
		}
		return InboundResult{}, fmt.Errorf("resolve conversation: %w", err)
	}

	unlock := e.locks.Lock(conv.ID)
	defer unlock()

	// Re-read under the lock: another message may have advanced the snapshot
	// between resolution and lock acquisition.
	conv, err = e.store.GetByID(ctx, conv.ID)
	if err != nil {
		return InboundResult{}, fmt.Errorf("reload conversation: %w", err)
	}

	log := e.log.WithConversationID(conv.ID.String())
	now := e.now()

	conv, admitted := domain.MarkProcessed(conv, in.ExternalMessageID)
	if !admitted {
		log.Debug("duplicate message delivery ignored", "external_message_id", in.ExternalMessageID)
		return InboundResult{Conversation: conv, Duplicate: true}, nil
	}

	if !conv.Automatable() {
		// Keep the dedup window and the transcript current, but make no
		// decisions on a closed conversation.
		conv = domain.RecordClientMessage(conv, now)
		if err := e.store.UpdateDecision(ctx, conv); err != nil {
			return InboundResult{}, fmt.Errorf("persist closed-conversation message: %w", err)
		}
		e.appendInbound(ctx, log, conv, in, nil, nil)
		return InboundResult{Conversation: conv}, nil
	}

	intent := domain.ClassifyIntent(in.Body)
	sentiment := domain.ClassifySentiment(in.Body)
	impact := domain.ScoreImpact(intent, sentiment)

	transition := domain.ApplyInbound(conv, intent, sentiment, impact, now)
	conv = domain.RecordClientMessage(transition.Conversation, now)

	if err := e.store.UpdateDecision(ctx, conv); err != nil {
		return InboundResult{}, fmt.Errorf("persist decision: %w", err)
	}
	e.appendInbound(ctx, log, conv, in, &intent, &sentiment)

	log.Info("inbound message processed",
		"intent", intent,
		"sentiment", sentiment,
		"impact", impact,
		"score", conv.ConfidenceScore,
		"state", conv.State,
	)

	e.publishTransition(ctx, conv, intent, sentiment, impact, transition)

	if err := e.orchestrator.Respond(ctx, conv, transition); err != nil {
		// Response generation and delivery never fail the pipeline: the
		// decision is already persisted.
		log.Error("automated response failed", "error", err)
	}

	return InboundResult{
		Conversation: conv,
		Intent:       intent,
		Sentiment:    sentiment,
		Impact:       impact,
		Confirmed:    transition.Confirmed,
		Escalated:    transition.Escalated,
	}, nil
}

func (e *Engine) appendInbound(ctx context.Context, log *logger.Logger, conv domain.Conversation, in InboundMessage, intent *domain.Intent, sentiment *domain.Sentiment) {
	externalID := in.ExternalMessageID
	var extPtr *string
	if externalID != "" {
		extPtr = &externalID
	}

	if _, err := e.store.CreateMessage(ctx, domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionInbound,
		Body:           in.Body,
		ExternalID:     extPtr,
		Intent:         intent,
		Sentiment:      sentiment,
		DeliveryStatus: domain.DeliverySent,
	}); err != nil {
		log.Error("failed to store inbound message", "error", err)
	}
}

func (e *Engine) publishTransition(ctx context.Context, conv domain.Conversation, intent domain.Intent, sentiment domain.Sentiment, impact int, transition domain.Transition) {
	e.bus.Publish(ctx, events.MessageReceived{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		WorkspaceID:    conv.WorkspaceID,
		Intent:         string(intent),
		Sentiment:      string(sentiment),
		Impact:         impact,
		Score:          conv.ConfidenceScore,
	})

	if transition.Confirmed {
		e.bus.Publish(ctx, events.ConversationConfirmed{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: conv.ID,
			WorkspaceID:    conv.WorkspaceID,
			Score:          conv.ConfidenceScore,
		})
	}
	if transition.Escalated {
		e.bus.Publish(ctx, events.ConversationEscalated{
			BaseEvent:      events.NewBaseEvent(),
			ConversationID: conv.ID,
			WorkspaceID:    conv.WorkspaceID,
			CustomerName:   conv.CustomerName,
			CustomerPhone:  conv.CustomerPhone,
			Reason:         transition.EscalationReason,
			Score:          conv.ConfidenceScore,
		})
	}
}

// ResolveChannel reports whether an active conversation exists for a channel
// address. The webhook uses it to reject unknown senders before accepting
// the delivery.
func (e *Engine) ResolveChannel(ctx context.Context, channelAddress string) error {
	_, err := e.store.GetActiveByChannelAddress(ctx, channelAddress)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("no active conversation for sender").WithOp("Engine.ResolveChannel")
	}
	return err
}

func (e *Engine) Get(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	conv, err := e.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.Conversation{}, apperr.NotFound("conversation not found").WithOp("Engine.Get")
	}
	return conv, err
}

func (e *Engine) List(ctx context.Context, params repository.ListConversationsParams) ([]domain.Conversation, error) {
	return e.store.List(ctx, params)
}

func (e *Engine) History(ctx context.Context, id uuid.UUID, limit int) ([]domain.Message, error) {
	if _, err := e.Get(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListRecentMessages(ctx, id, limit)
}

func (e *Engine) Stats(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) (repository.WorkspaceStats, error) {
	return e.store.Stats(ctx, workspaceID, from, to)
}
