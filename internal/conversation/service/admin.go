package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/internal/events"
	"salesagent_backend/platform/apperr"
)

// Close marks a conversation as handled and stops all automation.
func (e *Engine) Close(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	conv, err := e.Get(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if conv.State.Terminal() && !conv.Active {
		return conv, nil
	}

	now := e.now()
	if !conv.State.Terminal() {
		conv.State = domain.StateCompleted
	}
	conv.Active = false
	conv.UpdatedAt = now

	if err := e.store.UpdateDecision(ctx, conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("close conversation: %w", err)
	}
	return conv, nil
}

// Escalate hands a conversation to a human operator on request.
func (e *Engine) Escalate(ctx context.Context, id uuid.UUID, reason string) (domain.Conversation, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	conv, err := e.Get(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if conv.State.Terminal() {
		return domain.Conversation{}, apperr.Conflict("conversation is already closed").WithOp("Engine.Escalate")
	}

	now := e.now()
	conv.State = domain.StateEscalated
	conv.EscalatedAt = &now
	conv.EscalationReason = &reason
	conv.UpdatedAt = now

	if err := e.store.UpdateDecision(ctx, conv); err != nil {
		return domain.Conversation{}, fmt.Errorf("escalate conversation: %w", err)
	}

	e.bus.Publish(ctx, events.ConversationEscalated{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		WorkspaceID:    conv.WorkspaceID,
		CustomerName:   conv.CustomerName,
		CustomerPhone:  conv.CustomerPhone,
		Reason:         reason,
		Score:          conv.ConfidenceScore,
	})

	return conv, nil
}

// RelanceNow sends a follow-up immediately, skipping the schedule but not the
// attempt cap.
func (e *Engine) RelanceNow(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	unlock := e.locks.Lock(id)
	defer unlock()

	conv, err := e.Get(ctx, id)
	if err != nil {
		return domain.Conversation{}, err
	}
	if !conv.Automatable() {
		return domain.Conversation{}, apperr.Conflict("conversation is no longer automated").WithOp("Engine.RelanceNow")
	}
	if conv.RelanceCount >= domain.MaxRelances {
		return domain.Conversation{}, apperr.Conflict("relance limit reached").WithOp("Engine.RelanceNow")
	}

	attempt := conv.RelanceCount + 1
	if _, err := e.orchestrator.Deliver(ctx, conv, RelanceMessage(conv, attempt), nil); err != nil {
		return domain.Conversation{}, fmt.Errorf("deliver relance: %w", err)
	}

	now := e.now()
	updated, err := e.store.IncrementRelance(ctx, conv.ID, conv.RelanceCount, now)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("record relance: %w", err)
	}
	if !updated {
		return domain.Conversation{}, apperr.Conflict("conversation changed during relance").WithOp("Engine.RelanceNow")
	}

	e.bus.Publish(ctx, events.RelanceSent{
		BaseEvent:      events.NewBaseEvent(),
		ConversationID: conv.ID,
		WorkspaceID:    conv.WorkspaceID,
		Attempt:        attempt,
	})

	return e.Get(ctx, id)
}
