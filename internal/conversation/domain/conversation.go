// Package domain contains the pure decision logic of the conversation engine.
// Every rule operates on an immutable Conversation snapshot and returns either
// a decision or a new snapshot; persistence and transport live elsewhere.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle state of a conversation.
type State string

const (
	StatePendingConfirmation State = "pending_confirmation"
	StateNegotiatingTime     State = "negotiating_time"
	StateConfirmed           State = "confirmed"
	StateCancelled           State = "cancelled"
	StateEscalated           State = "escalated"
	StateCompleted           State = "completed"
)

// Terminal reports whether automated processing has permanently stopped for
// this state.
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateCancelled, StateEscalated, StateCompleted:
		return true
	}
	return false
}

// Sentiment is the classified emotional tone of an inbound message.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = "unknown"
)

const (
	minScore     = 0
	maxScore     = 100
	initialScore = 50

	// MaxPersuasionLevel caps the escalating argument tiers.
	MaxPersuasionLevel = 3
)

// Metadata carries per-conversation counters.
type Metadata struct {
	MessageCount       int
	ClientMessageCount int
	AgentMessageCount  int
	LastRelanceAt      *time.Time
}

// Conversation is an immutable snapshot of one negotiation with a customer.
// Mutating rules return a new snapshot instead of changing the receiver.
type Conversation struct {
	ID             uuid.UUID
	WorkspaceID    uuid.UUID
	OrderReference *string
	CustomerName   string
	CustomerPhone  string
	ChannelAddress string
	ProductName    string
	ProductPrice   float64

	State            State
	ConfidenceScore  int
	Sentiment        Sentiment
	PersuasionLevel  int
	RefusalCount     int
	RelanceCount     int
	Active           bool
	EscalationReason *string

	ProcessedMessageIDs []string

	CreatedAt             time.Time
	UpdatedAt             time.Time
	LastInteractionAt     time.Time
	LastMessageFromClient *time.Time
	LastMessageFromAgent  *time.Time
	ConfirmedAt           *time.Time
	CancelledAt           *time.Time
	EscalatedAt           *time.Time

	Metadata Metadata
}

// NewConversation returns a fresh snapshot with the engine's initial values.
func NewConversation(workspaceID uuid.UUID, orderReference *string, customerName, customerPhone, channelAddress, productName string, productPrice float64, now time.Time) Conversation {
	return Conversation{
		ID:                uuid.New(),
		WorkspaceID:       workspaceID,
		OrderReference:    orderReference,
		CustomerName:      customerName,
		CustomerPhone:     customerPhone,
		ChannelAddress:    channelAddress,
		ProductName:       productName,
		ProductPrice:      productPrice,
		State:             StatePendingConfirmation,
		ConfidenceScore:   initialScore,
		Sentiment:         SentimentUnknown,
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
		LastInteractionAt: now,
	}
}

// Automatable reports whether the engine may still act on this conversation.
func (c Conversation) Automatable() bool {
	return c.Active && !c.State.Terminal()
}

// RecordClientMessage updates interaction counters for an inbound message.
func RecordClientMessage(c Conversation, now time.Time) Conversation {
	c.LastInteractionAt = now
	c.LastMessageFromClient = &now
	c.UpdatedAt = now
	c.Metadata.MessageCount++
	c.Metadata.ClientMessageCount++
	return c
}

// RecordAgentMessage updates interaction counters for an outbound message.
func RecordAgentMessage(c Conversation, now time.Time) Conversation {
	c.LastInteractionAt = now
	c.LastMessageFromAgent = &now
	c.UpdatedAt = now
	c.Metadata.MessageCount++
	c.Metadata.AgentMessageCount++
	return c
}

// RecordRelance updates counters after a follow-up send. The relance count
// never exceeds MaxRelances by construction.
func RecordRelance(c Conversation, now time.Time) Conversation {
	c = RecordAgentMessage(c, now)
	if c.RelanceCount < MaxRelances {
		c.RelanceCount++
	}
	c.Metadata.LastRelanceAt = &now
	return c
}

func clampScore(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}
