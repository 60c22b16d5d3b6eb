package events

import (
	"github.com/google/uuid"
)

// =============================================================================
// Conversation Domain Events
// =============================================================================

// ConversationCreated is published when an order is handed to the agent and a
// new conversation starts.
type ConversationCreated struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	WorkspaceID    uuid.UUID `json:"workspaceId"`
	OrderReference string    `json:"orderReference,omitempty"`
	CustomerPhone  string    `json:"customerPhone"`
}

func (e ConversationCreated) EventName() string { return "conversation.created" }

// MessageReceived is published after an inbound customer message has been
// admitted, classified and applied to the conversation.
type MessageReceived struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	WorkspaceID    uuid.UUID `json:"workspaceId"`
	Intent         string    `json:"intent"`
	Sentiment      string    `json:"sentiment"`
	Impact         int       `json:"impact"`
	Score          int       `json:"score"`
}

func (e MessageReceived) EventName() string { return "conversation.message.received" }

// ConversationConfirmed is published when the customer confirms delivery.
type ConversationConfirmed struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	WorkspaceID    uuid.UUID `json:"workspaceId"`
	OrderReference string    `json:"orderReference,omitempty"`
	Score          int       `json:"score"`
}

func (e ConversationConfirmed) EventName() string { return "conversation.confirmed" }

// ConversationEscalated is published when automation stops and a human
// operator must take over.
type ConversationEscalated struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	WorkspaceID    uuid.UUID `json:"workspaceId"`
	CustomerName   string    `json:"customerName"`
	CustomerPhone  string    `json:"customerPhone"`
	Reason         string    `json:"reason"`
	Score          int       `json:"score"`
}

func (e ConversationEscalated) EventName() string { return "conversation.escalated" }

// RelanceSent is published when an automated follow-up message has been sent.
type RelanceSent struct {
	BaseEvent
	ConversationID uuid.UUID `json:"conversationId"`
	WorkspaceID    uuid.UUID `json:"workspaceId"`
	Attempt        int       `json:"attempt"`
}

func (e RelanceSent) EventName() string { return "conversation.relance.sent" }
