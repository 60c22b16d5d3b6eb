package domain

import (
	"time"

	"github.com/google/uuid"
)

// Direction tells who authored a message.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// DeliveryStatus tracks outbound message delivery at the gateway.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// Generation carries metadata about an AI-generated reply.
type Generation struct {
	Model      string `json:"model,omitempty"`
	TokenCount int    `json:"token_count,omitempty"`
	LatencyMS  int64  `json:"latency_ms,omitempty"`
}

// Message is one entry of a conversation transcript.
type Message struct {
	ID             uuid.UUID
	ConversationID uuid.UUID
	Direction      Direction
	Body           string
	ExternalID     *string
	Intent         *Intent
	Sentiment      *Sentiment
	DeliveryStatus DeliveryStatus
	Generation     *Generation
	CreatedAt      time.Time
}
