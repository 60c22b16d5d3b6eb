package domain

import "time"

const (
	// confirmThreshold is the score above which a confirmation intent closes
	// the deal.
	confirmThreshold = 70
	// distressThreshold is the score below which objections and negative
	// sentiment change behavior.
	distressThreshold = 30
)

// Transition is the outcome of applying one admitted inbound message.
type Transition struct {
	Conversation Conversation

	Confirmed        bool
	Escalated        bool
	EscalationReason string
	PersuasionRaised bool
}

// ApplyInbound applies a classified message to the conversation snapshot.
// The rules run in a fixed order:
//
//  1. the score delta is applied and clamped to [0,100]
//  2. confirmation with score > 70 confirms the order (terminal)
//  3. a first negotiation attempt moves the conversation to negotiating_time
//  4. objection with score < 30 raises the persuasion level (capped)
//  5. negative sentiment with score < 30 escalates to a human (terminal);
//     rules 4 and 5 are independent and may both fire
func ApplyInbound(c Conversation, intent Intent, sentiment Sentiment, impact int, now time.Time) Transition {
	c.ConfidenceScore = clampScore(c.ConfidenceScore + impact)
	c.Sentiment = sentiment
	c.UpdatedAt = now

	result := Transition{}

	if intent == IntentConfirmation && c.ConfidenceScore > confirmThreshold {
		c.State = StateConfirmed
		c.ConfirmedAt = &now
		result.Confirmed = true
		result.Conversation = c
		return result
	}

	if intent == IntentNegotiation && c.State == StatePendingConfirmation {
		c.State = StateNegotiatingTime
	}

	if intent == IntentObjection {
		c.RefusalCount++
		if c.ConfidenceScore < distressThreshold && c.PersuasionLevel < MaxPersuasionLevel {
			c.PersuasionLevel++
			result.PersuasionRaised = true
		}
	}

	if sentiment == SentimentNegative && c.ConfidenceScore < distressThreshold {
		reason := "negative sentiment with low confidence score"
		c.State = StateEscalated
		c.EscalatedAt = &now
		c.EscalationReason = &reason
		result.Escalated = true
		result.EscalationReason = reason
	}

	result.Conversation = c
	return result
}
