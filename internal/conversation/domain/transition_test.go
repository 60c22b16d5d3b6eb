package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testConversation(score int) Conversation {
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	c := NewConversation(uuid.New(), nil, "Awa Diallo", "+33612345678", "33612345678@c.us", "Montre connectée", 79.90, now)
	c.ConfidenceScore = score
	return c
}

func TestApplyInboundConfirmsAboveThreshold(t *testing.T) {
	c := testConversation(45)
	now := c.CreatedAt.Add(5 * time.Minute)

	result := ApplyInbound(c, IntentConfirmation, SentimentNeutral, ScoreImpact(IntentConfirmation, SentimentNeutral), now)

	if result.Conversation.ConfidenceScore != 75 {
		t.Fatalf("score = %d, want 75", result.Conversation.ConfidenceScore)
	}
	if !result.Confirmed {
		t.Fatal("expected confirmation")
	}
	if result.Conversation.State != StateConfirmed {
		t.Fatalf("state = %q, want %q", result.Conversation.State, StateConfirmed)
	}
	if result.Conversation.ConfirmedAt == nil || !result.Conversation.ConfirmedAt.Equal(now) {
		t.Fatal("ConfirmedAt not set")
	}
}

func TestApplyInboundConfirmationBelowThresholdStaysOpen(t *testing.T) {
	c := testConversation(30)
	result := ApplyInbound(c, IntentConfirmation, SentimentNeutral, 30, c.CreatedAt.Add(time.Minute))

	if result.Confirmed {
		t.Fatal("score 60 must not confirm")
	}
	if result.Conversation.State != StatePendingConfirmation {
		t.Fatalf("state = %q, want %q", result.Conversation.State, StatePendingConfirmation)
	}
}

func TestApplyInboundObjectionRaisesPersuasion(t *testing.T) {
	c := testConversation(35)
	result := ApplyInbound(c, IntentObjection, SentimentNeutral, ScoreImpact(IntentObjection, SentimentNeutral), c.CreatedAt.Add(time.Minute))

	if result.Conversation.ConfidenceScore != 25 {
		t.Fatalf("score = %d, want 25", result.Conversation.ConfidenceScore)
	}
	if !result.PersuasionRaised || result.Conversation.PersuasionLevel != 1 {
		t.Fatalf("persuasion level = %d, want 1", result.Conversation.PersuasionLevel)
	}
	if result.Conversation.RefusalCount != 1 {
		t.Fatalf("refusal count = %d, want 1", result.Conversation.RefusalCount)
	}
	if result.Escalated {
		t.Fatal("neutral sentiment must not escalate")
	}
}

func TestApplyInboundPersuasionCapped(t *testing.T) {
	c := testConversation(20)
	c.PersuasionLevel = MaxPersuasionLevel

	result := ApplyInbound(c, IntentObjection, SentimentNeutral, -10, c.CreatedAt.Add(time.Minute))

	if result.PersuasionRaised {
		t.Fatal("persuasion must not rise past the cap")
	}
	if result.Conversation.PersuasionLevel != MaxPersuasionLevel {
		t.Fatalf("persuasion level = %d, want %d", result.Conversation.PersuasionLevel, MaxPersuasionLevel)
	}
	if result.Conversation.RefusalCount != 1 {
		t.Fatalf("refusal count = %d, want 1", result.Conversation.RefusalCount)
	}
}

func TestApplyInboundObjectionAndEscalationBothFire(t *testing.T) {
	c := testConversation(40)
	now := c.CreatedAt.Add(2 * time.Minute)

	// objection -10, negative sentiment -15: 40 -> 15, below both thresholds.
	result := ApplyInbound(c, IntentObjection, SentimentNegative, ScoreImpact(IntentObjection, SentimentNegative), now)

	if result.Conversation.ConfidenceScore != 15 {
		t.Fatalf("score = %d, want 15", result.Conversation.ConfidenceScore)
	}
	if !result.PersuasionRaised {
		t.Fatal("expected persuasion bump")
	}
	if !result.Escalated {
		t.Fatal("expected escalation")
	}
	if result.Conversation.State != StateEscalated {
		t.Fatalf("state = %q, want %q", result.Conversation.State, StateEscalated)
	}
	if result.Conversation.EscalationReason == nil {
		t.Fatal("escalation reason not recorded")
	}
	if result.Conversation.EscalatedAt == nil || !result.Conversation.EscalatedAt.Equal(now) {
		t.Fatal("EscalatedAt not set")
	}
}

func TestApplyInboundNegotiationMovesToNegotiatingTime(t *testing.T) {
	c := testConversation(50)
	result := ApplyInbound(c, IntentNegotiation, SentimentNeutral, 10, c.CreatedAt.Add(time.Minute))

	if result.Conversation.State != StateNegotiatingTime {
		t.Fatalf("state = %q, want %q", result.Conversation.State, StateNegotiatingTime)
	}
	if result.Conversation.ConfidenceScore != 60 {
		t.Fatalf("score = %d, want 60", result.Conversation.ConfidenceScore)
	}

	// further negotiation leaves the state alone
	again := ApplyInbound(result.Conversation, IntentNegotiation, SentimentNeutral, 10, c.CreatedAt.Add(2*time.Minute))
	if again.Conversation.State != StateNegotiatingTime {
		t.Fatalf("state = %q, want %q", again.Conversation.State, StateNegotiatingTime)
	}
}

func TestApplyInboundClampsScore(t *testing.T) {
	low := ApplyInbound(testConversation(10), IntentCancellation, SentimentNegative, -65, time.Now())
	if low.Conversation.ConfidenceScore != 0 {
		t.Fatalf("score = %d, want clamp to 0", low.Conversation.ConfidenceScore)
	}

	high := ApplyInbound(testConversation(95), IntentConfirmation, SentimentPositive, 40, time.Now())
	if high.Conversation.ConfidenceScore != 100 {
		t.Fatalf("score = %d, want clamp to 100", high.Conversation.ConfidenceScore)
	}
	if !high.Confirmed {
		t.Fatal("clamped score still above threshold, expected confirmation")
	}
}

func TestApplyInboundDoesNotMutateInput(t *testing.T) {
	c := testConversation(40)
	_ = ApplyInbound(c, IntentObjection, SentimentNegative, -25, time.Now())

	if c.ConfidenceScore != 40 || c.State != StatePendingConfirmation || c.PersuasionLevel != 0 {
		t.Fatal("input snapshot was mutated")
	}
}
