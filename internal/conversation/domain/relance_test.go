package domain

import (
	"testing"
	"time"
)

func TestShouldRelanceDelaysByAttempt(t *testing.T) {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		relanceCount int
		elapsed      time.Duration
		want         bool
	}{
		{"first attempt too early", 0, 29 * time.Minute, false},
		{"first attempt due", 0, 30 * time.Minute, true},
		{"first attempt overdue", 0, 31 * time.Minute, true},
		{"second attempt too early", 1, 119 * time.Minute, false},
		{"second attempt due", 1, 2 * time.Hour, true},
		{"third attempt too early", 2, 23 * time.Hour, false},
		{"third attempt due", 2, 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConversation(50)
			c.CreatedAt = base
			c.LastInteractionAt = base
			c.RelanceCount = tt.relanceCount

			if got := ShouldRelance(c, base.Add(tt.elapsed)); got != tt.want {
				t.Fatalf("ShouldRelance(count=%d, elapsed=%s) = %v, want %v", tt.relanceCount, tt.elapsed, got, tt.want)
			}
		})
	}
}

func TestShouldRelancePreconditions(t *testing.T) {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	later := base.Add(48 * time.Hour)

	fresh := func() Conversation {
		c := testConversation(50)
		c.CreatedAt = base
		c.LastInteractionAt = base
		return c
	}

	inactive := fresh()
	inactive.Active = false
	if ShouldRelance(inactive, later) {
		t.Fatal("inactive conversation must not be relanced")
	}

	confirmed := fresh()
	confirmed.State = StateConfirmed
	if ShouldRelance(confirmed, later) {
		t.Fatal("confirmed conversation must not be relanced")
	}

	cancelled := fresh()
	cancelled.State = StateCancelled
	if ShouldRelance(cancelled, later) {
		t.Fatal("cancelled conversation must not be relanced")
	}

	exhausted := fresh()
	exhausted.RelanceCount = MaxRelances
	if ShouldRelance(exhausted, later) {
		t.Fatal("relance cap must be permanent")
	}
	if ShouldRelance(exhausted, later.Add(30*24*time.Hour)) {
		t.Fatal("relance cap must not expire with time")
	}
}

func TestIsStale(t *testing.T) {
	base := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	c := testConversation(50)
	c.CreatedAt = base
	c.LastInteractionAt = base

	if IsStale(c, base.Add(23*time.Hour)) {
		t.Fatal("recent conversation is not stale")
	}
	if !IsStale(c, base.Add(24*time.Hour)) {
		t.Fatal("24h of silence makes the conversation stale")
	}

	exhausted := c
	exhausted.RelanceCount = MaxRelances
	if !IsStale(exhausted, base.Add(time.Minute)) {
		t.Fatal("out of relance attempts means stale regardless of silence")
	}

	inactive := c
	inactive.Active = false
	if IsStale(inactive, base.Add(48*time.Hour)) {
		t.Fatal("already inactive conversations are not re-reaped")
	}
}
