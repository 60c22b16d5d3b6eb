package domain

import "time"

// MaxRelances caps automated follow-ups per conversation.
const MaxRelances = 3

// relanceDelays holds the required silence before each follow-up attempt,
// indexed by the current relance count.
var relanceDelays = [MaxRelances]time.Duration{
	30 * time.Minute,
	120 * time.Minute,
	24 * time.Hour,
}

// staleAfter is the silence window after which an active conversation is
// considered abandoned.
const staleAfter = 24 * time.Hour

// ShouldRelance decides whether an automated follow-up is due. It is a pure
// function of the snapshot and the current time.
func ShouldRelance(c Conversation, now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.State == StateConfirmed || c.State == StateCancelled {
		return false
	}
	if c.RelanceCount >= MaxRelances {
		return false
	}

	elapsed := now.Sub(lastActivity(c))
	return elapsed >= relanceDelays[c.RelanceCount]
}

// IsStale reports whether the reaper should deactivate this conversation:
// still active but silent for a full day, or out of follow-up attempts.
func IsStale(c Conversation, now time.Time) bool {
	if !c.Active {
		return false
	}
	if c.RelanceCount >= MaxRelances {
		return true
	}
	return now.Sub(lastActivity(c)) >= staleAfter
}

func lastActivity(c Conversation) time.Time {
	if c.LastInteractionAt.IsZero() {
		return c.CreatedAt
	}
	return c.LastInteractionAt
}
