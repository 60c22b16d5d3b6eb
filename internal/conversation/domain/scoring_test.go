package domain

import "testing"

func TestScoreImpact(t *testing.T) {
	tests := []struct {
		name      string
		intent    Intent
		sentiment Sentiment
		want      int
	}{
		{"confirmation neutral", IntentConfirmation, SentimentNeutral, 30},
		{"confirmation positive", IntentConfirmation, SentimentPositive, 40},
		{"cancellation negative", IntentCancellation, SentimentNegative, -65},
		{"negotiation neutral", IntentNegotiation, SentimentNeutral, 10},
		{"question neutral", IntentQuestion, SentimentNeutral, 5},
		{"objection negative", IntentObjection, SentimentNegative, -25},
		{"greeting positive", IntentGreeting, SentimentPositive, 15},
		{"thanks neutral", IntentThanks, SentimentNeutral, 5},
		{"unknown neutral", IntentUnknown, SentimentNeutral, 0},
		{"unknown negative", IntentUnknown, SentimentNegative, -15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScoreImpact(tt.intent, tt.sentiment); got != tt.want {
				t.Fatalf("ScoreImpact(%q, %q) = %d, want %d", tt.intent, tt.sentiment, got, tt.want)
			}
		})
	}
}
