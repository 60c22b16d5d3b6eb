package domain

import "testing"

func TestClassifyIntent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{"explicit confirmation", "Je confirme la livraison", IntentConfirmation},
		{"validation phrasing", "ok je valide la commande", IntentConfirmation},
		{"cancellation", "Annulez tout, je ne veux plus", IntentCancellation},
		{"polite refusal", "Non merci", IntentCancellation},
		{"price negotiation", "Vous pouvez faire moins cher ?", IntentNegotiation},
		{"asks for discount", "une petite remise possible", IntentNegotiation},
		{"question mark", "La livraison arrive quand ?", IntentQuestion},
		{"question word", "comment ça marche", IntentQuestion},
		{"price objection", "C'est trop cher pour moi", IntentObjection},
		{"hesitation", "je vais voir, je doute un peu", IntentObjection},
		{"greeting", "Bonjour monsieur", IntentGreeting},
		{"thanks", "Merci beaucoup", IntentThanks},
		{"unknown", "azerty", IntentUnknown},
		{"empty", "", IntentUnknown},
		{"whitespace only", "   ", IntentUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyIntent(tt.text); got != tt.want {
				t.Fatalf("ClassifyIntent(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestClassifyIntentOrderWins(t *testing.T) {
	// The table is rule-ordered, not position-ordered: negotiation ranks
	// above objection even when the objection keyword appears first.
	if got := ClassifyIntent("c'est trop cher, faites moins cher"); got != IntentNegotiation {
		t.Fatalf("negotiation must outrank objection, got %q", got)
	}
	if got := ClassifyIntent("bonjour, je confirme"); got != IntentConfirmation {
		t.Fatalf("confirmation must outrank greeting, got %q", got)
	}
	if got := ClassifyIntent("merci, j'annule"); got != IntentCancellation {
		t.Fatalf("cancellation must outrank thanks, got %q", got)
	}
}
