package domain

import "strings"

// Intent is the classified purpose of an inbound message.
type Intent string

const (
	IntentConfirmation Intent = "confirmation"
	IntentCancellation Intent = "cancellation"
	IntentNegotiation  Intent = "negotiation"
	IntentQuestion     Intent = "question"
	IntentObjection    Intent = "objection"
	IntentGreeting     Intent = "greeting"
	IntentThanks       Intent = "thanks"
	IntentUnknown      Intent = "unknown"
)

type intentRule struct {
	label    Intent
	keywords []string
}

// intentRules is evaluated in order: the first label with a substring match
// wins. The order matches the scoring table and must not be reshuffled.
var intentRules = []intentRule{
	{IntentConfirmation, []string{
		"je confirme", "c'est confirmé", "c'est bon pour moi", "d'accord pour la livraison",
		"je valide", "ok pour moi", "c'est noté", "oui je veux", "je prends", "confirm",
	}},
	{IntentCancellation, []string{
		"annule", "annulation", "je ne veux plus", "plus intéressé", "plus interesse",
		"je refuse", "non merci", "laissez tomber", "cancel",
	}},
	{IntentNegotiation, []string{
		"moins cher", "réduction", "reduction", "remise", "rabais", "négocier", "negocier",
		"baisser le prix", "un geste", "discount",
	}},
	{IntentQuestion, []string{
		"?", "comment", "combien", "quand", "pourquoi", "c'est quoi", "est-ce que",
	}},
	{IntentObjection, []string{
		"trop cher", "pas sûr", "pas sur", "j'hésite", "j'hesite", "je doute",
		"pas confiance", "réfléchir", "reflechir", "je vais voir",
	}},
	{IntentGreeting, []string{
		"bonjour", "bonsoir", "salut", "coucou", "hello",
	}},
	{IntentThanks, []string{
		"merci", "thanks",
	}},
}

// ClassifyIntent maps free text to an intent using the ordered keyword table.
// Matching is case-insensitive substring containment; no match yields
// IntentUnknown.
func ClassifyIntent(text string) Intent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return IntentUnknown
	}

	for _, rule := range intentRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(normalized, keyword) {
				return rule.label
			}
		}
	}

	return IntentUnknown
}
