package domain

// intentImpacts is the base contribution of each intent to the confidence
// score. The order of evaluation lives in intent.go; values here only add up.
var intentImpacts = map[Intent]int{
	IntentConfirmation: 30,
	IntentCancellation: -50,
	IntentNegotiation:  10,
	IntentQuestion:     5,
	IntentObjection:    -10,
	IntentGreeting:     5,
	IntentThanks:       5,
	IntentUnknown:      0,
}

var sentimentModifiers = map[Sentiment]int{
	SentimentPositive: 10,
	SentimentNegative: -15,
	SentimentNeutral:  0,
}

// ScoreImpact computes the unbounded score delta for a classified message.
// Clamping to the score range happens when the delta is applied.
func ScoreImpact(intent Intent, sentiment Sentiment) int {
	return intentImpacts[intent] + sentimentModifiers[sentiment]
}
