package domain

import "strings"

var positiveKeywords = []string{
	"merci", "super", "parfait", "génial", "genial", "très bien", "tres bien",
	"excellent", "top", "avec plaisir", "content", "👍", "😊", "🙏",
}

var negativeKeywords = []string{
	"arnaque", "nul", "mauvais", "déçu", "decu", "jamais", "trop cher",
	"inacceptable", "scandale", "menteur", "voleur", "😡", "👎",
}

// ClassifySentiment counts positive and negative keyword hits; the majority
// wins and ties (including zero hits) are neutral.
func ClassifySentiment(text string) Sentiment {
	normalized := strings.ToLower(text)

	var positive, negative int
	for _, keyword := range positiveKeywords {
		positive += strings.Count(normalized, keyword)
	}
	for _, keyword := range negativeKeywords {
		negative += strings.Count(normalized, keyword)
	}

	switch {
	case positive > negative:
		return SentimentPositive
	case negative > positive:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
