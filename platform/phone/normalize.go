// Package phone provides phone number utilities.
// This is part of the platform layer and contains no business logic.
package phone

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "FR"

// NormalizeE164 formats a phone number to E.164. If parsing fails, it returns the trimmed input.
func NormalizeE164(input string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}

	number, err := phonenumbers.Parse(trimmed, defaultRegion)
	if err != nil {
		return trimmed
	}

	if !phonenumbers.IsValidNumber(number) {
		return trimmed
	}

	return phonenumbers.Format(number, phonenumbers.E164)
}

// Valid reports whether the input parses as a real phone number.
func Valid(input string) bool {
	number, err := phonenumbers.Parse(strings.TrimSpace(input), defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(number)
}

// ChannelAddress derives the messaging-gateway address for a phone number:
// all non-digit characters are stripped and the gateway suffix is appended.
func ChannelAddress(phoneNumber, suffix string) string {
	normalized := NormalizeE164(phoneNumber)

	var digits strings.Builder
	for _, r := range normalized {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}

	return digits.String() + suffix
}
