package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"national format", "06 12 34 56 78", "+33612345678"},
		{"already e164", "+33612345678", "+33612345678"},
		{"international without plus", "0033612345678", "+33612345678"},
		{"garbage passes through", "not-a-number", "not-a-number"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeE164(tt.input); got != tt.want {
				t.Fatalf("NormalizeE164(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestChannelAddress(t *testing.T) {
	if got := ChannelAddress("+33 6 12 34 56 78", "@c.us"); got != "33612345678@c.us" {
		t.Fatalf("ChannelAddress = %q", got)
	}
	if got := ChannelAddress("0612345678", "@c.us"); got != "33612345678@c.us" {
		t.Fatalf("ChannelAddress from national format = %q", got)
	}
}

func TestValid(t *testing.T) {
	if !Valid("0612345678") {
		t.Fatal("national mobile number should be valid")
	}
	if Valid("12345") {
		t.Fatal("short garbage should be invalid")
	}
}
