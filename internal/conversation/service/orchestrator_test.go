package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/platform/logger"
)

func TestRelanceMessageWording(t *testing.T) {
	conv := domain.NewConversation(uuid.New(), nil, "Fatou Ndiaye", "+33698765432", "33698765432@c.us",
		"Blender pro", 59.0, time.Now().UTC())

	first := RelanceMessage(conv, 1)
	second := RelanceMessage(conv, 2)
	third := RelanceMessage(conv, 3)

	for i, msg := range []string{first, second, third} {
		if !strings.Contains(msg, "Fatou") {
			t.Fatalf("relance %d missing first name: %q", i+1, msg)
		}
		if !strings.Contains(msg, conv.ProductName) {
			t.Fatalf("relance %d missing product: %q", i+1, msg)
		}
	}

	if first == second || second == third {
		t.Fatal("each attempt must use distinct wording")
	}
	if !strings.Contains(third, "dernière") {
		t.Fatalf("final relance should announce it is the last one: %q", third)
	}
}

func TestSystemContextIncludesPersuasionArgument(t *testing.T) {
	store := newFakeStore()
	o := NewOrchestrator(store, nil, nil, logger.New("development"))
	o.pick = func(n int) int { return 0 }

	conv := seedConversation(store, 25)
	conv.PersuasionLevel = 2

	got := o.systemContext(conv)
	if !strings.Contains(got, persuasionArguments[2][0]) {
		t.Fatalf("system context missing level-2 argument:\n%s", got)
	}
	if !strings.Contains(got, conv.ProductName) {
		t.Fatal("system context missing product name")
	}

	conv.PersuasionLevel = 0
	if got := o.systemContext(conv); strings.Contains(got, "hésite") {
		t.Fatal("level 0 must not inject persuasion material")
	}
}

func TestDeliverMarksFailureAndReturnsError(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{fail: true}
	o := NewOrchestrator(store, nil, sender, logger.New("development"))

	conv := seedConversation(store, 50)

	if _, err := o.Deliver(context.Background(), conv, "Bonjour !", nil); err == nil {
		t.Fatal("expected delivery error")
	}

	outbound := store.messagesFor(conv.ID, domain.DirectionOutbound)
	if len(outbound) != 1 {
		t.Fatalf("stored %d outbound messages, want 1", len(outbound))
	}
	if outbound[0].DeliveryStatus != domain.DeliveryFailed {
		t.Fatalf("delivery status = %q, want failed", outbound[0].DeliveryStatus)
	}
}

func TestDeliverRecordsGatewayMessageID(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	o := NewOrchestrator(store, nil, sender, logger.New("development"))

	conv := seedConversation(store, 50)

	msg, err := o.Deliver(context.Background(), conv, "Bonjour !", &domain.Generation{Model: "test-model"})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if msg.DeliveryStatus != domain.DeliverySent {
		t.Fatalf("delivery status = %q, want sent", msg.DeliveryStatus)
	}
	if msg.ExternalID == nil || *msg.ExternalID != "gw-msg-1" {
		t.Fatal("gateway message id not recorded")
	}
}

func TestPersonalizePrefixesMissingName(t *testing.T) {
	got := personalize("Bonjour, votre colis arrive demain.", "Awa Diallo")
	if !strings.HasPrefix(got, "Awa, ") {
		t.Fatalf("personalize() = %q, want first-name prefix", got)
	}

	already := personalize("Merci Awa, à demain !", "Awa Diallo")
	if already != "Merci Awa, à demain !" {
		t.Fatalf("personalize() rewrote text that already names the customer: %q", already)
	}
}

func TestUserContextUsesRecentTranscript(t *testing.T) {
	store := newFakeStore()
	o := NewOrchestrator(store, nil, nil, logger.New("development"))
	conv := seedConversation(store, 50)

	for i := 0; i < historyWindow+5; i++ {
		body := "message ancien"
		if i >= 5 {
			body = "message récent"
		}
		_, _ = store.CreateMessage(context.Background(), domain.Message{
			ConversationID: conv.ID,
			Direction:      domain.DirectionInbound,
			Body:           body,
		})
	}

	got := o.userContext(context.Background(), conv)
	if strings.Contains(got, "message ancien") {
		t.Fatal("user context should only include the recent window")
	}
	if !strings.Contains(got, "message récent") {
		t.Fatal("user context missing recent messages")
	}
	if !strings.Contains(got, "Client :") {
		t.Fatal("user context missing speaker labels")
	}
}
