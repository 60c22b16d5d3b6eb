package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/internal/events"
	"salesagent_backend/platform/ai/gemini"
	"salesagent_backend/platform/logger"
)

type fakeStore struct {
	mu            sync.Mutex
	conversations map[uuid.UUID]domain.Conversation
	messages      []domain.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{conversations: make(map[uuid.UUID]domain.Conversation)}
}

func (s *fakeStore) put(c domain.Conversation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[c.ID] = c
}

func (s *fakeStore) Create(ctx context.Context, params repository.CreateConversationParams) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.ChannelAddress == params.ChannelAddress && c.Active {
			return c, nil
		}
	}
	c := domain.NewConversation(params.WorkspaceID, params.OrderReference, params.CustomerName,
		params.CustomerPhone, params.ChannelAddress, params.ProductName, params.ProductPrice, time.Now().UTC())
	s.conversations[c.ID] = c
	return c, nil
}

func (s *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return domain.Conversation{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) GetActiveByChannelAddress(ctx context.Context, channelAddress string) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.conversations {
		if c.ChannelAddress == channelAddress && c.Active {
			return c, nil
		}
	}
	return domain.Conversation{}, repository.ErrNotFound
}

func (s *fakeStore) UpdateDecision(ctx context.Context, c domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conversations[c.ID]; !ok {
		return repository.ErrNotFound
	}
	s.conversations[c.ID] = c
	return nil
}

func (s *fakeStore) List(ctx context.Context, params repository.ListConversationsParams) ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Conversation
	for _, c := range s.conversations {
		if c.WorkspaceID == params.WorkspaceID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	s.messages = append(s.messages, m)
	return m, nil
}

func (s *fakeStore) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *fakeStore) UpdateMessageDelivery(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus, externalID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == id {
			s.messages[i].DeliveryStatus = status
			if externalID != nil {
				s.messages[i].ExternalID = externalID
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *fakeStore) IncrementRelance(ctx context.Context, id uuid.UUID, expectedCount int, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok || !c.Active || c.RelanceCount != expectedCount {
		return false, nil
	}
	c = domain.RecordRelance(c, now)
	s.conversations[id] = c
	return true, nil
}

func (s *fakeStore) Stats(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) (repository.WorkspaceStats, error) {
	return repository.WorkspaceStats{}, nil
}

func (s *fakeStore) messagesFor(id uuid.UUID, direction domain.Direction) []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Message
	for _, m := range s.messages {
		if m.ConversationID == id && m.Direction == direction {
			out = append(out, m)
		}
	}
	return out
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []string
	fail  bool
	addrs []string
}

func (f *fakeSender) SendMessage(ctx context.Context, channelAddress, message string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return "", errors.New("gateway unavailable")
	}
	f.sent = append(f.sent, message)
	f.addrs = append(f.addrs, channelAddress)
	return "gw-msg-1", nil
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) Generate(ctx context.Context, systemContext, userContext string) (gemini.Result, error) {
	if f.err != nil {
		return gemini.Result{}, f.err
	}
	return gemini.Result{Text: f.text, Model: "test-model", TokenCount: 42}, nil
}

func newTestEngine(t *testing.T, store *fakeStore, generator TextGenerator, sender MessageSender) *Engine {
	t.Helper()
	log := logger.New("development")
	orchestrator := NewOrchestrator(store, generator, sender, log)
	return NewEngine(store, orchestrator, events.NewInMemoryBus(log), log, "@c.us")
}

func seedConversation(store *fakeStore, score int) domain.Conversation {
	c := domain.NewConversation(uuid.New(), nil, "Awa Diallo", "+33612345678", "33612345678@c.us",
		"Montre connectée", 79.90, time.Now().UTC().Add(-time.Hour))
	c.ConfidenceScore = score
	store.put(c)
	return c
}

func TestProcessInboundConfirmsAndAcknowledges(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	engine := newTestEngine(t, store, &fakeGenerator{text: "ok"}, sender)
	conv := seedConversation(store, 45)

	result, err := engine.ProcessInbound(context.Background(), InboundMessage{
		ExternalMessageID: "wamid.1",
		ChannelAddress:    conv.ChannelAddress,
		Body:              "Je confirme la livraison",
	})
	if err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if !result.Confirmed {
		t.Fatal("expected confirmation")
	}
	if result.Conversation.ConfidenceScore != 75 {
		t.Fatalf("score = %d, want 75", result.Conversation.ConfidenceScore)
	}
	if result.Conversation.State != domain.StateConfirmed {
		t.Fatalf("state = %q, want confirmed", result.Conversation.State)
	}

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.sent))
	}
	if !strings.Contains(sender.sent[0], "confirmée") {
		t.Fatalf("expected confirmation wording, got %q", sender.sent[0])
	}
	if sender.addrs[0] != conv.ChannelAddress {
		t.Fatalf("sent to %q, want %q", sender.addrs[0], conv.ChannelAddress)
	}
}

func TestProcessInboundDuplicateIsNoOp(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	engine := newTestEngine(t, store, &fakeGenerator{text: "réponse"}, sender)
	conv := seedConversation(store, 50)

	msg := InboundMessage{ExternalMessageID: "wamid.dup", ChannelAddress: conv.ChannelAddress, Body: "Bonjour"}

	first, err := engine.ProcessInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if first.Duplicate {
		t.Fatal("first delivery must not be a duplicate")
	}

	second, err := engine.ProcessInbound(context.Background(), msg)
	if err != nil {
		t.Fatalf("second delivery: %v", err)
	}
	if !second.Duplicate {
		t.Fatal("second delivery must be flagged duplicate")
	}

	if got := len(store.messagesFor(conv.ID, domain.DirectionInbound)); got != 1 {
		t.Fatalf("stored %d inbound messages, want 1", got)
	}
	if score := second.Conversation.ConfidenceScore; score != first.Conversation.ConfidenceScore {
		t.Fatalf("duplicate changed the score: %d -> %d", first.Conversation.ConfidenceScore, score)
	}
}

func TestProcessInboundEscalatesOnNegativeLowScore(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	engine := newTestEngine(t, store, &fakeGenerator{text: "ok"}, sender)
	conv := seedConversation(store, 40)

	result, err := engine.ProcessInbound(context.Background(), InboundMessage{
		ExternalMessageID: "wamid.2",
		ChannelAddress:    conv.ChannelAddress,
		Body:              "C'est trop cher, je suis déçu",
	})
	if err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if !result.Escalated {
		t.Fatal("expected escalation")
	}
	if result.Conversation.ConfidenceScore != 15 {
		t.Fatalf("score = %d, want 15", result.Conversation.ConfidenceScore)
	}
	if result.Conversation.PersuasionLevel != 1 {
		t.Fatalf("persuasion level = %d, want 1", result.Conversation.PersuasionLevel)
	}
	if len(sender.sent) != 1 || !strings.Contains(sender.sent[0], "conseiller") {
		t.Fatalf("expected handoff wording, got %v", sender.sent)
	}
}

func TestProcessInboundGenerationFailureIsNonFatal(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	engine := newTestEngine(t, store, &fakeGenerator{err: errors.New("model overloaded")}, sender)
	conv := seedConversation(store, 50)

	result, err := engine.ProcessInbound(context.Background(), InboundMessage{
		ExternalMessageID: "wamid.3",
		ChannelAddress:    conv.ChannelAddress,
		Body:              "La livraison arrive quand ?",
	})
	if err != nil {
		t.Fatalf("generation failure must not fail the pipeline: %v", err)
	}

	// the decision is persisted even though no reply went out
	if result.Conversation.ConfidenceScore != 55 {
		t.Fatalf("score = %d, want 55", result.Conversation.ConfidenceScore)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("no message should be sent, got %v", sender.sent)
	}

	stored, _ := store.GetByID(context.Background(), conv.ID)
	if stored.ConfidenceScore != 55 {
		t.Fatalf("persisted score = %d, want 55", stored.ConfidenceScore)
	}
}

func TestProcessInboundUnknownSenderRejected(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, nil, nil)

	_, err := engine.ProcessInbound(context.Background(), InboundMessage{
		ExternalMessageID: "wamid.4",
		ChannelAddress:    "4915200000000@c.us",
		Body:              "Bonjour",
	})
	if err == nil {
		t.Fatal("expected error for unknown sender")
	}
}

func TestProcessInboundClosedConversationSkipsDecision(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	engine := newTestEngine(t, store, &fakeGenerator{text: "ok"}, sender)
	conv := seedConversation(store, 80)
	conv.State = domain.StateConfirmed
	store.put(conv)

	result, err := engine.ProcessInbound(context.Background(), InboundMessage{
		ExternalMessageID: "wamid.5",
		ChannelAddress:    conv.ChannelAddress,
		Body:              "Annulez tout",
	})
	if err != nil {
		t.Fatalf("ProcessInbound: %v", err)
	}

	if result.Conversation.State != domain.StateConfirmed {
		t.Fatalf("state changed on closed conversation: %q", result.Conversation.State)
	}
	if result.Conversation.ConfidenceScore != 80 {
		t.Fatalf("score changed on closed conversation: %d", result.Conversation.ConfidenceScore)
	}
	if len(sender.sent) != 0 {
		t.Fatal("no automated reply on closed conversations")
	}
}

func TestRelanceNowRespectsCap(t *testing.T) {
	store := newFakeStore()
	sender := &fakeSender{}
	engine := newTestEngine(t, store, nil, sender)
	conv := seedConversation(store, 50)

	for attempt := 1; attempt <= domain.MaxRelances; attempt++ {
		updated, err := engine.RelanceNow(context.Background(), conv.ID)
		if err != nil {
			t.Fatalf("relance %d: %v", attempt, err)
		}
		if updated.RelanceCount != attempt {
			t.Fatalf("relance count = %d, want %d", updated.RelanceCount, attempt)
		}
	}

	if _, err := engine.RelanceNow(context.Background(), conv.ID); err == nil {
		t.Fatal("fourth relance must be rejected")
	}
	if len(sender.sent) != domain.MaxRelances {
		t.Fatalf("sent %d relances, want %d", len(sender.sent), domain.MaxRelances)
	}
}

func TestEscalateClosesAutomation(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, nil, nil)
	conv := seedConversation(store, 50)

	updated, err := engine.Escalate(context.Background(), conv.ID, "client demande un humain")
	if err != nil {
		t.Fatalf("Escalate: %v", err)
	}
	if updated.State != domain.StateEscalated {
		t.Fatalf("state = %q, want escalated", updated.State)
	}

	if _, err := engine.Escalate(context.Background(), conv.ID, "encore"); err == nil {
		t.Fatal("escalating a closed conversation must fail")
	}
}

func TestCloseStopsAutomation(t *testing.T) {
	store := newFakeStore()
	engine := newTestEngine(t, store, nil, nil)
	conv := seedConversation(store, 50)

	updated, err := engine.Close(context.Background(), conv.ID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if updated.Active {
		t.Fatal("closed conversation must be inactive")
	}
	if updated.State != domain.StateCompleted {
		t.Fatalf("state = %q, want completed", updated.State)
	}
}
