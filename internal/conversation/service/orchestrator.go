package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/platform/ai/gemini"
	"salesagent_backend/platform/logger"
)

// TextGenerator produces outbound wording from a system and user context.
type TextGenerator interface {
	Generate(ctx context.Context, systemContext, userContext string) (gemini.Result, error)
}

// MessageSender delivers a message to a channel address and returns the
// gateway message id.
type MessageSender interface {
	SendMessage(ctx context.Context, channelAddress, message string) (string, error)
}

// historyWindow is how many transcript entries feed the generator.
const historyWindow = 10

// persuasionArguments holds escalating counter-argument material per level.
// Level 1 reassures, level 2 adds urgency, level 3 makes the final push.
var persuasionArguments = map[int][]string{
	1: {
		"Le paiement se fait uniquement à la livraison, vous ne payez rien avant d'avoir le produit en main.",
		"Vous pouvez inspecter le produit devant le livreur avant de payer.",
		"La livraison est offerte, il n'y a aucun frais caché.",
	},
	2: {
		"Il ne reste que quelques exemplaires en stock à ce prix.",
		"Cette offre est valable uniquement cette semaine.",
		"Le livreur passe déjà dans votre quartier demain, c'est le moment idéal.",
	},
	3: {
		"Je peux exceptionnellement vous offrir un petit cadeau avec votre commande si vous confirmez aujourd'hui.",
		"Des dizaines de clients dans votre ville ont déjà reçu ce produit et en sont satisfaits.",
		"C'est ma dernière proposition, après cela je devrai libérer votre commande pour un autre client.",
	},
}

// Orchestrator assembles conversation context and produces the outbound reply.
// Generation and delivery failures are reported to the caller but never block
// the decision pipeline.
type Orchestrator struct {
	store     Store
	generator TextGenerator
	sender    MessageSender
	log       *logger.Logger
	now       func() time.Time
	pick      func(n int) int
}

func NewOrchestrator(store Store, generator TextGenerator, sender MessageSender, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		generator: generator,
		sender:    sender,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		pick:      rand.IntN,
	}
}

// Respond produces and delivers the automated reply for an applied message.
// Terminal transitions get a deterministic wording; everything else goes
// through the text generator.
func (o *Orchestrator) Respond(ctx context.Context, conv domain.Conversation, transition domain.Transition) error {
	if o.sender == nil {
		o.log.Debug("no message sender configured, skipping response")
		return nil
	}

	var body string
	var generation *domain.Generation

	switch {
	case transition.Confirmed:
		body = confirmationMessage(conv)
	case transition.Escalated:
		body = escalationMessage(conv)
	default:
		if o.generator == nil {
			o.log.Debug("no text generator configured, skipping response")
			return nil
		}
		result, err := o.generator.Generate(ctx, o.systemContext(conv), o.userContext(ctx, conv))
		if err != nil {
			return fmt.Errorf("generate reply: %w", err)
		}
		body = personalize(result.Text, conv.CustomerName)
		generation = &domain.Generation{
			Model:      result.Model,
			TokenCount: result.TokenCount,
			LatencyMS:  result.Latency.Milliseconds(),
		}
	}

	if _, err := o.Deliver(ctx, conv, body, generation); err != nil {
		return err
	}

	now := o.now()
	conv = domain.RecordAgentMessage(conv, now)
	if err := o.store.UpdateDecision(ctx, conv); err != nil {
		return fmt.Errorf("persist agent message counters: %w", err)
	}
	return nil
}

// Deliver persists an outbound transcript entry and sends it through the
// gateway. The conversation row itself is left untouched; callers own the
// counter update that fits their flow.
func (o *Orchestrator) Deliver(ctx context.Context, conv domain.Conversation, body string, generation *domain.Generation) (domain.Message, error) {
	if o.sender == nil {
		return domain.Message{}, fmt.Errorf("message sender is not configured")
	}

	msg, err := o.store.CreateMessage(ctx, domain.Message{
		ConversationID: conv.ID,
		Direction:      domain.DirectionOutbound,
		Body:           body,
		Generation:     generation,
		DeliveryStatus: domain.DeliveryPending,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("store outbound message: %w", err)
	}

	externalID, err := o.sender.SendMessage(ctx, conv.ChannelAddress, body)
	if err != nil {
		o.log.GatewayError(conv.ChannelAddress, err)
		if updateErr := o.store.UpdateMessageDelivery(ctx, msg.ID, domain.DeliveryFailed, nil); updateErr != nil {
			o.log.Error("failed to mark message as failed", "error", updateErr)
		}
		return domain.Message{}, fmt.Errorf("send message: %w", err)
	}

	var extPtr *string
	if externalID != "" {
		extPtr = &externalID
	}
	if err := o.store.UpdateMessageDelivery(ctx, msg.ID, domain.DeliverySent, extPtr); err != nil {
		o.log.Error("failed to mark message as sent", "error", err)
	}

	msg.DeliveryStatus = domain.DeliverySent
	msg.ExternalID = extPtr
	return msg, nil
}

func (o *Orchestrator) systemContext(conv domain.Conversation) string {
	var b strings.Builder
	b.WriteString("Tu es un agent commercial qui confirme des livraisons par WhatsApp. ")
	b.WriteString("Réponds en français, en une ou deux phrases courtes, sur un ton chaleureux et professionnel. ")
	b.WriteString("Ton objectif est d'amener le client à confirmer la livraison de sa commande.\n\n")

	fmt.Fprintf(&b, "Client : %s\n", conv.CustomerName)
	fmt.Fprintf(&b, "Produit : %s\n", conv.ProductName)
	fmt.Fprintf(&b, "Prix : %.2f\n", conv.ProductPrice)
	if conv.OrderReference != nil {
		fmt.Fprintf(&b, "Référence commande : %s\n", *conv.OrderReference)
	}
	fmt.Fprintf(&b, "Étape de la conversation : %s\n", conv.State)
	fmt.Fprintf(&b, "Score de confiance : %d/100\n", conv.ConfidenceScore)

	if arg := o.persuasionArgument(conv.PersuasionLevel); arg != "" {
		b.WriteString("\nLe client hésite. Intègre naturellement cet argument dans ta réponse : ")
		b.WriteString(arg)
		b.WriteString("\n")
	}

	return b.String()
}

func (o *Orchestrator) userContext(ctx context.Context, conv domain.Conversation) string {
	history, err := o.store.ListRecentMessages(ctx, conv.ID, historyWindow)
	if err != nil {
		o.log.Error("failed to load transcript for generation", "error", err)
		return "Réponds au dernier message du client."
	}

	var b strings.Builder
	b.WriteString("Historique de la conversation :\n")
	for _, m := range history {
		speaker := "Agent"
		if m.Direction == domain.DirectionInbound {
			speaker = "Client"
		}
		fmt.Fprintf(&b, "%s : %s\n", speaker, m.Body)
	}
	b.WriteString("\nÉcris la prochaine réponse de l'agent.")
	return b.String()
}

func (o *Orchestrator) persuasionArgument(level int) string {
	args, ok := persuasionArguments[level]
	if !ok || len(args) == 0 {
		return ""
	}
	return args[o.pick(len(args))]
}

func confirmationMessage(conv domain.Conversation) string {
	return fmt.Sprintf("Parfait %s ! Votre commande (%s) est confirmée. Le livreur vous contactera avant son passage. Merci de votre confiance ! 🙏", firstName(conv.CustomerName), conv.ProductName)
}

func escalationMessage(conv domain.Conversation) string {
	return fmt.Sprintf("Je comprends %s. Un conseiller va prendre le relais et vous recontacter très rapidement pour trouver une solution.", firstName(conv.CustomerName))
}

// personalize prefixes the customer's first name when the generated text
// left it out entirely.
func personalize(text, fullName string) string {
	name := firstName(fullName)
	if strings.Contains(strings.ToLower(text), strings.ToLower(name)) {
		return text
	}
	return name + ", " + text
}

// firstName keeps messages personal without dumping the full legal name in
// every sentence.
func firstName(fullName string) string {
	fields := strings.Fields(strings.TrimSpace(fullName))
	if len(fields) == 0 {
		return "cher client"
	}
	return fields[0]
}
