package service

import (
	"fmt"

	"salesagent_backend/internal/conversation/domain"
)

// RelanceMessage builds the follow-up wording for a given attempt (1-based).
// Follow-ups are deterministic: they go out on a schedule, not in reaction to
// a customer message, so there is nothing for the generator to react to.
func RelanceMessage(conv domain.Conversation, attempt int) string {
	name := firstName(conv.CustomerName)

	switch attempt {
	case 1:
		return fmt.Sprintf("Bonjour %s, avez-vous eu le temps de réfléchir à votre commande (%s) ? Je reste disponible si vous avez la moindre question.", name, conv.ProductName)
	case 2:
		return fmt.Sprintf("Bonjour %s, je me permets de revenir vers vous : votre commande (%s) est toujours réservée. Souhaitez-vous que nous programmions la livraison ?", name, conv.ProductName)
	default:
		return fmt.Sprintf("Bonjour %s, dernière relance de ma part : sans réponse de votre côté, je devrai libérer votre commande (%s). Un simple « je confirme » suffit pour valider la livraison.", name, conv.ProductName)
	}
}
