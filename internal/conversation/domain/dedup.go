package domain

// processedIDCapacity bounds the per-conversation dedup window. The transport
// may redeliver webhook events, so each external message id is processed at
// most once while it remains inside the window.
const processedIDCapacity = 100

// MarkProcessed admits an external message id exactly once. It returns the
// unchanged snapshot and false when the id was already processed; otherwise a
// new snapshot with the id recorded (evicting the oldest entry beyond
// capacity) and true.
func MarkProcessed(c Conversation, externalMessageID string) (Conversation, bool) {
	if externalMessageID == "" {
		return c, true
	}

	for _, id := range c.ProcessedMessageIDs {
		if id == externalMessageID {
			return c, false
		}
	}

	ids := make([]string, 0, len(c.ProcessedMessageIDs)+1)
	ids = append(ids, c.ProcessedMessageIDs...)
	ids = append(ids, externalMessageID)
	if len(ids) > processedIDCapacity {
		ids = ids[len(ids)-processedIDCapacity:]
	}

	c.ProcessedMessageIDs = ids
	return c, true
}
