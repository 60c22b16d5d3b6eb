package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"salesagent_backend/internal/conversation/domain"
)

// CreateMessage appends one transcript entry.
func (r *Repository) CreateMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO messages (
			id, conversation_id, direction, body, external_id, intent, sentiment,
			delivery_status, generation, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.ConversationID, m.Direction, m.Body, m.ExternalID, m.Intent, m.Sentiment,
		m.DeliveryStatus, m.Generation, m.CreatedAt)
	if err != nil {
		return domain.Message{}, err
	}
	return m, nil
}

// ListRecentMessages returns the newest entries of a transcript in
// chronological order.
func (r *Repository) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]domain.Message, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, conversation_id, direction, body, external_id, intent, sentiment,
			delivery_status, generation, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Message, 0, limit)
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Direction, &m.Body, &m.ExternalID,
			&m.Intent, &m.Sentiment, &m.DeliveryStatus, &m.Generation, &m.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	// reverse: query is newest-first, callers want reading order
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, nil
}

// UpdateMessageDelivery records the gateway outcome for an outbound message.
func (r *Repository) UpdateMessageDelivery(ctx context.Context, id uuid.UUID, status domain.DeliveryStatus, externalID *string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE messages SET delivery_status = $2, external_id = COALESCE($3, external_id)
		WHERE id = $1
	`, id, status, externalID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
