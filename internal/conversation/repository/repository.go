// Package repository persists conversations and their transcripts in Postgres.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesagent_backend/internal/conversation/domain"
)

var ErrNotFound = errors.New("conversation not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const conversationColumns = `
	id, workspace_id, order_reference, customer_name, customer_phone, channel_address,
	product_name, product_price, state, confidence_score, sentiment, persuasion_level,
	refusal_count, relance_count, active, escalation_reason, processed_message_ids,
	message_count, client_message_count, agent_message_count, last_relance_at,
	created_at, updated_at, last_interaction_at, last_message_from_client,
	last_message_from_agent, confirmed_at, cancelled_at, escalated_at`

type CreateConversationParams struct {
	WorkspaceID    uuid.UUID
	OrderReference *string
	CustomerName   string
	CustomerPhone  string
	ChannelAddress string
	ProductName    string
	ProductPrice   float64
}

// Create inserts a fresh conversation. If an active conversation already
// exists for the same workspace and channel address, that one is returned
// instead; the partial unique index makes this safe under concurrent inserts.
func (r *Repository) Create(ctx context.Context, params CreateConversationParams) (domain.Conversation, error) {
	now := time.Now().UTC()
	c := domain.NewConversation(params.WorkspaceID, params.OrderReference, params.CustomerName,
		params.CustomerPhone, params.ChannelAddress, params.ProductName, params.ProductPrice, now)

	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (
			id, workspace_id, order_reference, customer_name, customer_phone, channel_address,
			product_name, product_price, state, confidence_score, sentiment, active,
			created_at, updated_at, last_interaction_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13, $13)
		ON CONFLICT (workspace_id, channel_address) WHERE active DO NOTHING
		RETURNING `+conversationColumns,
		c.ID, c.WorkspaceID, c.OrderReference, c.CustomerName, c.CustomerPhone, c.ChannelAddress,
		c.ProductName, c.ProductPrice, c.State, c.ConfidenceScore, c.Sentiment, c.Active, now,
	)

	created, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetActiveByChannelAddress(ctx, params.ChannelAddress)
	}
	return created, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	c, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrNotFound
	}
	return c, err
}

// GetActiveByChannelAddress resolves the conversation an inbound message
// belongs to. Only one active conversation exists per channel address.
func (r *Repository) GetActiveByChannelAddress(ctx context.Context, channelAddress string) (domain.Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE channel_address = $1 AND active = true
		ORDER BY created_at DESC
		LIMIT 1
	`, channelAddress)
	c, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, ErrNotFound
	}
	return c, err
}

// UpdateDecision persists the mutable part of a snapshot after the engine has
// applied a message or an operator action.
func (r *Repository) UpdateDecision(ctx context.Context, c domain.Conversation) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET
			state = $2, confidence_score = $3, sentiment = $4, persuasion_level = $5,
			refusal_count = $6, relance_count = $7, active = $8, escalation_reason = $9,
			processed_message_ids = $10, message_count = $11, client_message_count = $12,
			agent_message_count = $13, last_relance_at = $14, updated_at = $15,
			last_interaction_at = $16, last_message_from_client = $17,
			last_message_from_agent = $18, confirmed_at = $19, cancelled_at = $20,
			escalated_at = $21
		WHERE id = $1
	`, c.ID, c.State, c.ConfidenceScore, c.Sentiment, c.PersuasionLevel,
		c.RefusalCount, c.RelanceCount, c.Active, c.EscalationReason,
		c.ProcessedMessageIDs, c.Metadata.MessageCount, c.Metadata.ClientMessageCount,
		c.Metadata.AgentMessageCount, c.Metadata.LastRelanceAt, c.UpdatedAt,
		c.LastInteractionAt, c.LastMessageFromClient, c.LastMessageFromAgent,
		c.ConfirmedAt, c.CancelledAt, c.EscalatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRelanceCandidates prefilters conversations that could be due for a
// follow-up. The exact per-attempt delay is checked by the caller; the query
// only skips conversations that cannot possibly qualify.
func (r *Repository) ListRelanceCandidates(ctx context.Context, now time.Time, limit int) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE active = true
		  AND state NOT IN ('confirmed', 'cancelled')
		  AND relance_count < $1
		  AND last_interaction_at <= $2
		ORDER BY last_interaction_at ASC
		LIMIT $3
	`, domain.MaxRelances, now.Add(-30*time.Minute), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectConversations(rows)
}

// IncrementRelance records a sent follow-up. The expected count makes the
// update conditional: a concurrent inbound message or a duplicate task run
// changes the count and the update silently matches nothing, which the caller
// treats as "skip".
func (r *Repository) IncrementRelance(ctx context.Context, id uuid.UUID, expectedCount int, now time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET
			relance_count = relance_count + 1,
			message_count = message_count + 1,
			agent_message_count = agent_message_count + 1,
			last_relance_at = $3,
			last_message_from_agent = $3,
			last_interaction_at = $3,
			updated_at = $3
		WHERE id = $1 AND relance_count = $2 AND active = true
	`, id, expectedCount, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeactivateStale flips abandoned conversations to inactive and returns how
// many were reaped. Running it twice in a row is a no-op.
func (r *Repository) DeactivateStale(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET active = false, updated_at = $1
		WHERE active = true
		  AND (last_interaction_at <= $2 OR relance_count >= $3)
	`, now, now.Add(-24*time.Hour), domain.MaxRelances)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

type ListConversationsParams struct {
	WorkspaceID uuid.UUID
	State       *domain.State
	ActiveOnly  bool
	Limit       int
	Offset      int
}

func (r *Repository) List(ctx context.Context, params ListConversationsParams) ([]domain.Conversation, error) {
	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE workspace_id = $1
		  AND ($2::text IS NULL OR state = $2)
		  AND ($3::bool = false OR active = true)
		ORDER BY last_interaction_at DESC
		LIMIT $4 OFFSET $5
	`, params.WorkspaceID, params.State, params.ActiveOnly, limit, params.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectConversations(rows)
}

func scanConversation(row pgx.Row) (domain.Conversation, error) {
	var c domain.Conversation
	err := row.Scan(
		&c.ID, &c.WorkspaceID, &c.OrderReference, &c.CustomerName, &c.CustomerPhone, &c.ChannelAddress,
		&c.ProductName, &c.ProductPrice, &c.State, &c.ConfidenceScore, &c.Sentiment, &c.PersuasionLevel,
		&c.RefusalCount, &c.RelanceCount, &c.Active, &c.EscalationReason, &c.ProcessedMessageIDs,
		&c.Metadata.MessageCount, &c.Metadata.ClientMessageCount, &c.Metadata.AgentMessageCount,
		&c.Metadata.LastRelanceAt, &c.CreatedAt, &c.UpdatedAt, &c.LastInteractionAt,
		&c.LastMessageFromClient, &c.LastMessageFromAgent, &c.ConfirmedAt, &c.CancelledAt, &c.EscalatedAt,
	)
	return c, err
}

func collectConversations(rows pgx.Rows) ([]domain.Conversation, error) {
	items := make([]domain.Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return items, nil
}
