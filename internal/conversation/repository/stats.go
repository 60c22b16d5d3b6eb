package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// WorkspaceStats aggregates conversation outcomes for one workspace over a
// time window.
type WorkspaceStats struct {
	Total               int
	Active              int
	PendingConfirmation int
	NegotiatingTime     int
	Confirmed           int
	Cancelled           int
	Completed           int
	Escalated           int
	AvgConfidenceScore  float64
	RelancesSent        int
}

func (r *Repository) Stats(ctx context.Context, workspaceID uuid.UUID, from, to time.Time) (WorkspaceStats, error) {
	var s WorkspaceStats
	err := r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE active),
			COUNT(*) FILTER (WHERE state = 'pending_confirmation'),
			COUNT(*) FILTER (WHERE state = 'negotiating_time'),
			COUNT(*) FILTER (WHERE state = 'confirmed'),
			COUNT(*) FILTER (WHERE state = 'cancelled'),
			COUNT(*) FILTER (WHERE state = 'completed'),
			COUNT(*) FILTER (WHERE state = 'escalated'),
			COALESCE(AVG(confidence_score), 0),
			COALESCE(SUM(relance_count), 0)
		FROM conversations
		WHERE workspace_id = $1 AND created_at >= $2 AND created_at < $3
	`, workspaceID, from, to).Scan(
		&s.Total, &s.Active, &s.PendingConfirmation, &s.NegotiatingTime,
		&s.Confirmed, &s.Cancelled, &s.Completed, &s.Escalated,
		&s.AvgConfidenceScore, &s.RelancesSent,
	)
	return s, err
}
