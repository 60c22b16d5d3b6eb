// Package transport defines the HTTP request and response shapes for the
// conversation module.
package transport

import (
	"time"

	"github.com/google/uuid"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/internal/conversation/repository"
)

// InboundMessagePayload is the body the messaging gateway posts on every
// incoming customer message.
type InboundMessagePayload struct {
	MessageID string `json:"message_id"`
	From      string `json:"from" binding:"required"`
	Body      string `json:"body" binding:"required"`
	Timestamp int64  `json:"timestamp"`
}

type CreateConversationRequest struct {
	WorkspaceID    uuid.UUID `json:"workspaceId" binding:"required"`
	OrderReference *string   `json:"orderReference"`
	CustomerName   string    `json:"customerName" binding:"required,min=2,max=200"`
	CustomerPhone  string    `json:"customerPhone" binding:"required,phone"`
	ProductName    string    `json:"productName" binding:"required,max=300"`
	ProductPrice   float64   `json:"productPrice" binding:"required,gt=0"`
}

type EscalateRequest struct {
	Reason string `json:"reason" binding:"required,min=3,max=500"`
}

type ListConversationsQuery struct {
	State  string `form:"state"`
	Active bool   `form:"active"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

type ConversationResponse struct {
	ID               uuid.UUID  `json:"id"`
	WorkspaceID      uuid.UUID  `json:"workspaceId"`
	OrderReference   *string    `json:"orderReference,omitempty"`
	CustomerName     string     `json:"customerName"`
	CustomerPhone    string     `json:"customerPhone"`
	ProductName      string     `json:"productName"`
	ProductPrice     float64    `json:"productPrice"`
	State            string     `json:"state"`
	ConfidenceScore  int        `json:"confidenceScore"`
	Sentiment        string     `json:"sentiment"`
	PersuasionLevel  int        `json:"persuasionLevel"`
	RefusalCount     int        `json:"refusalCount"`
	RelanceCount     int        `json:"relanceCount"`
	Active           bool       `json:"active"`
	EscalationReason *string    `json:"escalationReason,omitempty"`
	MessageCount     int        `json:"messageCount"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	LastInteraction  time.Time  `json:"lastInteractionAt"`
	ConfirmedAt      *time.Time `json:"confirmedAt,omitempty"`
	CancelledAt      *time.Time `json:"cancelledAt,omitempty"`
	EscalatedAt      *time.Time `json:"escalatedAt,omitempty"`
}

func ToConversationResponse(c domain.Conversation) ConversationResponse {
	return ConversationResponse{
		ID:               c.ID,
		WorkspaceID:      c.WorkspaceID,
		OrderReference:   c.OrderReference,
		CustomerName:     c.CustomerName,
		CustomerPhone:    c.CustomerPhone,
		ProductName:      c.ProductName,
		ProductPrice:     c.ProductPrice,
		State:            string(c.State),
		ConfidenceScore:  c.ConfidenceScore,
		Sentiment:        string(c.Sentiment),
		PersuasionLevel:  c.PersuasionLevel,
		RefusalCount:     c.RefusalCount,
		RelanceCount:     c.RelanceCount,
		Active:           c.Active,
		EscalationReason: c.EscalationReason,
		MessageCount:     c.Metadata.MessageCount,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		LastInteraction:  c.LastInteractionAt,
		ConfirmedAt:      c.ConfirmedAt,
		CancelledAt:      c.CancelledAt,
		EscalatedAt:      c.EscalatedAt,
	}
}

func ToConversationListResponse(items []domain.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ToConversationResponse(c))
	}
	return out
}

type MessageResponse struct {
	ID             uuid.UUID `json:"id"`
	Direction      string    `json:"direction"`
	Body           string    `json:"body"`
	Intent         *string   `json:"intent,omitempty"`
	Sentiment      *string   `json:"sentiment,omitempty"`
	DeliveryStatus string    `json:"deliveryStatus"`
	CreatedAt      time.Time `json:"createdAt"`
}

func ToMessageListResponse(items []domain.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(items))
	for _, m := range items {
		resp := MessageResponse{
			ID:             m.ID,
			Direction:      string(m.Direction),
			Body:           m.Body,
			DeliveryStatus: string(m.DeliveryStatus),
			CreatedAt:      m.CreatedAt,
		}
		if m.Intent != nil {
			v := string(*m.Intent)
			resp.Intent = &v
		}
		if m.Sentiment != nil {
			v := string(*m.Sentiment)
			resp.Sentiment = &v
		}
		out = append(out, resp)
	}
	return out
}

type WorkspaceStatsResponse struct {
	Total               int     `json:"total"`
	Active              int     `json:"active"`
	PendingConfirmation int     `json:"pendingConfirmation"`
	NegotiatingTime     int     `json:"negotiatingTime"`
	Confirmed           int     `json:"confirmed"`
	Cancelled           int     `json:"cancelled"`
	Completed           int     `json:"completed"`
	Escalated           int     `json:"escalated"`
	ConfirmationRate    float64 `json:"confirmationRate"`
	CancellationRate    float64 `json:"cancellationRate"`
	AvgConfidenceScore  float64 `json:"avgConfidenceScore"`
	RelancesSent        int     `json:"relancesSent"`
}

func ToWorkspaceStatsResponse(s repository.WorkspaceStats) WorkspaceStatsResponse {
	resp := WorkspaceStatsResponse{
		Total:               s.Total,
		Active:              s.Active,
		PendingConfirmation: s.PendingConfirmation,
		NegotiatingTime:     s.NegotiatingTime,
		Confirmed:           s.Confirmed,
		Cancelled:           s.Cancelled,
		Completed:           s.Completed,
		Escalated:           s.Escalated,
		AvgConfidenceScore:  s.AvgConfidenceScore,
		RelancesSent:        s.RelancesSent,
	}
	if s.Total > 0 {
		resp.ConfirmationRate = float64(s.Confirmed) / float64(s.Total)
		resp.CancellationRate = float64(s.Cancelled) / float64(s.Total)
	}
	return resp
}
