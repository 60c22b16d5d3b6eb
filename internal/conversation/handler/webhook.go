// Package handler exposes the conversation module over HTTP.
package handler

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salesagent_backend/internal/conversation/service"
	"salesagent_backend/internal/conversation/transport"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/httpkit"
	"salesagent_backend/platform/logger"
)

// processTimeout bounds the asynchronous handling of one webhook delivery,
// including classification, persistence, generation and the gateway send.
const processTimeout = 60 * time.Second

// APIKeyAuth guards the webhook endpoint with a shared secret. The gateway
// cannot do JWT, so it authenticates with a static header.
func APIKeyAuth(cfg config.WebhookConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader("X-Webhook-API-Key")
		expected := cfg.GetWebhookAPIKey()
		if provided == "" || subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			httpkit.Error(c, http.StatusUnauthorized, "invalid webhook api key", nil)
			c.Abort()
			return
		}
		c.Next()
	}
}

type WebhookHandler struct {
	engine *service.Engine
	log    *logger.Logger
}

func NewWebhookHandler(engine *service.Engine, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{engine: engine, log: log}
}

// HandleInboundMessage acknowledges the gateway immediately and processes the
// message in the background. The gateway retries on slow responses, so the
// decision pipeline must never run inside the request.
func (h *WebhookHandler) HandleInboundMessage(c *gin.Context) {
	var payload transport.InboundMessagePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid webhook payload", err.Error())
		return
	}

	// Cheap lookup so unknown senders get a 404 instead of a silent accept.
	if err := h.engine.ResolveChannel(c.Request.Context(), payload.From); err != nil {
		httpkit.HandleError(c, err)
		return
	}

	go h.process(payload)

	httpkit.JSON(c, http.StatusAccepted, gin.H{"status": "accepted"})
}

func (h *WebhookHandler) process(payload transport.InboundMessagePayload) {
	ctx, cancel := context.WithTimeout(context.Background(), processTimeout)
	defer cancel()

	_, err := h.engine.ProcessInbound(ctx, service.InboundMessage{
		ExternalMessageID: payload.MessageID,
		ChannelAddress:    payload.From,
		Body:              payload.Body,
	})
	if err != nil {
		h.log.Error("webhook message processing failed",
			"from", payload.From,
			"external_message_id", payload.MessageID,
			"error", err,
		)
	}
}
