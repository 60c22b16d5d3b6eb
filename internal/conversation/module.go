// Package conversation wires the decision engine into the HTTP server.
package conversation

import (
	"salesagent_backend/internal/conversation/handler"
	"salesagent_backend/internal/conversation/service"
	internalhttp "salesagent_backend/internal/http"
	"salesagent_backend/platform/config"
	"salesagent_backend/platform/logger"
)

type Module struct {
	conversations *handler.ConversationHandler
	webhook       *handler.WebhookHandler
	webhookCfg    config.WebhookConfig
}

func NewModule(engine *service.Engine, webhookCfg config.WebhookConfig, log *logger.Logger) *Module {
	return &Module{
		conversations: handler.NewConversationHandler(engine, log),
		webhook:       handler.NewWebhookHandler(engine, log),
		webhookCfg:    webhookCfg,
	}
}

func (m *Module) Name() string { return "conversation" }

func (m *Module) RegisterRoutes(rc *internalhttp.RouterContext) {
	webhook := rc.V1.Group("/webhook")
	webhook.Use(handler.APIKeyAuth(m.webhookCfg))
	webhook.POST("/messages", m.webhook.HandleInboundMessage)

	conversations := rc.Protected.Group("/conversations")
	conversations.POST("", m.conversations.Create)
	conversations.GET("", m.conversations.List)
	conversations.GET("/:id", m.conversations.Get)
	conversations.GET("/:id/messages", m.conversations.History)
	conversations.POST("/:id/close", m.conversations.Close)
	conversations.POST("/:id/escalate", m.conversations.Escalate)
	conversations.POST("/:id/relance", m.conversations.RelanceNow)

	rc.Protected.GET("/workspaces/:id/stats", m.conversations.WorkspaceStats)
}
