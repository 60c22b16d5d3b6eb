package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"salesagent_backend/internal/conversation/domain"
	"salesagent_backend/internal/conversation/repository"
	"salesagent_backend/internal/conversation/service"
	"salesagent_backend/internal/conversation/transport"
	"salesagent_backend/platform/httpkit"
	"salesagent_backend/platform/logger"
)

type ConversationHandler struct {
	engine *service.Engine
	log    *logger.Logger
}

func NewConversationHandler(engine *service.Engine, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{engine: engine, log: log}
}

func (h *ConversationHandler) Create(c *gin.Context) {
	var req transport.CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	conv, err := h.engine.CreateConversation(c.Request.Context(), service.CreateConversationInput{
		WorkspaceID:    req.WorkspaceID,
		OrderReference: req.OrderReference,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		ProductName:    req.ProductName,
		ProductPrice:   req.ProductPrice,
	})
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, transport.ToConversationResponse(conv))
}

func (h *ConversationHandler) Get(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	conv, err := h.engine.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToConversationResponse(conv))
}

func (h *ConversationHandler) List(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Query("workspaceId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "workspaceId query parameter is required", nil)
		return
	}

	var query transport.ListConversationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid query parameters", err.Error())
		return
	}

	params := repository.ListConversationsParams{
		WorkspaceID: workspaceID,
		ActiveOnly:  query.Active,
		Limit:       query.Limit,
		Offset:      query.Offset,
	}
	if query.State != "" {
		state := domain.State(query.State)
		params.State = &state
	}

	items, err := h.engine.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"conversations": transport.ToConversationListResponse(items)})
}

func (h *ConversationHandler) History(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	messages, err := h.engine.History(c.Request.Context(), id, 50)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"messages": transport.ToMessageListResponse(messages)})
}

func (h *ConversationHandler) Close(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	conv, err := h.engine.Close(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToConversationResponse(conv))
}

func (h *ConversationHandler) Escalate(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	var req transport.EscalateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	conv, err := h.engine.Escalate(c.Request.Context(), id, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToConversationResponse(conv))
}

func (h *ConversationHandler) RelanceNow(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}

	conv, err := h.engine.RelanceNow(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToConversationResponse(conv))
}

func (h *ConversationHandler) WorkspaceStats(c *gin.Context) {
	workspaceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid workspace id", nil)
		return
	}

	to := time.Now().UTC()
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "from must be an RFC 3339 timestamp", nil)
			return
		}
		from = parsed
	}
	if raw := c.Query("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "to must be an RFC 3339 timestamp", nil)
			return
		}
		to = parsed
	}

	stats, err := h.engine.Stats(c.Request.Context(), workspaceID, from, to)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToWorkspaceStatsResponse(stats))
}

func (h *ConversationHandler) pathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid conversation id", nil)
		return uuid.Nil, false
	}
	return id, true
}
