package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"salesagent_backend/platform/logger"
)

func TestWorkspaceStatsRejectsBadTimestamps(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewConversationHandler(nil, logger.New("development"))
	r := gin.New()
	r.GET("/workspaces/:id/stats", h.WorkspaceStats)

	workspaceID := uuid.New().String()

	tests := []struct {
		name  string
		query string
	}{
		{"bad from", "?from=yesterday"},
		{"bad to", "?to=2026-13-99"},
		{"date only from", "?from=2026-08-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/workspaces/"+workspaceID+"/stats"+tt.query, nil)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
