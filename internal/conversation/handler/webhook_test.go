package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type webhookCfg string

func (c webhookCfg) GetWebhookAPIKey() string { return string(c) }

func newAPIKeyRouter(key string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhook/messages", APIKeyAuth(webhookCfg(key)), func(c *gin.Context) {
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	})
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	router := newAPIKeyRouter("s3cret")

	tests := []struct {
		name       string
		key        string
		wantStatus int
	}{
		{"valid key", "s3cret", http.StatusAccepted},
		{"wrong key", "nope", http.StatusUnauthorized},
		{"missing key", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook/messages", strings.NewReader(`{}`))
			if tt.key != "" {
				req.Header.Set("X-Webhook-API-Key", tt.key)
			}

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
