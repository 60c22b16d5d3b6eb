// Package whatsapp implements the messaging-gateway client. Outbound text
// leaves the system only through this client.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"salesagent_backend/platform/config"
	"salesagent_backend/platform/logger"

	"golang.org/x/time/rate"
)

// Client talks to a gowa-style WhatsApp HTTP gateway. A nil Client is safe to
// call and reports sends as failed; this keeps local development usable
// without a gateway.
type Client struct {
	baseURL  string
	apiKey   string
	deviceID string
	http     *http.Client
	limiter  *rate.Limiter
	log      *logger.Logger
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

type sendResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Results struct {
		MessageID string `json:"message_id"`
	} `json:"results"`
}

// NewClient builds the gateway client. Returns nil when no gateway URL is
// configured.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	if cfg.GetWhatsAppURL() == "" {
		return nil
	}

	perMinute := cfg.GetSendRatePerMinute()
	if perMinute < 1 {
		perMinute = 20
	}

	return &Client{
		baseURL:  strings.TrimRight(cfg.GetWhatsAppURL(), "/"),
		apiKey:   cfg.GetWhatsAppKey(),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), 1),
		log:      log,
	}
}

// SendMessage delivers text to a channel address and returns the gateway's
// message id. Sends are paced by a shared limiter so batch follow-ups do not
// exceed the gateway's rate limits.
func (c *Client) SendMessage(ctx context.Context, channelAddress string, message string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("whatsapp gateway is not configured")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", err
	}

	payload := sendRequest{
		Phone:   channelAddress,
		Message: message,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	url := fmt.Sprintf("%s/send/message", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", formatAuthHeader(c.apiKey))
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("whatsapp service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode whatsapp response: %w", err)
	}

	c.log.Info("whatsapp sent via gowa", "channel", channelAddress)
	return decoded.Results.MessageID, nil
}

func formatAuthHeader(apiKey string) string {
	if strings.HasPrefix(strings.ToLower(apiKey), "basic ") {
		return apiKey
	}

	encoded := base64.StdEncoding.EncodeToString([]byte(apiKey))
	return "Basic " + encoded
}
