// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// WebhookConfig provides settings for inbound webhook authentication.
type WebhookConfig interface {
	GetWebhookAPIKey() string
}

// WhatsAppConfig provides settings for the WhatsApp gateway client.
type WhatsAppConfig interface {
	GetWhatsAppURL() string
	GetWhatsAppKey() string
	GetWhatsAppDeviceID() string
	GetChannelSuffix() string
	GetSendRatePerMinute() int
}

// GeminiConfig provides settings for the text-generation collaborator.
type GeminiConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetGenerateTimeout() time.Duration
}

// SchedulerConfig provides settings for the background scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetRelanceDispatchInterval() time.Duration
	GetRelanceSendSpacing() time.Duration
	GetReaperInterval() time.Duration
}

// AlertConfig provides settings for operator escalation alerts.
type AlertConfig interface {
	GetOperatorAlertPhone() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                     string
	HTTPAddr                string
	DatabaseURL             string
	JWTAccessSecret         string
	CORSAllowAll            bool
	CORSOrigins             []string
	CORSAllowCreds          bool
	WebhookAPIKey           string
	WhatsAppURL             string
	WhatsAppKey             string
	WhatsAppDeviceID        string
	ChannelSuffix           string
	SendRatePerMinute       int
	OperatorAlertPhone      string
	GeminiAPIKey            string
	GeminiModel             string
	GenerateTimeout         time.Duration
	RedisURL                string
	RedisTLSInsecure        bool
	AsynqQueueName          string
	AsynqConcurrency        int
	RelanceDispatchInterval time.Duration
	RelanceSendSpacing      time.Duration
	ReaperInterval          time.Duration
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// WebhookConfig implementation
func (c *Config) GetWebhookAPIKey() string { return c.WebhookAPIKey }

// WhatsAppConfig implementation
func (c *Config) GetWhatsAppURL() string      { return c.WhatsAppURL }
func (c *Config) GetWhatsAppKey() string      { return c.WhatsAppKey }
func (c *Config) GetWhatsAppDeviceID() string { return c.WhatsAppDeviceID }
func (c *Config) GetChannelSuffix() string    { return c.ChannelSuffix }
func (c *Config) GetSendRatePerMinute() int   { return c.SendRatePerMinute }

// GeminiConfig implementation
func (c *Config) GetGeminiAPIKey() string          { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string           { return c.GeminiModel }
func (c *Config) GetGenerateTimeout() time.Duration { return c.GenerateTimeout }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string          { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool    { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string    { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int     { return c.AsynqConcurrency }
func (c *Config) GetRelanceDispatchInterval() time.Duration {
	return c.RelanceDispatchInterval
}
func (c *Config) GetRelanceSendSpacing() time.Duration { return c.RelanceSendSpacing }
func (c *Config) GetReaperInterval() time.Duration     { return c.ReaperInterval }

// AlertConfig implementation
func (c *Config) GetOperatorAlertPhone() string { return c.OperatorAlertPhone }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                     getEnv("APP_ENV", "development"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		JWTAccessSecret:         getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:            corsAllowAll,
		CORSOrigins:             corsOrigins,
		CORSAllowCreds:          strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		WebhookAPIKey:           getEnv("WEBHOOK_API_KEY", ""),
		WhatsAppURL:             getEnv("WHATSAPP_URL", ""),
		WhatsAppKey:             getEnv("WHATSAPP_KEY", ""),
		WhatsAppDeviceID:        getEnv("WHATSAPP_DEVICE_ID", ""),
		ChannelSuffix:           getEnv("WHATSAPP_CHANNEL_SUFFIX", "@c.us"),
		SendRatePerMinute:       mustInt(getEnv("WHATSAPP_SEND_RATE_PER_MINUTE", "20")),
		OperatorAlertPhone:      getEnv("OPERATOR_ALERT_PHONE", ""),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GeminiModel:             getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GenerateTimeout:         mustDuration(getEnv("GENERATE_TIMEOUT", "30s")),
		RedisURL:                getEnv("REDIS_URL", ""),
		RedisTLSInsecure:        strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:          getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:        mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		RelanceDispatchInterval: mustDuration(getEnv("RELANCE_DISPATCH_INTERVAL", "30s")),
		RelanceSendSpacing:      mustDuration(getEnv("RELANCE_SEND_SPACING", "5s")),
		ReaperInterval:          mustDuration(getEnv("REAPER_INTERVAL", "10m")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.WebhookAPIKey == "" {
		return nil, fmt.Errorf("WEBHOOK_API_KEY is required")
	}
	if cfg.GenerateTimeout <= 0 {
		return nil, fmt.Errorf("GENERATE_TIMEOUT must be a positive duration")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
