package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds the environment driven configuration for the handover service.
type Config struct {
	// Service Configuration
	ServiceName      string        `env:"SERVICE_NAME" envDefault:"handover-api"`
	ServiceNamespace string        `env:"SERVICE_NAMESPACE" envDefault:"livechat"`
	Environment      string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort         int           `env:"HTTP_PORT" envDefault:"8380"`
	LogLevel         string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string        `env:"LOG_FORMAT" envDefault:"console"`
	ShutdownTimeout  time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	OTLPEndpoint     string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPHeaders      string        `env:"OTEL_EXPORTER_OTLP_HEADERS"`

	// Database
	DatabaseURL    string        `env:"DATABASE_URL,notEmpty"`
	DBMaxIdleConns int           `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBMaxOpenConns int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBConnLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
	AutoMigrate    bool          `env:"AUTO_MIGRATE" envDefault:"true"`

	// Twilio messaging (WhatsApp + SMS share the same account)
	TwilioBaseURL      string        `env:"TWILIO_BASE_URL" envDefault:"https://api.twilio.com"`
	TwilioAccountSID   string        `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken    string        `env:"TWILIO_AUTH_TOKEN"`
	TwilioWhatsAppFrom string        `env:"TWILIO_WHATSAPP_FROM"`
	TwilioSMSFrom      string        `env:"TWILIO_SMS_FROM"`
	TwilioContentSID   string        `env:"TWILIO_HANDOVER_CONTENT_SID"`
	MessagingTimeout   time.Duration `env:"MESSAGING_TIMEOUT" envDefault:"15s"`

	// Outbound email
	MailBaseURL     string        `env:"MAIL_API_BASE_URL" envDefault:"https://graph.microsoft.com/v1.0"`
	MailAccessToken string        `env:"MAIL_ACCESS_TOKEN"`
	MailFromAddress string        `env:"MAIL_FROM_ADDRESS"`
	MailTimeout     time.Duration `env:"MAIL_TIMEOUT" envDefault:"15s"`

	// Webhook delivery
	WebhookTimeout      time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"10s"`
	WebhookMaxRedirects int           `env:"WEBHOOK_MAX_REDIRECTS" envDefault:"3"`
	WebhookMaxRetries   int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`

	// Handover policy. The busy window bounds how long a notified WhatsApp
	// handover keeps the agent "occupied" for other conversations of the
	// same client when multiple chats are disabled.
	WhatsAppBusyWindow time.Duration `env:"WHATSAPP_BUSY_WINDOW" envDefault:"1h"`

	// Portal URL used in agent-facing notification links.
	PortalConversationsURL string `env:"PORTAL_CONVERSATIONS_URL" envDefault:"https://portal.livechat.local/app/chat-conversations"`
}

// Load parses environment variables into Config and performs minimal validation.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	cfg.TwilioAccountSID = strings.TrimSpace(cfg.TwilioAccountSID)
	cfg.TwilioAuthToken = strings.TrimSpace(cfg.TwilioAuthToken)
	cfg.MailFromAddress = strings.TrimSpace(cfg.MailFromAddress)

	if cfg.WebhookMaxRedirects < 0 {
		return nil, fmt.Errorf("WEBHOOK_MAX_REDIRECTS must not be negative")
	}
	if cfg.WebhookMaxRetries < 0 {
		return nil, fmt.Errorf("WEBHOOK_MAX_RETRIES must not be negative")
	}
	if cfg.WhatsAppBusyWindow <= 0 {
		return nil, fmt.Errorf("WHATSAPP_BUSY_WINDOW must be positive")
	}

	return cfg, nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// MessagingConfigured reports whether the Twilio credentials are present.
func (c *Config) MessagingConfigured() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != ""
}

// MailConfigured reports whether the outbound email sender is usable.
func (c *Config) MailConfigured() bool {
	return c.MailAccessToken != "" && c.MailFromAddress != ""
}
