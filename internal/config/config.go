package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Intent classifier selections.
const (
	ClassifierAI      = "ai"
	ClassifierKeyword = "keyword"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Origins allowed to call the API from the browser
	AllowedOrigins []string

	// Completion API (OpenRouter, OpenAI-compatible)
	CompletionAPIKey  string
	CompletionBaseURL string
	ChatModel         string
	IntentModel       string

	// Intent detection
	IntentClassifier        string  // "ai" or "keyword"
	FormConfidenceThreshold float64 // showForm requires confidence strictly above this

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	MaxConcurrency int

	// Conversation store; zero keeps conversations for the process lifetime
	ConversationTTL time.Duration

	// Catalog; empty uses the embedded catalog
	CatalogPath string

	// Email notification
	GmailUser        string
	GmailAppPassword string
	AdminEmail       string
	SMTPHost         string
	SMTPPort         int
	EmailTimeout     time.Duration

	// Observability; empty endpoint disables trace export
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		CompletionAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		CompletionBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		ChatModel:         getEnv("CHAT_MODEL", "deepseek/deepseek-chat-v3.1:free"),
		IntentModel:       getEnv("INTENT_MODEL", "deepseek/deepseek-chat-v3.1:free"),

		IntentClassifier:        strings.ToLower(getEnv("INTENT_CLASSIFIER", ClassifierAI)),
		FormConfidenceThreshold: getEnvFloat("FORM_CONFIDENCE_THRESHOLD", 0.6),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 1),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxBackoff:     getEnvDuration("MAX_BACKOFF", 2*time.Second),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 20),

		ConversationTTL: getEnvDuration("CONVERSATION_TTL", 0),

		CatalogPath: getEnv("CATALOG_PATH", ""),

		GmailUser:        getEnv("GMAIL_USER", ""),
		GmailAppPassword: getEnv("GMAIL_APP_PASSWORD", ""),
		AdminEmail:       getEnv("ADMIN_EMAIL", ""),
		SMTPHost:         getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		EmailTimeout:     getEnvDuration("EMAIL_TIMEOUT", 20*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

// EmailEnabled reports whether both outbound email credentials are present.
func (c *Config) EmailEnabled() bool {
	return c.GmailUser != "" && c.GmailAppPassword != ""
}

// NotificationRecipient is ADMIN_EMAIL, or the sending account when unset.
func (c *Config) NotificationRecipient() string {
	if c.AdminEmail != "" {
		return c.AdminEmail
	}
	return c.GmailUser
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
