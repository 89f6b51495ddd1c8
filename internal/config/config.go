package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"slacksum/internal/models"
)

// Config holds all application configuration
type Config struct {
	Port           string
	MongoURI       string
	RedisURL       string
	AppURL         string // Public base URL, used for OAuth redirects
	AllowedOrigins string

	// Slack OAuth configuration
	SlackClientID     string
	SlackClientSecret string

	// Summarization agent configuration
	AgentAPIURL string // Empty disables the agent; the local fallback summary is used
	AgentAPIKey string // Shared secret for the agent-facing push endpoint

	// Web Push (VAPID) configuration
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	VAPIDSubscriber string // mailto: contact required by the push spec

	// Session configuration
	JWTSecret     string
	SessionExpiry time.Duration

	// Background jobs
	ReminderSweepCron string // Standard 5-field cron expression, UTC

	// Quick-action shortcuts file (hot-reloaded)
	QuickActionsFile string
}

// Load loads configuration from environment variables with defaults
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "3001"),
		MongoURI:       getEnv("MONGODB_URI", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		AppURL:         getEnv("APP_URL", "http://localhost:3001"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", ""),

		SlackClientID:     getEnv("SLACK_CLIENT_ID", ""),
		SlackClientSecret: getEnv("SLACK_CLIENT_SECRET", ""),

		AgentAPIURL: getEnv("AGENT_API_URL", ""),
		AgentAPIKey: getEnv("AGENT_API_KEY", ""),

		VAPIDPublicKey:  getEnv("VAPID_PUBLIC_KEY", ""),
		VAPIDPrivateKey: getEnv("VAPID_PRIVATE_KEY", ""),
		VAPIDSubscriber: getEnv("VAPID_SUBSCRIBER", "mailto:admin@localhost"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionExpiry: getDurationEnv("SESSION_EXPIRY", 7*24*time.Hour),

		ReminderSweepCron: getEnv("REMINDER_SWEEP_CRON", "* * * * *"),

		QuickActionsFile: getEnv("QUICK_ACTIONS_FILE", "quick_actions.json"),
	}
}

// LoadQuickActions loads quick-action shortcuts from a JSON file
func LoadQuickActions(filePath string) ([]models.QuickAction, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read quick actions file: %w", err)
	}

	var actions []models.QuickAction
	if err := json.Unmarshal(data, &actions); err != nil {
		return nil, fmt.Errorf("failed to parse quick actions JSON: %w", err)
	}

	return actions, nil
}

// DefaultQuickActions are used when no quick actions file is present
func DefaultQuickActions() []models.QuickAction {
	return []models.QuickAction{
		{Label: "Summarize today", Message: "Summarize today's messages in this channel"},
		{Label: "Action items", Message: "What are the action items from recent discussions?"},
		{Label: "Key decisions", Message: "What decisions were made recently?"},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}
