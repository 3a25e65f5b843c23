package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	LogFormat     string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Generative fallback (Gemini primary, optional secondary model)
	GeminiAPIKey        string
	GeminiModelID       string
	GeminiBackupModelID string
	LLMTimeout          time.Duration
	LLMMaxTokens        int
	LLMTemperature      float64

	// Google Calendar mirror
	CalendarID           string
	CalendarTimezone     string
	CalendarTokenFile    string
	CalendarClientID     string
	CalendarClientSecret string
	CalendarDisabled     bool
	EventDurationMinutes int
	InviteAttendee       bool

	// Confirmation email (SendGrid)
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string

	// Identity seeding for unauthenticated sessions
	JWTSecret        string
	AdminJWTSecret   string
	DefaultUserName  string
	DefaultUserEmail string

	TranscriptTTL      time.Duration
	DocumentCharLimit  int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:       getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		GeminiBackupModelID: getEnv("GEMINI_BACKUP_MODEL_ID", ""),
		LLMTimeout:          getEnvAsDuration("LLM_TIMEOUT", 30*time.Second),
		LLMMaxTokens:        getEnvAsInt("LLM_MAX_TOKENS", 512),
		LLMTemperature:      getEnvAsFloat("LLM_TEMPERATURE", 0.3),

		CalendarID:           getEnv("GOOGLE_CALENDAR_ID", "primary"),
		CalendarTimezone:     getEnv("CALENDAR_TIMEZONE", "Europe/Madrid"),
		CalendarTokenFile:    getEnv("GOOGLE_TOKEN_FILE", "token.json"),
		CalendarClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		CalendarClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		CalendarDisabled:     getEnvAsBool("CALENDAR_DISABLED", false),
		EventDurationMinutes: getEnvAsInt("EVENT_DURATION_MINUTES", 60),
		InviteAttendee:       getEnvAsBool("INVITE_ATTENDEE", true),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Citabot"),

		JWTSecret:        getEnv("JWT_SECRET", ""),
		AdminJWTSecret:   getEnv("ADMIN_JWT_SECRET", ""),
		DefaultUserName:  getEnv("DEFAULT_USER_NAME", ""),
		DefaultUserEmail: getEnv("DEFAULT_USER_EMAIL", ""),

		TranscriptTTL:      getEnvAsDuration("TRANSCRIPT_TTL", 24*time.Hour),
		DocumentCharLimit:  getEnvAsInt("DOCUMENT_CHAR_LIMIT", 4000),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
