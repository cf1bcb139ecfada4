package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port        string
	Env         string
	LogLevel    string
	CompanyName string

	// LLM
	GeminiAPIKey   string
	GeminiModel    string
	LLMTimeout     time.Duration
	LLMMaxTokens   int
	LLMTemperature float64
	BedrockModelID string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// Knowledge base
	KnowledgeDir        string
	KnowledgeS3Bucket   string
	KnowledgeS3Prefix   string
	KnowledgeStaleCheck time.Duration
	KnowledgeWatch      bool
	QueryTablesPath     string

	// Sessions and routing
	SessionTimeout        time.Duration
	SessionMaxHistory     int
	RecentContextMessages int
	AdvancedThreshold     float64

	// Learning from feedback
	LearningEnabled             bool
	LearningMaxInteractions     int
	LearningConfidenceThreshold float64
	LearningStateTTL            time.Duration

	// HTTP surface
	AdminAPIKey        string
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Dynamic data
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	DynamicCacheTTL time.Duration
	RefreshInterval time.Duration
	NewsAPIKey      string
	NewsQuery       string
	FinnhubAPIKey   string
	MarketSymbols   []string
	SocialQuery     string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CompanyName: getEnv("COMPANY_NAME", "NovaTech"),

		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 8*time.Second),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 1024),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		KnowledgeDir:        getEnv("KNOWLEDGE_DIR", "./knowledge_base"),
		KnowledgeS3Bucket:   getEnv("KNOWLEDGE_S3_BUCKET", ""),
		KnowledgeS3Prefix:   getEnv("KNOWLEDGE_S3_PREFIX", "knowledge/"),
		KnowledgeStaleCheck: getEnvAsDuration("KNOWLEDGE_STALE_CHECK", 5*time.Second),
		KnowledgeWatch:      getEnvAsBool("KNOWLEDGE_WATCH", true),
		QueryTablesPath:     getEnv("QUERY_TABLES_PATH", ""),

		SessionTimeout:        getEnvAsDuration("SESSION_TIMEOUT", 300*time.Second),
		SessionMaxHistory:     getEnvAsInt("SESSION_MAX_HISTORY", 20),
		RecentContextMessages: getEnvAsInt("RECENT_CONTEXT_MESSAGES", 5),
		AdvancedThreshold:     getEnvAsFloat("ADVANCED_THRESHOLD", 0.5),

		LearningEnabled:             getEnvAsBool("LEARNING_ENABLED", true),
		LearningMaxInteractions:     getEnvAsInt("LEARNING_MAX_INTERACTIONS", 1000),
		LearningConfidenceThreshold: getEnvAsFloat("LEARNING_CONFIDENCE_THRESHOLD", 0.7),
		LearningStateTTL:            getEnvAsDuration("LEARNING_STATE_TTL", 7*24*time.Hour),

		AdminAPIKey:        getEnv("ADMIN_API_KEY", ""),
		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 10),

		RedisAddr:       getEnv("REDIS_ADDR", ""),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisTLS:        getEnvAsBool("REDIS_TLS", false),
		DynamicCacheTTL: getEnvAsDuration("DYNAMIC_CACHE_TTL", 30*time.Minute),
		RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", 0),
		NewsAPIKey:      getEnv("NEWS_API_KEY", ""),
		NewsQuery:       getEnv("NEWS_QUERY", `NovaTech OR "enterprise software"`),
		FinnhubAPIKey:   getEnv("FINNHUB_API_KEY", ""),
		MarketSymbols:   getEnvAsList("MARKET_SYMBOLS", []string{"NVDA", "MSFT", "CRM"}),
		SocialQuery:     getEnv("SOCIAL_QUERY", "NovaTech"),
	}
}

// LLMConfigured reports whether at least one generation provider has credentials.
func (c *Config) LLMConfigured() bool {
	return c.GeminiAPIKey != "" || c.BedrockModelID != ""
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

// getEnvAsList splits a comma separated variable, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
