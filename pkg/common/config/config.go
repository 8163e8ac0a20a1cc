package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	ServerPort     string
	ServerHost     string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestBody int64

	// Record store
	DatabaseURL      string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// Redis
	RedisHost           string
	RedisPort           string
	RedisPassword       string
	RedisDB             int
	OpinionCacheEnabled bool
	OpinionCacheTTL     time.Duration

	// Kafka
	KafkaBrokers  []string
	EventsEnabled bool
	EventsTopic   string

	// LLM
	LLMAPIKey       string
	LLMBaseURL      string
	LLMOpinionModel string
	LLMQueryModel   string
	LLMTimeout      time.Duration

	// Pipeline
	HeuristicRulesPath string
	RedactionRulesPath string
	TranscriptsEnabled bool
}

func Load() *Config {
	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		ServerHost:     getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:    getDuration("READ_TIMEOUT", 30*time.Second),
		WriteTimeout:   getDuration("WRITE_TIMEOUT", 90*time.Second),
		MaxRequestBody: int64(getIntEnv("MAX_REQUEST_BODY_BYTES", 1024*1024)),

		DatabaseURL:      getEnv("DATABASE_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", ""),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "clinica"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:       getEnv("POSTGRES_DB", "clinica"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		RedisHost:           getEnv("REDIS_HOST", "localhost"),
		RedisPort:           getEnv("REDIS_PORT", "6379"),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             getIntEnv("REDIS_DB", 0),
		OpinionCacheEnabled: getBoolEnv("OPINION_CACHE_ENABLED", false),
		OpinionCacheTTL:     getDuration("OPINION_CACHE_TTL", 15*time.Minute),

		KafkaBrokers:  getStringSliceEnv("KAFKA_BROKERS", []string{"localhost:9092"}),
		EventsEnabled: getBoolEnv("EVENTS_ENABLED", false),
		EventsTopic:   getEnv("COPILOT_EVENTS_TOPIC", "copilot.events"),

		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMOpinionModel: getEnv("LLM_OPINION_MODEL", "gpt-4o"),
		LLMQueryModel:   getEnv("LLM_QUERY_MODEL", "gpt-3.5-turbo"),
		LLMTimeout:      getDuration("LLM_TIMEOUT", 60*time.Second),

		HeuristicRulesPath: getEnv("HEURISTIC_RULES_PATH", ""),
		RedactionRulesPath: getEnv("REDACTION_RULES_PATH", ""),
		TranscriptsEnabled: getBoolEnv("TRANSCRIPTS_ENABLED", false),
	}
}

// PostgresDSN returns the record store connection string. An empty result
// means no store endpoint is configured.
func (c *Config) PostgresDSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	if c.PostgresHost == "" {
		return ""
	}
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.PostgresHost,
		c.PostgresUser,
		c.PostgresPassword,
		c.PostgresDB,
		c.PostgresPort,
		c.PostgresSSLMode,
	)
}

// HasLLMCredential reports whether LLMAPIKey looks usable.
func (c *Config) HasLLMCredential() bool {
	key := strings.TrimSpace(c.LLMAPIKey)
	return key != "" && !strings.ContainsAny(key, " \t\r\n")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
