package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_HOST", "")

	cfg := Load()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "gpt-4o", cfg.LLMOpinionModel)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLMQueryModel)
	assert.Equal(t, 60*time.Second, cfg.LLMTimeout)
	assert.False(t, cfg.HasLLMCredential())
	assert.Empty(t, cfg.PostgresDSN())
}

func TestPostgresDSNPrefersDatabaseURL(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://u:p@db:5432/clinica", PostgresHost: "ignored"}
	assert.Equal(t, "postgres://u:p@db:5432/clinica", cfg.PostgresDSN())

	cfg = &Config{PostgresHost: "db", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "clinica", PostgresPort: "5432", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db user=u password=p dbname=clinica port=5432 sslmode=disable", cfg.PostgresDSN())
}

func TestHasLLMCredential(t *testing.T) {
	assert.True(t, (&Config{LLMAPIKey: "sk-test"}).HasLLMCredential())
	assert.False(t, (&Config{LLMAPIKey: "   "}).HasLLMCredential())
	assert.False(t, (&Config{LLMAPIKey: "sk test"}).HasLLMCredential())
}

func TestStringSliceEnvSplitsOnComma(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, Load().KafkaBrokers)
}
