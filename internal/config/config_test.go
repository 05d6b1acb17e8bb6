package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "./memory.db", cfg.VectorStore.SQLitePath)
	assert.Equal(t, "openai", cfg.Embedding.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.OpenAIModel)
	assert.Equal(t, 1536, cfg.Embedding.OpenAIDimensions)
	assert.Equal(t, 30*time.Minute, cfg.Retention.WorkingTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention.ShortTermTTL)
	assert.Equal(t, 365*24*time.Hour, cfg.Retention.LongTermTTL)
	assert.Equal(t, 100, cfg.Retention.ConsolidationThreshold)
	assert.Equal(t, 30*24*time.Hour, cfg.Retention.ConsolidationAge)
	assert.Equal(t, 0.1, cfg.Decay.Rate)
	assert.Equal(t, 24*time.Hour, cfg.Decay.Interval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.Equal(t, ":9090", cfg.Metrics.Addr)
}
