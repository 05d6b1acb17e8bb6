package config

import (
	"time"

	"github.com/spf13/viper"
)

// envBindings is every environment variable this service reads, bound to a
// Viper key of the same lowercase/dotted form. There is no config file: the
// memory service is headless and container-oriented, configured the way
// its deployment environment sets it.
var envBindings = map[string]string{
	"vector_store.type":        "VECTOR_STORE_TYPE",
	"vector_store.sqlite_path": "SQLITE_PATH",
	"vector_store.weaviate_url":     "WEAVIATE_URL",
	"vector_store.weaviate_api_key": "WEAVIATE_API_KEY",
	"vector_store.pinecone_api_key": "PINECONE_API_KEY",
	"vector_store.pinecone_index":   "PINECONE_INDEX",

	"embedding.provider":          "EMBEDDING_PROVIDER",
	"embedding.openai_api_key":    "OPENAI_API_KEY",
	"embedding.openai_model":      "OPENAI_EMBEDDING_MODEL",
	"embedding.openai_dimensions": "OPENAI_EMBEDDING_DIMENSIONS",

	"retention.working_ttl_ms":   "WORKING_MEMORY_TTL",
	"retention.short_term_ttl_ms": "SHORT_TERM_MEMORY_TTL",
	"retention.long_term_ttl_ms":  "LONG_TERM_MEMORY_TTL",
	"retention.consolidation_threshold": "CONSOLIDATION_THRESHOLD",
	"retention.consolidation_age_ms":    "CONSOLIDATION_AGE",

	"decay.rate":        "DECAY_RATE",
	"decay.interval_ms": "DECAY_INTERVAL",

	"logging.level":  "LOG_LEVEL",
	"logging.pretty": "LOG_PRETTY",

	"metrics.addr": "METRICS_ADDR",
}

// Loader reads Config from environment variables via Viper, layered over
// DefaultConfig's documented defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader constructs a Loader with every env binding registered.
func NewLoader() *Loader {
	v := viper.New()
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}
	return &Loader{v: v}
}

// Load resolves the full Config: defaults, then whatever environment
// variables are set.
func (l *Loader) Load() *Config {
	defaults := DefaultConfig()

	cfg := &Config{
		VectorStore: VectorStoreConfig{
			Type:           l.stringOr("vector_store.type", defaults.VectorStore.Type),
			SQLitePath:     l.stringOr("vector_store.sqlite_path", defaults.VectorStore.SQLitePath),
			WeaviateURL:    l.v.GetString("vector_store.weaviate_url"),
			WeaviateAPIKey: l.v.GetString("vector_store.weaviate_api_key"),
			PineconeAPIKey: l.v.GetString("vector_store.pinecone_api_key"),
			PineconeIndex:  l.stringOr("vector_store.pinecone_index", "memory-mcp"),
		},
		Embedding: EmbeddingConfig{
			Provider:         l.stringOr("embedding.provider", defaults.Embedding.Provider),
			OpenAIAPIKey:     l.v.GetString("embedding.openai_api_key"),
			OpenAIModel:      l.stringOr("embedding.openai_model", defaults.Embedding.OpenAIModel),
			OpenAIDimensions: l.intOr("embedding.openai_dimensions", defaults.Embedding.OpenAIDimensions),
		},
		Retention: RetentionConfig{
			WorkingTTL:             l.durationMsOr("retention.working_ttl_ms", defaults.Retention.WorkingTTL),
			ShortTermTTL:           l.durationMsOr("retention.short_term_ttl_ms", defaults.Retention.ShortTermTTL),
			LongTermTTL:            l.durationMsOr("retention.long_term_ttl_ms", defaults.Retention.LongTermTTL),
			ConsolidationThreshold: l.intOr("retention.consolidation_threshold", defaults.Retention.ConsolidationThreshold),
			ConsolidationAge:       l.durationMsOr("retention.consolidation_age_ms", defaults.Retention.ConsolidationAge),
		},
		Decay: DecayConfig{
			Rate:     l.floatOr("decay.rate", defaults.Decay.Rate),
			Interval: l.durationMsOr("decay.interval_ms", defaults.Decay.Interval),
		},
		Logging: LoggingConfig{
			Level:  l.stringOr("logging.level", defaults.Logging.Level),
			Pretty: l.boolOr("logging.pretty", defaults.Logging.Pretty),
		},
		Metrics: MetricsConfig{
			Addr: l.stringOr("metrics.addr", defaults.Metrics.Addr),
		},
	}

	return cfg
}

func (l *Loader) stringOr(key, fallback string) string {
	if v := l.v.GetString(key); v != "" {
		return v
	}
	return fallback
}

func (l *Loader) intOr(key string, fallback int) int {
	if l.v.IsSet(key) {
		return l.v.GetInt(key)
	}
	return fallback
}

func (l *Loader) floatOr(key string, fallback float64) float64 {
	if l.v.IsSet(key) {
		return l.v.GetFloat64(key)
	}
	return fallback
}

func (l *Loader) boolOr(key string, fallback bool) bool {
	if l.v.IsSet(key) {
		return l.v.GetBool(key)
	}
	return fallback
}

func (l *Loader) durationMsOr(key string, fallback time.Duration) time.Duration {
	if l.v.IsSet(key) {
		return time.Duration(l.v.GetInt64(key)) * time.Millisecond
	}
	return fallback
}

// Load is a convenience function equivalent to NewLoader().Load().
func Load() *Config {
	return NewLoader().Load()
}
