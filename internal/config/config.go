package config

import "time"

// Config is the memory service's full runtime configuration, populated
// exclusively from environment variables (see Loader) — there is no config
// file in this service, unlike the teacher's JSON-file-backed Config.
type Config struct {
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	Retention   RetentionConfig   `mapstructure:"retention"`
	Decay       DecayConfig       `mapstructure:"decay"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}

// VectorStoreConfig selects and configures the VectorStore backend.
type VectorStoreConfig struct {
	Type string `mapstructure:"type"` // memory (default, in-process map), sqlite, weaviate, pinecone

	// SQLitePath is only consulted when Type == "sqlite"; the default
	// "memory" adapter keeps no disk state.
	SQLitePath string `mapstructure:"sqlite_path"`

	WeaviateURL    string `mapstructure:"weaviate_url"`
	WeaviateAPIKey string `mapstructure:"weaviate_api_key"`

	PineconeAPIKey string `mapstructure:"pinecone_api_key"`
	PineconeIndex  string `mapstructure:"pinecone_index"`
}

// EmbeddingConfig selects and configures the EmbeddingProvider.
type EmbeddingConfig struct {
	Provider string `mapstructure:"provider"` // openai, local

	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIModel      string `mapstructure:"openai_model"`
	OpenAIDimensions int    `mapstructure:"openai_dimensions"`
}

// RetentionConfig holds per-layer TTLs and consolidation thresholds.
type RetentionConfig struct {
	WorkingTTL   time.Duration `mapstructure:"working_ttl"`
	ShortTermTTL time.Duration `mapstructure:"short_term_ttl"`
	LongTermTTL  time.Duration `mapstructure:"long_term_ttl"`

	ConsolidationThreshold int           `mapstructure:"consolidation_threshold"`
	ConsolidationAge       time.Duration `mapstructure:"consolidation_age"`
}

// DecayConfig holds the decay rate and the scheduler's decay cadence.
type DecayConfig struct {
	Rate     float64       `mapstructure:"rate"`
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig mirrors the teacher's logging knobs, scoped to the ambient
// env vars this service reads (no file rotation settings: this service logs
// to stderr/file path only, not a rotating log).
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// MetricsConfig configures the Prometheus HTTP exporter. Addr == "" disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultConfig returns the configuration's documented defaults (§6), used
// both as Viper's defaults and as the zero-config fallback.
func DefaultConfig() *Config {
	return &Config{
		VectorStore: VectorStoreConfig{
			Type:       "memory",
			SQLitePath: "./memory.db",
		},
		Embedding: EmbeddingConfig{
			Provider:         "openai",
			OpenAIModel:      "text-embedding-3-small",
			OpenAIDimensions: 1536,
		},
		Retention: RetentionConfig{
			WorkingTTL:             30 * time.Minute,
			ShortTermTTL:           7 * 24 * time.Hour,
			LongTermTTL:            365 * 24 * time.Hour,
			ConsolidationThreshold: 100,
			ConsolidationAge:       30 * 24 * time.Hour,
		},
		Decay: DecayConfig{
			Rate:     0.1,
			Interval: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: true,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}
