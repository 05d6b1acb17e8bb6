package config

import (
	"fmt"
	"strings"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAPIKey validates an API key format
func (v *Validator) ValidateAPIKey(key string, provider string) error {
	if key == "" {
		return fmt.Errorf("%s API key cannot be empty", provider)
	}

	switch provider {
	case "openai":
		if !strings.HasPrefix(key, "sk-") {
			return fmt.Errorf("invalid OpenAI API key format (should start with sk-)")
		}
	}

	return nil
}

// ValidateVectorStoreType validates the selected vector store backend.
func (v *Validator) ValidateVectorStoreType(t string) error {
	validTypes := []string{"memory", "sqlite", "weaviate", "pinecone"}
	for _, valid := range validTypes {
		if t == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid vector store type: %s (must be one of: %s)", t, strings.Join(validTypes, ", "))
}

// ValidateEmbeddingProvider validates the selected embedding provider.
func (v *Validator) ValidateEmbeddingProvider(p string) error {
	validProviders := []string{"openai", "local"}
	for _, valid := range validProviders {
		if p == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid embedding provider: %s (must be one of: %s)", p, strings.Join(validProviders, ", "))
}

// ValidateDecayRate validates the decay rate is within a sane range.
func (v *Validator) ValidateDecayRate(rate float64) error {
	if rate < 0 || rate > 1 {
		return fmt.Errorf("decay rate must be between 0 and 1, got %f", rate)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation of the resolved Config,
// returning every violation found rather than failing fast.
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateVectorStoreType(cfg.VectorStore.Type); err != nil {
		errors = append(errors, err)
	}
	if cfg.VectorStore.Type == "weaviate" && cfg.VectorStore.WeaviateURL == "" {
		errors = append(errors, fmt.Errorf("vector_store.weaviate_url is required when VECTOR_STORE_TYPE=weaviate"))
	}
	if cfg.VectorStore.Type == "pinecone" && cfg.VectorStore.PineconeAPIKey == "" {
		errors = append(errors, fmt.Errorf("vector_store.pinecone_api_key is required when VECTOR_STORE_TYPE=pinecone"))
	}

	if err := v.ValidateEmbeddingProvider(cfg.Embedding.Provider); err != nil {
		errors = append(errors, err)
	}
	if cfg.Embedding.Provider == "openai" {
		if err := v.ValidateAPIKey(cfg.Embedding.OpenAIAPIKey, "openai"); err != nil {
			errors = append(errors, err)
		}
	}
	if cfg.Embedding.OpenAIDimensions <= 0 {
		errors = append(errors, fmt.Errorf("embedding.openai_dimensions must be positive"))
	}

	if cfg.Retention.ConsolidationThreshold <= 0 {
		errors = append(errors, fmt.Errorf("retention.consolidation_threshold must be positive"))
	}
	if cfg.Retention.WorkingTTL <= 0 || cfg.Retention.ShortTermTTL <= 0 || cfg.Retention.LongTermTTL <= 0 {
		errors = append(errors, fmt.Errorf("retention TTLs must all be positive"))
	}

	if err := v.ValidateDecayRate(cfg.Decay.Rate); err != nil {
		errors = append(errors, err)
	}
	if cfg.Decay.Interval <= 0 {
		errors = append(errors, fmt.Errorf("decay.interval must be positive"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}

	return errors
}
