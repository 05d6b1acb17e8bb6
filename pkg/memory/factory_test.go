package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVectorStoreFromConfig(t *testing.T) {
	t.Run("defaults to the in-process map adapter", func(t *testing.T) {
		store, err := NewVectorStoreFromConfig(VectorStoreConfig{Dimensions: 4})
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*InMemoryStore)
		assert.True(t, ok)
	})

	t.Run("sqlite type builds the disk-backed adapter", func(t *testing.T) {
		store, err := NewVectorStoreFromConfig(VectorStoreConfig{StoreType: VectorStoreSQLite, SQLitePath: ":memory:", Dimensions: 4})
		require.NoError(t, err)
		defer store.Close()
		_, ok := store.(*SQLiteStore)
		assert.True(t, ok)
	})

	t.Run("self-hosted requires URL", func(t *testing.T) {
		_, err := NewVectorStoreFromConfig(VectorStoreConfig{StoreType: VectorStoreSelfHosted})
		assert.Error(t, err)
	})

	t.Run("self-hosted builds with URL", func(t *testing.T) {
		store, err := NewVectorStoreFromConfig(VectorStoreConfig{StoreType: VectorStoreSelfHosted, SelfHostedURL: "http://weaviate.local"})
		require.NoError(t, err)
		_, ok := store.(*SelfHostedStore)
		assert.True(t, ok)
	})

	t.Run("managed requires API key", func(t *testing.T) {
		_, err := NewVectorStoreFromConfig(VectorStoreConfig{StoreType: VectorStoreManaged})
		assert.Error(t, err)
	})

	t.Run("managed builds with API key", func(t *testing.T) {
		store, err := NewVectorStoreFromConfig(VectorStoreConfig{StoreType: VectorStoreManaged, ManagedAPIKey: "pk-test"})
		require.NoError(t, err)
		_, ok := store.(*ManagedStore)
		assert.True(t, ok)
	})

	t.Run("unsupported type errors", func(t *testing.T) {
		_, err := NewVectorStoreFromConfig(VectorStoreConfig{StoreType: "redis"})
		assert.Error(t, err)
	})
}

func TestNewEmbeddingProviderFromConfig(t *testing.T) {
	t.Run("local provider", func(t *testing.T) {
		p, err := NewEmbeddingProviderFromConfig(EmbeddingProviderConfigInput{ProviderType: EmbeddingProviderLocal})
		require.NoError(t, err)
		_, ok := p.(*LocalProvider)
		assert.True(t, ok)
	})

	t.Run("openai provider defaults", func(t *testing.T) {
		p, err := NewEmbeddingProviderFromConfig(EmbeddingProviderConfigInput{
			ProviderType: EmbeddingProviderOpenAI,
			OpenAIAPIKey: "sk-test123456789012345678901234",
		})
		require.NoError(t, err)
		_, ok := p.(*OpenAIProvider)
		assert.True(t, ok)
	})

	t.Run("openai provider requires key", func(t *testing.T) {
		_, err := NewEmbeddingProviderFromConfig(EmbeddingProviderConfigInput{ProviderType: EmbeddingProviderOpenAI})
		assert.Error(t, err)
	})

	t.Run("unsupported provider errors", func(t *testing.T) {
		_, err := NewEmbeddingProviderFromConfig(EmbeddingProviderConfigInput{ProviderType: "cohere"})
		assert.Error(t, err)
	})
}
