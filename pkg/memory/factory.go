package memory

import "fmt"

// VectorStoreType identifies which VectorStore backend to construct.
type VectorStoreType string

const (
	// VectorStoreInProcess is the spec's literal default/test adapter: a
	// map keyed by id with linear-scan cosine search, no disk I/O.
	VectorStoreInProcess VectorStoreType = "memory"
	// VectorStoreSQLite is an additional, opt-in disk-backed adapter built
	// on mattn/go-sqlite3 + sqlite-vec; never selected by default.
	VectorStoreSQLite    VectorStoreType = "sqlite"
	VectorStoreSelfHosted VectorStoreType = "weaviate"
	VectorStoreManaged    VectorStoreType = "pinecone"
)

// VectorStoreConfig carries the union of settings any adapter might need;
// only the fields relevant to the selected StoreType are consulted.
type VectorStoreConfig struct {
	StoreType VectorStoreType

	SQLitePath string

	SelfHostedURL    string
	SelfHostedAPIKey string

	ManagedAPIKey string
	ManagedIndex  string

	Dimensions int
}

// NewVectorStoreFromConfig builds the VectorStore selected by cfg.StoreType,
// picked once at startup; the engine never branches on the concrete type
// again. Defaults to the literal in-process map adapter (no disk I/O) when
// StoreType is empty, per spec.md §4.B adapter 1.
func NewVectorStoreFromConfig(cfg VectorStoreConfig) (VectorStore, error) {
	switch cfg.StoreType {
	case VectorStoreInProcess, "":
		return NewInMemoryStore(), nil

	case VectorStoreSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "./memory.db"
		}
		store, err := NewSQLiteStore(path, cfg.Dimensions)
		if err != nil {
			return nil, &FatalInit{Reason: "failed to open sqlite vector store", Err: err}
		}
		return store, nil

	case VectorStoreSelfHosted:
		if cfg.SelfHostedURL == "" {
			return nil, &FatalInit{Reason: "WEAVIATE_URL is required for the weaviate vector store"}
		}
		return NewSelfHostedStore(SelfHostedConfig{
			URL:    cfg.SelfHostedURL,
			APIKey: cfg.SelfHostedAPIKey,
		}), nil

	case VectorStoreManaged:
		if cfg.ManagedAPIKey == "" {
			return nil, &FatalInit{Reason: "PINECONE_API_KEY is required for the pinecone vector store"}
		}
		return NewManagedStore(ManagedConfig{
			APIKey: cfg.ManagedAPIKey,
			Index:  cfg.ManagedIndex,
		}, cfg.Dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported vector store type: %s", cfg.StoreType)
	}
}

// EmbeddingProviderType identifies which EmbeddingProvider to construct.
type EmbeddingProviderType string

const (
	EmbeddingProviderOpenAI EmbeddingProviderType = "openai"
	EmbeddingProviderLocal  EmbeddingProviderType = "local"
)

// EmbeddingProviderConfigInput carries the union of settings either
// embedding provider variant might need.
type EmbeddingProviderConfigInput struct {
	ProviderType EmbeddingProviderType
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIDims   int
}

// NewEmbeddingProviderFromConfig builds the EmbeddingProvider selected by
// cfg.ProviderType. Defaults to the remote OpenAI-shaped provider.
func NewEmbeddingProviderFromConfig(cfg EmbeddingProviderConfigInput) (EmbeddingProvider, error) {
	switch cfg.ProviderType {
	case EmbeddingProviderLocal:
		return NewLocalProvider(), nil

	case EmbeddingProviderOpenAI, "":
		return NewOpenAIProvider(OpenAIProviderConfig{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			Dimensions: cfg.OpenAIDims,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider type: %s", cfg.ProviderType)
	}
}
