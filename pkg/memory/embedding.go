package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// EmbeddingProvider turns text into a fixed-dimension, unit-length vector.
// Implementations MUST normalize their output so cosine similarity between
// two embeddings equals their dot product.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// normalize scales v to unit Euclidean norm in place, returning it. A
// zero-vector input is returned unchanged (there is no direction to pick).
func normalize(v []float32) []float32 {
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	if sumSq == 0 {
		return v
	}
	norm := math.Sqrt(sumSq)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

// --- Remote provider -------------------------------------------------------

// OpenAIProviderConfig configures the remote, HTTPS-backed embedding
// provider.
type OpenAIProviderConfig struct {
	APIKey     string
	Model      string
	Dimensions int
	BaseURL    string // defaults to https://api.openai.com/v1
	HTTPClient *http.Client
}

// OpenAIProvider calls the embeddings endpoint through the official SDK
// client, batching requests in groups of 100 per the provider's limits.
type OpenAIProvider struct {
	client     openai.Client
	model      string
	dimensions int
}

const openAIBatchSize = 100

// NewOpenAIProvider constructs a remote embedding provider. Returns a
// FatalInit-wrapped error if no API key is configured, since the process
// cannot serve embeddings without one.
func NewOpenAIProvider(cfg OpenAIProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, &FatalInit{Reason: "OPENAI_API_KEY is required for the openai embedding provider"}
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 1536
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey), option.WithHTTPClient(cfg.HTTPClient)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIProvider{
		client:     openai.NewClient(opts...),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}, nil
}

func (p *OpenAIProvider) Dimensions() int { return p.dimensions }

func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openAIBatchSize {
		end := start + openAIBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedChunk(ctx, texts[start:end])
		if err != nil {
			return nil, NewBackendError("embedding-provider:openai", err)
		}
		out = append(out, batch...)
	}
	return out, nil
}

func (p *OpenAIProvider) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Dimensions:     openai.Int(int64(p.dimensions)),
		EncodingFormat: openai.EmbeddingNewParamsEncodingFormatFloat,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		idx := int(item.Index)
		if idx < 0 || idx >= len(out) {
			continue
		}
		vec := make([]float32, len(item.Embedding))
		for i, f := range item.Embedding {
			vec[i] = float32(f)
		}
		out[idx] = normalize(vec)
	}
	return out, nil
}

// --- Local provider ---------------------------------------------------------

const localProviderDimensions = 512

// LocalProvider is a deterministic hashing TF-IDF embedding provider: no
// network dependency, no external credentials. It maintains a running
// vocabulary and document-frequency table across calls, so embeddings
// improve (and slightly shift) as more text is seen.
type LocalProvider struct {
	mu         sync.Mutex
	docCount   int
	docFreq    map[string]int
	dimensions int
}

// NewLocalProvider constructs the fallback embedding provider used when
// EMBEDDING_PROVIDER=local or no remote credential is configured.
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{
		docFreq:    make(map[string]int),
		dimensions: localProviderDimensions,
	}
}

func (p *LocalProvider) Dimensions() int { return p.dimensions }

func (p *LocalProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.embedOne(text), nil
}

func (p *LocalProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = p.embedOne(t)
	}
	return out, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return fields
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	return h.Sum32()
}

// embedOne updates the running vocabulary with this document, then produces
// a hashed TF-IDF vector: idf = ln((N+1)/(df+1)) + 1, each token contributing
// (tf/|tokens|)*idf into bucket hash(token) mod D, L2-normalized at the end.
func (p *LocalProvider) embedOne(text string) []float32 {
	tokens := tokenize(text)

	p.mu.Lock()
	p.docCount++
	n := p.docCount
	termFreq := make(map[string]int, len(tokens))
	for _, t := range tokens {
		termFreq[t]++
	}
	for t := range termFreq {
		p.docFreq[t]++
	}
	docFreqSnapshot := make(map[string]int, len(termFreq))
	for t := range termFreq {
		docFreqSnapshot[t] = p.docFreq[t]
	}
	p.mu.Unlock()

	vec := make([]float32, p.dimensions)
	if len(tokens) == 0 {
		return vec
	}

	for token, tf := range termFreq {
		df := docFreqSnapshot[token]
		idf := math.Log(float64(n+1)/float64(df+1)) + 1
		weight := (float64(tf) / float64(len(tokens))) * idf
		bucket := hashToken(token) % uint32(p.dimensions)
		vec[bucket] += float32(weight)
	}

	return normalize(vec)
}
