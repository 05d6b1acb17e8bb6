package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// ManagedConfig configures the namespaced managed vector database adapter
// (a Pinecone-shaped client): either BaseURL (the data-plane host) is
// known, or Index is given and the host is resolved via the controller API.
type ManagedConfig struct {
	APIKey            string
	Index             string
	BaseURL           string
	Namespace         string // defaults to "memory-mcp"
	ControllerBaseURL string // defaults to https://api.pinecone.io
	Timeout           time.Duration
}

// ManagedStore is the managed VectorStore adapter. Filters map to the
// backend's native predicate language; listing is emulated by querying
// against a zero vector with limit 1000.
type ManagedStore struct {
	cfg    ManagedConfig
	client *http.Client

	mu      sync.RWMutex
	baseURL string
	dims    int
}

// NewManagedStore constructs the Pinecone-shaped adapter.
func NewManagedStore(cfg ManagedConfig, dimensions int) *ManagedStore {
	if cfg.Namespace == "" {
		cfg.Namespace = "memory-mcp"
	}
	if cfg.ControllerBaseURL == "" {
		cfg.ControllerBaseURL = "https://api.pinecone.io"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &ManagedStore{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		dims:    dimensions,
	}
}

func (s *ManagedStore) ensureBaseURL(ctx context.Context) error {
	s.mu.RLock()
	if s.baseURL != "" {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	if s.cfg.Index == "" {
		return fmt.Errorf("managed store base_url is required when index is empty")
	}

	endpoint := fmt.Sprintf("%s/indexes/%s", strings.TrimRight(s.cfg.ControllerBaseURL, "/"), url.PathEscape(s.cfg.Index))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Api-Key", s.cfg.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("describe index failed: status=%d body=%s", resp.StatusCode, string(raw))
	}

	var describe struct {
		Host string `json:"host"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&describe); err != nil {
		return err
	}
	if describe.Host == "" {
		return fmt.Errorf("controller returned empty host for index %q", s.cfg.Index)
	}
	host := describe.Host
	if !strings.HasPrefix(host, "http") {
		host = "https://" + host
	}

	s.mu.Lock()
	s.baseURL = strings.TrimRight(host, "/")
	s.mu.Unlock()
	return nil
}

func (s *ManagedStore) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	if err := s.ensureBaseURL(ctx); err != nil {
		return err
	}
	s.mu.RLock()
	endpoint := s.baseURL + path
	s.mu.RUnlock()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Api-Key", s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status=%d body=%s", resp.StatusCode, string(raw))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (s *ManagedStore) Initialize(ctx context.Context) error {
	return NewBackendError("vector-store:pinecone", s.ensureBaseURL(ctx))
}

func recordToMetadata(r *Record) map[string]interface{} {
	return map[string]interface{}{
		"content":      r.Content,
		"timestamp":    r.Timestamp,
		"importance":   r.Importance,
		"source":       string(r.Source),
		"tags":         r.Tags,
		"accessCount":  r.AccessCount,
		"lastAccessed": r.LastAccessed,
		"layer":        string(r.Layer),
	}
}

func metadataToRecord(id string, vector []float32, meta map[string]interface{}) *Record {
	r := &Record{ID: id, Embedding: vector}
	if v, ok := meta["content"].(string); ok {
		r.Content = v
	}
	if v, ok := meta["timestamp"].(float64); ok {
		r.Timestamp = int64(v)
	}
	if v, ok := meta["importance"].(float64); ok {
		r.Importance = v
	}
	if v, ok := meta["source"].(string); ok {
		r.Source = Source(v)
	}
	if v, ok := meta["tags"].([]interface{}); ok {
		for _, t := range v {
			if s, ok := t.(string); ok {
				r.Tags = append(r.Tags, s)
			}
		}
	}
	if v, ok := meta["accessCount"].(float64); ok {
		r.AccessCount = int64(v)
	}
	if v, ok := meta["lastAccessed"].(float64); ok {
		r.LastAccessed = int64(v)
	}
	if v, ok := meta["layer"].(string); ok {
		r.Layer = Layer(v)
	}
	return r
}

func (s *ManagedStore) Store(ctx context.Context, record *Record) error {
	return s.StoreBatch(ctx, []*Record{record})
}

func (s *ManagedStore) StoreBatch(ctx context.Context, records []*Record) error {
	const chunkSize = 100
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.upsertChunk(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *ManagedStore) upsertChunk(ctx context.Context, records []*Record) error {
	vectors := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return NewValidationError("embedding", "store requires an embedding to be present")
		}
		vectors = append(vectors, map[string]interface{}{
			"id":       r.ID,
			"values":   r.Embedding,
			"metadata": recordToMetadata(r),
		})
	}
	body := map[string]interface{}{"vectors": vectors, "namespace": s.cfg.Namespace}
	if err := s.doJSON(ctx, http.MethodPost, "/vectors/upsert", body, nil); err != nil {
		return NewBackendError("vector-store:pinecone", err)
	}
	return nil
}

// buildFilterExpr maps a SearchFilter to the backend's native predicate
// expression: layer == v, tags contains t (per requested tag), importance >= v.
func buildFilterExpr(f *SearchFilter) map[string]interface{} {
	if f == nil {
		return nil
	}
	var clauses []map[string]interface{}
	if f.Layer != "" {
		clauses = append(clauses, map[string]interface{}{"layer": map[string]interface{}{"$eq": string(f.Layer)}})
	}
	if f.MinImportance > 0 {
		clauses = append(clauses, map[string]interface{}{"importance": map[string]interface{}{"$gte": f.MinImportance}})
	}
	for _, t := range f.Tags {
		clauses = append(clauses, map[string]interface{}{"tags": map[string]interface{}{"$in": []string{t}}})
	}
	if len(clauses) == 0 {
		return nil
	}
	if len(clauses) == 1 {
		return clauses[0]
	}
	return map[string]interface{}{"$and": clauses}
}

func (s *ManagedStore) Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]StoreSearchResult, error) {
	body := map[string]interface{}{
		"vector":          vector,
		"topK":            k,
		"namespace":       s.cfg.Namespace,
		"includeMetadata": true,
		"includeValues":   true,
	}
	if f := buildFilterExpr(filter); f != nil {
		body["filter"] = f
	}

	var resp struct {
		Matches []struct {
			ID       string                 `json:"id"`
			Score    float64                `json:"score"`
			Values   []float32              `json:"values"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"matches"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/query", body, &resp); err != nil {
		return nil, NewBackendError("vector-store:pinecone", err)
	}

	out := make([]StoreSearchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		rec := metadataToRecord(m.ID, m.Values, m.Metadata)
		out = append(out, StoreSearchResult{Record: rec, Relevance: relevanceFromCosine(m.Score)})
	}
	return out, nil
}

func (s *ManagedStore) Get(ctx context.Context, id string) (*Record, error) {
	var resp struct {
		Vectors map[string]struct {
			ID       string                 `json:"id"`
			Values   []float32              `json:"values"`
			Metadata map[string]interface{} `json:"metadata"`
		} `json:"vectors"`
	}
	path := fmt.Sprintf("/vectors/fetch?ids=%s&namespace=%s", url.QueryEscape(id), url.QueryEscape(s.cfg.Namespace))
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, NewBackendError("vector-store:pinecone", err)
	}
	v, ok := resp.Vectors[id]
	if !ok {
		return nil, nil
	}
	return metadataToRecord(v.ID, v.Values, v.Metadata), nil
}

func (s *ManagedStore) Delete(ctx context.Context, id string) (bool, error) {
	n, err := s.DeleteBatch(ctx, []string{id})
	return n > 0, err
}

func (s *ManagedStore) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	body := map[string]interface{}{"ids": ids, "namespace": s.cfg.Namespace}
	if err := s.doJSON(ctx, http.MethodPost, "/vectors/delete", body, nil); err != nil {
		return 0, NewBackendError("vector-store:pinecone", err)
	}
	return len(ids), nil
}

// List is emulated by querying against a zero vector with limit 1000, per
// the contract's documented workaround for backends with no native list op.
func (s *ManagedStore) List(ctx context.Context, filter *SearchFilter) ([]*Record, error) {
	zeroVec := make([]float32, s.dims)
	results, err := s.Search(ctx, zeroVec, ListCap, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*Record, 0, len(results))
	for _, r := range results {
		out = append(out, r.Record)
	}
	return out, nil
}

func (s *ManagedStore) Update(ctx context.Context, record *Record) error {
	return s.Store(ctx, record)
}

func (s *ManagedStore) Close() error {
	return nil
}
