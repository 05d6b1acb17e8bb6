package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SelfHostedConfig configures the graph-query-based self-hosted vector
// store adapter (a Weaviate-shaped client: REST for schema/batch writes,
// GraphQL for vector search).
type SelfHostedConfig struct {
	URL       string
	APIKey    string
	ClassName string // defaults to "Memory"
	Timeout   time.Duration
}

// SelfHostedStore is the self-hosted VectorStore adapter. Filter
// application is client-side: k is over-fetched by a factor of 2 whenever
// any filter is set, per the contract.
type SelfHostedStore struct {
	cfg     SelfHostedConfig
	baseURL string
	client  *http.Client

	ensureOnce sync.Once
	ensureErr  error
}

var memoryNamespace = uuid.MustParse("7e5737b0-6f1e-4b7a-9c2e-1d8f6a5b4c3d")

func selfHostedObjectID(recordID string) string {
	return uuid.NewSHA1(memoryNamespace, []byte(recordID)).String()
}

// NewSelfHostedStore constructs the Weaviate-shaped adapter.
func NewSelfHostedStore(cfg SelfHostedConfig) *SelfHostedStore {
	if cfg.ClassName == "" {
		cfg.ClassName = "Memory"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SelfHostedStore{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (s *SelfHostedStore) applyHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	if s.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	}
}

func (s *SelfHostedStore) doJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	s.applyHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
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

// Initialize (re)creates the class with properties mirroring Record's
// metadata, idempotently.
func (s *SelfHostedStore) Initialize(ctx context.Context) error {
	var err error
	s.ensureOnce.Do(func() {
		checkReq, buildErr := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/schema/"+s.cfg.ClassName, nil)
		if buildErr != nil {
			s.ensureErr = buildErr
			return
		}
		s.applyHeaders(checkReq)
		resp, reqErr := s.client.Do(checkReq)
		if reqErr != nil {
			s.ensureErr = reqErr
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return // class already exists
		}

		schema := map[string]interface{}{
			"class":      s.cfg.ClassName,
			"vectorizer": "none",
			"vectorIndexConfig": map[string]interface{}{
				"distance": "cosine",
			},
			"properties": []map[string]interface{}{
				{"name": "content", "dataType": []string{"text"}},
				{"name": "timestamp", "dataType": []string{"int"}},
				{"name": "importance", "dataType": []string{"number"}},
				{"name": "source", "dataType": []string{"text"}},
				{"name": "tags", "dataType": []string{"text[]"}},
				{"name": "accessCount", "dataType": []string{"int"}},
				{"name": "lastAccessed", "dataType": []string{"int"}},
				{"name": "layer", "dataType": []string{"text"}},
				{"name": "recordId", "dataType": []string{"text"}},
			},
		}
		s.ensureErr = s.doJSON(ctx, http.MethodPost, "/v1/schema", schema, nil)
	})
	err = s.ensureErr
	if err != nil {
		return NewBackendError("vector-store:weaviate", err)
	}
	return nil
}

func recordToProperties(r *Record) map[string]interface{} {
	return map[string]interface{}{
		"recordId":     r.ID,
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

func propertiesToRecord(props map[string]interface{}, embedding []float32) *Record {
	r := &Record{Embedding: embedding}
	if v, ok := props["recordId"].(string); ok {
		r.ID = v
	}
	if v, ok := props["content"].(string); ok {
		r.Content = v
	}
	if v, ok := props["timestamp"].(float64); ok {
		r.Timestamp = int64(v)
	}
	if v, ok := props["importance"].(float64); ok {
		r.Importance = v
	}
	if v, ok := props["source"].(string); ok {
		r.Source = Source(v)
	}
	if v, ok := props["tags"].([]interface{}); ok {
		for _, t := range v {
			if s, ok := t.(string); ok {
				r.Tags = append(r.Tags, s)
			}
		}
	}
	if v, ok := props["accessCount"].(float64); ok {
		r.AccessCount = int64(v)
	}
	if v, ok := props["lastAccessed"].(float64); ok {
		r.LastAccessed = int64(v)
	}
	if v, ok := props["layer"].(string); ok {
		r.Layer = Layer(v)
	}
	return r
}

func (s *SelfHostedStore) Store(ctx context.Context, record *Record) error {
	return s.StoreBatch(ctx, []*Record{record})
}

func (s *SelfHostedStore) StoreBatch(ctx context.Context, records []*Record) error {
	const chunkSize = 100
	for start := 0; start < len(records); start += chunkSize {
		end := start + chunkSize
		if end > len(records) {
			end = len(records)
		}
		if err := s.storeChunk(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SelfHostedStore) storeChunk(ctx context.Context, records []*Record) error {
	objects := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return NewValidationError("embedding", "store requires an embedding to be present")
		}
		objects = append(objects, map[string]interface{}{
			"class":      s.cfg.ClassName,
			"id":         selfHostedObjectID(r.ID),
			"properties": recordToProperties(r),
			"vector":     r.Embedding,
		})
	}

	var resp struct {
		Results []struct {
			ID     string `json:"id"`
			Result struct {
				Errors *struct {
					Error []struct {
						Message string `json:"message"`
					} `json:"error"`
				} `json:"errors"`
			} `json:"result"`
		} `json:"results"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/v1/batch/objects", map[string]interface{}{"objects": objects}, &resp); err != nil {
		return NewBackendError("vector-store:weaviate", err)
	}
	for _, r := range resp.Results {
		if r.Result.Errors != nil && len(r.Result.Errors.Error) > 0 {
			return NewBackendError("vector-store:weaviate", fmt.Errorf("batch error for %s: %s", r.ID, r.Result.Errors.Error[0].Message))
		}
	}
	return nil
}

func formatVector(v []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%v", x)
	}
	b.WriteByte(']')
	return b.String()
}

func (s *SelfHostedStore) Search(ctx context.Context, vector []float32, k int, filter *SearchFilter) ([]StoreSearchResult, error) {
	fetchK := k
	if filter != nil {
		fetchK = k * 2
	}

	graphql := fmt.Sprintf(`{
		Get {
			%s(nearVector: {vector: %s}, limit: %d) {
				recordId content timestamp importance source tags accessCount lastAccessed layer
				_additional { distance vector }
			}
		}
	}`, s.cfg.ClassName, formatVector(vector), fetchK)

	var resp struct {
		Data struct {
			Get map[string][]map[string]interface{} `json:"Get"`
		} `json:"data"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/v1/graphql", map[string]string{"query": graphql}, &resp); err != nil {
		return nil, NewBackendError("vector-store:weaviate", err)
	}

	items := resp.Data.Get[s.cfg.ClassName]
	out := make([]StoreSearchResult, 0, len(items))
	for _, item := range items {
		var distance float64
		var embedding []float32
		if add, ok := item["_additional"].(map[string]interface{}); ok {
			if d, ok := add["distance"].(float64); ok {
				distance = d
			}
			if vecIface, ok := add["vector"].([]interface{}); ok {
				for _, x := range vecIface {
					if f, ok := x.(float64); ok {
						embedding = append(embedding, float32(f))
					}
				}
			}
		}
		rec := propertiesToRecord(item, embedding)
		if !matchesFilter(rec, filter) {
			continue
		}
		out = append(out, StoreSearchResult{Record: rec, Relevance: 1.0 - distance/2.0})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

func (s *SelfHostedStore) Get(ctx context.Context, id string) (*Record, error) {
	var resp struct {
		Properties map[string]interface{} `json:"properties"`
		Vector     []float32               `json:"vector"`
	}
	err := s.doJSON(ctx, http.MethodGet, "/v1/objects/"+s.cfg.ClassName+"/"+selfHostedObjectID(id)+"?include=vector", nil, &resp)
	if err != nil {
		if strings.Contains(err.Error(), "status=404") {
			return nil, nil
		}
		return nil, NewBackendError("vector-store:weaviate", err)
	}
	if resp.Properties == nil {
		return nil, nil
	}
	return propertiesToRecord(resp.Properties, resp.Vector), nil
}

func (s *SelfHostedStore) Delete(ctx context.Context, id string) (bool, error) {
	err := s.doJSON(ctx, http.MethodDelete, "/v1/objects/"+s.cfg.ClassName+"/"+selfHostedObjectID(id), nil, nil)
	if err != nil {
		if strings.Contains(err.Error(), "status=404") {
			return false, nil
		}
		return false, NewBackendError("vector-store:weaviate", err)
	}
	return true, nil
}

func (s *SelfHostedStore) DeleteBatch(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		ok, err := s.Delete(ctx, id)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted++
		}
	}
	return deleted, nil
}

func (s *SelfHostedStore) List(ctx context.Context, filter *SearchFilter) ([]*Record, error) {
	graphql := fmt.Sprintf(`{
		Get {
			%s(limit: %d) {
				recordId content timestamp importance source tags accessCount lastAccessed layer
				_additional { vector }
			}
		}
	}`, s.cfg.ClassName, ListCap)

	var resp struct {
		Data struct {
			Get map[string][]map[string]interface{} `json:"Get"`
		} `json:"data"`
	}
	if err := s.doJSON(ctx, http.MethodPost, "/v1/graphql", map[string]string{"query": graphql}, &resp); err != nil {
		return nil, NewBackendError("vector-store:weaviate", err)
	}

	items := resp.Data.Get[s.cfg.ClassName]
	out := make([]*Record, 0, len(items))
	for _, item := range items {
		var embedding []float32
		if add, ok := item["_additional"].(map[string]interface{}); ok {
			if vecIface, ok := add["vector"].([]interface{}); ok {
				for _, x := range vecIface {
					if f, ok := x.(float64); ok {
						embedding = append(embedding, float32(f))
					}
				}
			}
		}
		rec := propertiesToRecord(item, embedding)
		if matchesFilter(rec, filter) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Update performs delete-then-insert, since Weaviate's PATCH does not
// guarantee atomic vector+property replacement with the guarantees the
// contract requires.
func (s *SelfHostedStore) Update(ctx context.Context, record *Record) error {
	if _, err := s.Delete(ctx, record.ID); err != nil {
		return err
	}
	return s.Store(ctx, record)
}

func (s *SelfHostedStore) Close() error {
	return nil
}
