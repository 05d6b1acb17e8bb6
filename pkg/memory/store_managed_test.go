package memory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type managedVector struct {
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata"`
}

func newManagedTestServer(t *testing.T) (*httptest.Server, map[string]managedVector) {
	t.Helper()
	store := make(map[string]managedVector)

	mux := http.NewServeMux()
	mux.HandleFunc("/vectors/upsert", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Vectors []struct {
				ID       string                 `json:"id"`
				Values   []float32              `json:"values"`
				Metadata map[string]interface{} `json:"metadata"`
			} `json:"vectors"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, v := range body.Vectors {
			store[v.ID] = managedVector{Values: v.Values, Metadata: v.Metadata}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/vectors/fetch", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("ids")
		resp := map[string]interface{}{"vectors": map[string]interface{}{}}
		if v, ok := store[id]; ok {
			resp["vectors"].(map[string]interface{})[id] = map[string]interface{}{
				"id": id, "values": v.Values, "metadata": v.Metadata,
			}
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/vectors/delete", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			IDs []string `json:"ids"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		for _, id := range body.IDs {
			delete(store, id)
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/query", func(w http.ResponseWriter, r *http.Request) {
		matches := make([]map[string]interface{}, 0, len(store))
		for id, v := range store {
			matches = append(matches, map[string]interface{}{
				"id": id, "score": 0.9, "values": v.Values, "metadata": v.Metadata,
			})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"matches": matches})
	})

	return httptest.NewServer(mux), store
}

func TestManagedStore_StoreAndGet(t *testing.T) {
	server, _ := newManagedTestServer(t)
	defer server.Close()

	ms := NewManagedStore(ManagedConfig{APIKey: "key", BaseURL: server.URL}, 2)
	ctx := context.Background()
	require.NoError(t, ms.Initialize(ctx))

	rec := &Record{ID: "rec-1", Content: "a note", Embedding: []float32{0.5, 0.5}, Layer: LayerWorking}
	require.NoError(t, ms.Store(ctx, rec))

	got, err := ms.Get(ctx, "rec-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a note", got.Content)
}

func TestManagedStore_GetMissing(t *testing.T) {
	server, _ := newManagedTestServer(t)
	defer server.Close()

	ms := NewManagedStore(ManagedConfig{APIKey: "key", BaseURL: server.URL}, 2)
	got, err := ms.Get(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManagedStore_StoreRequiresEmbedding(t *testing.T) {
	server, _ := newManagedTestServer(t)
	defer server.Close()

	ms := NewManagedStore(ManagedConfig{APIKey: "key", BaseURL: server.URL}, 2)
	err := ms.Store(context.Background(), &Record{ID: "x"})
	assert.Error(t, err)
}

func TestManagedStore_DeleteAndSearch(t *testing.T) {
	server, _ := newManagedTestServer(t)
	defer server.Close()

	ms := NewManagedStore(ManagedConfig{APIKey: "key", BaseURL: server.URL}, 2)
	ctx := context.Background()
	require.NoError(t, ms.Store(ctx, &Record{ID: "a", Embedding: []float32{1, 0}}))

	results, err := ms.Search(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, results)

	ok, err := ms.Delete(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}
