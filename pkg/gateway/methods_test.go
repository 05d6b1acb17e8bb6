package gateway

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Parswanadh/memory-mcp-server/pkg/memory"
)

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()

	store := memory.NewInMemoryStore()
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))

	mgr, err := memory.NewManager(ctx, memory.Config{
		Store:    store,
		Embedder: memory.NewLocalProvider(),
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	return NewGateway(mgr)
}

func TestGateway_RegisterAll(t *testing.T) {
	gw := newTestGateway(t)
	router := NewRPCRouter()

	require.NoError(t, gw.RegisterAll(router))

	for _, name := range []string{
		"memory_store", "memory_search", "memory_recall", "memory_consolidate",
		"memory_forget", "memory_list", "memory_stats", "tools/list",
	} {
		assert.True(t, router.HasMethod(name), "expected method %s to be registered", name)
	}
}

func TestGateway_HandleToolsList(t *testing.T) {
	gw := newTestGateway(t)

	result, err := gw.handleToolsList(nil)
	require.NoError(t, err)

	out, ok := result.(map[string]interface{})
	require.True(t, ok)
	tools, ok := out["tools"].([]ToolDefinition)
	require.True(t, ok)
	assert.NotEmpty(t, tools)
}

func TestGateway_StoreSearchRoundTrip(t *testing.T) {
	gw := newTestGateway(t)

	storeResult, err := gw.handleStore(map[string]interface{}{
		"content":    "remember to review the quarterly budget",
		"importance": float64(0.6),
		"tags":       []interface{}{"finance"},
	})
	require.NoError(t, err)
	storeMap := storeResult.(map[string]interface{})
	assert.NotEmpty(t, storeMap["memoryId"])

	searchResult, err := gw.handleSearch(map[string]interface{}{
		"query": "budget review",
		"limit": float64(5),
	})
	require.NoError(t, err)
	hits, ok := searchResult.([]map[string]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, hits)
}

func TestGateway_HandleForget_SelectorValidation(t *testing.T) {
	gw := newTestGateway(t)

	t.Run("no selector rejected", func(t *testing.T) {
		_, err := gw.handleForget(map[string]interface{}{})
		assert.Error(t, err)
	})

	t.Run("multiple selectors rejected", func(t *testing.T) {
		_, err := gw.handleForget(map[string]interface{}{
			"memoryId": "abc",
			"layer":    "working",
		})
		assert.Error(t, err)
	})

	t.Run("single selector accepted", func(t *testing.T) {
		result, err := gw.handleForget(map[string]interface{}{"layer": "working"})
		require.NoError(t, err)
		out := result.(map[string]interface{})
		assert.Equal(t, 0, out["deletedCount"])
	})
}

func TestGateway_HandleStats(t *testing.T) {
	gw := newTestGateway(t)

	_, err := gw.handleStore(map[string]interface{}{"content": "a fact worth keeping"})
	require.NoError(t, err)

	result, err := gw.handleStats(nil)
	require.NoError(t, err)
	out := result.(map[string]interface{})
	assert.Equal(t, 1, out["totalMemories"])
}
