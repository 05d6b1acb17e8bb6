package memory

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, opts ...func(*Config)) *Manager {
	t.Helper()
	store := NewInMemoryStore()
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Initialize(ctx))

	cfg := Config{
		Store:    store,
		Embedder: NewLocalProvider(),
		Logger:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(&cfg)
	}

	mgr, err := NewManager(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })
	return mgr
}

func TestManager_Store_InitialLayerByImportance(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	low, err := mgr.Store(ctx, "trivial scratch note", StoreOptions{Importance: 0.2})
	require.NoError(t, err)
	assert.Equal(t, LayerWorking, low.Layer)

	mid, err := mgr.Store(ctx, "moderately important fact", StoreOptions{Importance: 0.6})
	require.NoError(t, err)
	assert.Equal(t, LayerShortTerm, mid.Layer)

	high, err := mgr.Store(ctx, "critical user preference", StoreOptions{Importance: 0.9})
	require.NoError(t, err)
	assert.Equal(t, LayerLongTerm, high.Layer)
}

func TestManager_Store_ExplicitLayerOverridesImportance(t *testing.T) {
	mgr := newTestManager(t)
	rec, err := mgr.Store(context.Background(), "forced into long term", StoreOptions{Importance: 0.1, Layer: LayerLongTerm})
	require.NoError(t, err)
	assert.Equal(t, LayerLongTerm, rec.Layer)
}

func TestManager_Store_RejectsEmptyAndOversizedContent(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Store(ctx, "   ", StoreOptions{})
	assert.Error(t, err)

	oversized := make([]byte, maxContentChars+1)
	for i := range oversized {
		oversized[i] = 'a'
	}
	_, err = mgr.Store(ctx, string(oversized), StoreOptions{})
	assert.Error(t, err)
}

func TestManager_Store_Defaults(t *testing.T) {
	mgr := newTestManager(t)
	rec, err := mgr.Store(context.Background(), "a default record", StoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0.5, rec.Importance)
	assert.Equal(t, SourceAgent, rec.Source)
	assert.Equal(t, LayerShortTerm, rec.Layer)
}

func TestManager_SearchAndLayerFilter(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Store(ctx, "the budget review happens quarterly", StoreOptions{Importance: 0.9})
	require.NoError(t, err)
	_, err = mgr.Store(ctx, "unrelated note about lunch plans", StoreOptions{Importance: 0.2})
	require.NoError(t, err)

	results, err := mgr.Search(ctx, "budget review", SearchOptions{Limit: 5})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Contains(t, results[0].Content, "budget")

	filtered, err := mgr.Search(ctx, "budget review", SearchOptions{Limit: 5, LayerFilter: []Layer{LayerWorking}})
	require.NoError(t, err)
	for _, r := range filtered {
		assert.Equal(t, LayerWorking, r.Record.Layer)
	}
}

func TestManager_SearchRejectsEmptyQuery(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Search(context.Background(), "", SearchOptions{})
	assert.Error(t, err)
}

func TestManager_SearchBumpsAccessCount(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.Store(ctx, "a memory to be recalled repeatedly", StoreOptions{})
	require.NoError(t, err)
	assert.Equal(t, int64(0), rec.AccessCount)

	_, err = mgr.Search(ctx, "memory to be recalled", SearchOptions{Limit: 5})
	require.NoError(t, err)

	got, err := mgr.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.AccessCount)
}

func TestManager_Recall(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Store(ctx, "the deployment pipeline uses blue-green releases", StoreOptions{Importance: 0.8})
	require.NoError(t, err)

	result, err := mgr.Recall(ctx, "how do we deploy", "production releases", 5)
	require.NoError(t, err)
	assert.Contains(t, result.Summary, "memories")
}

func TestManager_RecallRejectsEmptyTask(t *testing.T) {
	mgr := newTestManager(t)
	_, err := mgr.Recall(context.Background(), "", "", 5)
	assert.Error(t, err)
}

func TestManager_Consolidate_MergesGroupsOfThreeOrMore(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		rec, err := mgr.Store(ctx, "a note about the project roadmap", StoreOptions{
			Importance: 0.3,
			Tags:       []string{"roadmap"},
		})
		require.NoError(t, err)
		rec.Timestamp = nowMillis() - 60*24*60*60*1000
		require.NoError(t, mgr.store.Update(ctx, rec))
	}

	result, err := mgr.Consolidate(ctx, ConsolidateOptions{Layer: LayerShortTerm, TargetSize: 5})
	require.NoError(t, err)
	require.Len(t, result.Consolidated, 1)
	assert.Equal(t, LayerLongTerm, result.Consolidated[0].Layer)
	assert.Contains(t, result.Consolidated[0].Tags, "consolidated")
	assert.Contains(t, result.Consolidated[0].Tags, "roadmap")
	assert.Equal(t, 5, result.DeletedCount)
}

func TestManager_Consolidate_NoopBelowTargetSize(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Store(ctx, "a single aged note", StoreOptions{Importance: 0.3})
	require.NoError(t, err)

	result, err := mgr.Consolidate(ctx, ConsolidateOptions{Layer: LayerShortTerm, TargetSize: 50})
	require.NoError(t, err)
	assert.Empty(t, result.Consolidated)
	assert.Equal(t, 0, result.DeletedCount)
}

func TestManager_Forget_ByID(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.Store(ctx, "ephemeral note", StoreOptions{})
	require.NoError(t, err)

	result, err := mgr.Forget(ctx, ForgetOptions{MemoryID: rec.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)

	got, err := mgr.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestManager_Forget_UnknownIDIsNotAnError(t *testing.T) {
	mgr := newTestManager(t)
	result, err := mgr.Forget(context.Background(), ForgetOptions{MemoryID: "nonexistent-id"})
	require.NoError(t, err)
	assert.Equal(t, 0, result.DeletedCount)
}

func TestManager_Forget_ByLayer(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Store(ctx, "a working-tier scratch note", StoreOptions{Importance: 0.2})
	require.NoError(t, err)
	_, err = mgr.Store(ctx, "a long-term important fact", StoreOptions{Importance: 0.9})
	require.NoError(t, err)

	result, err := mgr.Forget(ctx, ForgetOptions{Layer: LayerWorking})
	require.NoError(t, err)
	assert.Equal(t, 1, result.DeletedCount)

	remaining, err := mgr.List(ctx, ListOptions{})
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, LayerLongTerm, remaining[0].Layer)
}

func TestManager_ApplyDecay(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.Store(ctx, "an aging memory", StoreOptions{Importance: 0.8})
	require.NoError(t, err)
	rec.Timestamp = nowMillis() - 30*24*60*60*1000
	require.NoError(t, mgr.store.Update(ctx, rec))

	affected, err := mgr.ApplyDecay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, affected)

	got, err := mgr.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.InDelta(t, 0.8*0.9048374180359595, got.Importance, 1e-6)
}

func TestManager_ApplyDecay_SkipsRecordsUnderOneDayOld(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.Store(ctx, "a brand-new memory", StoreOptions{Importance: 0.8})
	require.NoError(t, err)

	affected, err := mgr.ApplyDecay(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, affected)

	got, err := mgr.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.8, got.Importance)
}

func TestManager_RebalanceLayers_PromotesHighScore(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.Store(ctx, "a very important memory", StoreOptions{Importance: 0.95, Layer: LayerShortTerm})
	require.NoError(t, err)

	promoted, demoted, err := mgr.RebalanceLayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, promoted)
	assert.Equal(t, 0, demoted)

	got, err := mgr.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, LayerLongTerm, got.Layer)
}

func TestManager_RebalanceLayers_DemotesOverstayedLowScore(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) {
		c.TTLs = LayerTTLs{Working: time.Hour, ShortTerm: time.Hour, LongTerm: time.Hour}
	})
	ctx := context.Background()

	rec, err := mgr.Store(ctx, "a stale low-value memory", StoreOptions{Importance: 0.15, Layer: LayerShortTerm})
	require.NoError(t, err)
	rec.Timestamp = nowMillis() - 10*60*60*1000
	require.NoError(t, mgr.store.Update(ctx, rec))

	promoted, demoted, err := mgr.RebalanceLayers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, promoted)
	assert.Equal(t, 1, demoted)

	got, err := mgr.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, LayerWorking, got.Layer)
}

func TestManager_ConsolidateDue_NoopBelowThreshold(t *testing.T) {
	mgr := newTestManager(t, func(c *Config) { c.ConsolidationThreshold = 100 })
	ctx := context.Background()

	_, err := mgr.Store(ctx, "one short-term memory", StoreOptions{Importance: 0.6})
	require.NoError(t, err)

	merged, err := mgr.ConsolidateDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, merged)
}

func TestManager_ListAndGet(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	rec, err := mgr.Store(ctx, "a listed memory", StoreOptions{Tags: []string{"x"}})
	require.NoError(t, err)

	list, err := mgr.List(ctx, ListOptions{Tags: []string{"x"}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, rec.ID, list[0].ID)

	got, err := mgr.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)

	missing, err := mgr.Get(ctx, "does-not-exist")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestManager_GetStats(t *testing.T) {
	mgr := newTestManager(t)
	ctx := context.Background()

	_, err := mgr.Store(ctx, "working tier note", StoreOptions{Importance: 0.2})
	require.NoError(t, err)
	_, err = mgr.Store(ctx, "long term note", StoreOptions{Importance: 0.9})
	require.NoError(t, err)

	stats, err := mgr.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalMemories)
	assert.Equal(t, 1, stats.ByLayer[LayerWorking])
	assert.Equal(t, 1, stats.ByLayer[LayerLongTerm])
	assert.NotNil(t, stats.OldestMemory)
	assert.NotNil(t, stats.NewestMemory)
}
