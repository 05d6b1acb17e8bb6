package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Parswanadh/memory-mcp-server/internal/observability"
	"github.com/Parswanadh/memory-mcp-server/internal/tracing"
)

// LayerTTLs carries the configured retention window per layer, used by
// rebalanceLayers to decide when a record has overstayed its tier.
type LayerTTLs struct {
	Working   time.Duration
	ShortTerm time.Duration
	LongTerm  time.Duration
}

func (t LayerTTLs) forLayer(l Layer) time.Duration {
	switch l {
	case LayerWorking:
		return t.Working
	case LayerShortTerm:
		return t.ShortTerm
	case LayerLongTerm:
		return t.LongTerm
	default:
		return t.Working
	}
}

// Config configures a Manager.
type Config struct {
	Store    VectorStore
	Embedder EmbeddingProvider
	Logger   zerolog.Logger

	CacheCapacity int
	TTLs          LayerTTLs

	DecayRate               float64 // default 0.1
	ConsolidationThreshold  int     // default 100
	ConsolidationAge        time.Duration // default 30 days
}

// Manager is the memory lifecycle engine: the sole mutator of Records,
// owning a VectorStore and EmbeddingProvider as capabilities.
type Manager struct {
	store    VectorStore
	embedder EmbeddingProvider
	cache    *WorkingCache
	locks    *shardedMutex
	logger   zerolog.Logger

	ttls                   LayerTTLs
	decayRate              float64
	consolidationThreshold int
	consolidationAge       time.Duration
}

// NewManager constructs a Manager and hydrates its WorkingCache from the
// VectorStore's current contents. The VectorStore must already have had
// Initialize called (NewManager does not call it, so callers can surface
// FatalInit distinctly from ordinary construction failures).
func NewManager(ctx context.Context, cfg Config) (*Manager, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.DecayRate == 0 {
		cfg.DecayRate = 0.1
	}
	if cfg.ConsolidationThreshold == 0 {
		cfg.ConsolidationThreshold = 100
	}
	if cfg.ConsolidationAge == 0 {
		cfg.ConsolidationAge = 30 * 24 * time.Hour
	}

	observability.EnsureRegistered()

	m := &Manager{
		store:                  cfg.Store,
		embedder:                cfg.Embedder,
		cache:                  NewWorkingCache(cfg.CacheCapacity),
		locks:                  newShardedMutex(),
		logger:                 cfg.Logger,
		ttls:                   cfg.TTLs,
		decayRate:              cfg.DecayRate,
		consolidationThreshold: cfg.ConsolidationThreshold,
		consolidationAge:       cfg.ConsolidationAge,
	}

	all, err := cfg.Store.List(ctx, nil)
	if err != nil {
		return nil, NewBackendError("vector-store", err)
	}
	m.cache.Hydrate(all)
	m.refreshLayerGauges(all)

	m.logger.Info().Int("hydrated", m.cache.Len()).Msg("memory manager initialized")
	return m, nil
}

func (m *Manager) refreshLayerGauges(all []*Record) {
	counts := map[Layer]int{LayerWorking: 0, LayerShortTerm: 0, LayerLongTerm: 0}
	for _, r := range all {
		counts[r.Layer]++
	}
	for layer, n := range counts {
		observability.SetMemoryEntries(string(layer), n)
	}
}

// --- store -------------------------------------------------------------

// StoreOptions configures Store.
type StoreOptions struct {
	Importance float64 // default 0.5
	Tags       []string
	Source     Source // default agent
	Layer      Layer  // optional; computed from Importance when empty
}

const maxContentChars = 10000

// Store creates a new Record from content, choosing its initial layer from
// importance unless options.Layer is explicitly supplied.
func (m *Manager) Store(ctx context.Context, content string, opts StoreOptions) (*Record, error) {
	ctx, span := tracing.StartSpan(ctx, "memory", "memory.store", attribute.Int("contentLength", len(content)))
	defer span.End()
	start := time.Now()
	defer observability.RecordMemoryWrite(time.Since(start))

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, NewValidationError("content", "must not be empty")
	}
	if len(content) > maxContentChars {
		return nil, NewValidationError("content", fmt.Sprintf("must not exceed %d characters", maxContentChars))
	}

	if opts.Importance == 0 {
		opts.Importance = 0.5
	}
	if opts.Source == "" {
		opts.Source = SourceAgent
	}

	embedding, err := m.embedder.Embed(ctx, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "embed failed")
		return nil, NewBackendError("embedding-provider", err)
	}

	layer := opts.Layer
	if layer == "" {
		layer = initialLayerFor(opts.Importance)
	}

	now := nowMillis()
	rec := &Record{
		ID:           uuid.NewString(),
		Content:      content,
		Embedding:    embedding,
		Timestamp:    now,
		Importance:   ClampImportance(opts.Importance),
		Source:       opts.Source,
		Tags:         append([]string(nil), opts.Tags...),
		AccessCount:  0,
		LastAccessed: now,
		Layer:        layer,
	}

	m.locks.Lock(rec.ID)
	defer m.locks.Unlock(rec.ID)

	if err := m.store.Store(ctx, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store failed")
		return nil, err
	}
	m.cache.Put(rec)

	return rec, nil
}

func initialLayerFor(importance float64) Layer {
	switch {
	case importance >= 0.8:
		return LayerLongTerm
	case importance >= 0.5:
		return LayerShortTerm
	default:
		return LayerWorking
	}
}

// --- search --------------------------------------------------------------

// SearchOptions configures Search.
type SearchOptions struct {
	Limit        int // default 10, 1..100
	LayerFilter  []Layer
	Tags         []string
	MinRelevance float64
}

// Result is one hit returned from Search/Recall.
type Result struct {
	ID        string
	Content   string
	Relevance float64
	Record    *Record
}

// Search embeds query, over-fetches from the VectorStore, drops results
// below MinRelevance, bumps access counters on every surviving hit
// (best-effort), and returns the first Limit results by relevance.
func (m *Manager) Search(ctx context.Context, query string, opts SearchOptions) ([]Result, error) {
	ctx, span := tracing.StartSpan(ctx, "memory", "memory.search", attribute.String("query", query))
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, m.logger)
	start := time.Now()
	defer observability.RecordMemorySearch("search", time.Since(start))

	if strings.TrimSpace(query) == "" {
		return nil, NewValidationError("query", "must not be empty")
	}
	if opts.Limit <= 0 {
		opts.Limit = 10
	}

	queryVec, err := m.embedder.Embed(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, NewBackendError("embedding-provider", err)
	}

	filter := &SearchFilter{Tags: opts.Tags}
	clientSideLayers := map[Layer]bool{}
	if len(opts.LayerFilter) == 1 {
		filter.Layer = opts.LayerFilter[0]
	} else if len(opts.LayerFilter) > 1 {
		for _, l := range opts.LayerFilter {
			clientSideLayers[l] = true
		}
	}

	kPrime := opts.Limit * 2
	hits, err := m.store.Search(ctx, queryVec, kPrime, filter)
	if err != nil {
		span.RecordError(err)
		return nil, NewBackendError("vector-store", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		if len(clientSideLayers) > 0 && !clientSideLayers[h.Record.Layer] {
			continue
		}
		if h.Relevance < opts.MinRelevance {
			continue
		}
		results = append(results, Result{ID: h.Record.ID, Content: h.Record.Content, Relevance: h.Relevance, Record: h.Record})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Relevance > results[j].Relevance })
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	for _, r := range results {
		m.bumpAccess(ctx, r.Record, logger)
	}

	logger.Debug().Str("query", query).Int("results", len(results)).Msg("search completed")
	return results, nil
}

// bumpAccess increments AccessCount and sets LastAccessed for rec, writing
// through WorkingCache and VectorStore. Failures are logged, not returned:
// access-counter updates are best-effort per the contract.
func (m *Manager) bumpAccess(ctx context.Context, rec *Record, logger zerolog.Logger) {
	m.locks.Lock(rec.ID)
	defer m.locks.Unlock(rec.ID)

	rec.AccessCount++
	rec.LastAccessed = nowMillis()

	if err := m.store.Update(ctx, rec); err != nil {
		logger.Warn().Err(err).Str("id", rec.ID).Msg("best-effort access-count update failed")
		return
	}
	m.cache.Put(rec)
}

// --- recall ----------------------------------------------------------------

// RecallResult is the response shape for Recall.
type RecallResult struct {
	Summary   string
	Memories  []Result
}

// Recall is a semantic convenience over Search: it builds a query from task
// (and optional context) and searches across all three layers.
func (m *Manager) Recall(ctx context.Context, task, taskContext string, limit int) (*RecallResult, error) {
	if strings.TrimSpace(task) == "" {
		return nil, NewValidationError("task", "must not be empty")
	}
	if limit <= 0 {
		limit = 10
	}

	query := task
	if taskContext != "" {
		query = task + "\n\nContext: " + taskContext
	}

	results, err := m.Search(ctx, query, SearchOptions{
		Limit:       limit,
		LayerFilter: []Layer{LayerWorking, LayerShortTerm, LayerLongTerm},
	})
	if err != nil {
		return nil, err
	}

	counts := map[Layer]int{}
	for _, r := range results {
		counts[r.Record.Layer]++
	}
	summary := fmt.Sprintf("%d memories (working=%d, short-term=%d, long-term=%d)",
		len(results), counts[LayerWorking], counts[LayerShortTerm], counts[LayerLongTerm])

	return &RecallResult{Summary: summary, Memories: results}, nil
}

// --- consolidate -------------------------------------------------------

// ConsolidateOptions configures Consolidate.
type ConsolidateOptions struct {
	OlderThan  int64 // ms since epoch; default now - 30 days
	TargetSize int   // default 50, 1..1000
	Layer      Layer // default short-term
}

// ConsolidationResult is the response shape for Consolidate.
type ConsolidationResult struct {
	Summary      string
	Consolidated []*Record
	DeletedCount int
	Deleted      []string
}

// Consolidate groups aged, low-ranking records by primary tag and merges
// each group of >= 3 into a single long-term consolidated record.
func (m *Manager) Consolidate(ctx context.Context, opts ConsolidateOptions) (*ConsolidationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "memory", "memory.consolidate")
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, m.logger)

	if opts.TargetSize <= 0 {
		opts.TargetSize = 50
	}
	if opts.Layer == "" {
		opts.Layer = LayerShortTerm
	}
	if opts.OlderThan == 0 {
		opts.OlderThan = nowMillis() - m.consolidationAge.Milliseconds()
	}

	all, err := m.store.List(ctx, &SearchFilter{Layer: opts.Layer})
	if err != nil {
		return nil, NewBackendError("vector-store", err)
	}

	var candidates []*Record
	for _, r := range all {
		if r.Timestamp < opts.OlderThan {
			candidates = append(candidates, r)
		}
	}

	if len(candidates) < opts.TargetSize {
		return &ConsolidationResult{
			Summary: fmt.Sprintf("only %d candidates, below target size %d; nothing consolidated", len(candidates), opts.TargetSize),
		}, nil
	}

	now := nowMillis()
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].MemoryScore(now, m.decayRate) > candidates[j].MemoryScore(now, m.decayRate)
	})

	retain := candidates[:opts.TargetSize]
	toConsolidate := candidates[opts.TargetSize:]

	groups := map[string][]*Record{}
	for _, r := range toConsolidate {
		tag := r.PrimaryTag()
		groups[tag] = append(groups[tag], r)
	}

	var consolidated []*Record
	var deletedIDs []string

	// Sort group keys for deterministic iteration order (map iteration is
	// randomized in Go, and this result is observable to callers).
	tags := make([]string, 0, len(groups))
	for tag := range groups {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		group := groups[tag]
		if len(group) < 3 {
			retain = append(retain, group...)
			continue
		}

		rec, err := m.buildConsolidatedRecord(ctx, tag, group)
		if err != nil {
			logger.Error().Err(err).Str("tag", tag).Msg("failed to build consolidated record")
			retain = append(retain, group...)
			continue
		}
		consolidated = append(consolidated, rec)

		ids := make([]string, 0, len(group))
		for _, r := range group {
			ids = append(ids, r.ID)
		}
		if err := m.deleteMany(ctx, ids); err != nil {
			logger.Error().Err(err).Msg("failed to delete consolidated source records")
			continue
		}
		deletedIDs = append(deletedIDs, ids...)
		observability.RecordMemoryAudit(ctx, "consolidate", rec.ID, "success", map[string]interface{}{
			"tag":          tag,
			"mergedCount":  len(ids),
			"mergedFromID": ids,
		})
	}

	observability.RecordConsolidationRun(len(deletedIDs))
	summary := fmt.Sprintf("consolidated %d groups from %d candidates into %d long-term records, deleted %d originals",
		len(consolidated), len(candidates), len(consolidated), len(deletedIDs))

	return &ConsolidationResult{
		Summary:      summary,
		Consolidated: consolidated,
		DeletedCount: len(deletedIDs),
		Deleted:      deletedIDs,
	}, nil
}

func (m *Manager) buildConsolidatedRecord(ctx context.Context, primaryTag string, group []*Record) (*Record, error) {
	sort.Slice(group, func(i, j int) bool { return group[i].Timestamp < group[j].Timestamp })

	start := time.UnixMilli(group[0].Timestamp).UTC().Format("2006-01-02")
	end := time.UnixMilli(group[len(group)-1].Timestamp).UTC().Format("2006-01-02")

	tagFreq := map[string]int{}
	for _, r := range group {
		for _, t := range r.Tags {
			tagFreq[t]++
		}
	}
	topTags := topNTags(tagFreq, 3)

	sampleCount := 3
	if len(group) < sampleCount {
		sampleCount = len(group)
	}
	samples := make([]string, 0, sampleCount)
	for i := 0; i < sampleCount; i++ {
		samples = append(samples, group[i].Content)
	}

	content := fmt.Sprintf("[Consolidated Memory: %d entries from %s to %s]\nTags: %s\nSummary: %s",
		len(group), start, end, strings.Join(topTags, ", "), strings.Join(samples, " | "))
	if len(group) > sampleCount {
		content += "[...]"
	}

	var importanceSum float64
	tagSet := map[string]bool{primaryTag: true, "consolidated": true}
	for _, r := range group {
		importanceSum += r.Importance
		for _, t := range r.Tags {
			tagSet[t] = true
		}
	}
	importance := (importanceSum / float64(len(group))) * 0.9

	tags := make([]string, 0, len(tagSet))
	for t := range tagSet {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	return m.Store(ctx, content, StoreOptions{
		Importance: ClampImportance(importance),
		Tags:       tags,
		Source:     SourceSystem,
		Layer:      LayerLongTerm,
	})
}

func topNTags(freq map[string]int, n int) []string {
	type kv struct {
		tag   string
		count int
	}
	list := make([]kv, 0, len(freq))
	for t, c := range freq {
		list = append(list, kv{t, c})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].count != list[j].count {
			return list[i].count > list[j].count
		}
		return list[i].tag < list[j].tag
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, kv := range list {
		out[i] = kv.tag
	}
	return out
}

func (m *Manager) deleteMany(ctx context.Context, ids []string) error {
	// Lock in a canonical order (sorted, not call-supplied order) so two
	// concurrent deleteMany calls over overlapping id sets can never form a
	// lock cycle.
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	for _, id := range sorted {
		m.locks.Lock(id)
	}
	defer func() {
		for _, id := range sorted {
			m.locks.Unlock(id)
		}
	}()

	if _, err := m.store.DeleteBatch(ctx, ids); err != nil {
		return NewBackendError("vector-store", err)
	}
	for _, id := range ids {
		m.cache.Remove(id)
	}
	return nil
}

// --- forget --------------------------------------------------------------

// ForgetOptions configures Forget. Exactly one of MemoryID, OlderThan, or
// Layer must be set (enforced at the gateway boundary, not here).
type ForgetOptions struct {
	MemoryID  string
	OlderThan int64
	Layer     Layer
	Reason    string
}

// ForgetResult is the response shape for Forget.
type ForgetResult struct {
	DeletedCount int
	Deleted      []string
	Reason       string
}

// Forget deletes a single record by id, or a batch selected by age and/or
// layer. Deleting an unknown id is not an error: it simply deletes nothing.
func (m *Manager) Forget(ctx context.Context, opts ForgetOptions) (*ForgetResult, error) {
	ctx, span := tracing.StartSpan(ctx, "memory", "memory.forget")
	defer span.End()

	if opts.MemoryID != "" {
		m.locks.Lock(opts.MemoryID)
		ok, err := m.store.Delete(ctx, opts.MemoryID)
		if err == nil && ok {
			m.cache.Remove(opts.MemoryID)
		}
		m.locks.Unlock(opts.MemoryID)
		if err != nil {
			span.RecordError(err)
			return nil, NewBackendError("vector-store", err)
		}

		reason := opts.Reason
		if reason == "" {
			reason = "Explicit deletion"
		}
		if !ok {
			observability.RecordMemoryAudit(ctx, "forget", opts.MemoryID, "not_found", map[string]interface{}{"reason": reason})
			return &ForgetResult{Reason: reason}, nil
		}
		observability.RecordMemoryAudit(ctx, "forget", opts.MemoryID, "success", map[string]interface{}{"reason": reason})
		return &ForgetResult{DeletedCount: 1, Deleted: []string{opts.MemoryID}, Reason: reason}, nil
	}

	filter := &SearchFilter{}
	if opts.Layer != "" {
		filter.Layer = opts.Layer
	}
	all, err := m.store.List(ctx, filter)
	if err != nil {
		return nil, NewBackendError("vector-store", err)
	}

	var ids []string
	for _, r := range all {
		if opts.OlderThan != 0 && r.Timestamp >= opts.OlderThan {
			continue
		}
		ids = append(ids, r.ID)
	}

	if len(ids) == 0 {
		return &ForgetResult{Reason: forgetReason(opts)}, nil
	}
	if err := m.deleteMany(ctx, ids); err != nil {
		return nil, err
	}
	observability.RecordMemoryAudit(ctx, "forget", "batch", "success", map[string]interface{}{
		"deletedCount": len(ids),
		"reason":       forgetReason(opts),
	})

	return &ForgetResult{DeletedCount: len(ids), Deleted: ids, Reason: forgetReason(opts)}, nil
}

func forgetReason(opts ForgetOptions) string {
	if opts.Reason != "" {
		return opts.Reason
	}
	parts := []string{}
	if opts.OlderThan != 0 {
		parts = append(parts, "older than cutoff")
	}
	if opts.Layer != "" {
		parts = append(parts, fmt.Sprintf("in layer %s", opts.Layer))
	}
	if len(parts) == 0 {
		return "Explicit deletion"
	}
	return strings.Join(parts, ", ")
}

// --- scheduled maintenance -----------------------------------------------

// ApplyDecay attenuates the importance of every record at least 1 day old,
// per the exponential decay formula. Satisfies scheduler.Maintainer.
func (m *Manager) ApplyDecay(ctx context.Context) (int, error) {
	all, err := m.store.List(ctx, nil)
	if err != nil {
		return 0, NewBackendError("vector-store", err)
	}

	now := nowMillis()
	affected := 0
	for _, r := range all {
		ageDays := r.AgeDays(now)
		if ageDays < 1 {
			continue
		}

		m.locks.Lock(r.ID)
		fresh, err := m.store.Get(ctx, r.ID)
		if err == nil && fresh != nil {
			fresh.Importance = ClampImportance(fresh.Importance * math.Exp(-m.decayRate*ageDays/30.0))
			if err := m.store.Update(ctx, fresh); err == nil {
				m.cache.Put(fresh)
				affected++
			}
		}
		m.locks.Unlock(r.ID)
	}
	return affected, nil
}

// RebalanceLayers migrates records between tiers based on memory score and
// TTL overstay. Satisfies scheduler.Maintainer.
func (m *Manager) RebalanceLayers(ctx context.Context) (promoted int, demoted int, err error) {
	all, listErr := m.store.List(ctx, nil)
	if listErr != nil {
		return 0, 0, NewBackendError("vector-store", listErr)
	}

	now := nowMillis()
	for _, r := range all {
		m.locks.Lock(r.ID)
		fresh, getErr := m.store.Get(ctx, r.ID)
		if getErr != nil || fresh == nil {
			m.locks.Unlock(r.ID)
			continue
		}

		score := fresh.MemoryScore(now, m.decayRate)
		age := time.Duration(now-fresh.Timestamp) * time.Millisecond
		ttl := m.ttls.forLayer(fresh.Layer)

		switch {
		case ttl > 0 && age > ttl && score < 0.3:
			if fresh.Layer == LayerLongTerm {
				fresh.Importance = ClampImportance(fresh.Importance * 0.5)
			} else {
				fresh.Layer = demoteLayer(fresh.Layer)
				demoted++
			}
		case score > 0.8 && fresh.Layer != LayerLongTerm:
			fresh.Layer = LayerLongTerm
			promoted++
		}

		if updErr := m.store.Update(ctx, fresh); updErr == nil {
			m.cache.Put(fresh)
		}
		m.locks.Unlock(r.ID)
	}
	return promoted, demoted, nil
}

func demoteLayer(l Layer) Layer {
	switch l {
	case LayerLongTerm:
		return LayerShortTerm
	case LayerShortTerm:
		return LayerWorking
	default:
		return LayerWorking
	}
}

// ConsolidateDue runs Consolidate against the short-term layer only when
// its record count exceeds the configured threshold. Satisfies
// scheduler.Maintainer.
func (m *Manager) ConsolidateDue(ctx context.Context) (int, error) {
	shortTerm, err := m.store.List(ctx, &SearchFilter{Layer: LayerShortTerm})
	if err != nil {
		return 0, NewBackendError("vector-store", err)
	}
	if len(shortTerm) <= m.consolidationThreshold {
		return 0, nil
	}

	result, err := m.Consolidate(ctx, ConsolidateOptions{
		Layer:      LayerShortTerm,
		TargetSize: m.consolidationThreshold,
	})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// --- list & stats ----------------------------------------------------------

// ListOptions configures List.
type ListOptions struct {
	Layer Layer
	Tags  []string
	Limit int // default 100, 1..1000
}

// List returns records matching the filter, capped at Limit.
func (m *Manager) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}
	records, err := m.store.List(ctx, &SearchFilter{Layer: opts.Layer, Tags: opts.Tags})
	if err != nil {
		return nil, NewBackendError("vector-store", err)
	}
	if len(records) > opts.Limit {
		records = records[:opts.Limit]
	}
	return records, nil
}

// Get returns a single record by id, or nil if it does not exist (NotFound
// is not surfaced as an error, per the contract).
func (m *Manager) Get(ctx context.Context, id string) (*Record, error) {
	rec := m.cache.Get(id)
	if rec != nil {
		return rec, nil
	}

	m.locks.Lock(id)
	defer m.locks.Unlock(id)

	rec, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, NewBackendError("vector-store", err)
	}
	return rec, nil
}

// Stats summarizes the engine's current contents.
type Stats struct {
	TotalMemories int
	ByLayer       map[Layer]int
	AvgImportance float64
	OldestMemory  *int64
	NewestMemory  *int64
}

// GetStats counts records per layer via a list-based walk (the cheaper,
// preferred derivation over a cosine search against an empty query).
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	all, err := m.store.List(ctx, nil)
	if err != nil {
		return nil, NewBackendError("vector-store", err)
	}

	stats := &Stats{ByLayer: map[Layer]int{LayerWorking: 0, LayerShortTerm: 0, LayerLongTerm: 0}}
	var importanceSum float64
	for _, r := range all {
		stats.TotalMemories++
		stats.ByLayer[r.Layer]++
		importanceSum += r.Importance

		if stats.OldestMemory == nil || r.Timestamp < *stats.OldestMemory {
			ts := r.Timestamp
			stats.OldestMemory = &ts
		}
		if stats.NewestMemory == nil || r.Timestamp > *stats.NewestMemory {
			ts := r.Timestamp
			stats.NewestMemory = &ts
		}
	}
	if stats.TotalMemories > 0 {
		stats.AvgImportance = importanceSum / float64(stats.TotalMemories)
	}

	m.refreshLayerGauges(all)
	return stats, nil
}

// Close releases the underlying VectorStore's resources.
func (m *Manager) Close() error {
	return m.store.Close()
}
