package gateway

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Parswanadh/memory-mcp-server/pkg/memory"
)

// Gateway translates the 8 external memory tool calls (plus tool discovery)
// into memory.Manager operations, registering each with an RPCRouter and
// validating arguments against a compiled JSON Schema before dispatch.
type Gateway struct {
	manager   *memory.Manager
	validator *Validator
}

// NewGateway constructs a Gateway bound to mgr.
func NewGateway(mgr *memory.Manager) *Gateway {
	return &Gateway{manager: mgr, validator: NewValidator()}
}

// RegisterAll registers all 8 tools plus tools/list on router.
func (g *Gateway) RegisterAll(router *RPCRouter) error {
	defs := g.toolDefinitions()
	for _, def := range defs {
		if err := g.validator.Register(def); err != nil {
			return err
		}
	}

	handlers := map[string]RequestHandler{
		"memory_store":       g.handleStore,
		"memory_search":      g.handleSearch,
		"memory_recall":      g.handleRecall,
		"memory_consolidate": g.handleConsolidate,
		"memory_forget":      g.handleForget,
		"memory_list":        g.handleList,
		"memory_stats":       g.handleStats,
		"tools/list":         g.handleToolsList,
	}

	for name, handler := range handlers {
		validated := g.withValidation(name, handler)
		if err := router.RegisterMethod(name, validated); err != nil {
			return fmt.Errorf("register %s: %w", name, err)
		}
	}

	log.Info().Int("tools", len(handlers)).Msg("memory gateway tools registered")
	return nil
}

func (g *Gateway) withValidation(name string, handler RequestHandler) RequestHandler {
	if name == "tools/list" {
		return handler
	}
	return func(params map[string]interface{}) (interface{}, error) {
		if params == nil {
			params = map[string]interface{}{}
		}
		if err := g.validator.Validate(name, params); err != nil {
			return nil, err
		}
		return handler(params)
	}
}

func (g *Gateway) toolDefinitions() []ToolDefinition {
	layerEnum := []string{"working", "short-term", "long-term"}
	sourceEnum := []string{"user", "agent", "system"}

	return []ToolDefinition{
		{
			Name:        "memory_store",
			Description: "Store a new memory record, aged into a retention tier by importance.",
			Parameters: []ToolParameter{
				{Name: "content", Type: "string", Description: "The text to remember.", Required: true, MaxLength: intPtr(10000)},
				{Name: "importance", Type: "number", Description: "Initial importance, 0..1.", Default: 0.5, Minimum: floatPtr(0), Maximum: floatPtr(1)},
				{Name: "tags", Type: "array", Description: "Up to 50 tags, each up to 50 characters.", MaxItems: intPtr(50), Items: &ToolParameter{Type: "string", MaxLength: intPtr(50)}},
				{Name: "source", Type: "string", Description: "Who produced this memory.", Default: "agent", Enum: sourceEnum},
				{Name: "layer", Type: "string", Description: "Override the computed initial layer.", Enum: layerEnum},
			},
		},
		{
			Name:        "memory_search",
			Description: "Semantically search stored memories.",
			Parameters: []ToolParameter{
				{Name: "query", Type: "string", Description: "Search text.", Required: true, MaxLength: intPtr(1000), Pattern: `^[^{}\[\]():]*$`},
				{Name: "limit", Type: "integer", Description: "Max results, 1..100.", Default: 10, Minimum: floatPtr(1), Maximum: floatPtr(100)},
				{Name: "layerFilter", Type: "array", Description: "Restrict to these layers.", Items: &ToolParameter{Type: "string", Enum: layerEnum}},
				{Name: "minRelevance", Type: "number", Description: "Drop results below this relevance, 0..1.", Default: 0, Minimum: floatPtr(0), Maximum: floatPtr(1)},
				{Name: "tags", Type: "array", Description: "Restrict to memories carrying all these tags.", Items: &ToolParameter{Type: "string"}},
			},
		},
		{
			Name:        "memory_recall",
			Description: "Recall memories relevant to a task description.",
			Parameters: []ToolParameter{
				{Name: "task", Type: "string", Description: "What the agent is trying to do.", Required: true, MaxLength: intPtr(1000)},
				{Name: "context", Type: "string", Description: "Additional context to fold into the query.", MaxLength: intPtr(5000)},
				{Name: "limit", Type: "integer", Description: "Max memories to return, 1..50.", Default: 10, Minimum: floatPtr(1), Maximum: floatPtr(50)},
			},
		},
		{
			Name:        "memory_consolidate",
			Description: "Merge aged, low-ranking memories into long-term summaries.",
			Parameters: []ToolParameter{
				{Name: "olderThan", Type: "integer", Description: "Only consider memories older than this (ms since epoch)."},
				{Name: "targetSize", Type: "integer", Description: "Retain this many top-ranked records, consolidate the rest, 1..1000.", Default: 50, Minimum: floatPtr(1), Maximum: floatPtr(1000)},
				{Name: "layer", Type: "string", Description: "Layer to consolidate.", Default: "short-term", Enum: layerEnum},
			},
		},
		{
			Name:        "memory_forget",
			Description: "Delete a memory by id, or a batch selected by age and/or layer.",
			Parameters: []ToolParameter{
				{Name: "memoryId", Type: "string", Description: "Delete exactly this memory."},
				{Name: "olderThan", Type: "integer", Description: "Delete memories older than this (ms since epoch)."},
				{Name: "layer", Type: "string", Description: "Restrict batch deletion to this layer.", Enum: layerEnum},
				{Name: "reason", Type: "string", Description: "Audit trail reason.", MaxLength: intPtr(500)},
			},
		},
		{
			Name:        "memory_list",
			Description: "List memories, optionally filtered by layer and tags.",
			Parameters: []ToolParameter{
				{Name: "layer", Type: "string", Description: "Restrict to this layer.", Enum: layerEnum},
				{Name: "tags", Type: "array", Description: "Restrict to memories carrying all these tags.", Items: &ToolParameter{Type: "string"}},
				{Name: "limit", Type: "integer", Description: "Max records, 1..1000.", Default: 100, Minimum: floatPtr(1), Maximum: floatPtr(1000)},
			},
		},
		{
			Name:        "memory_stats",
			Description: "Summarize the engine's current contents.",
			Parameters:  []ToolParameter{},
		},
	}
}

func (g *Gateway) handleToolsList(params map[string]interface{}) (interface{}, error) {
	defs := g.validator.Definitions()
	out := make([]ToolDefinition, len(defs))
	copy(out, defs)
	out = append(out, ToolDefinition{
		Name:        "tools/list",
		Description: "List every registered tool's name, description, and JSON schema.",
		Parameters:  []ToolParameter{},
	})
	return map[string]interface{}{"tools": out}, nil
}

func (g *Gateway) handleStore(params map[string]interface{}) (interface{}, error) {
	ctx := context.Background()
	content, _ := params["content"].(string)

	opts := memory.StoreOptions{}
	if v, ok := params["importance"].(float64); ok {
		opts.Importance = v
	}
	if v, ok := params["source"].(string); ok {
		opts.Source = memory.Source(v)
	}
	if v, ok := params["layer"].(string); ok {
		opts.Layer = memory.Layer(v)
	}
	opts.Tags = toStringSlice(params["tags"])

	rec, err := g.manager.Store(ctx, content, opts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"memoryId":  rec.ID,
		"timestamp": rec.Timestamp,
		"layer":     string(rec.Layer),
	}, nil
}

func (g *Gateway) handleSearch(params map[string]interface{}) (interface{}, error) {
	ctx := context.Background()
	query, _ := params["query"].(string)

	opts := memory.SearchOptions{Limit: 10}
	if v, ok := params["limit"].(float64); ok {
		opts.Limit = int(v)
	}
	if v, ok := params["minRelevance"].(float64); ok {
		opts.MinRelevance = v
	}
	opts.Tags = toStringSlice(params["tags"])
	for _, l := range toStringSlice(params["layerFilter"]) {
		opts.LayerFilter = append(opts.LayerFilter, memory.Layer(l))
	}

	results, err := g.manager.Search(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(results))
	for _, r := range results {
		out = append(out, map[string]interface{}{
			"id":        r.ID,
			"content":   r.Content,
			"relevance": r.Relevance,
			"metadata":  recordMetadata(r.Record),
		})
	}
	return out, nil
}

func (g *Gateway) handleRecall(params map[string]interface{}) (interface{}, error) {
	ctx := context.Background()
	task, _ := params["task"].(string)
	taskContext, _ := params["context"].(string)

	limit := 10
	if v, ok := params["limit"].(float64); ok {
		limit = int(v)
	}

	result, err := g.manager.Recall(ctx, task, taskContext, limit)
	if err != nil {
		return nil, err
	}

	memories := make([]map[string]interface{}, 0, len(result.Memories))
	for _, r := range result.Memories {
		memories = append(memories, map[string]interface{}{
			"id":        r.ID,
			"content":   r.Content,
			"relevance": r.Relevance,
			"metadata":  recordMetadata(r.Record),
		})
	}
	return map[string]interface{}{
		"summary":  result.Summary,
		"memories": memories,
	}, nil
}

func (g *Gateway) handleConsolidate(params map[string]interface{}) (interface{}, error) {
	ctx := context.Background()

	opts := memory.ConsolidateOptions{}
	if v, ok := params["olderThan"].(float64); ok {
		opts.OlderThan = int64(v)
	}
	if v, ok := params["targetSize"].(float64); ok {
		opts.TargetSize = int(v)
	}
	if v, ok := params["layer"].(string); ok {
		opts.Layer = memory.Layer(v)
	}

	result, err := g.manager.Consolidate(ctx, opts)
	if err != nil {
		return nil, err
	}

	consolidated := make([]map[string]interface{}, 0, len(result.Consolidated))
	for _, rec := range result.Consolidated {
		consolidated = append(consolidated, recordMetadata(rec))
	}
	return map[string]interface{}{
		"summary":      result.Summary,
		"consolidated": consolidated,
		"deletedCount": result.DeletedCount,
		"deleted":      result.Deleted,
	}, nil
}

func (g *Gateway) handleForget(params map[string]interface{}) (interface{}, error) {
	ctx := context.Background()

	opts := memory.ForgetOptions{}
	memoryID, hasID := params["memoryId"].(string)
	_, hasOlderThan := params["olderThan"]
	layer, hasLayer := params["layer"].(string)

	selectors := 0
	if hasID && memoryID != "" {
		selectors++
	}
	if hasOlderThan {
		selectors++
	}
	if hasLayer && layer != "" {
		selectors++
	}
	if selectors != 1 {
		return nil, memory.NewValidationError("memoryId/olderThan/layer", "exactly one of memoryId, olderThan, or layer is required")
	}

	if hasID && memoryID != "" {
		opts.MemoryID = memoryID
	}
	if v, ok := params["olderThan"].(float64); ok {
		opts.OlderThan = int64(v)
	}
	if hasLayer {
		opts.Layer = memory.Layer(layer)
	}
	if v, ok := params["reason"].(string); ok {
		opts.Reason = v
	}

	result, err := g.manager.Forget(ctx, opts)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"deletedCount": result.DeletedCount,
		"deleted":      result.Deleted,
		"reason":       result.Reason,
	}, nil
}

func (g *Gateway) handleList(params map[string]interface{}) (interface{}, error) {
	ctx := context.Background()

	opts := memory.ListOptions{Limit: 100}
	if v, ok := params["layer"].(string); ok {
		opts.Layer = memory.Layer(v)
	}
	if v, ok := params["limit"].(float64); ok {
		opts.Limit = int(v)
	}
	opts.Tags = toStringSlice(params["tags"])

	records, err := g.manager.List(ctx, opts)
	if err != nil {
		return nil, err
	}

	out := make([]map[string]interface{}, 0, len(records))
	for _, r := range records {
		head := r.Content
		if len(head) > 200 {
			head = head[:200]
		}
		out = append(out, map[string]interface{}{
			"id":       r.ID,
			"content":  head,
			"metadata": recordMetadata(r),
		})
	}
	return out, nil
}

func (g *Gateway) handleStats(params map[string]interface{}) (interface{}, error) {
	ctx := context.Background()
	stats, err := g.manager.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"totalMemories": stats.TotalMemories,
		"byLayer": map[string]int{
			"working":    stats.ByLayer[memory.LayerWorking],
			"short-term": stats.ByLayer[memory.LayerShortTerm],
			"long-term":  stats.ByLayer[memory.LayerLongTerm],
		},
		"avgImportance": stats.AvgImportance,
		"oldestMemory":  stats.OldestMemory,
		"newestMemory":  stats.NewestMemory,
	}, nil
}

func recordMetadata(r *memory.Record) map[string]interface{} {
	if r == nil {
		return nil
	}
	return map[string]interface{}{
		"timestamp":    r.Timestamp,
		"importance":   r.Importance,
		"source":       string(r.Source),
		"tags":         r.Tags,
		"accessCount":  r.AccessCount,
		"lastAccessed": r.LastAccessed,
		"layer":        string(r.Layer),
	}
}

func toStringSlice(v interface{}) []string {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
