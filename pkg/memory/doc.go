// Package memory implements a persistent, hierarchical memory engine for an
// AI agent: records are stored with importance, tags, and provenance, aged
// automatically through three retention tiers (working, short-term,
// long-term), and retrieved by semantic similarity.
//
// Invariants:
// - 0.1 <= importance <= 1.0 for every record, at all times.
// - Every id returned by Store is unique for the lifetime of the engine.
// - A record held in the WorkingCache is always mirrored in the VectorStore
//   with equal metadata.
//
// Usage:
//
//	mgr, _ := memory.NewManager(ctx, memory.Config{Store: store, Embedder: embedder})
//	defer mgr.Close()
//	rec, _ := mgr.Store(ctx, "the user prefers dark mode", memory.StoreOptions{})
//	results, _ := mgr.Search(ctx, "ui preferences", memory.SearchOptions{})
//	_ = results
package memory
