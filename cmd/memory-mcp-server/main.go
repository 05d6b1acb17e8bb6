// Command memory-mcp-server runs the hierarchical agent memory service as a
// JSON-RPC gateway over stdio, the same transport shape the teacher's
// toolexecutor speaks to MCP subprocesses, here run in reverse: this binary
// is the subprocess, a host agent runtime is the caller.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/Parswanadh/memory-mcp-server/internal/config"
	"github.com/Parswanadh/memory-mcp-server/internal/logger"
	"github.com/Parswanadh/memory-mcp-server/internal/observability"
	"github.com/Parswanadh/memory-mcp-server/internal/tracing"
	"github.com/Parswanadh/memory-mcp-server/pkg/gateway"
	"github.com/Parswanadh/memory-mcp-server/pkg/memory"
	"github.com/Parswanadh/memory-mcp-server/pkg/scheduler"
)

const serviceName = "memory-mcp-server"

func main() {
	if err := run(); err != nil {
		zerolog.New(os.Stderr).With().Timestamp().Logger().Fatal().Err(err).Msg("fatal startup error")
	}
}

func run() error {
	cfg := config.Load()

	if errs := config.NewValidator().ValidateConfig(cfg); len(errs) > 0 {
		for _, e := range errs {
			zerolog.New(os.Stderr).With().Timestamp().Logger().Error().Err(e).Msg("invalid configuration")
		}
		return errs[0]
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Console: true,
		Pretty:  cfg.Logging.Pretty,
	})
	if err != nil {
		return err
	}
	defer log.Close()
	zl := log.GetZerolog()

	if err := tracing.InitOpenTelemetry(serviceName); err != nil {
		zl.Warn().Err(err).Msg("opentelemetry initialization failed, continuing without tracing")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tracing.ShutdownOpenTelemetry(ctx)
	}()

	observability.EnsureRegistered()
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, zl)
	}

	embedder, err := memory.NewEmbeddingProviderFromConfig(memory.EmbeddingProviderConfigInput{
		ProviderType: memory.EmbeddingProviderType(cfg.Embedding.Provider),
		OpenAIAPIKey: cfg.Embedding.OpenAIAPIKey,
		OpenAIModel:  cfg.Embedding.OpenAIModel,
		OpenAIDims:   cfg.Embedding.OpenAIDimensions,
	})
	if err != nil {
		return err
	}

	store, err := memory.NewVectorStoreFromConfig(memory.VectorStoreConfig{
		StoreType:        memory.VectorStoreType(cfg.VectorStore.Type),
		SQLitePath:       cfg.VectorStore.SQLitePath,
		SelfHostedURL:    cfg.VectorStore.WeaviateURL,
		SelfHostedAPIKey: cfg.VectorStore.WeaviateAPIKey,
		ManagedAPIKey:    cfg.VectorStore.PineconeAPIKey,
		ManagedIndex:     cfg.VectorStore.PineconeIndex,
		Dimensions:       embedder.Dimensions(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.Initialize(ctx); err != nil {
		return err
	}
	defer store.Close()

	mgr, err := memory.NewManager(ctx, memory.Config{
		Store:    store,
		Embedder: embedder,
		Logger:   zl,
		TTLs: memory.LayerTTLs{
			Working:   cfg.Retention.WorkingTTL,
			ShortTerm: cfg.Retention.ShortTermTTL,
			LongTerm:  cfg.Retention.LongTermTTL,
		},
		DecayRate:              cfg.Decay.Rate,
		ConsolidationThreshold: cfg.Retention.ConsolidationThreshold,
		ConsolidationAge:       cfg.Retention.ConsolidationAge,
	})
	if err != nil {
		return err
	}
	defer mgr.Close()

	sched := scheduler.New(mgr, scheduler.Options{
		DecayInterval: cfg.Decay.Interval,
	})
	sched.Start()
	defer sched.Stop()

	gw := gateway.NewGateway(mgr)
	router := gateway.NewRPCRouter()
	if err := gw.RegisterAll(router); err != nil {
		return err
	}
	server := gateway.NewServer(router, zl)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		zl.Info().Msg("shutdown signal received")
		cancel()
		os.Exit(0)
	}()

	zl.Info().Str("vectorStore", cfg.VectorStore.Type).Str("embedding", cfg.Embedding.Provider).Msg("memory-mcp-server ready")
	return server.Serve(os.Stdin, os.Stdout)
}

func serveMetrics(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", observability.MetricsHandler())
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		log.Error().Err(err).Msg("metrics server failed")
	}
}
