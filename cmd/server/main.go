package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	openaillm "bankrm/internal/adapter/provider/llm/openai"
	"bankrm/internal/api"
	redisdb "bankrm/internal/db/redis"
	"bankrm/internal/domain/rag"
	"bankrm/internal/platform/config"
	applog "bankrm/internal/platform/log"
	"bankrm/internal/provider"
	"bankrm/internal/tool"
	"bankrm/internal/tool/forex"
	"bankrm/internal/tool/interestrate"
	"bankrm/internal/tool/reporate"
	"bankrm/internal/tool/websearch"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Config load failed: %v\n", err)
		os.Exit(1)
	}

	applog.Init(applog.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})

	provider.RegisterProvider(openaillm.New(openaillm.Config{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	}))
	llm, err := provider.GetProvider("openai")
	if err != nil {
		applog.Fatalf("❌ LLM provider init failed: %v", err)
	}
	applog.Infof("✅ LLM provider initialized (model: %s)", cfg.OpenAI.ChatModel)

	ragCfg := &cfg.RAG
	embedder := rag.NewOpenAIEmbedder(rag.OpenAIEmbedderConfig{
		BaseURL:        cfg.OpenAI.BaseURL,
		APIKey:         cfg.OpenAI.APIKey,
		Model:          ragCfg.EmbeddingModel,
		Dims:           ragCfg.EmbeddingDims,
		BatchSize:      ragCfg.EmbeddingBatchSize,
		TimeoutSeconds: ragCfg.EmbeddingHTTPTimeoutSeconds,
	})
	applog.Infof("✅ Embedder initialized (model: %s, dims: %d)", ragCfg.EmbeddingModel, ragCfg.EmbeddingDims)

	indexer := rag.NewIndexer(ragCfg, embedder)
	applog.Infof("✅ Parser registry initialized (types: %s)", indexer.Parsers().SupportedTypes())

	retriever := rag.NewRetriever(ragCfg, embedder, indexer)

	if ragCfg.HasCache() && cfg.HasRedis() {
		if opt, err := goredis.ParseURL(cfg.Redis.URL); err == nil {
			cacheRedis := goredis.NewClient(opt)
			retriever.SetCache(redisdb.NewQueryCache(cacheRedis, ragCfg.CacheTTL))
			applog.Infof("✅ Query cache initialized (TTL: %ds)", ragCfg.CacheTTL)
		} else {
			applog.Warnf("⚠️  Redis URL invalid, query cache disabled: %v", err)
		}
	}

	synthesizer := rag.NewSynthesizer(llm, cfg.OpenAI.ChatModel)

	tools := tool.NewRegistry()
	tools.Register(forex.New(forex.Config{
		BaseURL:        cfg.Tools.FXBaseURL,
		TimeoutSeconds: cfg.Tools.TimeoutSeconds,
	}))
	interestSources := interestrate.DefaultSources()
	if cfg.Tools.FinnhubAPIKey != "" {
		interestSources = append(interestSources, reporate.Source{APIKey: cfg.Tools.FinnhubAPIKey})
		applog.Info("✅ Repo rate source enabled (Finnhub)")
	}
	tools.Register(interestrate.New(interestrate.Config{
		Sources:        interestSources,
		TimeoutSeconds: cfg.Tools.TimeoutSeconds,
	}))
	tools.Register(websearch.New(websearch.Config{
		TimeoutSeconds: cfg.Tools.TimeoutSeconds,
	}))

	router := rag.NewRouter(retriever, synthesizer, tools, rag.RouterConfig{
		TopK:     ragCfg.DefaultTopK,
		FXBase:   cfg.Tools.FXBase,
		FXTarget: cfg.Tools.FXTarget,
	})

	if ragCfg.BuildOnStart {
		buildCtx, buildCancel := context.WithTimeout(context.Background(), 10*time.Minute)
		if err := retriever.Rebuild(buildCtx, false); err != nil {
			applog.Warnf("⚠️  Startup index build failed: %v", err)
		}
		buildCancel()
	}

	serverConfig := api.DefaultServerConfig()
	serverConfig.Host = cfg.Server.Host
	serverConfig.Port = cfg.Server.Port
	serverConfig.ReadTimeout = time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second
	serverConfig.WriteTimeout = time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second
	serverConfig.AdminToken = cfg.Auth.AdminToken
	server := api.NewServer(serverConfig, router, retriever)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		applog.Info("🔄 Shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			applog.Errorf("❌ Server shutdown error: %v", err)
		}
	}()

	if err := server.Start(); err != nil && err.Error() != "http: Server closed" {
		applog.Fatalf("❌ Server error: %v", err)
	}

	applog.Info("👋 Server stopped")
}
