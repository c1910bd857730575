// Package scholar assembles the retrieval service: storage, providers,
// worker pool, business layer and the HTTP server.
package scholar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"
	"github.com/panjf2000/ants/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kart-io/scholar-x/internal/scholar/biz"
	"github.com/kart-io/scholar-x/internal/scholar/chunk"
	"github.com/kart-io/scholar-x/internal/scholar/extract"
	"github.com/kart-io/scholar-x/internal/scholar/handler"
	"github.com/kart-io/scholar-x/internal/scholar/router"
	"github.com/kart-io/scholar-x/internal/scholar/store"
	"github.com/kart-io/scholar-x/pkg/component/milvus"
	"github.com/kart-io/scholar-x/pkg/llm"
	llmopts "github.com/kart-io/scholar-x/pkg/options/llm"
	logopts "github.com/kart-io/scholar-x/pkg/options/logger"
	milvusopts "github.com/kart-io/scholar-x/pkg/options/milvus"
	redisopts "github.com/kart-io/scholar-x/pkg/options/redis"
	scholaropts "github.com/kart-io/scholar-x/pkg/options/scholar"
	httpopts "github.com/kart-io/scholar-x/pkg/options/server/http"

	// Register LLM providers.
	_ "github.com/kart-io/scholar-x/pkg/llm/ollama"
	_ "github.com/kart-io/scholar-x/pkg/llm/openai"
)

// Name is the name of the application.
const Name = "scholar-x"

// Config contains the resolved application configuration.
type Config struct {
	HTTPOptions      *httpopts.Options
	LogOptions       *logopts.Options
	MilvusOptions    *milvusopts.Options
	RedisOptions     *redisopts.Options
	EmbeddingOptions *llmopts.ProviderOptions
	ChatOptions      *llmopts.ProviderOptions
	ScholarOptions   *scholaropts.Options
}

// Server is the assembled scholar service.
type Server struct {
	http            *http.Server
	service         *biz.Service
	pool            *ants.Pool
	redisClose      func()
	shutdownTimeout time.Duration
}

// NewServer initializes every component from the configuration.
func (cfg *Config) NewServer(ctx context.Context) (*Server, error) {
	cfg.LogOptions.AddInitialField("service.name", Name)
	if err := cfg.LogOptions.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Info("Starting scholar service...")

	if !cfg.LogOptions.Development {
		gin.SetMode(gin.ReleaseMode)
	}

	vectorStore, err := cfg.newStore()
	if err != nil {
		return nil, err
	}
	logger.Infow("Vector store initialized", "driver", cfg.ScholarOptions.Driver)

	embedder, redisClose, err := cfg.newEmbedder()
	if err != nil {
		return nil, err
	}
	logger.Infow("Embedding provider initialized",
		"provider", cfg.EmbeddingOptions.Provider,
		"model", cfg.EmbeddingOptions.Model,
		"cache", cfg.RedisOptions.Enabled,
	)

	chat, err := llm.NewChatProvider(cfg.ChatOptions.Provider, cfg.ChatOptions.ToConfigMap())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	logger.Infow("Chat provider initialized",
		"provider", cfg.ChatOptions.Provider,
		"model", cfg.ChatOptions.Model,
	)

	pool, err := ants.NewPool(cfg.ScholarOptions.EmbedWorkers)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding pool: %w", err)
	}

	extractor := extract.NewArxivExtractor(cfg.EmbeddingOptions.Timeout)

	service := biz.NewService(vectorStore, extractor, embedder, chat, pool, biz.ServiceConfig{
		FineCollection:   cfg.ScholarOptions.FineCollection,
		CoarseCollection: cfg.ScholarOptions.CoarseCollection,
		EmbeddingDim:     cfg.ScholarOptions.EmbeddingDim,
		Fine: chunk.FineConfig{
			MinChars:     cfg.ScholarOptions.FineMinChars,
			MaxChars:     cfg.ScholarOptions.FineMaxChars,
			MaxSentences: cfg.ScholarOptions.FineMaxSentences,
		},
		Coarse: chunk.CoarseConfig{
			MinChars:     cfg.ScholarOptions.CoarseMinChars,
			MaxChars:     cfg.ScholarOptions.CoarseMaxChars,
			MinTokens:    cfg.ScholarOptions.CoarseMinTokens,
			MaxTokens:    cfg.ScholarOptions.CoarseMaxTokens,
			OverlapChars: cfg.ScholarOptions.CoarseOverlapChars,
		},
		CitationThreshold: cfg.ScholarOptions.CitationThreshold,
		TopK:              cfg.ScholarOptions.TopK,
		MinChunkChars:     cfg.ScholarOptions.MinChunkChars,
		EmbedBatchSize:    cfg.ScholarOptions.EmbedBatchSize,
		AnswerPrompt:      cfg.ScholarOptions.AnswerPrompt,
	})

	if err := service.EnsureCollections(ctx); err != nil {
		pool.Release()
		return nil, fmt.Errorf("failed to ensure collections: %w", err)
	}
	logger.Infow("Collections ready",
		"fine", cfg.ScholarOptions.FineCollection,
		"coarse", cfg.ScholarOptions.CoarseCollection,
	)

	engine := router.New(handler.NewScholarHandler(service))

	httpSrv := &http.Server{
		Addr:         cfg.HTTPOptions.Addr,
		Handler:      engine,
		ReadTimeout:  cfg.HTTPOptions.ReadTimeout,
		WriteTimeout: cfg.HTTPOptions.WriteTimeout,
		IdleTimeout:  cfg.HTTPOptions.IdleTimeout,
	}

	logger.Info("Scholar service is ready")
	return &Server{
		http:            httpSrv,
		service:         service,
		pool:            pool,
		redisClose:      redisClose,
		shutdownTimeout: cfg.HTTPOptions.ShutdownTimeout,
	}, nil
}

// newStore builds the vector store selected by the driver option.
func (cfg *Config) newStore() (store.VectorStore, error) {
	switch cfg.ScholarOptions.Driver {
	case scholaropts.DriverMemory:
		return store.NewMemoryStore(), nil
	case scholaropts.DriverMilvus:
		client, err := milvus.New(cfg.MilvusOptions)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize milvus: %w", err)
		}
		return store.NewMilvusStore(client), nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.ScholarOptions.Driver)
}

// newEmbedder builds the embedding provider, wrapped in the Redis cache
// when enabled and reachable. A Redis outage downgrades to the plain
// provider instead of failing startup.
func (cfg *Config) newEmbedder() (llm.EmbeddingProvider, func(), error) {
	embedder, err := llm.NewEmbeddingProvider(cfg.EmbeddingOptions.Provider, cfg.EmbeddingOptions.ToConfigMap())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize embedding provider: %w", err)
	}

	if !cfg.RedisOptions.Enabled {
		return embedder, nil, nil
	}

	redisClient := goredis.NewClient(&goredis.Options{
		Addr:         cfg.RedisOptions.Addr(),
		Password:     cfg.RedisOptions.Password,
		DB:           cfg.RedisOptions.Database,
		MaxRetries:   cfg.RedisOptions.MaxRetries,
		PoolSize:     cfg.RedisOptions.PoolSize,
		DialTimeout:  cfg.RedisOptions.DialTimeout,
		ReadTimeout:  cfg.RedisOptions.ReadTimeout,
		WriteTimeout: cfg.RedisOptions.WriteTimeout,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warnw("failed to connect to redis, embedding cache disabled", "error", err.Error())
		_ = redisClient.Close()
		return embedder, nil, nil
	}

	cached := llm.NewCachedEmbeddingProvider(embedder, redisClient, &llm.EmbeddingCacheConfig{
		Enabled:   true,
		TTL:       cfg.RedisOptions.CacheTTL,
		KeyPrefix: "emb:",
	})
	logger.Infow("Embedding cache initialized", "redis", cfg.RedisOptions.String())
	return cached, func() { _ = redisClient.Close() }, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.http.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.release()
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down scholar service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	err := s.http.Shutdown(shutdownCtx)
	s.release()
	return err
}

func (s *Server) release() {
	s.pool.Release()
	if s.redisClose != nil {
		s.redisClose()
	}
	if err := s.service.Close(context.Background()); err != nil {
		logger.Warnw("failed to close vector store", "error", err.Error())
	}
}
