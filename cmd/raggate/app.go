package main

import (
	"context"
	"fmt"

	"github.com/kataras/golog"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	langopenai "github.com/tmc/langchaingo/llms/openai"

	"github.com/smallnest/raggate/config"
	"github.com/smallnest/raggate/embedding"
	"github.com/smallnest/raggate/generate"
	"github.com/smallnest/raggate/log"
	"github.com/smallnest/raggate/pipeline"
	"github.com/smallnest/raggate/retrieval"
	"github.com/smallnest/raggate/store"
	memorystore "github.com/smallnest/raggate/store/memory"
	"github.com/smallnest/raggate/store/pgvector"
	redisstore "github.com/smallnest/raggate/store/redis"
	sqlitestore "github.com/smallnest/raggate/store/sqlite"
)

// app bundles the components every command needs, assembled once from the
// config file.
type app struct {
	cfg      *config.Config
	rt       *config.Runtime
	logger   log.Logger
	embedder retrieval.Embedder
	store    store.Store

	closeStore func() error
}

// buildApp loads the config and wires up the embedder and the vector
// store. Commands that answer queries call pipeline() on top of this.
func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	rt, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg)
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	st, closeStore, err := buildStore(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:        cfg,
		rt:         rt,
		logger:     logger,
		embedder:   embedder,
		store:      st,
		closeStore: closeStore,
	}, nil
}

func (a *app) Close() error {
	if a.closeStore != nil {
		return a.closeStore()
	}
	return nil
}

// pipeline assembles the query pipeline, including the generator when one
// is configured. With llm.provider "none" the pipeline stops after
// retrieval and returns source documents without an answer.
func (a *app) pipeline() (*pipeline.Pipeline, error) {
	gen, err := buildGenerator(a.cfg, a.logger)
	if err != nil {
		return nil, err
	}
	return pipeline.New(pipeline.Options{
		Index:            a.store,
		Retrieval:        a.rt.Retrieval,
		OOD:              a.rt.OOD,
		Coverage:         a.rt.Coverage,
		Aliases:          a.rt.Aliases,
		Embedder:         a.embedder,
		Generator:        gen,
		MaxCharsPerChunk: a.rt.MaxCharsPerChunk,
		Logger:           a.logger,
	})
}

// retrievalOnly reports whether answers will carry documents but no
// generated text.
func (a *app) retrievalOnly() bool {
	return a.cfg.LLM.Provider == "" || a.cfg.LLM.Provider == "none"
}

func newLogger(cfg *config.Config) log.Logger {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	l := log.NewGologLogger(golog.New())
	l.SetLevel(log.ParseLevel(level))
	return l
}

func buildEmbedder(cfg *config.Config) (retrieval.Embedder, error) {
	var embedder retrieval.Embedder
	switch cfg.Embedding.Provider {
	case "openai":
		e, err := embedding.NewOpenAI(embedding.OpenAIOptions{
			APIKey:  cfg.Embedding.APIKey,
			Model:   cfg.Embedding.Model,
			BaseURL: cfg.Embedding.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		embedder = e
	case "hash":
		embedder = embedding.NewHash(cfg.Embedding.Dimensions)
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}
	if cfg.Embedding.Cache {
		return embedding.NewCached(embedder)
	}
	return embedder, nil
}

func buildStore(ctx context.Context, cfg *config.Config, embedder retrieval.Embedder) (store.Store, func() error, error) {
	switch cfg.Store.Backend {
	case "memory":
		s, err := memorystore.NewMemoryVectorStore(embedder)
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "sqlite":
		s, err := sqlitestore.NewSqliteVectorStore(sqlitestore.SqliteOptions{
			Path:      cfg.Store.SQLite.Path,
			TableName: cfg.Store.SQLite.Table,
		}, embedder)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	case "pgvector":
		s, err := pgvector.NewPostgresVectorStore(ctx, pgvector.PostgresOptions{
			ConnString: cfg.Store.Postgres.ConnString,
			TableName:  cfg.Store.Postgres.Table,
			Dimensions: cfg.Embedding.Dimensions,
		}, embedder)
		if err != nil {
			return nil, nil, err
		}
		return s, func() error { s.Close(); return nil }, nil
	case "redis":
		s, err := redisstore.NewRedisVectorStore(redisstore.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		}, embedder)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

func buildGenerator(cfg *config.Config, logger log.Logger) (generate.Generator, error) {
	switch cfg.LLM.Provider {
	case "", "none":
		return nil, nil
	case "ollama":
		opts := []ollama.Option{ollama.WithModel(cfg.LLM.Model)}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.LLM.BaseURL))
		}
		model, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return chatModel(model, cfg, logger)
	case "openai":
		var opts []langopenai.Option
		if cfg.LLM.APIKey != "" {
			opts = append(opts, langopenai.WithToken(cfg.LLM.APIKey))
		}
		if cfg.LLM.Model != "" {
			opts = append(opts, langopenai.WithModel(cfg.LLM.Model))
		}
		if cfg.LLM.BaseURL != "" {
			opts = append(opts, langopenai.WithBaseURL(cfg.LLM.BaseURL))
		}
		model, err := langopenai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return chatModel(model, cfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.LLM.Provider)
	}
}

func chatModel(model llms.Model, cfg *config.Config, logger log.Logger) (generate.Generator, error) {
	gen, err := generate.NewLangChainModel(model, logger)
	if err != nil {
		return nil, err
	}
	return gen.WithTemperature(cfg.LLM.Temperature), nil
}
