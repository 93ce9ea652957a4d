package cli

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"semstore/config"
	"semstore/internal/adapter/cache"
	"semstore/internal/adapter/embedding"
	"semstore/internal/adapter/memstore"
	"semstore/internal/adapter/qdrant"
	"semstore/internal/adapter/store"
	"semstore/internal/domain"
	"semstore/internal/port"
	"semstore/internal/usecase"
)

func newEmbedder(cfg config.EmbeddingConfig) (port.Embedder, error) {
	switch cfg.Provider {
	case "mock":
		return embedding.NewMockEmbedder(cfg.Dimension), nil
	case "ollama":
		emb, err := embedding.NewOllamaEmbedder(cfg.Model, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return emb.WithDimension(cfg.Dimension), nil
	case "jina":
		emb, err := embedding.NewJinaEmbedder(cfg.APIKeyEnv, cfg.Model)
		if err != nil {
			return nil, err
		}
		return emb.WithDimension(cfg.Dimension), nil
	case "openai":
		var (
			emb *embedding.OpenAIEmbedder
			err error
		)
		if cfg.BaseURL != "" {
			emb, err = embedding.NewOpenAICompatibleEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL)
		} else {
			emb, err = embedding.NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model)
		}
		if err != nil {
			return nil, err
		}
		return emb.WithDimension(cfg.Dimension), nil
	default:
		return nil, domain.Configurationf("new embedder", "unknown provider %q", cfg.Provider)
	}
}

// newBackend returns the configured backend and a function releasing it.
func newBackend(cfg *config.Config, dir string) (port.VectorBackend, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Store.Backend {
	case "memory":
		return memstore.NewMemoryStore(), noop, nil
	case "bolt":
		path := cfg.BoltDBPath(dir)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, nil, domain.Storage("new backend", err)
		}
		st, err := store.NewBoltVectorStore(path)
		if err != nil {
			return nil, nil, err
		}
		return st, st.Close, nil
	case "qdrant":
		st := qdrant.NewStore(qdrant.Config{
			Host:    cfg.Store.Host,
			Port:    cfg.Store.Port,
			APIKey:  cfg.Store.APIKey,
			Timeout: time.Duration(cfg.Store.TimeoutSecs) * time.Second,
		})
		return st, noop, nil
	default:
		return nil, nil, domain.Configurationf("new backend", "unknown backend %q", cfg.Store.Backend)
	}
}

// openStore wires backend, embedder and collection into a VectorStore.
// The override policy, when non-nil, replaces the configured one.
func openStore(ctx context.Context, cfg *config.Config, dir string, log *slog.Logger, override *domain.Policy) (*usecase.VectorStore, func() error, error) {
	emb, err := newEmbedder(cfg.Embedding)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Embedding.CacheSize > 0 {
		ttl := time.Duration(cfg.Embedding.CacheTTLSecs) * time.Second
		emb = cache.NewCachedEmbedder(emb, cache.NewEmbeddingCache(cfg.Embedding.CacheSize, ttl))
	}
	backend, release, err := newBackend(cfg, dir)
	if err != nil {
		return nil, nil, err
	}
	distance, err := domain.ParseDistance(cfg.Store.Distance)
	if err != nil {
		release()
		return nil, nil, err
	}

	policy := cfg.Store.Policy()
	if override != nil {
		policy = *override
	}
	var ids port.IDGenerator = usecase.RandomIDs{}
	if cfg.Store.ContentIDs {
		ids = usecase.ContentIDs{}
	}

	vs, err := usecase.NewVectorStore(ctx, usecase.StoreOptions{
		Backend:    backend,
		Embedder:   emb,
		Collection: cfg.Store.Collection,
		Distance:   distance,
		Policy:     policy,
		IDs:        ids,
		Logger:     log,
	})
	if err != nil {
		release()
		return nil, nil, err
	}
	return vs, release, nil
}
