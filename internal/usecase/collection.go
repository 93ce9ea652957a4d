package usecase

import (
	"context"
	"io"
	"log/slog"

	"semstore/internal/domain"
	"semstore/internal/port"
)

// CollectionManager makes sure a collection exists with the right shape
// before anything is read from or written to it.
type CollectionManager struct {
	backend port.VectorBackend
	logger  *slog.Logger
}

func NewCollectionManager(backend port.VectorBackend, logger *slog.Logger) *CollectionManager {
	return &CollectionManager{
		backend: backend,
		logger:  orDiscard(logger),
	}
}

// EnsureCollection provisions the named collection according to policy.
func (m *CollectionManager) EnsureCollection(ctx context.Context, name string, dimension int, metric domain.Distance, policy domain.Policy) error {
	const op = "ensure collection"

	if name == "" {
		return domain.Configurationf(op, "collection name is required")
	}
	if dimension <= 0 {
		return domain.Configurationf(op, "invalid dimension %d for collection %s", dimension, name)
	}
	if !m.backend.Supports(metric) {
		return domain.Configurationf(op, "distance metric %q is not supported by the backend", metric)
	}

	c := domain.Collection{Name: name, Dimension: dimension, Distance: metric}

	switch policy {
	case domain.AlwaysRecreate:
		m.logger.Info("recreating collection", "collection", name, "dimension", dimension, "distance", metric)
		return m.backend.RecreateCollection(ctx, c)

	case domain.CreateIfMissing:
		existing, exists, err := m.backend.CollectionInfo(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			if existing.Dimension != dimension || existing.Distance != metric {
				return domain.Configurationf(op, "collection %s exists with dimension %d and distance %s, want dimension %d and distance %s",
					name, existing.Dimension, existing.Distance, dimension, metric)
			}
			m.logger.Debug("collection exists", "collection", name)
			return nil
		}
		m.logger.Info("creating collection", "collection", name, "dimension", dimension, "distance", metric)
		return m.backend.CreateCollection(ctx, c)

	default:
		return domain.Configurationf(op, "unknown provisioning policy %s", policy)
	}
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger != nil {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
