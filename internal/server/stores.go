package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/domain/ports"
	"github.com/Schulman-Coaching/paralegal-task-deconstruction-tool/modules/tasks/infrastructure/persistence"
)

// Stores is the persistence backing the instance service.
type Stores struct {
	Instances ports.InstanceStore
	Audit     ports.AuditRecorder
	Close     func()
}

// OpenStores opens the configured backend. The postgres backend pings before returning.
func OpenStores(ctx context.Context, cfg Config, logger *slog.Logger) (Stores, error) {
	switch cfg.StoreBackend {
	case StorePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return Stores{}, fmt.Errorf("server: open pool: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return Stores{}, fmt.Errorf("server: ping database: %w", err)
		}
		return Stores{
			Instances: persistence.NewInstancePGStore(pool),
			Audit:     persistence.NewAuditPGRecorder(pool),
			Close:     pool.Close,
		}, nil
	case StoreMemory, "":
		return Stores{
			Instances: persistence.NewInstanceMemoryStore(),
			Audit:     persistence.NewAuditLogRecorder(logger),
			Close:     func() {},
		}, nil
	default:
		return Stores{}, fmt.Errorf("server: unknown store backend %q", cfg.StoreBackend)
	}
}
