package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	"github.com/odyssey-erp/odyssey-stock/internal/platform/db"
	"github.com/odyssey-erp/odyssey-stock/internal/profile"
	"github.com/odyssey-erp/odyssey-stock/internal/realtime"
	"github.com/odyssey-erp/odyssey-stock/internal/sales"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// ProductStore is the product collection plus user enumeration for scans.
type ProductStore interface {
	inventory.Store
	ListUsers(ctx context.Context) ([]string, error)
}

// SalesStore is the sales collection including the insert path used by
// seeding.
type SalesStore interface {
	sales.Store
	Insert(ctx context.Context, userID string, s sales.Sale) error
}

// AuditRecorder receives audit events from domain services.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Stores bundles the persistence ports selected by STORE_DRIVER.
type Stores struct {
	Products    ProductStore
	Sales       SalesStore
	Profiles    profile.Store
	Audit       AuditRecorder
	Idempotency shared.IdempotencyKeys
	Pool        *pgxpool.Pool
}

// OpenStores builds the configured stores. The postgres driver connects,
// migrates and attaches the Redis change feed when redisClient is non-nil.
// The returned close function releases the pool.
func OpenStores(ctx context.Context, cfg *Config, logger *slog.Logger, redisClient *redis.Client) (*Stores, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.StoreDriver {
	case StoreDriverMemory:
		logger.Info("using in-memory stores")
		return &Stores{
			Products:    inventory.NewMemoryStore(),
			Sales:       sales.NewMemoryStore(),
			Profiles:    profile.NewMemoryStore(),
			Audit:       shared.NewLogAuditor(logger),
			Idempotency: shared.NewMemoryIdempotency(),
		}, func() {}, nil
	case StoreDriverPostgres:
		pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := db.Migrate(ctx, pool, logger); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		var notifier *realtime.Notifier
		if redisClient != nil {
			notifier = realtime.NewNotifier(redisClient, logger)
		}
		return &Stores{
			Products:    inventory.NewRepository(pool, feed(notifier), logger),
			Sales:       sales.NewRepository(pool, notifier, logger),
			Profiles:    profile.NewRepository(pool),
			Audit:       shared.NewAuditLogger(pool),
			Idempotency: shared.NewIdempotencyStore(pool),
			Pool:        pool,
		}, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

// feed keeps a nil notifier from becoming a non-nil interface value.
func feed(n *realtime.Notifier) inventory.ChangeFeed {
	if n == nil {
		return nil
	}
	return n
}
