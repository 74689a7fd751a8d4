package inventory

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-stock/internal/platform/db"
	"github.com/odyssey-erp/odyssey-stock/internal/realtime"
)

// Repository persists products in PostgreSQL and publishes a change
// notification after every committed write.
type Repository struct {
	pool   *pgxpool.Pool
	feed   ChangeFeed
	logger *slog.Logger
}

// NewRepository constructs Repository. feed may be nil, in which case
// Subscribe is unsupported.
func NewRepository(pool *pgxpool.Pool, feed ChangeFeed, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{pool: pool, feed: feed, logger: logger}
}

const productColumns = `id, product_code, name, price, wholesale_price, quantity, low_stock_threshold,
category, manufacture_date, expiry_date, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ProductCode, &p.Name, &p.Price, &p.WholesalePrice, &p.Quantity, &p.LowStockThreshold,
		&p.Category, &p.ManufactureDate, &p.ExpiryDate, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ReadAll returns the user's whole collection in creation order.
func (r *Repository) ReadAll(ctx context.Context, userID string) ([]Product, error) {
	if r == nil {
		return nil, errors.New("inventory repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+`
FROM products
WHERE user_id=$1
ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// Subscribe delivers the current snapshot, then a fresh snapshot for every
// change notification on the user's topic.
func (r *Repository) Subscribe(ctx context.Context, userID string, onChange func([]Product)) (func(), error) {
	if r == nil || r.feed == nil {
		return nil, errors.New("inventory: change feed not configured")
	}
	unsubscribe, err := r.feed.Subscribe(ctx, realtime.ProductsTopic(userID), func() {
		snap, err := r.ReadAll(ctx, userID)
		if err != nil {
			r.logger.Warn("reload products snapshot", slog.String("user_id", userID), slog.Any("error", err))
			return
		}
		onChange(snap)
	})
	if err != nil {
		return nil, err
	}
	snap, err := r.ReadAll(ctx, userID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	onChange(snap)
	return unsubscribe, nil
}

// Create inserts p under a fresh id.
func (r *Repository) Create(ctx context.Context, userID string, p Product) (string, error) {
	id := uuid.NewString()
	p.ID = id
	if err := r.upsert(ctx, r.pool, userID, p); err != nil {
		return "", err
	}
	r.publish(ctx, userID)
	return id, nil
}

// WriteAt replaces the record stored under key with p.
func (r *Repository) WriteAt(ctx context.Context, userID, key string, p Product) error {
	if !ValidKey(key) {
		return ErrInvalidKey
	}
	p.ID = key
	if err := r.upsert(ctx, r.pool, userID, p); err != nil {
		return err
	}
	r.publish(ctx, userID)
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *Repository) upsert(ctx context.Context, q execer, userID string, p Product) error {
	_, err := q.Exec(ctx, `INSERT INTO products (user_id, `+productColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
ON CONFLICT (user_id, id) DO UPDATE SET
	product_code = EXCLUDED.product_code,
	name = EXCLUDED.name,
	price = EXCLUDED.price,
	wholesale_price = EXCLUDED.wholesale_price,
	quantity = EXCLUDED.quantity,
	low_stock_threshold = EXCLUDED.low_stock_threshold,
	category = EXCLUDED.category,
	manufacture_date = EXCLUDED.manufacture_date,
	expiry_date = EXCLUDED.expiry_date,
	created_at = EXCLUDED.created_at,
	updated_at = EXCLUDED.updated_at`,
		userID, p.ID, p.ProductCode, p.Name, p.Price, p.WholesalePrice, p.Quantity, p.LowStockThreshold,
		p.Category, p.ManufactureDate, p.ExpiryDate, p.CreatedAt, p.UpdatedAt)
	return err
}

// Update merges patch into the stored record inside a transaction.
func (r *Repository) Update(ctx context.Context, userID, id string, patch Patch) (Product, error) {
	if r == nil {
		return Product{}, errors.New("inventory repository not initialised")
	}
	var updated Product
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := scanProduct(tx.QueryRow(ctx, `SELECT `+productColumns+`
FROM products WHERE user_id=$1 AND id=$2 FOR UPDATE`, userID, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return err
		}
		updated = patch.Apply(existing, time.Now().UTC())
		return r.upsert(ctx, tx, userID, updated)
	})
	if err != nil {
		return Product{}, err
	}
	r.publish(ctx, userID)
	return updated, nil
}

// Delete removes the record stored under id.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	if r == nil {
		return errors.New("inventory repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE user_id=$1 AND id=$2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.publish(ctx, userID)
	return nil
}

// ListUsers returns every user id that owns at least one product.
func (r *Repository) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM products ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		users = append(users, id)
	}
	return users, rows.Err()
}

func (r *Repository) publish(ctx context.Context, userID string) {
	if r.feed == nil {
		return
	}
	if err := r.feed.Publish(ctx, realtime.ProductsTopic(userID)); err != nil {
		r.logger.Warn("publish product change", slog.String("user_id", userID), slog.Any("error", err))
	}
}
