package sales

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-stock/internal/realtime"
)

// Publisher announces collection changes.
type Publisher interface {
	Publish(ctx context.Context, topic string) error
}

// Repository provides PostgreSQL backed access to a user's sales.
type Repository struct {
	pool   *pgxpool.Pool
	pub    Publisher
	logger *slog.Logger
}

// NewRepository constructs a repository. pub may be nil.
func NewRepository(pool *pgxpool.Pool, pub Publisher, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{pool: pool, pub: pub, logger: logger}
}

// ReadAll returns every sale of the user in storage order.
func (r *Repository) ReadAll(ctx context.Context, userID string) ([]Sale, error) {
	if r == nil {
		return nil, errors.New("sales repository not initialised")
	}
	rows, err := r.pool.Query(ctx, `SELECT id, sale_date, total_amount, profit, items, customer_name, customer_email, status
FROM sales
WHERE user_id=$1
ORDER BY created_at ASC, id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Sale{}
	for rows.Next() {
		var (
			s     Sale
			items []byte
		)
		if err := rows.Scan(&s.ID, &s.SaleDate, &s.TotalAmount, &s.Profit, &items, &s.CustomerName, &s.CustomerEmail, &s.Status); err != nil {
			return nil, err
		}
		if len(items) > 0 {
			if err := json.Unmarshal(items, &s.Items); err != nil {
				return nil, err
			}
		}
		if s.Items == nil {
			s.Items = []Item{}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Insert stores a sale written by an external recorder; used by seeding.
func (r *Repository) Insert(ctx context.Context, userID string, s Sale) error {
	items, err := json.Marshal(s.Items)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO sales (user_id, id, sale_date, total_amount, profit, items, customer_name, customer_email, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (user_id, id) DO NOTHING`,
		userID, s.ID, s.SaleDate, s.TotalAmount, s.Profit, items, s.CustomerName, s.CustomerEmail, s.Status)
	if err != nil {
		return err
	}
	r.publish(ctx, userID)
	return nil
}

// Delete removes a sale.
func (r *Repository) Delete(ctx context.Context, userID, id string) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM sales WHERE user_id=$1 AND id=$2`, userID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	r.publish(ctx, userID)
	return nil
}

func (r *Repository) publish(ctx context.Context, userID string) {
	if r.pub == nil {
		return
	}
	if err := r.pub.Publish(ctx, realtime.SalesTopic(userID)); err != nil {
		r.logger.Warn("publish sales change", slog.String("user_id", userID), slog.Any("error", err))
	}
}

