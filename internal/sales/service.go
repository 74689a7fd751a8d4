package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Store is the per-user sales collection.
type Store interface {
	ReadAll(ctx context.Context, userID string) ([]Sale, error)
	Delete(ctx context.Context, userID, id string) error
}

// Service summarises a user's sales over fresh snapshots.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs Service. now defaults to time.Now.
func NewService(store Store, logger *slog.Logger, now func() time.Time) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Service{store: store, logger: logger, now: now}
}

// Summary reads the user's sales and summarises the window.
func (s *Service) Summary(ctx context.Context, userID string, window Window) (Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return Summary{}, ErrUserRequired
	}
	sales, err := s.store.ReadAll(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("sales: read sales: %w", err)
	}
	return Summarize(sales, window, s.now()), nil
}

// Summaries summarises several windows over one snapshot.
func (s *Service) Summaries(ctx context.Context, userID string, windows ...Window) (map[Window]Summary, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUserRequired
	}
	sales, err := s.store.ReadAll(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sales: read sales: %w", err)
	}
	now := s.now()
	out := make(map[Window]Summary, len(windows))
	for _, w := range windows {
		out[w] = Summarize(sales, w, now)
	}
	return out, nil
}

// Delete removes one sale.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrUserRequired
	}
	if err := s.store.Delete(ctx, userID, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("sales: delete sale: %w", err)
	}
	s.logger.Info("sale deleted", slog.String("user_id", userID), slog.String("sale_id", id))
	return nil
}
