// Package dashboard combines inventory, alert and sales views for one user.
package dashboard

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	"github.com/odyssey-erp/odyssey-stock/internal/sales"
)

// Overview is the dashboard payload of one user.
type Overview struct {
	UserID      string                         `json:"userId"`
	Stats       inventory.Stats                `json:"stats"`
	Alerts      alerts.Set                     `json:"alerts"`
	Messages    []string                       `json:"messages"`
	Sales       map[sales.Window]sales.Summary `json:"sales"`
	GeneratedAt time.Time                      `json:"generatedAt"`
}

// Service builds overviews from fresh snapshots.
type Service struct {
	inventory *inventory.Service
	evaluator *alerts.Evaluator
	sales     *sales.Service
	group     singleflight.Group
	now       func() time.Time
}

// NewService constructs Service.
func NewService(inv *inventory.Service, evaluator *alerts.Evaluator, salesSvc *sales.Service) *Service {
	return &Service{
		inventory: inv,
		evaluator: evaluator,
		sales:     salesSvc,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Overview reads the product and sales collections concurrently and derives
// the dashboard. Concurrent calls for the same user share one computation.
func (s *Service) Overview(ctx context.Context, userID string) (Overview, error) {
	if strings.TrimSpace(userID) == "" {
		return Overview{}, inventory.ErrUserRequired
	}
	detached := context.WithoutCancel(ctx)
	ch := s.group.DoChan(userID, func() (any, error) {
		return s.build(detached, userID)
	})
	select {
	case <-ctx.Done():
		return Overview{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Overview{}, res.Err
		}
		return res.Val.(Overview), nil
	}
}

func (s *Service) build(ctx context.Context, userID string) (Overview, error) {
	var (
		products  []inventory.Product
		summaries map[sales.Window]sales.Summary
	)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := s.inventory.Snapshot(ctx, userID)
		if err != nil {
			return err
		}
		products = snap
		return nil
	})
	g.Go(func() error {
		sums, err := s.sales.Summaries(ctx, userID, sales.WindowToday, sales.WindowWeek, sales.WindowMonth)
		if err != nil {
			return err
		}
		summaries = sums
		return nil
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	set := s.evaluator.Evaluate(products)
	return Overview{
		UserID:      userID,
		Stats:       s.inventory.Engine().Stats(products),
		Alerts:      set,
		Messages:    alerts.Messages(set),
		Sales:       summaries,
		GeneratedAt: s.now(),
	}, nil
}
