package alerts

import (
	"context"
	"log/slog"

	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

// SnapshotReader reads a fresh product snapshot for a user.
type SnapshotReader interface {
	Snapshot(ctx context.Context, userID string) ([]inventory.Product, error)
}

// UserLister enumerates users owning products.
type UserLister interface {
	ListUsers(ctx context.Context) ([]string, error)
}

// Report is the alert set of one user with its rendered messages.
type Report struct {
	UserID   string   `json:"userId"`
	Alerts   Set      `json:"alerts"`
	Messages []string `json:"messages"`
}

// ScanRecorder observes scan results.
type ScanRecorder interface {
	ObserveAlerts(set Set)
}

// Service evaluates alerts over fresh snapshots.
type Service struct {
	reader    SnapshotReader
	evaluator *Evaluator
	logger    *slog.Logger
}

// NewService constructs Service.
func NewService(reader SnapshotReader, evaluator *Evaluator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{reader: reader, evaluator: evaluator, logger: logger}
}

// Evaluator exposes the underlying evaluator.
func (s *Service) Evaluator() *Evaluator {
	return s.evaluator
}

// Report evaluates the user's current collection.
func (s *Service) Report(ctx context.Context, userID string) (Report, error) {
	products, err := s.reader.Snapshot(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	set := s.evaluator.Evaluate(products)
	return Report{UserID: userID, Alerts: set, Messages: Messages(set)}, nil
}

// Scan evaluates every listed user and returns the reports that carry at
// least one alert. A failing user is logged and skipped.
func (s *Service) Scan(ctx context.Context, users UserLister, recorder ScanRecorder) ([]Report, error) {
	ids, err := users.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	reports := []Report{}
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := s.Report(ctx, id)
		if err != nil {
			s.logger.Warn("alert scan user failed", slog.String("user_id", id), slog.Any("error", err))
			continue
		}
		if recorder != nil {
			recorder.ObserveAlerts(report.Alerts)
		}
		if report.Alerts.Empty() {
			continue
		}
		s.logger.Info("alerts pending",
			slog.String("user_id", id),
			slog.Int("total", report.Alerts.Total),
			slog.Any("messages", report.Messages),
		)
		reports = append(reports, report)
	}
	return reports, nil
}
