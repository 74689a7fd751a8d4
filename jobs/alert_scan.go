package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	jobmetrics "github.com/odyssey-erp/odyssey-stock/internal/jobs"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// AlertScanJob evaluates alerts for every user owning products.
type AlertScanJob struct {
	Service  *alerts.Service
	Users    alerts.UserLister
	Recorder alerts.ScanRecorder
	Locker   *Locker
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewAlertScanJob initialises the alert scan handler.
func NewAlertScanJob(service *alerts.Service, users alerts.UserLister, recorder alerts.ScanRecorder, locker *Locker, logger *slog.Logger, metrics *jobmetrics.Metrics) *AlertScanJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AlertScanJob{
		Service:  service,
		Users:    users,
		Recorder: recorder,
		Locker:   locker,
		Logger:   logger,
		Metrics:  metrics,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// Handle executes the scan.
func (j *AlertScanJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Service == nil || j.Users == nil {
		return errors.New("alert scan: handler not configured")
	}
	var payload AlertScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskAlertScan)
	defer func() { err = tracker.End(err) }()

	release, ok, err := j.Locker.Acquire(ctx, shared.AlertScanLockKey(), 10*time.Minute)
	if err != nil {
		return err
	}
	if !ok {
		tracker.Skip()
		j.Logger.Info("alert scan already running, skipping")
		return nil
	}
	defer release()

	start := j.clock()

	j.Logger.Info("starting alert scan", slog.String("trigger", payload.Trigger))
	reports, err := j.Service.Scan(ctx, j.Users, j.Recorder)
	if err != nil {
		j.Logger.Error("alert scan failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddFlaggedUsers(TaskAlertScan, len(reports))
	j.Logger.Info("completed alert scan",
		slog.Int("flagged_users", len(reports)),
		slog.Duration("duration", j.clock().Sub(start)),
	)
	return nil
}
