package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/odyssey-stock/internal/jobs"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

// ErrLockBusy indicates that another run holds the job's lock.
var ErrLockBusy = errors.New("jobs: lock busy")

// ImportJob downloads a payload and reconciles it into the user's products.
type ImportJob struct {
	Reconciler   *importer.Reconciler
	Locker       *Locker
	FetchTimeout time.Duration
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	// Links is re-applied to the queued URL before fetching.
	Links        importer.LinkPolicy
	newSource    func(url string, timeout time.Duration) (importer.Source, error)
}

// NewImportJob initialises the import handler.
func NewImportJob(reconciler *importer.Reconciler, locker *Locker, fetchTimeout time.Duration, logger *slog.Logger, metrics *jobmetrics.Metrics) *ImportJob {
	if logger == nil {
		logger = slog.Default()
	}
	j := &ImportJob{
		Reconciler:   reconciler,
		Locker:       locker,
		FetchTimeout: fetchTimeout,
		Logger:       logger,
		Metrics:      metrics,
	}
	j.newSource = func(url string, timeout time.Duration) (importer.Source, error) {
		return importer.NewHTTPSource(url, timeout, j.Links)
	}
	return j
}

// Handle executes one remote import.
func (j *ImportJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Reconciler == nil {
		return errors.New("import job: handler not configured")
	}
	var payload ImportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.UserID == "" || payload.URL == "" {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskInventoryImport)
	defer func() { err = tracker.End(err) }()

	logger := j.Logger.With(slog.String("user_id", payload.UserID), slog.String("url", payload.URL))
	release, ok, err := j.Locker.Acquire(ctx, shared.ImportLockKey(payload.UserID), 2*j.FetchTimeout+time.Minute)
	if err != nil {
		return err
	}
	if !ok {
		tracker.Skip()
		logger.Info("import already running, retrying later")
		return ErrLockBusy
	}
	defer release()

	src, err := j.newSource(payload.URL, j.FetchTimeout)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	res, err := j.Reconciler.FetchAndImport(ctx, payload.UserID, src)
	if err != nil {
		if errors.Is(err, importer.ErrNotArray) || errors.Is(err, importer.ErrMalformedPayload) {
			logger.Warn("import payload rejected", slog.Any("error", err))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		logger.Error("import failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddImportEntries(TaskInventoryImport, res.SuccessCount, res.ErrorCount)
	logger.Info("remote import completed",
		slog.Int("success", res.SuccessCount),
		slog.Int("failed", res.ErrorCount),
	)
	return nil
}
