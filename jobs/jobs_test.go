package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/dates"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
	jobmetrics "github.com/odyssey-erp/odyssey-stock/internal/jobs"
	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

type staticSource struct {
	body []byte
	err  error
}

func (s staticSource) Fetch(context.Context) ([]byte, error) { return s.body, s.err }

func newTestLocker(t *testing.T) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLocker(client), mr
}

func newImportJob(t *testing.T, store *inventory.MemoryStore, src importer.Source) (*ImportJob, *miniredis.Miniredis) {
	t.Helper()
	locker, mr := newTestLocker(t)
	reconciler := importer.NewReconciler(store, dates.Rules{AllowISOFallback: true}, nil, nil)
	job := NewImportJob(reconciler, locker, time.Second, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	job.newSource = func(string, time.Duration) (importer.Source, error) { return src, nil }
	return job, mr
}

func importTask(t *testing.T, userID string) *asynq.Task {
	t.Helper()
	task, err := NewImportTask(ImportPayload{UserID: userID, URL: "https://example.com/stock.json"})
	require.NoError(t, err)
	return task
}

func TestImportJobWritesEntries(t *testing.T) {
	store := inventory.NewMemoryStore()
	body := []byte(`[{"id":"A","productCode":"P-1","name":"Tea","price":5},{"id":"B","name":"Broken"}]`)
	job, mr := newImportJob(t, store, staticSource{body: body})

	require.NoError(t, job.Handle(context.Background(), importTask(t, "u1")))

	products, err := store.ReadAll(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, "P-1", products[0].ID)
	require.False(t, mr.Exists(shared.ImportLockKey("u1")), "lock must be released")
}

func TestImportJobBusyLock(t *testing.T) {
	store := inventory.NewMemoryStore()
	job, mr := newImportJob(t, store, staticSource{body: []byte(`[]`)})
	require.NoError(t, mr.Set(shared.ImportLockKey("u1"), "other"))

	err := job.Handle(context.Background(), importTask(t, "u1"))
	require.ErrorIs(t, err, ErrLockBusy)
}

func TestImportJobRejectsBadPayloads(t *testing.T) {
	store := inventory.NewMemoryStore()
	job, _ := newImportJob(t, store, staticSource{body: []byte(`{"not":"array"}`)})

	err := job.Handle(context.Background(), importTask(t, "u1"))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskInventoryImport, []byte(`{`)))
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func TestImportJobRetriesFetchFailures(t *testing.T) {
	store := inventory.NewMemoryStore()
	job, _ := newImportJob(t, store, staticSource{err: errors.New("connection reset")})

	err := job.Handle(context.Background(), importTask(t, "u1"))
	require.Error(t, err)
	require.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestImportJobRefusesHostsOutsidePolicy(t *testing.T) {
	locker, _ := newTestLocker(t)
	store := inventory.NewMemoryStore()
	reconciler := importer.NewReconciler(store, dates.Rules{AllowISOFallback: true}, nil, nil)
	job := NewImportJob(reconciler, locker, time.Second, nil, nil)

	task, err := NewImportTask(ImportPayload{UserID: "u1", URL: "http://169.254.169.254/latest/meta-data"})
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorContains(t, err, "not allowed")
}

type storeReader struct{ store *inventory.MemoryStore }

func (r storeReader) Snapshot(ctx context.Context, userID string) ([]inventory.Product, error) {
	return r.store.ReadAll(ctx, userID)
}

type countingRecorder struct{ sets []alerts.Set }

func (c *countingRecorder) ObserveAlerts(set alerts.Set) { c.sets = append(c.sets, set) }

func TestAlertScanJob(t *testing.T) {
	ctx := context.Background()
	store := inventory.NewMemoryStore()
	require.NoError(t, store.WriteAt(ctx, "u1", "a", inventory.Product{Name: "Soap", Quantity: 0, LowStockThreshold: 10}))
	require.NoError(t, store.WriteAt(ctx, "u2", "b", inventory.Product{Name: "Rice", Quantity: 80, LowStockThreshold: 10}))

	locker, mr := newTestLocker(t)
	svc := alerts.NewService(storeReader{store: store}, alerts.NewEvaluator(dates.Rules{AllowISOFallback: true}), nil)
	rec := &countingRecorder{}
	job := NewAlertScanJob(svc, store, rec, locker, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	task, err := NewAlertScanTask("0 6 * * *")
	require.NoError(t, err)
	require.NoError(t, job.Handle(ctx, task))
	require.Len(t, rec.sets, 2)
	require.False(t, mr.Exists(shared.AlertScanLockKey()))

	require.NoError(t, mr.Set(shared.AlertScanLockKey(), "other"))
	require.NoError(t, job.Handle(ctx, task))
	require.Len(t, rec.sets, 2, "scan must be skipped while locked")
}

func TestNilLockerGrantsLock(t *testing.T) {
	var l *Locker
	release, ok, err := l.Acquire(context.Background(), "k", time.Second)
	require.NoError(t, err)
	require.True(t, ok)
	release()
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	locker, mr := newTestLocker(t)
	release, ok, err := locker.Acquire(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, mr.Set("k", "someone-else"))
	release()
	require.True(t, mr.Exists("k"))
}

func TestImportTaskPayload(t *testing.T) {
	task := importTask(t, "u1")
	require.Equal(t, TaskInventoryImport, task.Type())
	var payload ImportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, "u1", payload.UserID)
}

func TestHealthWithoutInspector(t *testing.T) {
	h := NewHandler(nil, nil)
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0}`, rec.Body.String())
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestHealthReportsQueueCounts(t *testing.T) {
	h := NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Active: 1, Retry: 2}}, nil)
	rec := httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":3,"active":1,"retry":2}`, rec.Body.String())

	h = NewHandler(fakeInspector{err: errors.New("redis down")}, nil)
	rec = httptest.NewRecorder()
	h.health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNewWorkerRejectsIncompleteRegistrations(t *testing.T) {
	_, err := NewWorker(WorkerConfig{Handlers: []TaskHandler{{Type: TaskAlertScan}}})
	require.Error(t, err)

	_, err = NewClient(asynq.RedisClientOpt{})
	require.Error(t, err)
}
