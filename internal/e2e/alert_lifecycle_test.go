package e2e

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/alerts"
	"github.com/odyssey-erp/odyssey-stock/internal/dashboard"
	"github.com/odyssey-erp/odyssey-stock/internal/dates"
	"github.com/odyssey-erp/odyssey-stock/internal/importer"
	"github.com/odyssey-erp/odyssey-stock/internal/inventory"
)

type lifecycle struct {
	store      *inventory.MemoryStore
	inventory  *inventory.Service
	alerts     *alerts.Service
	reconciler *importer.Reconciler
	tracker    *dashboard.Tracker
}

func newLifecycle(t *testing.T) *lifecycle {
	t.Helper()
	rules := dates.Rules{AllowISOFallback: true}
	store := inventory.NewMemoryStore()
	engine := inventory.NewEngine(rules)
	inv := inventory.NewService(store, engine, nil, nil)
	lc := &lifecycle{
		store:      store,
		inventory:  inv,
		alerts:     alerts.NewService(inv, alerts.NewEvaluator(rules), nil),
		reconciler: importer.NewReconciler(store, rules, nil, nil),
		tracker:    dashboard.NewTracker(engine, inventory.FilterOptions{}),
	}
	unsubscribe, err := inv.Subscribe(context.Background(), "u1", func(products []inventory.Product) {
		lc.tracker.Push(products)
	})
	require.NoError(t, err)
	t.Cleanup(unsubscribe)
	return lc
}

func TestAlertsFireAfterImportAndResolveAfterRestock(t *testing.T) {
	ctx := context.Background()
	lc := newLifecycle(t)

	frame, ok := lc.tracker.Latest()
	require.True(t, ok, "subscription delivers an initial snapshot")
	require.Equal(t, 0, frame.View.GroupCount)

	res, err := lc.reconciler.ImportJSON(ctx, "u1", []byte(`[
		{"productCode":"A","name":"Soap","price":2,"quantity":0},
		{"productCode":"C","name":"Rice","price":5,"quantity":3}
	]`))
	require.NoError(t, err)
	require.Equal(t, 2, res.SuccessCount)

	report, err := lc.alerts.Report(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, report.Alerts.OutOfStock, 1)
	require.Len(t, report.Alerts.LowStock, 1)
	require.Equal(t, []string{"1 product out of stock", "1 product low on stock"}, report.Messages)

	frame, ok = lc.tracker.Latest()
	require.True(t, ok)
	require.Equal(t, 1, frame.View.GroupCount, "depleted soap is not grouped")

	restock := 50
	for _, id := range []string{"A", "C"} {
		_, err := lc.inventory.Update(ctx, "u1", id, inventory.Patch{Quantity: &restock})
		require.NoError(t, err)
	}

	report, err = lc.alerts.Report(ctx, "u1")
	require.NoError(t, err)
	require.True(t, report.Alerts.Empty())
	require.Empty(t, report.Messages)

	latest, ok := lc.tracker.Latest()
	require.True(t, ok)
	require.Greater(t, latest.Seq, frame.Seq)
	require.Equal(t, 2, latest.View.GroupCount)
}

func TestReimportReplacesRecordsByKey(t *testing.T) {
	ctx := context.Background()
	lc := newLifecycle(t)

	_, err := lc.reconciler.ImportJSON(ctx, "u1", []byte(`[{"productCode":"A","name":"Soap","price":2,"quantity":1}]`))
	require.NoError(t, err)
	_, err = lc.reconciler.ImportJSON(ctx, "u1", []byte(`[{"productCode":"A","name":"Soap","price":3,"quantity":40}]`))
	require.NoError(t, err)

	products, err := lc.inventory.Snapshot(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.Equal(t, 40, products[0].Quantity)
	require.InDelta(t, 3.0, products[0].Price, 0.0001)

	report, err := lc.alerts.Report(ctx, "u1")
	require.NoError(t, err)
	require.True(t, report.Alerts.Empty())
}
