package inventory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-stock/internal/shared"
)

type recordingAudit struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

func newTestService(t *testing.T) (*Service, *MemoryStore, *recordingAudit) {
	t.Helper()
	store := NewMemoryStore()
	audit := &recordingAudit{}
	svc := NewService(store, newTestEngine(), audit, nil)
	svc.clock = func() time.Time { return testNow }
	return svc, store, audit
}

func TestServiceCreateDefaultsAndAudit(t *testing.T) {
	svc, store, audit := newTestService(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, "u1", CreateInput{
		Name:       "  Widget ",
		Price:      3.5,
		Quantity:   12,
		ExpiryDate: "5.4.2025",
	})
	require.NoError(t, err)
	require.NotEmpty(t, p.ID)
	require.Equal(t, "Widget", p.Name)
	require.Equal(t, "05.04.2025", p.ExpiryDate)
	require.Equal(t, DefaultLowStockThreshold, p.LowStockThreshold)
	require.Equal(t, GenerateProductCode("Widget", testNow), p.ProductCode)

	stored, err := store.ReadAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.Equal(t, p, stored[0])

	require.Len(t, audit.logs, 1)
	require.Equal(t, "u1", audit.logs[0].ActorID)
	require.Equal(t, "inventory:create", audit.logs[0].Action)
	require.Equal(t, p.ID, audit.logs[0].EntityID)
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Create(context.Background(), "u1", CreateInput{Name: " ", Price: 1})
	require.ErrorIs(t, err, ErrValidation)
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), "u1", CreateInput{Name: "A", Price: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(context.Background(), "", CreateInput{Name: "A", Price: 1})
	require.ErrorIs(t, err, ErrUserRequired)
}

func TestServiceUpdateMergesFields(t *testing.T) {
	svc, _, audit := newTestService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, "u1", CreateInput{Name: "Milk", Price: 1.2, Quantity: 30, Category: "Dairy"})
	require.NoError(t, err)

	qty := 4
	expiry := "1.3.2025"
	updated, err := svc.Update(ctx, "u1", p.ID, Patch{Quantity: &qty, ExpiryDate: &expiry})
	require.NoError(t, err)
	require.Equal(t, 4, updated.Quantity)
	require.Equal(t, "01.03.2025", updated.ExpiryDate)
	require.Equal(t, "Dairy", updated.Category)
	require.Equal(t, 1.2, updated.Price)
	require.Len(t, audit.logs, 2)

	negative := -1
	_, err = svc.Update(ctx, "u1", p.ID, Patch{Quantity: &negative})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Update(ctx, "u1", "missing", Patch{Quantity: &qty})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServiceDeleteAndLookup(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	p, err := svc.Create(ctx, "u1", CreateInput{ProductCode: "MIL-1", Name: "Milk", Price: 1, Quantity: 0})
	require.NoError(t, err)

	res, err := svc.Lookup(ctx, "u1", "mil-1")
	require.NoError(t, err)
	require.True(t, res.Sold)

	_, err = svc.Lookup(ctx, "u2", "mil-1")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "u1", p.ID))
	require.ErrorIs(t, svc.Delete(ctx, "u1", p.ID), ErrNotFound)
}

func TestServiceViewRecomputesFromFreshSnapshot(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()
	require.NoError(t, store.WriteAt(ctx, "u1", "A", Product{Name: "Milk", Quantity: 20, Price: 1}))

	v, err := svc.View(ctx, "u1", FilterOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, v.Available)

	require.NoError(t, store.WriteAt(ctx, "u1", "B", Product{Name: "Milk", Quantity: 5, Price: 1}))
	v, err = svc.View(ctx, "u1", FilterOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, v.Available)
	require.Equal(t, StatusLowStock, v.Groups[0].Status.Status)
}

func TestServiceSubscribeDeliversSnapshots(t *testing.T) {
	svc, store, _ := newTestService(t)
	ctx := context.Background()

	var mu sync.Mutex
	var sizes []int
	unsubscribe, err := svc.Subscribe(ctx, "u1", func(products []Product) {
		mu.Lock()
		sizes = append(sizes, len(products))
		mu.Unlock()
	})
	require.NoError(t, err)

	require.NoError(t, store.WriteAt(ctx, "u1", "A", Product{Name: "Milk", Quantity: 1}))
	require.NoError(t, store.WriteAt(ctx, "u2", "A", Product{Name: "Milk", Quantity: 1}))
	unsubscribe()
	require.NoError(t, store.WriteAt(ctx, "u1", "B", Product{Name: "Milk", Quantity: 1}))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []int{0, 1}, sizes)
}

func TestMemoryStoreWriteAt(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	require.ErrorIs(t, store.WriteAt(ctx, "u1", "a/b", Product{}), ErrInvalidKey)
	require.ErrorIs(t, store.WriteAt(ctx, "u1", " ", Product{}), ErrInvalidKey)

	require.NoError(t, store.WriteAt(ctx, "u1", "A", Product{Name: "First", Quantity: 1}))
	require.NoError(t, store.WriteAt(ctx, "u1", "B", Product{Name: "Second", Quantity: 1}))
	require.NoError(t, store.WriteAt(ctx, "u1", "A", Product{Name: "Replaced", Quantity: 2}))

	products, err := store.ReadAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, "A", products[0].ID)
	require.Equal(t, "Replaced", products[0].Name)

	store.FailWrites = func(key string) error {
		if key == "C" {
			return errors.New("disk full")
		}
		return nil
	}
	require.Error(t, store.WriteAt(ctx, "u1", "C", Product{Name: "Third"}))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, users)
}

func TestMemoryStoreDeliversSnapshotsInWriteOrder(t *testing.T) {
	const writers, perWriter = 8, 25
	for trial := 0; trial < 20; trial++ {
		store := NewMemoryStore()
		ctx := context.Background()

		var mu sync.Mutex
		var sizes []int
		unsubscribe, err := store.Subscribe(ctx, "u1", func(products []Product) {
			mu.Lock()
			sizes = append(sizes, len(products))
			mu.Unlock()
		})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for w := 0; w < writers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWriter; i++ {
					key := fmt.Sprintf("w%d-%d", w, i)
					require.NoError(t, store.WriteAt(ctx, "u1", key, Product{Name: key, Quantity: 1}))
				}
			}(w)
		}
		wg.Wait()
		unsubscribe()

		mu.Lock()
		require.Len(t, sizes, writers*perWriter+1)
		for i, n := range sizes {
			require.Equal(t, i, n, "trial %d delivery %d", trial, i)
		}
		mu.Unlock()
	}
}

func TestMemoryStoreListenerMayWrite(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var sizes []int
	unsubscribe, err := store.Subscribe(ctx, "u1", func(products []Product) {
		sizes = append(sizes, len(products))
		if len(products) == 1 {
			require.NoError(t, store.WriteAt(ctx, "u1", "B", Product{Name: "Echo", Quantity: 1}))
		}
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.WriteAt(ctx, "u1", "A", Product{Name: "Milk", Quantity: 1}))
	require.Equal(t, []int{0, 1, 2}, sizes)
}

func TestMemoryStoreSubscribeDuringDelivery(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var late []int
	var unsubscribeLate func()
	unsubscribe, err := store.Subscribe(ctx, "u1", func(products []Product) {
		if len(products) != 1 || unsubscribeLate != nil {
			return
		}
		// Subscribing mid-delivery queues the current snapshot behind the
		// writes already pending.
		var err error
		unsubscribeLate, err = store.Subscribe(ctx, "u1", func(products []Product) {
			late = append(late, len(products))
		})
		require.NoError(t, err)
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, store.WriteAt(ctx, "u1", "A", Product{Name: "Milk", Quantity: 1}))
	require.NoError(t, store.WriteAt(ctx, "u1", "B", Product{Name: "Bread", Quantity: 1}))
	require.NotNil(t, unsubscribeLate)
	defer unsubscribeLate()
	require.Equal(t, []int{1, 2}, late)
}
