package dashboard

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdesk/salesdesk/internal/api"
)

type fakeBackend struct {
	statsCalls atomic.Int32
	lowCalls   atomic.Int32
	threshold  atomic.Int32
	gate       chan struct{}
	err        error
}

func (f *fakeBackend) DashboardStats(ctx context.Context, from, to time.Time) (api.DashboardStats, error) {
	f.statsCalls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return api.DashboardStats{}, f.err
	}
	return api.DashboardStats{TotalRevenueToday: 2500000, TotalOrdersToday: 3}, nil
}

func (f *fakeBackend) LowStockProducts(ctx context.Context, threshold int) ([]api.Product, error) {
	f.lowCalls.Add(1)
	f.threshold.Store(int32(threshold))
	return []api.Product{{ID: 3, Name: "Giày da", StockQuantity: 2}}, nil
}

func newService(t *testing.T, backend Backend) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(backend, NewCache(client, time.Minute), 0, nil)
	svc.now = func() time.Time { return time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC) }
	return svc, mr
}

func TestOverviewIsCached(t *testing.T) {
	backend := &fakeBackend{}
	svc, mr := newService(t, backend)

	first, err := svc.Overview(context.Background(), Range{})
	require.NoError(t, err)
	second, err := svc.Overview(context.Background(), Range{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), backend.statsCalls.Load())
	assert.Equal(t, int32(api.DefaultLowStockThreshold), backend.threshold.Load())
	assert.Equal(t, first.Stats, second.Stats)
	assert.Equal(t, 2500000.0, second.Stats.TotalRevenueToday)
	assert.Len(t, second.LowStock, 1)
	assert.True(t, mr.Exists("dashboard:overview:20261016-20261016:5:1"))
}

func TestConcurrentMissesShareOneLoad(t *testing.T) {
	backend := &fakeBackend{gate: make(chan struct{})}
	svc, _ := newService(t, backend)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Overview(context.Background(), Range{})
			assert.NoError(t, err)
		}()
	}
	require.Eventually(t, func() bool { return backend.statsCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(backend.gate)
	wg.Wait()

	assert.Equal(t, int32(1), backend.statsCalls.Load())
}

func TestRefreshRetiresCachedEntries(t *testing.T) {
	backend := &fakeBackend{}
	svc, mr := newService(t, backend)

	_, err := svc.Overview(context.Background(), Range{})
	require.NoError(t, err)
	_, err = svc.Refresh(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int32(2), backend.statsCalls.Load())
	assert.True(t, mr.Exists("dashboard:overview:20261016-20261016:5:2"))
}

func TestBackendErrorIsNotCached(t *testing.T) {
	backend := &fakeBackend{err: &api.Error{Status: 500, Message: "boom"}}
	svc, _ := newService(t, backend)

	_, err := svc.Overview(context.Background(), Range{})
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))

	backend.err = nil
	out, err := svc.Overview(context.Background(), Range{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Stats.TotalOrdersToday)
	assert.Equal(t, int32(2), backend.statsCalls.Load())
}

func TestCacheOutageFallsBackToBackend(t *testing.T) {
	backend := &fakeBackend{}
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1, DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { _ = client.Close() })
	svc := NewService(backend, NewCache(client, time.Minute), 0, nil)

	out, err := svc.Overview(context.Background(), Range{})

	require.NoError(t, err)
	assert.Equal(t, int64(3), out.Stats.TotalOrdersToday)
}

func TestLowStockUsesCache(t *testing.T) {
	backend := &fakeBackend{}
	svc, _ := newService(t, backend)

	for i := 0; i < 3; i++ {
		items, err := svc.LowStock(context.Background())
		require.NoError(t, err)
		assert.Len(t, items, 1)
	}
	assert.Equal(t, int32(1), backend.lowCalls.Load())
}

func TestScanLowStockPrimesCache(t *testing.T) {
	backend := &fakeBackend{}
	svc, _ := newService(t, backend)

	items, err := svc.ScanLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)

	cached, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Giày da", cached[0].Name)
	assert.Equal(t, int32(1), backend.lowCalls.Load())
	assert.Equal(t, int32(api.DefaultLowStockThreshold), backend.threshold.Load())
}
