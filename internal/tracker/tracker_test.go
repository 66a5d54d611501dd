package tracker

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// scriptedFetch returns canned results per call under a lock so tests can
// flip behavior mid-run.
type scriptedFetch struct {
	mu     sync.Mutex
	orders []domain.Order
	err    error
	calls  int
}

func (f *scriptedFetch) fetch(_ context.Context) ([]domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

func (f *scriptedFetch) set(orders []domain.Order, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
	f.err = err
}

func (f *scriptedFetch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestTracker_TickUpdatesSnapshot(t *testing.T) {
	fetch := &scriptedFetch{orders: []domain.Order{{ID: 7, Status: domain.StatusPending}}}
	tr := New("active", fetch.fetch, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)

	assert.Eventually(t, func() bool {
		snap := tr.Snapshot()
		return len(snap.Orders) == 1 && !snap.Stale && !snap.UpdatedAt.IsZero()
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, "active", tr.Snapshot().Scope)
}

func TestTracker_FailedTickKeepsLastGoodAndSetsStale(t *testing.T) {
	fetch := &scriptedFetch{orders: []domain.Order{{ID: 7, Status: domain.StatusPending}}}
	tr := New("active", fetch.fetch, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)

	// Wait for the first good snapshot, then make polls fail.
	require.Eventually(t, func() bool {
		return len(tr.Snapshot().Orders) == 1
	}, time.Second, 5*time.Millisecond)

	fetch.set(nil, errors.New("backend down"))

	assert.Eventually(t, func() bool {
		snap := tr.Snapshot()
		return snap.Stale && len(snap.Orders) == 1
	}, time.Second, 5*time.Millisecond)

	// While polls keep failing the last-good timestamp does not move.
	goodAt := tr.Snapshot().UpdatedAt
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, goodAt, tr.Snapshot().UpdatedAt, "failed ticks must not touch the last-good timestamp")

	// The next success clears the flag and replaces the snapshot.
	fetch.set([]domain.Order{{ID: 7, Status: domain.StatusPreparing}, {ID: 8, Status: domain.StatusPending}}, nil)

	assert.Eventually(t, func() bool {
		snap := tr.Snapshot()
		return !snap.Stale && len(snap.Orders) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_ErrReportsPollFailure(t *testing.T) {
	fetch := &scriptedFetch{err: errors.New("backend down")}
	tr := New("active", fetch.fetch, 10*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Start(ctx)

	require.Eventually(t, func() bool {
		return tr.Err() != nil
	}, time.Second, 5*time.Millisecond)

	err := tr.Err()
	assert.ErrorIs(t, err, apperrors.ErrPollFailed)
	assert.Contains(t, err.Error(), "backend down")

	// A successful tick clears the error.
	fetch.set([]domain.Order{{ID: 7, Status: domain.StatusPending}}, nil)

	assert.Eventually(t, func() bool {
		return tr.Err() == nil && len(tr.Snapshot().Orders) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestTracker_CancelHaltsLoop(t *testing.T) {
	fetch := &scriptedFetch{}
	tr := New("active", fetch.fetch, 5*time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	tr.Start(ctx)

	require.Eventually(t, func() bool { return fetch.callCount() > 0 }, time.Second, time.Millisecond)

	cancel()

	select {
	case <-tr.Done():
	case <-time.After(time.Second):
		t.Fatal("poll loop did not stop after context cancellation")
	}

	calls := fetch.callCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fetch.callCount(), "no ticks may run after the loop stopped")
}

func TestTracker_Subscribe(t *testing.T) {
	fetch := &scriptedFetch{orders: []domain.Order{{ID: 7, Status: domain.StatusPending}}}
	tr := New("active", fetch.fetch, 10*time.Millisecond, testLogger())

	trackerCtx, cancelTracker := context.WithCancel(context.Background())
	defer cancelTracker()
	tr.Start(trackerCtx)

	subCtx, cancelSub := context.WithCancel(context.Background())
	ch := tr.Subscribe(subCtx)

	// The first receive is the snapshot at subscribe time; later receives
	// carry poll results.
	deadline := time.After(time.Second)
	for {
		select {
		case snap := <-ch:
			if len(snap.Orders) == 1 {
				cancelSub()
				assert.Eventually(t, func() bool {
					tr.mu.RLock()
					defer tr.mu.RUnlock()
					return len(tr.subs) == 0
				}, time.Second, 5*time.Millisecond)
				return
			}
		case <-deadline:
			t.Fatal("never received a populated snapshot")
		}
	}
}

func TestActiveOnly_FiltersTerminalOrders(t *testing.T) {
	fetch := ActiveOnly(func(_ context.Context) ([]domain.Order, error) {
		return []domain.Order{
			{ID: 1, Status: domain.StatusPending},
			{ID: 2, Status: domain.StatusDelivered},
			{ID: 3, Status: domain.StatusReady},
			{ID: 4, Status: domain.StatusCanceled},
		}, nil
	})

	orders, err := fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, int64(3), orders[1].ID)
}
