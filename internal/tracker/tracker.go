// Package tracker polls the backend order store at a fixed interval and
// holds the latest snapshot per scope. Surfaces read snapshots or subscribe
// to pushes; nobody talks to the backend per request.
package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
	apperrors "github.com/AlvinSanchezO/crepa-urbana-storefront/pkg/errors"
)

// FetchFunc loads the current set of orders for a scope.
type FetchFunc func(ctx context.Context) ([]domain.Order, error)

// Snapshot is the latest-wins view of a scope. When Stale is set, Orders is
// the last-known-good result of an earlier tick and a newer poll has failed.
type Snapshot struct {
	Scope     string         `json:"scope"`
	Orders    []domain.Order `json:"orders"`
	Stale     bool           `json:"stale"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Tracker runs the poll loop for one scope.
type Tracker struct {
	scope    string
	fetch    FetchFunc
	interval time.Duration
	logger   *slog.Logger

	mu        sync.RWMutex
	snap      Snapshot
	lastErr   error
	subs      map[int]chan Snapshot
	nextSubID int

	done chan struct{}
}

// New creates a tracker for the given scope. Start must be called to begin
// polling.
func New(scope string, fetch FetchFunc, interval time.Duration, logger *slog.Logger) *Tracker {
	return &Tracker{
		scope:    scope,
		fetch:    fetch,
		interval: interval,
		logger:   logger,
		snap:     Snapshot{Scope: scope},
		subs:     make(map[int]chan Snapshot),
		done:     make(chan struct{}),
	}
}

// Start launches the poll loop. The first tick runs immediately; cancelling
// ctx stops the ticker and ends the loop.
func (t *Tracker) Start(ctx context.Context) {
	go t.run(ctx)
}

// Done is closed when the poll loop has exited.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Snapshot returns the current snapshot.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snap
}

// Err reports the error from the most recent failed poll, wrapped with
// ErrPollFailed. It is nil after a successful tick.
func (t *Tracker) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lastErr
}

// Subscribe returns a channel receiving each new snapshot until ctx is
// cancelled. A slow consumer only ever misses intermediate snapshots; the
// channel always holds the newest one.
func (t *Tracker) Subscribe(ctx context.Context) <-chan Snapshot {
	ch := make(chan Snapshot, 1)

	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subs[id] = ch
	ch <- t.snap
	t.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-t.done:
		}
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}()

	return ch
}

func (t *Tracker) run(ctx context.Context) {
	defer close(t.done)

	t.tick(ctx)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.tick(ctx)
		}
	}
}

// tick runs one poll. A failure keeps the previous orders and flags the
// snapshot stale; the next success clears the flag.
func (t *Tracker) tick(ctx context.Context) {
	fetchCtx, cancel := context.WithTimeout(ctx, t.interval)
	defer cancel()

	orders, err := t.fetch(fetchCtx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		pollErr := fmt.Errorf("%w: %w", apperrors.ErrPollFailed, err)
		pollsTotal.WithLabelValues(t.scope, "error").Inc()
		t.logger.WarnContext(ctx, "order poll failed, keeping last snapshot",
			slog.String("scope", t.scope),
			slog.String("error", pollErr.Error()),
		)

		t.mu.Lock()
		t.snap.Stale = true
		t.lastErr = pollErr
		snap := t.snap
		t.mu.Unlock()

		t.publish(snap)
		return
	}

	pollsTotal.WithLabelValues(t.scope, "ok").Inc()

	t.mu.Lock()
	t.snap = Snapshot{
		Scope:     t.scope,
		Orders:    orders,
		Stale:     false,
		UpdatedAt: time.Now().UTC(),
	}
	t.lastErr = nil
	snap := t.snap
	t.mu.Unlock()

	t.publish(snap)
}

// publish pushes a snapshot to every subscriber, replacing an unread older
// one rather than blocking.
func (t *Tracker) publish(snap Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, ch := range t.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// ActiveOnly filters a fetch down to non-terminal orders, the kitchen board
// scope.
func ActiveOnly(fetch FetchFunc) FetchFunc {
	return func(ctx context.Context) ([]domain.Order, error) {
		orders, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		active := make([]domain.Order, 0, len(orders))
		for _, o := range orders {
			if o.IsActive() {
				active = append(active, o)
			}
		}
		return active, nil
	}
}
