package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/AlvinSanchezO/crepa-urbana-storefront/internal/domain"
)

// ListFunc lists the orders visible to a bearer token.
type ListFunc func(ctx context.Context, token string) ([]domain.Order, error)

// Manager owns per-user trackers for the "mine" scope. A tracker is created
// on first use, its token refreshed on every use, and torn down once the
// user stops asking.
type Manager struct {
	list     ListFunc
	interval time.Duration
	idleTTL  time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry

	nowFunc func() time.Time
}

type entry struct {
	tracker  *Tracker
	cancel   context.CancelFunc
	lastSeen time.Time
	token    string
}

// NewManager creates a tracker manager.
func NewManager(list ListFunc, interval, idleTTL time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		list:     list,
		interval: interval,
		idleTTL:  idleTTL,
		logger:   logger,
		entries:  make(map[string]*entry),
		nowFunc:  time.Now,
	}
}

// Start launches the idle sweeper. Cancelling ctx stops the sweeper and
// every tracker the manager owns.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.idleTTL / 2)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				m.stopAll()
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

// Tracker returns the user's tracker, creating and starting one on first
// use. The token is refreshed so later polls carry current credentials.
func (m *Manager) Tracker(ctx context.Context, userID, token string) *Tracker {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[userID]; ok {
		e.lastSeen = m.nowFunc()
		e.token = token
		return e.tracker
	}

	e := &entry{lastSeen: m.nowFunc(), token: token}

	fetch := func(fetchCtx context.Context) ([]domain.Order, error) {
		m.mu.Lock()
		current := e.token
		m.mu.Unlock()
		return m.list(fetchCtx, current)
	}

	trackerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	e.cancel = cancel
	e.tracker = New("mine:"+userID, fetch, m.interval, m.logger)
	e.tracker.Start(trackerCtx)

	m.entries[userID] = e
	activeTrackers.Inc()

	m.logger.DebugContext(ctx, "started per-user order tracker",
		slog.String("user_id", userID),
	)

	return e.tracker
}

// sweep stops trackers whose user has not asked within the idle TTL.
func (m *Manager) sweep() {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, e := range m.entries {
		if now.Sub(e.lastSeen) > m.idleTTL {
			e.cancel()
			delete(m.entries, userID)
			activeTrackers.Dec()
			m.logger.Debug("stopped idle order tracker",
				slog.String("user_id", userID),
			)
		}
	}
}

func (m *Manager) stopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for userID, e := range m.entries {
		e.cancel()
		delete(m.entries, userID)
		activeTrackers.Dec()
	}
}

// size reports the number of live trackers.
func (m *Manager) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
