package session

import (
	"context"
	"sync"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/kitchen-storefront/internal/domain/cart"
	"github.com/xenking/kitchen-storefront/internal/domain/catalog"
	"github.com/xenking/kitchen-storefront/internal/gateway"
)

// Manager creates one Session per user id on demand and runs each session's
// snapshot loop until the manager is closed. Closing tears down every
// subscription.
type Manager struct {
	catalog catalog.Repository
	store   gateway.Store
	pricing cart.Pricing
	retry   RetryPolicy
	lg      *zap.Logger

	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewManager wires a manager. Start must be called before Session.
func NewManager(cat catalog.Repository, store gateway.Store, pricing cart.Pricing, retry RetryPolicy, lg *zap.Logger) *Manager {
	return &Manager{
		catalog:  cat,
		store:    store,
		pricing:  pricing,
		retry:    retry,
		lg:       lg.Named("session"),
		sessions: make(map[string]*Session),
	}
}

// Start sets the lifecycle context for all sessions.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctx, m.cancel = context.WithCancel(ctx)
}

// Session returns the live session for userID, creating and starting one on
// first use. When a session's snapshot loop dies it is dropped, so the next
// call re-establishes the subscription.
func (m *Manager) Session(userID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx == nil {
		return nil, errors.New("session manager not started")
	}
	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}

	s := New(userID, m.catalog, m.store, m.pricing, m.retry, m.lg)
	m.sessions[userID] = s

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if err := s.Run(m.ctx); err != nil {
			m.lg.Error("session loop ended", zap.String("user_id", userID), zap.Error(err))
		}
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
	}()

	return s, nil
}

// Close cancels every session loop and waits for them to drain.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}
