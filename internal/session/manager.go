// Package session keeps one Viewer per browser session, hydrated from persistence on first
// use and evicted after a period of inactivity.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/hanko-storefront/internal/effects"
	"finitefield.org/hanko-storefront/internal/paywidget"
	"finitefield.org/hanko-storefront/internal/persist"
	"finitefield.org/hanko-storefront/internal/store"
)

// ErrClosed is returned by Get after Close.
var ErrClosed = errors.New("session: manager closed")

// WidgetConfig describes the payment script given to each viewer.
type WidgetConfig struct {
	SDKURL   string
	ClientID string
	Currency string
}

// Gauge receives the live viewer count.
type Gauge interface {
	SetViewers(n int)
}

// Config wires a Manager.
type Config struct {
	Persist     persist.Store
	Gateway     effects.Gateway
	Widget      WidgetConfig
	Logger      *zap.Logger
	Recorder    effects.Recorder
	Gauge       Gauge
	IdleTimeout time.Duration
	SweepEvery  time.Duration
	CallTimeout time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Manager is a registry of viewers keyed by session id. It is safe for concurrent use.
type Manager struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	viewers map[string]*Viewer
	closed  bool

	done chan struct{}
	wg   sync.WaitGroup
}

// NewManager creates a registry and starts its eviction janitor. Call Close to stop it.
func NewManager(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Persist == nil {
		cfg.Persist = persist.NewMemory(0)
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 2 * time.Hour
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	m := &Manager{
		cfg:     cfg,
		now:     cfg.Clock,
		viewers: map[string]*Viewer{},
		done:    make(chan struct{}),
	}
	m.wg.Add(1)
	go m.janitor()
	return m
}

// NewID returns a fresh session id.
func NewID() string {
	return ulid.Make().String()
}

// Get returns the viewer for id, creating and hydrating it when needed.
func (m *Manager) Get(ctx context.Context, id string) (*Viewer, error) {
	if id == "" {
		return nil, fmt.Errorf("session: empty id")
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if v, ok := m.viewers[id]; ok {
		m.mu.Unlock()
		v.touch(m.now())
		return v, nil
	}
	m.mu.Unlock()

	v, err := m.newViewer(ctx, id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		v.release()
		return nil, ErrClosed
	}
	if existing, ok := m.viewers[id]; ok {
		// Another request hydrated the same session first.
		v.release()
		existing.touch(m.now())
		return existing, nil
	}
	m.viewers[id] = v
	m.report()
	return v, nil
}

// Len returns the number of live viewers.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.viewers)
}

// Close stops the janitor and releases every viewer.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	viewers := m.viewers
	m.viewers = map[string]*Viewer{}
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
	for _, v := range viewers {
		v.release()
	}
}

func (m *Manager) newViewer(ctx context.Context, id string) (*Viewer, error) {
	scoped := persist.Scoped{Store: m.cfg.Persist, Prefix: id}
	logger := m.cfg.Logger.With(zap.String("viewer", id))

	hydrate, err := persist.Load(ctx, scoped)
	if err != nil {
		// Persistence is a convenience; a broken backend must not block browsing.
		logger.Warn("viewer hydration failed", zap.Error(err))
		hydrate = store.Hydrate{}
	}
	if hydrate.UserInfo != nil && tokenExpired(hydrate.UserInfo.Token, m.now()) {
		logger.Info("dropping expired session token")
		hydrate.UserInfo = nil
		if err := scoped.Delete(ctx, persist.KeyUserInfo); err != nil {
			logger.Warn("delete expired user info", zap.Error(err))
		}
	}

	st := store.New(store.State{})
	st.Dispatch(hydrate)

	v := &Viewer{
		ID:       id,
		Store:    st,
		Widget:   paywidget.New(m.cfg.Widget.SDKURL, m.cfg.Widget.ClientID, m.cfg.Widget.Currency),
		lastSeen: m.now(),
	}
	v.Runner = effects.NewRunner(effects.Config{
		Store:         st,
		Gateway:       m.cfg.Gateway,
		Widget:        v.Widget,
		OnWidgetReady: v.Order.SetSDKReady,
		Logger:        logger,
		Recorder:      m.cfg.Recorder,
		CallTimeout:   m.cfg.CallTimeout,
	})
	v.stop = append(v.stop, persist.Sync(st, scoped, logger))
	return v, nil
}

// tokenExpired reads the exp claim without verifying the signature; the API verifies tokens.
// Tokens that are not JWTs are kept.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

func (m *Manager) janitor() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep evicts viewers idle for longer than the idle timeout. Their persisted state stays
// behind, so the next request hydrates a fresh viewer.
func (m *Manager) sweep() {
	cutoff := m.now().Add(-m.cfg.IdleTimeout)
	var evicted []*Viewer
	m.mu.Lock()
	for id, v := range m.viewers {
		if v.idleSince().Before(cutoff) && !v.Runner.Busy() {
			evicted = append(evicted, v)
			delete(m.viewers, id)
		}
	}
	if len(evicted) > 0 {
		m.report()
	}
	m.mu.Unlock()
	for _, v := range evicted {
		v.release()
	}
	if len(evicted) > 0 {
		m.cfg.Logger.Debug("evicted idle viewers", zap.Int("count", len(evicted)))
	}
}

func (m *Manager) report() {
	if m.cfg.Gauge != nil {
		m.cfg.Gauge.SetViewers(len(m.viewers))
	}
}
