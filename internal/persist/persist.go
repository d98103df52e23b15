// Package persist keeps the small amount of browser-session state that must survive a page
// reload or a server restart: cart lines, shipping address, payment method and the signed-in
// user. Values are stored as JSON under fixed key names scoped by viewer id.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Fixed key names. They are combined with the viewer id by Scoped.
const (
	KeyCartItems       = "cartItems"
	KeyShippingAddress = "shippingAddress"
	KeyPaymentMethod   = "paymentMethod"
	KeyUserInfo        = "userInfo"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("persist: not found")

// Store is a JSON key-value capability.
type Store interface {
	Get(ctx context.Context, key string, dst any) error
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// Scoped prefixes keys with a viewer id.
type Scoped struct {
	Store  Store
	Prefix string
}

func (s Scoped) key(name string) string { return s.Prefix + ":" + name }

// Get loads the named value into dst.
func (s Scoped) Get(ctx context.Context, name string, dst any) error {
	return s.Store.Get(ctx, s.key(name), dst)
}

// Set stores value under the named key.
func (s Scoped) Set(ctx context.Context, name string, value any) error {
	return s.Store.Set(ctx, s.key(name), value)
}

// Delete removes the named key.
func (s Scoped) Delete(ctx context.Context, name string) error {
	return s.Store.Delete(ctx, s.key(name))
}

// Memory is an in-process Store used in development and tests.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
	ttl  time.Duration
	exp  map[string]time.Time
	now  func() time.Time
}

// NewMemory creates an empty in-memory store. A zero ttl keeps values forever.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		data: map[string][]byte{},
		exp:  map[string]time.Time{},
		ttl:  ttl,
		now:  time.Now,
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string, dst any) error {
	m.mu.RLock()
	raw, ok := m.data[key]
	exp, hasExp := m.exp[key]
	m.mu.RUnlock()
	if !ok || (hasExp && m.now().After(exp)) {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dst)
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = raw
	if m.ttl > 0 {
		m.exp[key] = m.now().Add(m.ttl)
	}
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	delete(m.exp, key)
	return nil
}
