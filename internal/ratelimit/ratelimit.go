// Package ratelimit implements fixed-window admission control keyed by
// (client, route). Counter state lives behind CounterStore so the in-memory
// and shared-redis implementations are interchangeable.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CounterStore increments the counter for key inside the current fixed window
// and returns the resulting count. The window restarts when it elapses.
type CounterStore interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

type Limiter struct {
	store CounterStore
	log   *zap.Logger
}

func NewLimiter(store CounterStore, log *zap.Logger) *Limiter {
	return &Limiter{store: store, log: log}
}

// Admit reports whether a request from clientKey on routeKey is allowed under
// limit requests per window. Counter-store failures admit the request: losing
// rate limiting briefly is preferable to rejecting legitimate visitors.
func (l *Limiter) Admit(ctx context.Context, clientKey, routeKey string, limit int, window time.Duration) bool {
	key := fmt.Sprintf("rate_limit:%s:%s", routeKey, clientKey)

	count, err := l.store.IncrWindow(ctx, key, window)
	if err != nil {
		l.log.Warn("Rate limit store unavailable, admitting request",
			zap.String("route", routeKey),
			zap.Error(err))
		return true
	}

	return count <= int64(limit)
}

type localWindow struct {
	count int64
	start time.Time
}

// LocalStore is the process-local CounterStore. Windows are tracked per key
// and pruned lazily as they are touched.
type LocalStore struct {
	mu      sync.Mutex
	windows map[string]*localWindow
	now     func() time.Time
}

func NewLocalStore() *LocalStore {
	return &LocalStore{
		windows: make(map[string]*localWindow),
		now:     time.Now,
	}
}

func (s *LocalStore) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) >= window {
		w = &localWindow{start: now}
		s.windows[key] = w
	}
	w.count++
	return w.count, nil
}
