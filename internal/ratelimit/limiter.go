// Package ratelimit bounds calls to remote generation services against
// their per-minute request quotas. A slot, once acquired, is returned by a
// timer rather than by the caller: finishing a request early does not free
// quota any sooner.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Window is how long an acquired slot stays occupied. The extra second
// over the provider's rolling minute absorbs clock skew between us and the
// service's accounting.
const Window = 61 * time.Second

// Limiter admits at most capacity calls per rolling window for one named
// remote operation.
type Limiter struct {
	capacity int
	window   time.Duration
	slots    chan struct{}

	mu       sync.Mutex
	cooldown int // timers currently pending
}

// NewLimiter returns a limiter that admits capacity calls per Window.
func NewLimiter(capacity int) *Limiter {
	return NewLimiterWindow(capacity, Window)
}

// NewLimiterWindow is NewLimiter with an explicit window duration.
func NewLimiterWindow(capacity int, window time.Duration) *Limiter {
	if capacity < 1 {
		capacity = 1
	}
	return &Limiter{
		capacity: capacity,
		window:   window,
		slots:    make(chan struct{}, capacity),
	}
}

// Acquire blocks until a slot is free or ctx is done. The slot is released
// automatically one window after acquisition; there is no explicit release.
func (l *Limiter) Acquire(ctx context.Context) error {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	l.mu.Lock()
	l.cooldown++
	l.mu.Unlock()

	time.AfterFunc(l.window, func() {
		l.mu.Lock()
		l.cooldown--
		l.mu.Unlock()
		<-l.slots
	})
	return nil
}

// Capacity returns the per-window call budget.
func (l *Limiter) Capacity() int { return l.capacity }

// Cooldown returns the number of cool-down timers currently pending. It can
// never exceed Capacity.
func (l *Limiter) Cooldown() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cooldown
}

// Registry hands out one limiter per named operation, constructing each
// lazily on first use. It is safe for concurrent use and is intended to
// live for the whole process.
type Registry struct {
	window time.Duration

	mu       sync.Mutex
	limiters map[string]*Limiter
}

// NewRegistry returns a registry whose limiters use the default Window.
func NewRegistry() *Registry {
	return NewRegistryWindow(Window)
}

// NewRegistryWindow is NewRegistry with an explicit window for every
// limiter it creates.
func NewRegistryWindow(window time.Duration) *Registry {
	return &Registry{
		window:   window,
		limiters: make(map[string]*Limiter),
	}
}

// Limiter returns the limiter for the named operation, creating it with the
// given capacity if it does not exist yet. The capacity of an existing
// limiter is never changed.
func (r *Registry) Limiter(operation string, capacity int) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[operation]
	if !ok {
		l = NewLimiterWindow(capacity, r.window)
		r.limiters[operation] = l
	}
	return l
}

// Per-model requests-per-minute quotas for the hosted API.
// https://platform.openai.com/account/limits
var quotas = map[string]int{
	"gpt-3.5-turbo":               3500,
	"gpt-3.5-turbo-1106":          3500,
	"gpt-3.5-turbo-16k":           3500,
	"gpt-3.5-turbo-instruct":      3000,
	"gpt-4":                       500,
	"gpt-4-0613":                  500,
	"gpt-4-1106-preview":          500,
	"gpt-4-vision-preview":        80,
	"gpt-4o":                      500,
	"gpt-4o-mini":                 500,
	"gemini-2.0-flash":            2000,
	"gemini-2.5-flash":            1000,
	"tts-1":                       50,
	"tts-1-1106":                  50,
	"tts-1-hd":                    3,
	"tts-1-hd-1106":               3,
}

// DefaultQuota is assumed for models missing from the quota table.
const DefaultQuota = 50

// Quota returns the requests-per-minute budget for a model.
func Quota(model string) int {
	if q, ok := quotas[model]; ok {
		return q
	}
	return DefaultQuota
}
