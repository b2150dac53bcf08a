// Package events carries process-wide storefront signals between collaborators
// that must not import each other.
package events

import (
	"context"
	"sync"
)

// UnauthorizedHandler reacts to a 401 observed while serving the visitor on ctx.
type UnauthorizedHandler func(ctx context.Context)

// Bus fans the unauthorized signal out to every subscriber.
type Bus struct {
	mu       sync.RWMutex
	handlers []UnauthorizedHandler
}

func NewBus() *Bus {
	return &Bus{}
}

// OnUnauthorized registers a handler. Handlers run synchronously in registration order.
func (b *Bus) OnUnauthorized(handler UnauthorizedHandler) {
	if b == nil || handler == nil {
		return
	}
	b.mu.Lock()
	b.handlers = append(b.handlers, handler)
	b.mu.Unlock()
}

// RaiseUnauthorized notifies all subscribers.
func (b *Bus) RaiseUnauthorized(ctx context.Context) {
	if b == nil {
		return
	}
	b.mu.RLock()
	handlers := make([]UnauthorizedHandler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	for _, handler := range handlers {
		handler(ctx)
	}
}
