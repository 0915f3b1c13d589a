// Package gfx holds the process-wide graphics context shared by the tick
// path and the render path. Surfaces are only created, refreshed, drawn or
// destroyed while a Guard is held.
package gfx

import (
	"sync"
	"sync/atomic"
)

// Context serializes access to graphics resources
type Context struct {
	mu      sync.Mutex
	entries atomic.Uint64
	held    atomic.Bool
}

// New creates a graphics context
func New() *Context {
	return &Context{}
}

// Enter blocks until the context is free and returns a guard that must be
// released with Leave, typically via defer.
func (c *Context) Enter() *Guard {
	c.mu.Lock()
	c.held.Store(true)
	c.entries.Add(1)
	return &Guard{ctx: c}
}

// Held reports whether some goroutine currently holds the context
func (c *Context) Held() bool {
	return c.held.Load()
}

// Entries counts successful Enter calls
func (c *Context) Entries() uint64 {
	return c.entries.Load()
}

// Guard is a scoped acquisition of a Context
type Guard struct {
	ctx  *Context
	once sync.Once
}

// Leave releases the context. Extra calls are no-ops.
func (g *Guard) Leave() {
	g.once.Do(func() {
		g.ctx.held.Store(false)
		g.ctx.mu.Unlock()
	})
}
