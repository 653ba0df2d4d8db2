// Package preview implements the full resolution preview session: one
// active session per process, debounced navigation and a small image cache.
package preview

import (
	"errors"
	"sync"
)

var (
	// ErrSessionActive is returned when a preview session is already open.
	ErrSessionActive = errors.New("a preview session is already active")
	// ErrSessionClosing is returned while the previous session tears down.
	ErrSessionClosing = errors.New("previous preview session is still closing")
)

type guardState int

const (
	guardIdle guardState = iota
	guardOpen
	guardClosing
	guardClosed
)

// ActiveSessionGuard serializes preview sessions process-wide. A session
// must Acquire before opening; while one is open or closing, further
// acquisitions fail with a distinct error for each phase.
type ActiveSessionGuard struct {
	mu    sync.Mutex
	state guardState
}

func NewActiveSessionGuard() *ActiveSessionGuard {
	return &ActiveSessionGuard{}
}

// Acquire claims the guard for a new session.
func (g *ActiveSessionGuard) Acquire() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch g.state {
	case guardOpen:
		return ErrSessionActive
	case guardClosing:
		return ErrSessionClosing
	default:
		g.state = guardOpen
		return nil
	}
}

// BeginClose moves an open session into the closing phase. During this
// phase new sessions are refused, so a half-torn-down session can never
// race with a fresh one.
func (g *ActiveSessionGuard) BeginClose() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == guardOpen {
		g.state = guardClosing
	}
}

// Release marks teardown as finished and frees the guard.
func (g *ActiveSessionGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == guardOpen || g.state == guardClosing {
		g.state = guardClosed
	}
}

// Closing reports whether a teardown is in progress.
func (g *ActiveSessionGuard) Closing() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == guardClosing
}
