package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	// WaitTimeout is the maximum time a client can wait for notifications
	WaitTimeout = 25 * time.Second
)

// WaitRegistry manages long-polling and streaming clients waiting for game state changes
type WaitRegistry struct {
	mu       sync.RWMutex
	waiters  map[string][]*WaitRequest // gameID → waiting clients
	shutdown chan struct{}
	closed   sync.Once
	wg       sync.WaitGroup
}

// WaitRequest represents a single client waiting for game updates
type WaitRequest struct {
	Revision int    // Last revision the client has seen
	GameID   string // Game being watched
	notify   chan struct{}
	once     sync.Once
	timer    *time.Timer
}

// fire releases the waiter; safe to call more than once
func (r *WaitRequest) fire() {
	r.once.Do(func() { close(r.notify) })
}

// NewWaitRegistry creates a new wait registry
func NewWaitRegistry() *WaitRegistry {
	return &WaitRegistry{
		waiters:  make(map[string][]*WaitRequest),
		shutdown: make(chan struct{}),
	}
}

// RegisterWait returns a channel closed when the game moves past revision,
// the wait times out, the game is deleted or the registry shuts down
func (w *WaitRegistry) RegisterWait(ctx context.Context, gameID string, revision int) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	req := &WaitRequest{
		Revision: revision,
		GameID:   gameID,
		notify:   make(chan struct{}),
	}
	req.timer = time.AfterFunc(WaitTimeout, req.fire)

	select {
	case <-w.shutdown:
		req.timer.Stop()
		req.fire()
		return req.notify
	default:
	}

	w.waiters[gameID] = append(w.waiters[gameID], req)

	// Cleanup on release or client disconnect
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
			req.fire()
		case <-req.notify:
		case <-w.shutdown:
			req.fire()
		}
		req.timer.Stop()
		w.removeWaiter(gameID, req)
	}()

	return req.notify
}

// NotifyGame releases every waiter on gameID whose revision differs from revision
func (w *WaitRegistry) NotifyGame(gameID string, revision int) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for _, req := range w.waiters[gameID] {
		if req.Revision != revision {
			req.fire()
		}
	}
}

// RemoveGame releases all waiters for a game (called before game deletion)
func (w *WaitRegistry) RemoveGame(gameID string) {
	w.mu.Lock()
	waitList := w.waiters[gameID]
	delete(w.waiters, gameID)
	w.mu.Unlock()

	for _, req := range waitList {
		req.fire()
	}
}

// Done is closed once the registry shuts down
func (w *WaitRegistry) Done() <-chan struct{} {
	return w.shutdown
}

// Shutdown releases all waiters and waits for their cleanup goroutines
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.closed.Do(func() { close(w.shutdown) })

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out")
	}
}

// removeWaiter removes a specific waiter from the registry
func (w *WaitRegistry) removeWaiter(gameID string, req *WaitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[gameID]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[gameID] = append(waitList[:i:i], waitList[i+1:]...)
			break
		}
	}

	// Clean up empty entries
	if len(w.waiters[gameID]) == 0 {
		delete(w.waiters, gameID)
	}
}
