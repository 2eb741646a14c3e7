package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single asynchronous delivery.
const DefaultTimeout = 5 * time.Second

// Async dispatches every notification on its own goroutine and returns immediately.
// Delivery runs under context.Background() with a timeout so the caller's request
// ending does not abort an in-flight push. Failures are logged. After Drain starts,
// new notifications are dropped.
type Async struct {
	next    ForcedLogoutNotifier
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsync wraps next. A non-positive timeout selects DefaultTimeout.
func NewAsync(next ForcedLogoutNotifier, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Async{next: next, timeout: timeout}
}

func (a *Async) NotifyForcedLogout(_ context.Context, sessionID string) error {
	if a.next == nil || sessionID == "" {
		return nil
	}
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		log.Warn().Str("session_id", sessionID).Msg("forced logout notification dropped after shutdown")
		return nil
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.next.NotifyForcedLogout(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID).Msg("forced logout notification failed")
		}
	}()
	return nil
}

// Drain stops accepting notifications and waits for in-flight deliveries, giving up
// when ctx is done.
func (a *Async) Drain(ctx context.Context) {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}
