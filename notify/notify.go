// Package notify delivers forced-logout notifications to the real-time channel that
// connected clients listen on. Delivery is best effort: the session store stays the
// source of truth and a client that misses the push is rejected on its next request.
package notify

import "context"

// ForcedLogoutNotifier tells any client holding sessionID that it has been logged out.
type ForcedLogoutNotifier interface {
	NotifyForcedLogout(ctx context.Context, sessionID string) error
}

// Nop discards notifications. Used when no real-time channel is configured.
type Nop struct{}

func (Nop) NotifyForcedLogout(context.Context, string) error { return nil }
