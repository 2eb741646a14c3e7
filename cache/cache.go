// Package cache is the process-wide ephemeral key/value store backing the
// verification and password-recovery flows.
//
// Entries carry a TTL that is reset only when the entry is written again; reading an
// entry never extends it. Keys are partitioned by a purpose prefix and every prefix is
// owned by a single component.
package cache

import (
	"context"
	"time"
)

// Key prefixes. Each one is read and written by exactly one flow.
const (
	PrefixVerifyEmail   = "verify"
	PrefixResetPass     = "reset-pass"
	PrefixResetAccess   = "reset-pass-access-code"
	PrefixDeleteAccount = "delete-account"
)

// Cache is the verification cache contract.
type Cache interface {
	// Set stores value under key for ttl, replacing any previous entry and its TTL.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// TryGet returns the value for key. ok is false when the key is absent or expired.
	TryGet(ctx context.Context, key string) (value string, ok bool, err error)
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// RemoveIf deletes key only while it still holds value, atomically. removed is true
	// for exactly one of several concurrent callers; a consumer proceeds only then.
	RemoveIf(ctx context.Context, key, value string) (removed bool, err error)
}

// Key joins a purpose prefix and a subject into a cache key, e.g. "verify:a@b.com".
func Key(prefix, subject string) string {
	return prefix + ":" + subject
}
