package sessions

import (
	"slices"
	"time"

	"github.com/clone-prom-team-2025/server/users"
)

// DeviceFingerprint distinguishes concurrent sessions of one user. Two fingerprints
// match only when all three fields are equal.
type DeviceFingerprint struct {
	Browser string `json:"browser" bson:"browser"` // Browser family, e.g. "Chrome"
	OS      string `json:"os" bson:"os"`           // OS family, e.g. "Windows"
	Device  string `json:"device" bson:"device"`   // Device class: desktop, mobile or bot
}

// Session is a per-device login. The role snapshot duplicates the user's roles so an
// authorization check does not need a user lookup; PropagateRoleChange keeps it current.
type Session struct {
	ID        string            `json:"id" bson:"_id"`
	UserID    string            `json:"user_id" bson:"user_id"`
	Device    DeviceFingerprint `json:"device" bson:"device"`
	CreatedAt time.Time         `json:"created_at" bson:"created_at"`
	ExpiresAt time.Time         `json:"expires_at" bson:"expires_at"`
	IsRevoked bool              `json:"is_revoked" bson:"is_revoked"`
	Roles     []users.RoleType  `json:"roles" bson:"roles"`
}

// IsValid reports whether the session may authenticate a request at now.
func (s *Session) IsValid(now time.Time) bool {
	return !s.IsRevoked && s.ExpiresAt.After(now)
}

// HasRole reports whether the role snapshot carries role.
func (s *Session) HasRole(role users.RoleType) bool {
	return slices.Contains(s.Roles, role)
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Roles = slices.Clone(s.Roles)
	return &c
}
