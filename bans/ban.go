package bans

import (
	"fmt"
	"strings"
	"time"
)

// Scope is a set of actions a ban forbids.
type Scope uint8

const (
	ScopeLogin Scope = 1 << iota
	ScopeComment
	ScopeReview
	ScopeCreateStore

	ScopeAll = ScopeLogin | ScopeComment | ScopeReview | ScopeCreateStore
)

var scopeNames = []struct {
	scope Scope
	name  string
}{
	{ScopeLogin, "login"},
	{ScopeComment, "comment"},
	{ScopeReview, "review"},
	{ScopeCreateStore, "create_store"},
}

// Has reports whether s covers every action in other.
func (s Scope) Has(other Scope) bool {
	return other != 0 && s&other == other
}

// Names lists the actions in s.
func (s Scope) Names() []string {
	names := make([]string, 0, len(scopeNames))
	for _, sn := range scopeNames {
		if s&sn.scope != 0 {
			names = append(names, sn.name)
		}
	}
	return names
}

func (s Scope) String() string {
	return strings.Join(s.Names(), "|")
}

// ParseScope builds a Scope from action names such as "login" or "create_store".
func ParseScope(names []string) (Scope, error) {
	var s Scope
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		found := false
		for _, sn := range scopeNames {
			if sn.name == n {
				s |= sn.scope
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown ban scope %q", n)
		}
	}
	return s, nil
}

// Ban restricts a user. A nil BannedUntil makes the ban permanent.
type Ban struct {
	ID          string     `json:"id" bson:"_id"`
	UserID      string     `json:"user_id" bson:"user_id"`
	AdminID     string     `json:"admin_id" bson:"admin_id"`
	BannedAt    time.Time  `json:"banned_at" bson:"banned_at"`
	BannedUntil *time.Time `json:"banned_until,omitempty" bson:"banned_until,omitempty"`
	Reason      string     `json:"reason" bson:"reason"`
	Scope       Scope      `json:"scope" bson:"scope"`
}

// IsActive reports whether the ban is in force at now.
func (b *Ban) IsActive(now time.Time) bool {
	return b.BannedUntil == nil || b.BannedUntil.After(now)
}
