package users

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// RoleType represents a marketplace role carried by a user and snapshotted onto sessions.
type RoleType string

const (
	RoleCustomer  RoleType = "customer"  // Default role for every registered account
	RoleSeller    RoleType = "seller"    // Owns one or more stores
	RoleModerator RoleType = "moderator" // Can moderate reviews and comments
	RoleAdmin     RoleType = "admin"     // Can manage users, roles and bans
)

// ParseRole validates a role name received from a caller.
func ParseRole(s string) (RoleType, error) {
	switch r := RoleType(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleSeller, RoleModerator, RoleAdmin:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type User struct {
	ID             string     `json:"id" bson:"_id"`                          // Unique identifier for the user
	Email          string     `json:"email" bson:"email"`                     // User's email address, stored lower-case
	Username       string     `json:"username" bson:"username"`               // Unique username
	PasswordHash   string     `json:"-" bson:"password_hash"`                 // Hashed password - never serialize to clients
	Roles          []RoleType `json:"roles" bson:"roles"`                     // Authoritative role set
	EmailConfirmed bool       `json:"email_confirmed" bson:"email_confirmed"` // Set once the emailed code is verified
	CreatedAt      time.Time  `json:"created_at" bson:"created_at"`
}

// HasRole reports whether the user carries role.
func (u *User) HasRole(role RoleType) bool {
	return slices.Contains(u.Roles, role)
}

// AddRole adds role and reports whether the set changed.
func (u *User) AddRole(role RoleType) bool {
	if u.HasRole(role) {
		return false
	}
	u.Roles = append(u.Roles, role)
	return true
}

// RemoveRole removes role and reports whether the set changed.
func (u *User) RemoveRole(role RoleType) bool {
	idx := slices.Index(u.Roles, role)
	if idx < 0 {
		return false
	}
	u.Roles = slices.Delete(u.Roles, idx, idx+1)
	return true
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail checks that email is a bare address (no display name).
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePasswordStrength checks if password meets security requirements:
// - At least 8 characters long
// - Contains uppercase and lowercase letters
// - Contains at least one number
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	var (
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, char := range password {
		if unicode.IsUpper(char) {
			hasUpper = true
		} else if unicode.IsLower(char) {
			hasLower = true
		} else if unicode.IsDigit(char) {
			hasNumber = true
		}
	}

	if !hasUpper {
		return fmt.Errorf("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return fmt.Errorf("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return fmt.Errorf("password must contain at least one number")
	}

	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
