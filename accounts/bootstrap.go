package accounts

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/internal/secure"
	"github.com/clone-prom-team-2025/server/users"
)

// DefaultAdminUsername is used when BootstrapAdmin is given no username.
const DefaultAdminUsername = "admin"

// BootstrapAdmin makes sure an administrator account exists for email. An existing
// account is granted the admin role if it lacks it. A new account is created with
// password, or with a generated one when password is empty; the generated password is
// returned once and is empty in every other case.
func (s *Service) BootstrapAdmin(ctx context.Context, email, username, password string) (generatedPassword string, err error) {
	email = users.NormalizeEmail(email)
	if err := users.ValidateEmail(email); err != nil {
		return "", errors.Wrap(apperr.ErrInvalidOperation, "[Service.BootstrapAdmin] "+err.Error())
	}

	existing, err := s.deps.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.HasRole(users.RoleAdmin) {
			return "", nil
		}
		if err := s.AddRole(ctx, existing.ID, users.RoleAdmin); err != nil {
			return "", errors.Wrap(err, "[Service.BootstrapAdmin]")
		}
		log.Info().Str("user_id", existing.ID).Msg("admin role granted to existing account")
		return "", nil
	case !errors.Is(err, apperr.ErrNotFound):
		return "", errors.Wrap(err, "[Service.BootstrapAdmin] GetByEmail")
	}

	if username == "" {
		username = DefaultAdminUsername
	}
	if password == "" {
		if password, err = generatePassword(); err != nil {
			return "", errors.Wrap(err, "[Service.BootstrapAdmin] generatePassword")
		}
		generatedPassword = password
	} else if err := users.ValidatePasswordStrength(password); err != nil {
		return "", errors.Wrap(apperr.ErrInvalidOperation, "[Service.BootstrapAdmin] "+err.Error())
	}
	if err := s.ensureUnused(ctx, email, username); err != nil {
		return "", errors.Wrap(err, "[Service.BootstrapAdmin]")
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return "", errors.Wrap(err, "[Service.BootstrapAdmin] HashPassword")
	}
	admin := &users.User{
		ID:             uuid.New().String(),
		Email:          email,
		Username:       username,
		PasswordHash:   hash,
		Roles:          []users.RoleType{users.RoleCustomer, users.RoleAdmin},
		EmailConfirmed: true,
		CreatedAt:      s.nowTime(),
	}
	if err := s.deps.Users.Insert(ctx, admin); err != nil {
		return "", errors.Wrap(err, "[Service.BootstrapAdmin] Insert")
	}
	log.Info().Str("user_id", admin.ID).Str("email", email).Msg("admin account created")
	return generatedPassword, nil
}

// generatePassword draws random tokens until one passes the strength rules; a 43
// character token almost always does on the first draw.
func generatePassword() (string, error) {
	for {
		pw, err := secure.Token()
		if err != nil {
			return "", err
		}
		if users.ValidatePasswordStrength(pw) == nil {
			return pw, nil
		}
	}
}
