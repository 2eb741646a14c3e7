// Package recovery implements the three-stage password reset handshake:
//
//	RequestReset  identifier        -> reset token   (code emailed, 15 min)
//	VerifyCode    reset token, code -> access code   (30 min)
//	Commit        access code, pass -> password changed
//
// Every stage's secret is single use and all state lives in the verification cache.
// An unknown identifier is a silent no-op so callers cannot probe for accounts.
package recovery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/clone-prom-team-2025/server/cache"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/internal/secure"
	"github.com/clone-prom-team-2025/server/mail"
	"github.com/clone-prom-team-2025/server/users"
)

const (
	DefaultCodeTTL   = 15 * time.Minute
	DefaultAccessTTL = 30 * time.Minute
)

// SessionRevoker ends every session of a user once their password changed.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID string) (int, error)
}

// resetEntry is the stage-1 cache value.
type resetEntry struct {
	Code   string `json:"code"`
	UserID string `json:"userId"`
}

type Service struct {
	cache     cache.Cache
	users     users.UserRepo
	mailer    mail.Sender
	sessions  SessionRevoker
	codeTTL   time.Duration
	accessTTL time.Duration
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

func WithCodeTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.codeTTL = d
		}
	}
}

func WithAccessTTL(d time.Duration) ServiceOption {
	return func(s *Service) {
		if d > 0 {
			s.accessTTL = d
		}
	}
}

// WithSessionRevoker revokes the user's sessions after a successful Commit.
func WithSessionRevoker(r SessionRevoker) ServiceOption {
	return func(s *Service) {
		s.sessions = r
	}
}

func NewService(c cache.Cache, userRepo users.UserRepo, mailer mail.Sender, options ...ServiceOption) (*Service, error) {
	if c == nil {
		return nil, errors.New("[recovery.NewService] cache is required")
	}
	if userRepo == nil {
		return nil, errors.New("[recovery.NewService] users repo is required")
	}
	if mailer == nil {
		return nil, errors.New("[recovery.NewService] mailer is required")
	}

	s := &Service{
		cache:     c,
		users:     userRepo,
		mailer:    mailer,
		codeTTL:   DefaultCodeTTL,
		accessTTL: DefaultAccessTTL,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// RequestReset starts a reset for the user identified by email or username. found is
// false, with no error and no email sent, when no such user exists.
func (s *Service) RequestReset(ctx context.Context, identifier string) (resetToken string, found bool, err error) {
	user, err := users.FindByIdentifier(ctx, s.users, identifier)
	if err != nil {
		return "", false, errors.Wrap(err, "[recovery.RequestReset] FindByIdentifier")
	}
	if user == nil {
		log.Debug().Msg("password reset requested for unknown identifier")
		return "", false, nil
	}

	code, err := secure.Code(secure.CodeLength)
	if err != nil {
		return "", false, errors.Wrap(err, "[recovery.RequestReset] code")
	}
	resetToken, err = secure.Token()
	if err != nil {
		return "", false, errors.Wrap(err, "[recovery.RequestReset] token")
	}

	value, err := json.Marshal(resetEntry{Code: code, UserID: user.ID})
	if err != nil {
		return "", false, errors.Wrap(err, "[recovery.RequestReset] marshal")
	}
	key := cache.Key(cache.PrefixResetPass, resetToken)
	if err := s.cache.Set(ctx, key, string(value), s.codeTTL); err != nil {
		return "", false, errors.Wrap(err, "[recovery.RequestReset] cache.Set")
	}

	body := mail.CodeBody("Password reset", code, s.codeTTL.String())
	if err := s.mailer.SendEmail(ctx, user.Email, "Password reset", body); err != nil {
		_ = s.cache.Remove(ctx, key)
		return "", false, errors.Wrap(err, "[recovery.RequestReset] SendEmail")
	}
	return resetToken, true, nil
}

// VerifyCode checks the emailed code against the reset token. ok is false when the
// token is unknown or expired, or the code does not match; a mismatch leaves the
// stage-1 entry usable until its original expiry. On a match the entry is consumed and
// a fresh access code is returned.
func (s *Service) VerifyCode(ctx context.Context, resetToken, code string) (accessCode string, ok bool, err error) {
	key := cache.Key(cache.PrefixResetPass, resetToken)
	raw, found, err := s.cache.TryGet(ctx, key)
	if err != nil {
		return "", false, errors.Wrap(err, "[recovery.VerifyCode] cache.TryGet")
	}
	if !found {
		return "", false, nil
	}

	var entry resetEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return "", false, errors.Wrap(err, "[recovery.VerifyCode] corrupt entry")
	}
	if !secure.CodesMatch(entry.Code, code) {
		return "", false, nil
	}

	removed, err := s.cache.RemoveIf(ctx, key, raw)
	if err != nil {
		return "", false, errors.Wrap(err, "[recovery.VerifyCode] cache.RemoveIf")
	}
	if !removed {
		// a concurrent call consumed the entry first
		return "", false, nil
	}
	accessCode, err = secure.Token()
	if err != nil {
		return "", false, errors.Wrap(err, "[recovery.VerifyCode] token")
	}
	if err := s.cache.Set(ctx, cache.Key(cache.PrefixResetAccess, accessCode), entry.UserID, s.accessTTL); err != nil {
		return "", false, errors.Wrap(err, "[recovery.VerifyCode] cache.Set")
	}
	return accessCode, true, nil
}

// Commit sets a new password using an access code from VerifyCode. An unknown, expired
// or already used access code fails with ErrInvalidOperation; a user deleted since the
// reset began fails with ErrNotFound. The access code is consumed before the password is
// checked, so a rejected password means starting over.
func (s *Service) Commit(ctx context.Context, newPassword, accessCode string) error {
	key := cache.Key(cache.PrefixResetAccess, accessCode)
	userID, found, err := s.cache.TryGet(ctx, key)
	if err != nil {
		return errors.Wrap(err, "[recovery.Commit] cache.TryGet")
	}
	if !found {
		return errors.Wrap(apperr.ErrInvalidOperation, "[recovery.Commit] invalid code")
	}
	removed, err := s.cache.RemoveIf(ctx, key, userID)
	if err != nil {
		return errors.Wrap(err, "[recovery.Commit] cache.RemoveIf")
	}
	if !removed {
		return errors.Wrap(apperr.ErrInvalidOperation, "[recovery.Commit] invalid code")
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[recovery.Commit] users.Get")
	}
	if err := users.ValidatePasswordStrength(newPassword); err != nil {
		return errors.Wrap(apperr.ErrInvalidOperation, "[recovery.Commit] "+err.Error())
	}
	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[recovery.Commit] HashPassword")
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		return errors.Wrap(err, "[recovery.Commit] users.Update")
	}

	if s.sessions != nil {
		if n, err := s.sessions.RevokeAllForUser(ctx, user.ID); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("revoke sessions after password reset failed")
		} else if n > 0 {
			log.Info().Str("user_id", user.ID).Int("revoked", n).Msg("sessions revoked after password reset")
		}
	}
	return nil
}
