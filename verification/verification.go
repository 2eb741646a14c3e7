// Package verification sends and checks the single-stage email codes used to confirm
// an email address and to confirm account deletion.
package verification

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/clone-prom-team-2025/server/cache"
	apperr "github.com/clone-prom-team-2025/server/internal/errors"
	"github.com/clone-prom-team-2025/server/internal/secure"
	"github.com/clone-prom-team-2025/server/mail"
	"github.com/clone-prom-team-2025/server/users"
)

const DefaultCodeTTL = 15 * time.Minute

// AccountDeleter removes an account and everything hanging off it.
type AccountDeleter interface {
	DeleteAccount(ctx context.Context, userID string) error
}

type Service struct {
	cache   cache.Cache
	users   users.UserRepo
	mailer  mail.Sender
	deleter AccountDeleter
	codeTTL time.Duration
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

func NewService(c cache.Cache, userRepo users.UserRepo, mailer mail.Sender, deleter AccountDeleter, options ...ServiceOption) (*Service, error) {
	if c == nil {
		return nil, errors.New("[verification.NewService] cache is required")
	}
	if userRepo == nil {
		return nil, errors.New("[verification.NewService] users repo is required")
	}
	if mailer == nil {
		return nil, errors.New("[verification.NewService] mailer is required")
	}
	if deleter == nil {
		return nil, errors.New("[verification.NewService] account deleter is required")
	}

	s := &Service{
		cache:   c,
		users:   userRepo,
		mailer:  mailer,
		deleter: deleter,
		codeTTL: DefaultCodeTTL,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// SendEmailCode emails a confirmation code to an unconfirmed address. Sending again
// replaces the previous code and restarts its lifetime.
func (s *Service) SendEmailCode(ctx context.Context, email string) error {
	email = users.NormalizeEmail(email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "[verification.SendEmailCode] GetByEmail")
	}
	if user.EmailConfirmed {
		return errors.Wrap(apperr.ErrInvalidOperation, "[verification.SendEmailCode] email already confirmed")
	}

	if err := s.sendCode(ctx, cache.Key(cache.PrefixVerifyEmail, email), user.Email, "Confirm your email"); err != nil {
		return errors.Wrap(err, "[verification.SendEmailCode]")
	}
	return nil
}

// VerifyEmailCode confirms the address when code matches. A wrong code leaves the
// pending code in place.
func (s *Service) VerifyEmailCode(ctx context.Context, email, code string) error {
	email = users.NormalizeEmail(email)
	key := cache.Key(cache.PrefixVerifyEmail, email)
	if err := s.consume(ctx, key, code); err != nil {
		return errors.Wrap(err, "[verification.VerifyEmailCode]")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return errors.Wrap(err, "[verification.VerifyEmailCode] GetByEmail")
	}
	user.EmailConfirmed = true
	if err := s.users.Update(ctx, user); err != nil {
		return errors.Wrap(err, "[verification.VerifyEmailCode] Update")
	}
	log.Info().Str("user_id", user.ID).Msg("email confirmed")
	return nil
}

// SendDeleteAccountCode emails the code that confirms deletion of userID's account.
func (s *Service) SendDeleteAccountCode(ctx context.Context, userID string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "[verification.SendDeleteAccountCode] Get")
	}
	if err := s.sendCode(ctx, cache.Key(cache.PrefixDeleteAccount, userID), user.Email, "Confirm account deletion"); err != nil {
		return errors.Wrap(err, "[verification.SendDeleteAccountCode]")
	}
	return nil
}

// VerifyDeleteAccountCode deletes userID's account when code matches.
func (s *Service) VerifyDeleteAccountCode(ctx context.Context, userID, code string) error {
	if err := s.consume(ctx, cache.Key(cache.PrefixDeleteAccount, userID), code); err != nil {
		return errors.Wrap(err, "[verification.VerifyDeleteAccountCode]")
	}
	if err := s.deleter.DeleteAccount(ctx, userID); err != nil {
		return errors.Wrap(err, "[verification.VerifyDeleteAccountCode] DeleteAccount")
	}
	return nil
}

func (s *Service) sendCode(ctx context.Context, key, to, subject string) error {
	code, err := secure.Code(secure.CodeLength)
	if err != nil {
		return errors.Wrap(err, "code")
	}
	if err := s.cache.Set(ctx, key, code, s.codeTTL); err != nil {
		return errors.Wrap(err, "cache.Set")
	}
	if err := s.mailer.SendEmail(ctx, to, subject, mail.CodeBody(subject, code, s.codeTTL.String())); err != nil {
		_ = s.cache.Remove(ctx, key)
		return errors.Wrap(err, "SendEmail")
	}
	return nil
}

// consume removes the code stored under key if it matches input. Only one of several
// concurrent callers with the right code succeeds.
func (s *Service) consume(ctx context.Context, key, input string) error {
	stored, found, err := s.cache.TryGet(ctx, key)
	if err != nil {
		return errors.Wrap(err, "cache.TryGet")
	}
	if !found || !secure.CodesMatch(stored, input) {
		return errors.Wrap(apperr.ErrInvalidOperation, "invalid code")
	}
	removed, err := s.cache.RemoveIf(ctx, key, stored)
	if err != nil {
		return errors.Wrap(err, "cache.RemoveIf")
	}
	if !removed {
		return errors.Wrap(apperr.ErrInvalidOperation, "code already used")
	}
	return nil
}
