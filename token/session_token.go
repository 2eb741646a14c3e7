// Package token wraps session ids in signed bearer tokens. A token only proves the
// server issued it; whether the session is still usable is decided by the session store.
package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperr "github.com/clone-prom-team-2025/server/internal/errors"
)

// SessionClaims is the payload of a session bearer token.
type SessionClaims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

type Issuer struct {
	signer  Signer
	ttl     time.Duration
	nowTime func() time.Time // nowTime function (injectable for testing)
}

// IssuerOption defines a function type to modify the Issuer instance.
type IssuerOption func(*Issuer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowFunc
	}
}

// NewIssuer returns an Issuer whose tokens expire after ttl, normally the session TTL.
func NewIssuer(signer Signer, ttl time.Duration, options ...IssuerOption) (*Issuer, error) {
	if signer == nil {
		return nil, errors.New("[NewIssuer] signer is required")
	}
	if ttl <= 0 {
		return nil, errors.New("[NewIssuer] ttl must be positive")
	}
	i := &Issuer{
		signer:  signer,
		ttl:     ttl,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i, nil
}

// Issue returns a signed token for sessionID owned by userID.
func (i *Issuer) Issue(sessionID, userID string) (string, error) {
	now := i.nowTime()
	claims := SessionClaims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.New().String(),
		},
	}
	signed, err := i.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Issuer.Issue]")
	}
	return signed, nil
}

// Parse verifies signature and expiry and returns the claims. Any failure is reported
// as ErrInvalidCredentials.
func (i *Issuer) Parse(raw string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, i.signer.GetVerificationKey,
		jwt.WithValidMethods([]string{i.signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(i.nowTime),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrapf(apperr.ErrInvalidCredentials, "[Issuer.Parse] %v", err)
	}
	if claims.SessionID == "" {
		return nil, errors.Wrap(apperr.ErrInvalidCredentials, "[Issuer.Parse] missing sid")
	}
	return claims, nil
}
