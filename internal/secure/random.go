// Package secure generates the one-time codes and opaque tokens used by the
// verification and recovery flows.
package secure

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"math/big"
	"strings"
)

const (
	// CodeLength is the length of codes sent to users by email.
	CodeLength = 6

	// TokenBytes is the entropy of opaque tokens (reset tokens, access codes).
	TokenBytes = 32

	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Code returns a random uppercase alphanumeric code of n characters.
func Code(n int) (string, error) {
	if n <= 0 {
		n = CodeLength
	}
	max := big.NewInt(int64(len(codeAlphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// Token returns a URL-safe random token carrying TokenBytes of entropy.
func Token() (string, error) {
	bytes := make([]byte, TokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// CodesMatch compares a stored code with user input, ignoring case and surrounding
// whitespace, in constant time.
func CodesMatch(stored, input string) bool {
	a := strings.ToUpper(stored)
	b := strings.ToUpper(strings.TrimSpace(input))
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
