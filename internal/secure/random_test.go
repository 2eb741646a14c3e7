package secure_test

import (
	"strings"
	"testing"

	"github.com/clone-prom-team-2025/server/internal/secure"
	"github.com/stretchr/testify/require"
)

func TestCodeIsAlphanumericUppercase(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := secure.Code(secure.CodeLength)
		require.NoError(t, err)
		require.Len(t, code, secure.CodeLength)
		require.Equal(t, strings.ToUpper(code), code)
		for _, c := range code {
			require.True(t, (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9'), "unexpected rune %q", c)
		}
	}
}

func TestCodeDefaultsLength(t *testing.T) {
	code, err := secure.Code(0)
	require.NoError(t, err)
	require.Len(t, code, secure.CodeLength)
}

func TestTokenIsUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		tok, err := secure.Token()
		require.NoError(t, err)
		require.NotContains(t, tok, "=")
		_, dup := seen[tok]
		require.False(t, dup)
		seen[tok] = struct{}{}
	}
}

func TestCodesMatch(t *testing.T) {
	require.True(t, secure.CodesMatch("AB12CD", "ab12cd"))
	require.True(t, secure.CodesMatch("AB12CD", " AB12CD\n"))
	require.False(t, secure.CodesMatch("AB12CD", "AB12C"))
	require.False(t, secure.CodesMatch("AB12CD", ""))
}
