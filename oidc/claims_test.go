package oidc

import (
	"encoding/base64"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCompactToken builds an unsigned two-segment token with the given
// payload claims, which is enough for claims extraction.
func testCompactToken(t *testing.T, payload string) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none"}`))
	return header + "." + base64.RawURLEncoding.EncodeToString([]byte(payload))
}

func TestUnmarshalClaims(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		token := testCompactToken(t, `{"sub":"u1","email":"u1@example.com"}`)
		var claims map[string]interface{}
		require.NoError(UnmarshalClaims(token, &claims))
		assert.Equal("u1", claims["sub"])
		assert.Equal("u1@example.com", claims["email"])
	})
	t.Run("signed-token", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		_, priv := TestGenerateKeys(t)
		token := TestSignJWT(t, priv, map[string]interface{}{"sub": "u1"})
		var claims map[string]interface{}
		require.NoError(UnmarshalClaims(token, &claims))
		assert.Equal("u1", claims["sub"])
	})
	t.Run("malformed", func(t *testing.T) {
		tests := []struct {
			name  string
			token string
		}{
			{"empty", ""},
			{"one-segment", "eyJhbGciOiJub25lIn0"},
			{"bad-base64", "h.%%%%.s"},
			{"not-json", "h." + base64.RawURLEncoding.EncodeToString([]byte("not json")) + ".s"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert := assert.New(t)
				var claims map[string]interface{}
				err := UnmarshalClaims(tt.token, &claims)
				assert.Error(err)
				assert.True(errors.Is(err, ErrMalformedToken))
			})
		}
	})
	t.Run("nil-claims", func(t *testing.T) {
		assert := assert.New(t)
		err := UnmarshalClaims(testCompactToken(t, `{}`), nil)
		assert.True(errors.Is(err, ErrNilParameter))
	})
}

func TestIsExpired(t *testing.T) {
	now := time.Now().Unix()
	tests := []struct {
		name    string
		token   string
		expired bool
	}{
		{"exp-in-past", testCompactToken(t, `{"exp":`+itoa(now-1)+`}`), true},
		{"exp-in-future", testCompactToken(t, `{"exp":`+itoa(now+3600)+`}`), false},
		{"no-exp-claim", testCompactToken(t, `{"sub":"u1"}`), true},
		{"garbage", "not-a-token", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expired, IsExpired(tt.token))
		})
	}
	t.Run("with-expiry-skew", func(t *testing.T) {
		assert := assert.New(t)
		token := testCompactToken(t, `{"exp":`+itoa(now+30)+`}`)
		assert.False(IsExpired(token))
		assert.True(IsExpired(token, WithExpirySkew(2*time.Minute)))
	})
}

func TestTokenClaims(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	claims, err := TokenClaims(testCompactToken(t, `{"sub":"u1","realm_access":{"roles":["admin"]}}`))
	require.NoError(err)
	assert.Equal("u1", claims["sub"])
	assert.Contains(claims, "realm_access")

	claims, err = TokenClaims("bogus")
	require.Error(err)
	assert.Nil(claims)
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
