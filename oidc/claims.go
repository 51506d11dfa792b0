package oidc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultExpirySkew defines a default time skew when checking a token's
// expiration.
const DefaultExpirySkew = 0 * time.Second

// UnmarshalClaims extracts a compact token's payload claims into the
// claims parameter.  It splits the token on ".", treats the second segment as
// base64url-encoded JSON and unmarshals it.  This is claims extraction, not
// verification: the token's signature (when present) is never checked, so
// the claims must not be used to establish issuer trust.
func UnmarshalClaims(token string, claims interface{}) error {
	const op = "oidc.UnmarshalClaims"
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return fmt.Errorf("%s: compact token must have at least 2 segments, got %d: %w", op, len(parts), ErrMalformedToken)
	}
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return fmt.Errorf("%s: unable to base64 decode token payload: %w", op, ErrMalformedToken)
	}
	if err := json.Unmarshal(raw, claims); err != nil {
		return fmt.Errorf("%s: unable to unmarshal token payload: %w", op, ErrMalformedToken)
	}
	return nil
}

// TokenClaims returns the full claim set of a compact token as a map.
func TokenClaims(token string) (map[string]interface{}, error) {
	const op = "oidc.TokenClaims"
	var claims map[string]interface{}
	if err := UnmarshalClaims(token, &claims); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return claims, nil
}

// IsExpired reports whether a compact token's "exp" claim is in the past.  A
// token that cannot be decoded, or that carries no "exp" claim, is reported
// as expired (fail-closed).  Supports the WithExpirySkew option.
func IsExpired(token string, opt ...Option) bool {
	var claims struct {
		Exp *int64 `json:"exp"`
	}
	if err := UnmarshalClaims(token, &claims); err != nil {
		return true
	}
	if claims.Exp == nil {
		return true
	}
	opts := getExpiryOpts(opt...)
	return *claims.Exp < time.Now().Add(opts.withExpirySkew).Unix()
}

// expiryOptions is the set of available options for IsExpired
type expiryOptions struct {
	withExpirySkew time.Duration
}

// expiryDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func expiryDefaults() expiryOptions {
	return expiryOptions{
		withExpirySkew: DefaultExpirySkew,
	}
}

// getExpiryOpts gets the defaults and applies the opt overrides passed in.
func getExpiryOpts(opt ...Option) expiryOptions {
	opts := expiryDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}
