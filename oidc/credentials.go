package oidc

// DefaultTokenType is the token type assumed when the provider doesn't
// report one.
const DefaultTokenType = "Bearer"

// AccessToken is an oauth access_token.
type AccessToken string

// RedactedAccessToken is the redacted string for an oauth access_token.
const RedactedAccessToken = "[REDACTED: access_token]"

// String will redact the token.
func (t AccessToken) String() string {
	return RedactedAccessToken
}

// RefreshToken is an oauth refresh_token.
type RefreshToken string

// RedactedRefreshToken is the redacted string for an oauth refresh_token.
const RedactedRefreshToken = "[REDACTED: refresh_token]"

// String will redact the token.
func (t RefreshToken) String() string {
	return RedactedRefreshToken
}

// IdToken is an oidc id_token.
type IdToken string

// RedactedIdToken is the redacted string for an oidc id_token.
const RedactedIdToken = "[REDACTED: id_token]"

// String will redact the token.
func (t IdToken) String() string {
	return RedactedIdToken
}

// Claims extracts the IdToken's payload claims.  The signature is not
// verified; see UnmarshalClaims.
func (t IdToken) Claims(claims interface{}) error {
	return UnmarshalClaims(string(t), claims)
}

// Credentials is the outcome of a successful token exchange.  The token
// fields redact themselves when printed, but marshal their real values so a
// Credentials can be persisted and restored as a snapshot.
type Credentials struct {
	// AccessToken is always present in a valid Credentials.
	AccessToken AccessToken `json:"access_token"`

	// RefreshToken is absent for non-refreshable sessions.
	RefreshToken RefreshToken `json:"refresh_token,omitempty"`

	// IdToken is the compact-encoded identity token, when one was granted.
	IdToken IdToken `json:"id_token,omitempty"`

	// TokenType defaults to "Bearer" when the provider doesn't report one.
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds, as reported by the
	// provider.  Expiry decisions use the access token's own exp claim, not
	// this field.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// Scope is the granted scope string, when the provider reports one.
	Scope string `json:"scope,omitempty"`
}

// Refreshable reports whether the credentials carry a refresh token.
func (c *Credentials) Refreshable() bool {
	return c != nil && c.RefreshToken != ""
}

// Expired reports whether the access token's exp claim is in the past,
// fail-closed per IsExpired.  Supports the WithExpirySkew option.
func (c *Credentials) Expired(opt ...Option) bool {
	if c == nil {
		return true
	}
	return IsExpired(string(c.AccessToken), opt...)
}

// Valid reports whether the credentials hold a non-expired access token.
func (c *Credentials) Valid() bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return !c.Expired()
}
