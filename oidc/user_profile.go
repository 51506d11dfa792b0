package oidc

import (
	"fmt"
)

// UserProfile holds the standard identity claims extracted from an id_token,
// plus an open-ended Claims map carrying every claim present in the token.
// Standard claims are only authoritative in their typed fields; for keys that
// collide with a typed field, the typed field wins.
//
// A UserProfile is derived exclusively from an id_token and is never mutated
// independently of it.
type UserProfile struct {
	// Subject is the stable identifier for the user within the realm.
	Subject string `json:"sub"`

	Email             string `json:"email,omitempty"`
	EmailVerified     bool   `json:"email_verified,omitempty"`
	Name              string `json:"name,omitempty"`
	GivenName         string `json:"given_name,omitempty"`
	FamilyName        string `json:"family_name,omitempty"`
	PreferredUsername string `json:"preferred_username,omitempty"`
	Picture           string `json:"picture,omitempty"`
	Locale            string `json:"locale,omitempty"`

	// Claims carries every claim present in the id_token, including the
	// standard ones above.
	Claims map[string]interface{} `json:"claims,omitempty"`
}

// NewUserProfile projects the identity claims of an id_token into a
// UserProfile.  The id_token's signature is not verified; see
// UnmarshalClaims.
func NewUserProfile(idToken string) (*UserProfile, error) {
	const op = "oidc.NewUserProfile"
	var p UserProfile
	if err := UnmarshalClaims(idToken, &p); err != nil {
		return nil, fmt.Errorf("%s: unable to decode id_token: %w", op, err)
	}
	all, err := TokenClaims(idToken)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to decode id_token claims: %w", op, err)
	}
	p.Claims = all
	return &p, nil
}
