package oidc

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNilParameter       = errors.New("nil parameter")
	ErrInvalidCACert      = errors.New("invalid CA certificate")
	ErrMalformedToken     = errors.New("malformed token")
	ErrIdGeneratorFailed  = errors.New("id generation failed")
	ErrMissingAccessToken = errors.New("access_token is missing")

	ErrUnsupportedChallengeMethod = errors.New("unsupported PKCE challenge method")
)

// ProviderError represents an OAuth2/OIDC error response from the provider's
// token endpoint.  See: https://www.rfc-editor.org/rfc/rfc6749#section-5.2
type ProviderError struct {
	// Code is the provider's error code ("invalid_grant", etc). Empty when
	// the response body carried no parseable error.
	Code string

	// Description is the provider's optional human-readable
	// error_description.
	Description string

	// StatusCode is the HTTP status of the response.
	StatusCode int
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("provider returned %d: %s: %s", e.StatusCode, e.Code, e.Description)
	case e.Code != "":
		return fmt.Sprintf("provider returned %d: %s", e.StatusCode, e.Code)
	default:
		return fmt.Sprintf("provider returned %d", e.StatusCode)
	}
}

// Message returns the best available human-readable message for the error:
// the error_description when the provider sent one, otherwise the error code,
// otherwise the HTTP status.
func (e *ProviderError) Message() string {
	switch {
	case e.Description != "":
		return e.Description
	case e.Code != "":
		return e.Code
	default:
		return fmt.Sprintf("provider returned %d", e.StatusCode)
	}
}
