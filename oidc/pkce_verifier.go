package oidc

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// ChallengeMethod represents PKCE code challenge methods as defined by RFC
// 7636.
type ChallengeMethod string

// S256 is the SHA-256 based PKCE challenge method.  The plain method is
// intentionally not supported.
const S256 ChallengeMethod = "S256"

// verifierLen is the length of a generated code verifier: 32 random bytes
// base64url encoded without padding.  RFC 7636 requires 43..128 characters.
const verifierLen = 43

// CodeVerifier represents an OAuth PKCE code verifier as defined by RFC
// 7636.
type CodeVerifier interface {
	// Verifier returns the code verifier string
	Verifier() string

	// Challenge returns the computed code challenge for the verifier
	Challenge() string

	// Method returns the challenge method used to compute the challenge
	Method() ChallengeMethod
}

// S256Verifier implements CodeVerifier using the S256 challenge method.
type S256Verifier struct {
	verifier  string
	challenge string
	method    ChallengeMethod
}

// ensure that S256Verifier implements the CodeVerifier interface.
var _ CodeVerifier = (*S256Verifier)(nil)

// NewCodeVerifier creates a new S256Verifier with a cryptographically random
// verifier and its precomputed S256 challenge.
func NewCodeVerifier() (*S256Verifier, error) {
	const op = "oidc.NewCodeVerifier"
	data := make([]byte, 32)
	if _, err := rand.Read(data); err != nil {
		return nil, fmt.Errorf("%s: unable to generate verifier data: %w", op, err)
	}
	v := &S256Verifier{
		verifier: base64.RawURLEncoding.EncodeToString(data),
		method:   S256,
	}
	var err error
	if v.challenge, err = CreateCodeChallenge(S256, v); err != nil {
		return nil, fmt.Errorf("%s: unable to create code challenge: %w", op, err)
	}
	return v, nil
}

// Verifier implements CodeVerifier.Verifier().
func (v *S256Verifier) Verifier() string { return v.verifier }

// Challenge implements CodeVerifier.Challenge().
func (v *S256Verifier) Challenge() string { return v.challenge }

// Method implements CodeVerifier.Method().
func (v *S256Verifier) Method() ChallengeMethod { return v.method }

// CreateCodeChallenge computes the code challenge for the verifier using the
// given method.  Only the S256 method is supported.
func CreateCodeChallenge(method ChallengeMethod, v CodeVerifier) (string, error) {
	const op = "oidc.CreateCodeChallenge"
	if method != S256 {
		return "", fmt.Errorf("%s: %s: %w", op, method, ErrUnsupportedChallengeMethod)
	}
	h := sha256.New()
	_, _ = h.Write([]byte(v.Verifier()))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}
