package session

import "errors"

var (
	ErrNoRefreshToken = errors.New("no refresh token available")
	ErrSuperseded     = errors.New("authorization request was superseded")
)
