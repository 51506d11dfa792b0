package session

import "context"

// CallbackStatus enumerates the ways a browser authorization prompt can
// resolve.
type CallbackStatus string

const (
	// CallbackStatusSuccess means the redirect was captured with an
	// authorization code.
	CallbackStatusSuccess CallbackStatus = "success"

	// CallbackStatusError means the provider redirected back with an error.
	CallbackStatusError CallbackStatus = "error"

	// CallbackStatusCancel means the user dismissed the prompt.
	CallbackStatusCancel CallbackStatus = "cancel"
)

// CallbackResult is the captured outcome of one authorization prompt.
type CallbackResult struct {
	Status CallbackStatus

	// Code is the authorization code, set when Status is success.
	Code string

	// Error and Description carry the provider's error response, set when
	// Status is error.
	Error       string
	Description string
}

// Launcher presents an authorization URL to the user and resolves with the
// captured redirect result.  How presentation happens (in-app browser,
// system browser, webview) is up to the implementation; the session only
// cares about the resolved CallbackResult.  The launcher guarantees at most
// one outstanding prompt.
type Launcher interface {
	Open(ctx context.Context, authURL string, redirectURL string) (*CallbackResult, error)
}
