package session

import "github.com/PaulCunningham697/keycloak-auth-go/oidc"

// State is the externally visible projection of a session.  Consumers read
// it through Session.Current or Session.Subscribe and must treat it as
// immutable.
type State struct {
	// Authenticated is true exactly when Credentials is present.
	Authenticated bool

	// User holds the profile derived from the identity token inside the
	// current Credentials, when one was granted.
	User *oidc.UserProfile

	// Credentials is the current credential set, absent when the session is
	// unauthenticated.
	Credentials *oidc.Credentials

	// Loading is true while a session operation is in flight.
	Loading bool

	// Initialized becomes true exactly once, after the first startup
	// restoration attempt completes regardless of its outcome.  It never
	// reverts.
	Initialized bool

	// LastError is a human-readable message from the most recent failed
	// operation, cleared at the start of any new operation that could
	// succeed.
	LastError string
}
