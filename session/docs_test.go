package session_test

import (
	"context"
	"fmt"

	"github.com/PaulCunningham697/keycloak-auth-go/oidc"
	"github.com/PaulCunningham697/keycloak-auth-go/session"
)

func Example() {
	// Create a config for the realm and relying party
	c, err := oidc.NewConfig(
		"https://id.example.com",
		"your-realm",
		"your_client_id",
		"yourapp://oauth/callback",
	)
	if err != nil {
		// handle error
	}

	// systemBrowser is the host application's Launcher implementation: it
	// presents the authorization URL and resolves with the captured
	// redirect result.
	var systemBrowser session.Launcher

	// Create a session; inject a durable Storage implementation so
	// credentials survive a restart.
	s, err := session.NewSession(c, systemBrowser)
	if err != nil {
		// handle error
	}
	defer s.Done()

	// Restore any persisted session before reacting to the state.
	st := s.Initialize(context.Background())
	if !st.Authenticated {
		st, err = s.Login(context.Background())
		if err != nil {
			// handle error
		}
	}
	if st.Authenticated {
		fmt.Println("signed in as: ", st.User.Subject)
	}

	// End the session: revocation is best-effort, the local logout always
	// succeeds.
	_ = s.Logout(context.Background())
}
