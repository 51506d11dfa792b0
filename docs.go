// keycloakauth provides client-side OpenID Connect authentication against a
// Keycloak-style realm: the oidc package covers the protocol pieces
// (endpoints, PKCE, claims extraction, token exchange) and the session
// package provides the authentication state machine that persists and
// refreshes credentials.
//
// See README.md
package keycloakauth
