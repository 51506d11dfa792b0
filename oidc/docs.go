/*
Package oidc provides the protocol-side pieces of a client-side OpenID
Connect integration with a Keycloak-style realm.

Primary types provided by the package:

* Config: identifies the realm and the relying party (base URL, realm id,
client id, redirect URL, scopes, extra authorization parameters and custom
token-endpoint headers) and derives the realm's endpoint URLs.

* Client: performs the token-endpoint calls: exchanging an authorization code
(with PKCE) or a refresh token for credentials, revoking a session, and
fetching userinfo claims.

* Credentials: the outcome of a successful token exchange (access, refresh
and identity tokens, token type, lifetime and granted scope).  Token values
redact themselves when printed.

* UserProfile: the standard identity claims of an id_token plus an
open-ended claims map.

* S256Verifier: an RFC 7636 PKCE code verifier and its S256 challenge.

The package extracts claims from compact tokens without verifying their
signatures: it is a relying-party convenience for reading identity data it
already trusts, not a verification layer.

The session package builds the authentication state machine on top of these
pieces.
*/
package oidc
