/*
Package session provides the client-side authentication state machine for a
realm: it drives interactive logins through an injected browser launcher,
completes the authorization code flow with PKCE, persists the resulting
credentials through an injected storage backend, restores them on startup and
keeps them fresh with a background expiry watch.

Primary types provided by the package:

* Session: the state machine.  It exposes a single coherent State to
consumers and four operations: Initialize (startup restoration, runs exactly
once), Login, Refresh and Logout.

* State: the externally visible projection of the session: Authenticated,
User, Credentials, Loading, Initialized and LastError.

* Launcher: the external collaborator that presents an authorization URL to
the user and resolves with the captured redirect result (success, error or
cancel).

* Storage: the key-value contract credentials are persisted through.  Memory
provides a process-lifetime implementation used when no durable backend is
injected.

A failed refresh always ends the session rather than leaving stale
credentials live, and a logout always succeeds locally regardless of the
remote revocation outcome.
*/
package session
