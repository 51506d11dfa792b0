package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/PaulCunningham697/keycloak-auth-go/oidc"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"
)

// pendingRequest is one in-flight interactive authorization attempt.  It is
// transient and never persisted: losing the process loses the attempt.  At
// most one pendingRequest is live at a time; starting a new login supersedes
// any prior one and the superseded request's late-arriving result is
// discarded by id.
type pendingRequest struct {
	id          string
	verifier    *oidc.S256Verifier
	authURL     string
	redirectURL string
}

// Session is the authentication state machine for one realm.  It restores a
// persisted session on Initialize, drives interactive logins through the
// Launcher, refreshes credentials proactively and on demand, and projects a
// single coherent State to consumers.
//
// A Session serializes its state mutations internally; its operations are
// safe to call concurrently.  See Done(), which must be called to release
// the session's background resources.
type Session struct {
	config   *oidc.Config
	client   *oidc.Client
	launcher Launcher
	store    *credentialStore
	logger   hclog.Logger

	watchInterval time.Duration

	mu               sync.Mutex
	state            State
	pending          *pendingRequest
	subscribers      map[uint64]func(State)
	nextSubscriberId uint64

	// refreshMu serializes refresh operations so at most one is in flight;
	// the background watch skips its tick instead of queueing behind it.
	refreshMu sync.Mutex

	initOnce sync.Once

	// backgroundCtx is the context used by the session for its background
	// expiry watch.
	backgroundCtx       context.Context
	backgroundCtxCancel context.CancelFunc
}

// NewSession creates a session for the realm, bound to the launcher that
// will present interactive logins.  The session starts Uninitialized; call
// Initialize to restore any persisted credentials.
//
// Supported options: WithStorage, WithLogger, WithNamespace,
// WithExpiryInterval, WithHTTPClient
//
// See Session.Done() which must be called to release session resources.
func NewSession(c *oidc.Config, launcher Launcher, opt ...Option) (*Session, error) {
	const op = "session.NewSession"
	if c == nil {
		return nil, fmt.Errorf("%s: realm config is nil: %w", op, oidc.ErrNilParameter)
	}
	if launcher == nil {
		return nil, fmt.Errorf("%s: launcher is nil: %w", op, oidc.ErrNilParameter)
	}
	opts := getSessionOpts(opt...)
	logger := opts.withLogger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	clientOpts := []oidc.Option{oidc.WithLogger(logger)}
	if opts.withHTTPClient != nil {
		clientOpts = append(clientOpts, oidc.WithHTTPClient(opts.withHTTPClient))
	}
	client, err := oidc.NewClient(c, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to create token client: %w", op, err)
	}

	storage := opts.withStorage
	if storage == nil {
		logger.Warn("no durable storage injected; using in-memory storage, credentials will not survive a restart")
		storage = NewMemory()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		config:              c,
		client:              client,
		launcher:            launcher,
		store:               newCredentialStore(storage, opts.withNamespace, logger),
		logger:              logger,
		watchInterval:       opts.withExpiryInterval,
		subscribers:         map[uint64]func(State){},
		backgroundCtx:       ctx,
		backgroundCtxCancel: cancel,
	}
	go s.watch(s.backgroundCtx)
	return s, nil
}

// Done stops the session's background expiry watch and must be called for
// every Session created.  It does not log the session out.
func (s *Session) Done() {
	if s == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backgroundCtxCancel != nil {
		s.backgroundCtxCancel()
		s.backgroundCtxCancel = nil
	}
}

// Current returns the session's current state.
func (s *Session) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn to be called with every state change, and returns a
// function that cancels the subscription.  fn runs on the goroutine driving
// the state change and must not block; start session operations from a
// subscriber on a separate goroutine.
func (s *Session) Subscribe(fn func(State)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSubscriberId
	s.nextSubscriberId++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// Initialize restores any persisted session.  It runs the restoration
// exactly once per Session; later calls return the current state.  All
// outcomes, including failures, leave the state Initialized: the flag
// signals completion, not success.
func (s *Session) Initialize(ctx context.Context) State {
	s.initOnce.Do(func() {
		s.restore(ctx)
	})
	return s.Current()
}

func (s *Session) restore(ctx context.Context) {
	s.setState(func(st *State) {
		st.Loading = true
	})
	finish := func(mutate func(*State)) {
		s.setState(func(st *State) {
			mutate(st)
			st.Loading = false
			st.Initialized = true
		})
	}

	creds, ok := s.store.GetCredentials(ctx)
	if !ok {
		finish(func(st *State) {})
		return
	}

	switch {
	case creds.Valid():
		profile, ok := s.store.GetProfile(ctx)
		if !ok {
			profile = s.deriveProfile(creds, nil)
			s.store.SetProfile(ctx, profile)
		}
		finish(func(st *State) {
			st.Authenticated = true
			st.Credentials = creds
			st.User = profile
		})

	case creds.Refreshable() && !oidc.IsExpired(string(creds.RefreshToken)):
		newCreds, err := s.client.Refresh(ctx, creds.RefreshToken)
		if err != nil {
			s.logger.Warn("unable to refresh persisted session; signing out", "error", err)
			s.store.Clear(ctx)
			finish(func(st *State) {
				st.LastError = errorMessage(err)
			})
			return
		}
		prior, _ := s.store.GetProfile(ctx)
		profile := s.deriveProfile(newCreds, prior)
		s.store.SetCredentials(ctx, newCreds)
		s.store.SetProfile(ctx, profile)
		finish(func(st *State) {
			st.Authenticated = true
			st.Credentials = newCreds
			st.User = profile
		})

	default:
		// expired access token and no usable refresh token
		s.store.Clear(ctx)
		finish(func(st *State) {})
	}
}

// Login starts an interactive authorization code flow with PKCE and blocks
// until the launcher resolves and, on success, the code exchange completes.
// A provider error resolves into LastError without an error return crossing
// the boundary for provider-side rejections of the prompt itself; a
// cancelled prompt silently restores the prior state.
//
// Starting a new Login supersedes any prior pending authorization attempt;
// the superseded call returns ErrSuperseded and its result is discarded.
//
// Supported options: WithAction, WithPrompt, WithMaxAge, WithLoginHint,
// WithIdpHint, WithUILocales, WithExtraParams
func (s *Session) Login(ctx context.Context, opt ...Option) (State, error) {
	const op = "Session.Login"
	opts := getLoginOpts(opt...)

	id, err := oidc.NewId("req")
	if err != nil {
		return s.Current(), fmt.Errorf("%s: unable to create request id: %w", op, err)
	}
	verifier, err := oidc.NewCodeVerifier()
	if err != nil {
		return s.Current(), fmt.Errorf("%s: unable to create code verifier: %w", op, err)
	}
	pending := &pendingRequest{
		id:          id,
		verifier:    verifier,
		authURL:     s.authURL(id, verifier, opts),
		redirectURL: s.config.RedirectURL,
	}

	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()
	s.setState(func(st *State) {
		st.Loading = true
		st.LastError = ""
	})

	result, launchErr := s.launcher.Open(ctx, pending.authURL, pending.redirectURL)

	s.mu.Lock()
	if s.pending == nil || s.pending.id != pending.id {
		// a newer login superseded this attempt; its result is discarded
		// and the newer attempt owns the visible state
		s.mu.Unlock()
		s.logger.Warn("discarding result of superseded authorization request", "request_id", pending.id)
		return s.Current(), fmt.Errorf("%s: %w", op, ErrSuperseded)
	}
	s.pending = nil
	s.mu.Unlock()

	if launchErr != nil {
		st := s.setState(func(st *State) {
			st.Loading = false
			st.LastError = launchErr.Error()
		})
		return st, fmt.Errorf("%s: authorization prompt failed: %w", op, launchErr)
	}
	if result == nil {
		s.logger.Warn("authorization prompt resolved without a result; ignoring")
		return s.setState(func(st *State) {
			st.Loading = false
		}), nil
	}

	switch result.Status {
	case CallbackStatusCancel:
		return s.setState(func(st *State) {
			st.Loading = false
		}), nil

	case CallbackStatusError:
		msg := result.Description
		if msg == "" {
			msg = result.Error
		}
		return s.setState(func(st *State) {
			st.Loading = false
			st.LastError = msg
		}), nil

	case CallbackStatusSuccess:
		creds, err := s.client.Exchange(ctx, result.Code, verifier.Verifier())
		if err != nil {
			st := s.setState(func(st *State) {
				st.Loading = false
				st.LastError = errorMessage(err)
			})
			return st, fmt.Errorf("%s: unable to exchange authorization code: %w", op, err)
		}
		profile := s.deriveProfile(creds, nil)
		s.store.SetCredentials(ctx, creds)
		s.store.SetProfile(ctx, profile)
		return s.setState(func(st *State) {
			st.Authenticated = true
			st.Credentials = creds
			st.User = profile
			st.Loading = false
			st.LastError = ""
		}), nil

	default:
		s.logger.Warn("authorization prompt resolved with an unexpected status; ignoring", "status", result.Status)
		return s.setState(func(st *State) {
			st.Loading = false
		}), nil
	}
}

// Refresh trades the current refresh token for a fresh credential set.
// Without a refresh token it fails immediately with ErrNoRefreshToken and no
// state change.  A failed refresh always ends the session: the error is
// reported through LastError and a Logout is chained in before Refresh
// returns, so stale credentials are never left live.
func (s *Session) Refresh(ctx context.Context) (State, error) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

// refreshLocked runs one refresh; callers must hold refreshMu.
func (s *Session) refreshLocked(ctx context.Context) (State, error) {
	const op = "Session.Refresh"

	s.mu.Lock()
	creds := s.state.Credentials
	s.mu.Unlock()
	if !creds.Refreshable() {
		return s.Current(), fmt.Errorf("%s: %w", op, ErrNoRefreshToken)
	}

	s.setState(func(st *State) {
		st.Loading = true
		st.LastError = ""
	})

	newCreds, err := s.client.Refresh(ctx, creds.RefreshToken)
	if err != nil {
		// fail closed: a refresh failure ends the session rather than
		// leaving stale credentials live
		s.setState(func(st *State) {
			st.LastError = errorMessage(err)
		})
		st := s.logout(ctx, true)
		return st, fmt.Errorf("%s: unable to refresh session: %w", op, err)
	}

	s.mu.Lock()
	prior := s.state.User
	s.mu.Unlock()
	profile := s.deriveProfile(newCreds, prior)
	s.store.SetCredentials(ctx, newCreds)
	s.store.SetProfile(ctx, profile)
	return s.setState(func(st *State) {
		st.Authenticated = true
		st.Credentials = newCreds
		st.User = profile
		st.Loading = false
	}), nil
}

// Logout ends the session.  When a refresh token exists the realm's
// end-session endpoint is called best-effort; its outcome never affects the
// local result.  The persisted records are cleared and the state returns to
// unauthenticated with no error set.  Logout cannot fail and is idempotent.
func (s *Session) Logout(ctx context.Context) State {
	return s.logout(ctx, false)
}

// logout clears the session.  preserveError keeps LastError in place for
// the logout chained in after a failed refresh, which owns the message.
func (s *Session) logout(ctx context.Context, preserveError bool) State {
	s.setState(func(st *State) {
		st.Loading = true
		if !preserveError {
			st.LastError = ""
		}
	})

	s.mu.Lock()
	creds := s.state.Credentials
	s.mu.Unlock()

	if creds.Refreshable() {
		if err := s.client.Revoke(ctx, creds.RefreshToken); err != nil {
			s.logger.Warn("session revocation failed; continuing local logout", "error", err)
		}
	}
	s.store.Clear(ctx)
	return s.setState(func(st *State) {
		st.Authenticated = false
		st.Credentials = nil
		st.User = nil
		st.Loading = false
		if !preserveError {
			st.LastError = ""
		}
	})
}

// watch is the background expiry watch: while the session is authenticated
// with a refresh token, it tests the access token every watchInterval and
// refreshes when it has expired.  A tick that lands during an in-flight
// refresh is a no-op rather than queued.
func (s *Session) watch(ctx context.Context) {
	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s.mu.Lock()
		creds := s.state.Credentials
		due := s.state.Authenticated && creds.Refreshable() && creds.Expired()
		s.mu.Unlock()
		if !due {
			continue
		}
		if !s.refreshMu.TryLock() {
			continue
		}
		_, err := s.refreshLocked(ctx)
		s.refreshMu.Unlock()
		if err != nil {
			s.logger.Error("background refresh failed", "error", err)
		}
	}
}

// authURL builds the authorization URL for one login attempt, merging the
// config's additional parameters with the per-login options.
func (s *Session) authURL(requestId string, verifier oidc.CodeVerifier, opts loginOptions) string {
	endpoint := s.config.AuthEndpoint()
	if opts.withAction == ActionRegister {
		endpoint = s.config.RegistrationsEndpoint()
	}

	params := map[string]string{}
	for k, v := range s.config.AdditionalParameters {
		params[k] = v
	}
	if opts.withAction != "" && opts.withAction != ActionRegister {
		params["kc_action"] = opts.withAction
	}
	if opts.withPrompt != "" {
		params["prompt"] = opts.withPrompt
	}
	if opts.withMaxAge >= 0 {
		params["max_age"] = strconv.Itoa(opts.withMaxAge)
	}
	if opts.withLoginHint != "" {
		params["login_hint"] = opts.withLoginHint
	}
	if opts.withIdpHint != "" {
		params["kc_idp_hint"] = opts.withIdpHint
	}
	if opts.withUILocales != "" {
		params["ui_locales"] = opts.withUILocales
	}
	for k, v := range opts.withExtraParams {
		params[k] = v
	}

	oauth2Config := oauth2.Config{
		ClientID:    s.config.ClientId,
		RedirectURL: s.config.RedirectURL,
		Endpoint:    oauth2.Endpoint{AuthURL: endpoint},
		Scopes:      s.config.Scopes,
	}
	authCodeOpts := []oauth2.AuthCodeOption{
		oauth2.SetAuthURLParam("code_challenge", verifier.Challenge()),
		oauth2.SetAuthURLParam("code_challenge_method", string(verifier.Method())),
	}
	for k, v := range params {
		authCodeOpts = append(authCodeOpts, oauth2.SetAuthURLParam(k, v))
	}
	return oauth2Config.AuthCodeURL(requestId, authCodeOpts...)
}

// deriveProfile projects the profile for a credential set: from its identity
// token when one is present, otherwise the fallback profile carries over.
func (s *Session) deriveProfile(creds *oidc.Credentials, fallback *oidc.UserProfile) *oidc.UserProfile {
	if creds == nil || creds.IdToken == "" {
		return fallback
	}
	profile, err := oidc.NewUserProfile(string(creds.IdToken))
	if err != nil {
		s.logger.Warn("unable to derive user profile from id_token", "error", err)
		return fallback
	}
	return profile
}

// setState applies a mutation to the session state and fans the new state
// out to subscribers.  Subscribers run without the session lock held.
func (s *Session) setState(mutate func(*State)) State {
	s.mu.Lock()
	mutate(&s.state)
	st := s.state
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(st)
	}
	return st
}

// errorMessage extracts the best human-readable message for an error,
// preferring the provider's error_description when one was returned.
func errorMessage(err error) string {
	var perr *oidc.ProviderError
	if errors.As(err, &perr) {
		return perr.Message()
	}
	return err.Error()
}
