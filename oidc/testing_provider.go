package oidc

import (
	"bytes"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestProvider is a local server imitating the realm endpoints this package
// talks to, which makes writing tests much easier.  It serves the auth,
// token, userinfo and end-session endpoints of a single test realm over TLS,
// signing id_tokens with a generated ECDSA key.
type TestProvider struct {
	httpServer *httptest.Server
	caCert     string
	realm      string

	ecdsaPublicKey  string
	ecdsaPrivateKey string

	mu                   sync.Mutex
	clientID             string
	expectedAuthCode     string
	expectedRefreshToken string
	replySubject         string
	replyUserinfo        map[string]interface{}
	customClaims         map[string]interface{}
	accessTokenTTL       time.Duration
	omitIDToken          bool
	omitRefreshToken     bool
	endSessionCalls      int
	tokenRequestCount    int
	tokenRequestHeaders  http.Header

	t *testing.T
}

// StartTestProvider creates a disposable TestProvider for the realm "test".
func StartTestProvider(t *testing.T) *TestProvider {
	t.Helper()

	p := &TestProvider{
		realm:                "test",
		expectedAuthCode:     "",
		expectedRefreshToken: "",
		replySubject:         "alice",
		replyUserinfo: map[string]interface{}{
			"sub":   "alice",
			"email": "alice@example.com",
		},
		accessTokenTTL: 5 * time.Minute,
		t:              t,
	}
	p.ecdsaPublicKey, p.ecdsaPrivateKey = TestGenerateKeys(t)

	p.httpServer = httptest.NewUnstartedServer(p)
	p.httpServer.Config.ErrorLog = log.New(ioutil.Discard, "", 0)
	p.httpServer.StartTLS()
	t.Cleanup(p.httpServer.Close)

	cert := p.httpServer.Certificate()
	var buf bytes.Buffer
	if err := pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw}); err != nil {
		t.Fatal(err)
	}
	p.caCert = buf.String()

	return p
}

// Stop stops the running TestProvider.
func (p *TestProvider) Stop() {
	p.httpServer.Close()
}

// Addr returns the provider's base URL.
func (p *TestProvider) Addr() string { return p.httpServer.URL }

// Realm returns the provider's realm identifier.
func (p *TestProvider) Realm() string { return p.realm }

// CACert returns the pem-encoded CA certificate used by the provider's TLS
// endpoint.
func (p *TestProvider) CACert() string { return p.caCert }

// SigningKeys returns the test provider's pem-encoded keys used to sign
// id_tokens.
func (p *TestProvider) SigningKeys() (pub, priv string) {
	return p.ecdsaPublicKey, p.ecdsaPrivateKey
}

// SetClientID configures the client id the provider requires on token
// requests.  When empty, any client id is accepted.
func (p *TestProvider) SetClientID(clientID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clientID = clientID
}

// SetExpectedAuthCode configures the authorization code the token endpoint
// accepts for the authorization_code grant.
func (p *TestProvider) SetExpectedAuthCode(code string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedAuthCode = code
}

// SetExpectedRefreshToken configures the refresh token the token and
// end-session endpoints accept.
func (p *TestProvider) SetExpectedRefreshToken(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.expectedRefreshToken = token
}

// SetReplySubject configures the sub claim for issued id_tokens.
func (p *TestProvider) SetReplySubject(sub string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.replySubject = sub
}

// SetCustomClaims lets you set claims to return in the id_token issued by
// the token endpoint.
func (p *TestProvider) SetCustomClaims(claims map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customClaims = claims
}

// SetAccessTokenTTL configures the lifetime of issued access tokens.  A
// negative duration issues already-expired tokens.
func (p *TestProvider) SetAccessTokenTTL(ttl time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.accessTokenTTL = ttl
}

// OmitIDTokens forces the token endpoint to not return an id_token.
func (p *TestProvider) OmitIDTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitIDToken = true
}

// OmitRefreshTokens forces the token endpoint to not return a refresh_token.
func (p *TestProvider) OmitRefreshTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.omitRefreshToken = true
}

// EndSessionCalls returns how many times the end-session endpoint was
// called.
func (p *TestProvider) EndSessionCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.endSessionCalls
}

// TokenRequests returns how many requests the token endpoint has received.
func (p *TestProvider) TokenRequests() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequestCount
}

// LastTokenRequestHeaders returns the headers of the most recent token
// endpoint request.
func (p *TestProvider) LastTokenRequestHeaders() http.Header {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tokenRequestHeaders
}

// ServeHTTP implements the test provider's realm endpoints.
func (p *TestProvider) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()

	base := fmt.Sprintf("/realms/%s/protocol/openid-connect", p.realm)
	switch req.URL.Path {
	case base + "/auth":
		// redirect back with the expected code, like a user who approved
		// the authorization prompt
		redirectURI := req.URL.Query().Get("redirect_uri")
		state := req.URL.Query().Get("state")
		if redirectURI == "" {
			http.Error(w, "missing redirect_uri", http.StatusBadRequest)
			return
		}
		sep := "?"
		if strings.Contains(redirectURI, "?") {
			sep = "&"
		}
		http.Redirect(w, req, fmt.Sprintf("%s%scode=%s&state=%s", redirectURI, sep, p.expectedAuthCode, state), http.StatusFound)

	case base + "/token":
		p.tokenRequestCount++
		p.tokenRequestHeaders = req.Header.Clone()
		if err := req.ParseForm(); err != nil {
			p.writeTokenError(w, http.StatusBadRequest, "invalid_request", "unable to parse form")
			return
		}
		if p.clientID != "" && req.PostFormValue("client_id") != p.clientID {
			p.writeTokenError(w, http.StatusUnauthorized, "invalid_client", "unknown client")
			return
		}
		switch req.PostFormValue("grant_type") {
		case "authorization_code":
			if req.PostFormValue("code") != p.expectedAuthCode {
				p.writeTokenError(w, http.StatusBadRequest, "invalid_grant", "unexpected authorization code")
				return
			}
		case "refresh_token":
			if req.PostFormValue("refresh_token") != p.expectedRefreshToken {
				p.writeTokenError(w, http.StatusBadRequest, "invalid_grant", "unexpected refresh token")
				return
			}
		default:
			p.writeTokenError(w, http.StatusBadRequest, "unsupported_grant_type", "")
			return
		}
		p.writeTokenResponse(w)

	case base + "/userinfo":
		if !strings.HasPrefix(req.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		p.writeJSON(w, http.StatusOK, p.replyUserinfo)

	case base + "/logout":
		p.endSessionCalls++
		if err := req.ParseForm(); err != nil {
			http.Error(w, "unable to parse form", http.StatusBadRequest)
			return
		}
		if p.expectedRefreshToken != "" && req.PostFormValue("refresh_token") != p.expectedRefreshToken {
			p.writeTokenError(w, http.StatusBadRequest, "invalid_grant", "unexpected refresh token")
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.NotFound(w, req)
	}
}

func (p *TestProvider) writeTokenResponse(w http.ResponseWriter) {
	p.t.Helper()
	now := time.Now()
	accessClaims := map[string]interface{}{
		"sub": p.replySubject,
		"iat": now.Unix(),
		"exp": now.Add(p.accessTokenTTL).Unix(),
		"iss": fmt.Sprintf("%s/realms/%s", p.httpServer.URL, p.realm),
	}
	idClaims := map[string]interface{}{
		"sub": p.replySubject,
		"iat": now.Unix(),
		"exp": now.Add(p.accessTokenTTL).Unix(),
	}
	for k, v := range p.customClaims {
		idClaims[k] = v
	}
	reply := map[string]interface{}{
		"access_token": TestSignJWT(p.t, p.ecdsaPrivateKey, accessClaims),
		"token_type":   "Bearer",
		"expires_in":   int64(p.accessTokenTTL / time.Second),
		"scope":        "openid profile email",
	}
	if !p.omitIDToken {
		reply["id_token"] = TestSignJWT(p.t, p.ecdsaPrivateKey, idClaims)
	}
	if !p.omitRefreshToken {
		refreshClaims := map[string]interface{}{
			"sub": p.replySubject,
			"exp": now.Add(24 * time.Hour).Unix(),
		}
		refresh := TestSignJWT(p.t, p.ecdsaPrivateKey, refreshClaims)
		p.expectedRefreshToken = refresh
		reply["refresh_token"] = refresh
	}
	p.writeJSON(w, http.StatusOK, reply)
}

func (p *TestProvider) writeTokenError(w http.ResponseWriter, status int, code, description string) {
	body := map[string]interface{}{"error": code}
	if description != "" {
		body["error_description"] = description
	}
	p.writeJSON(w, status, body)
}

func (p *TestProvider) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		p.t.Error(err)
	}
}
