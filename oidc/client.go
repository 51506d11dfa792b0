package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// Client performs the token-endpoint calls for a realm: trading an
// authorization code or refresh token for credentials, revoking a session and
// fetching userinfo claims.  Every call is a single request/response with no
// retry logic; a failed attempt is surfaced to the caller.
type Client struct {
	config *Config
	client *http.Client
	logger hclog.Logger
}

// NewClient creates a token-endpoint client for the realm.
// Supported options: WithLogger, WithHTTPClient
func NewClient(c *Config, opt ...Option) (*Client, error) {
	const op = "oidc.NewClient"
	if c == nil {
		return nil, fmt.Errorf("%s: realm config is nil: %w", op, ErrNilParameter)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: realm config is invalid: %w", op, err)
	}
	opts := getClientOpts(opt...)
	httpClient := opts.withHTTPClient
	if httpClient == nil {
		var err error
		httpClient, err = c.HttpClient()
		if err != nil {
			return nil, fmt.Errorf("%s: unable to create http client: %w", op, err)
		}
	}
	logger := opts.withLogger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Client{
		config: c,
		client: httpClient,
		logger: logger,
	}, nil
}

// Exchange trades an authorization code received from a redirect capture for
// a new credential set.  The codeVerifier must be the PKCE verifier whose
// challenge was sent with the authorization request; pass an empty string
// when PKCE is not in use.
func (c *Client) Exchange(ctx context.Context, authorizationCode string, codeVerifier string) (*Credentials, error) {
	const op = "Client.Exchange"
	if authorizationCode == "" {
		return nil, fmt.Errorf("%s: authorization code is empty: %w", op, ErrInvalidParameter)
	}
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {c.config.ClientId},
		"code":         {authorizationCode},
		"redirect_uri": {c.config.RedirectURL},
	}
	if codeVerifier != "" {
		form.Set("code_verifier", codeVerifier)
	}
	creds, err := c.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to exchange auth code: %w", op, err)
	}
	return creds, nil
}

// Refresh trades a refresh token for a new credential set.
func (c *Client) Refresh(ctx context.Context, refreshToken RefreshToken) (*Credentials, error) {
	const op = "Client.Refresh"
	if refreshToken == "" {
		return nil, fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
	}
	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.config.ClientId},
		"refresh_token": {string(refreshToken)},
	}
	creds, err := c.tokenRequest(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to refresh: %w", op, err)
	}
	return creds, nil
}

// Revoke posts the refresh token to the realm's end-session endpoint,
// ending the session on the provider side.  Failures are logged and
// returned, but callers ending a local session should treat them as
// best-effort: a local logout must succeed regardless of the remote
// revocation outcome.
func (c *Client) Revoke(ctx context.Context, refreshToken RefreshToken) error {
	const op = "Client.Revoke"
	if refreshToken == "" {
		return fmt.Errorf("%s: refresh token is empty: %w", op, ErrInvalidParameter)
	}
	form := url.Values{
		"client_id":     {c.config.ClientId},
		"refresh_token": {string(refreshToken)},
	}
	resp, err := c.postForm(ctx, c.config.EndSessionEndpoint(), form)
	if err != nil {
		c.logger.Error("end-session request failed", "op", op, "error", err)
		return fmt.Errorf("%s: end-session request failed: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		perr := providerErrorFromResponse(resp)
		c.logger.Error("end-session request rejected", "op", op, "status", resp.StatusCode, "error", perr.Code)
		return fmt.Errorf("%s: %w", op, perr)
	}
	return nil
}

// UserInfo gets the userinfo claims for an access token from the realm's
// userinfo endpoint.
func (c *Client) UserInfo(ctx context.Context, accessToken AccessToken, claims interface{}) error {
	const op = "Client.UserInfo"
	if accessToken == "" {
		return fmt.Errorf("%s: access token is empty: %w", op, ErrInvalidParameter)
	}
	if claims == nil {
		return fmt.Errorf("%s: claims interface is nil: %w", op, ErrNilParameter)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.UserInfoEndpoint(), nil)
	if err != nil {
		return fmt.Errorf("%s: unable to create request: %w", op, err)
	}
	req.Header.Set("Authorization", "Bearer "+string(accessToken))
	for k, v := range c.config.CustomHeaders {
		req.Header.Set(k, v)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: userinfo request failed: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s: %w", op, providerErrorFromResponse(resp))
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: unable to read userinfo response: %w", op, err)
	}
	if err := json.Unmarshal(body, claims); err != nil {
		return fmt.Errorf("%s: unable to unmarshal userinfo claims: %w", op, err)
	}
	return nil
}

// tokenRequest posts a form to the token endpoint and parses the response
// into a Credentials.  A non-2xx status or a response lacking an
// access_token fails with a *ProviderError.
func (c *Client) tokenRequest(ctx context.Context, form url.Values) (*Credentials, error) {
	const op = "Client.tokenRequest"
	resp, err := c.postForm(ctx, c.config.TokenEndpoint(), form)
	if err != nil {
		return nil, fmt.Errorf("%s: token request failed: %w", op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, providerErrorFromResponse(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to read token response: %w", op, err)
	}
	var creds Credentials
	if err := json.Unmarshal(body, &creds); err != nil {
		return nil, fmt.Errorf("%s: unable to unmarshal token response: %w", op, err)
	}
	if creds.AccessToken == "" {
		return nil, fmt.Errorf("%s: token response has no access_token: %w", op, ErrMissingAccessToken)
	}
	if creds.TokenType == "" {
		creds.TokenType = DefaultTokenType
	}
	return &creds, nil
}

// postForm sends a form-urlencoded POST with the config's custom headers
// merged in.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, v := range c.config.CustomHeaders {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// providerErrorFromResponse builds a *ProviderError from a non-2xx response,
// carrying the provider's error/error_description when the body holds a
// parseable OAuth2 error.
func providerErrorFromResponse(resp *http.Response) *ProviderError {
	perr := &ProviderError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return perr
	}
	var parsed struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return perr
	}
	perr.Code = parsed.Error
	perr.Description = parsed.ErrorDescription
	return perr
}

// clientOptions is the set of available options for Client
type clientOptions struct {
	withLogger     hclog.Logger
	withHTTPClient *http.Client
}

func clientDefaults() clientOptions {
	return clientOptions{}
}

func getClientOpts(opt ...Option) clientOptions {
	opts := clientDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withLogger = l
		}
	}
}

// WithHTTPClient provides an optional http client, overriding the one built
// from the config's ProviderCA.
func WithHTTPClient(client *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*clientOptions); ok {
			o.withHTTPClient = client
		}
	}
}
