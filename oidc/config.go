package oidc

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PaulCunningham697/keycloak-auth-go/internal/httputil"
)

// DefaultScopes are the scopes requested when a Config doesn't provide its
// own list.
var DefaultScopes = []string{"openid", "profile", "email"}

// Config identifies a realm and the relying party registered with it.  A
// Config is immutable for the lifetime of the Client and Session built from
// it; it's supplied once at construction.
type Config struct {
	// URL is the base URL of the provider, without the realm path.  For
	// example: https://id.example.com
	URL string

	// Realm is the realm identifier.
	Realm string

	// ClientId is the relying party id registered with the realm.
	ClientId string

	// RedirectURL is the URL the provider redirects back to after an
	// interactive authorization completes.
	RedirectURL string

	// Scopes is the ordered list of scopes requested during authorization.
	// When empty, DefaultScopes is used.
	Scopes []string

	// AdditionalParameters are free-form query parameters added to every
	// authorization URL.  Per-login parameters override these on conflict.
	AdditionalParameters map[string]string

	// CustomHeaders are merged into the headers of every token-endpoint
	// request.
	CustomHeaders map[string]string

	// ProviderCA is an optional CA cert PEM to trust when sending requests
	// to the provider.
	ProviderCA string
}

// NewConfig composes a new realm config.
// Supported options: WithScopes, WithAdditionalParameters, WithCustomHeaders,
// WithProviderCA
func NewConfig(providerURL string, realm string, clientId string, redirectURL string, opt ...Option) (*Config, error) {
	const op = "oidc.NewConfig"
	opts := getConfigOpts(opt...)
	c := &Config{
		URL:                  providerURL,
		Realm:                realm,
		ClientId:             clientId,
		RedirectURL:          redirectURL,
		Scopes:               opts.withScopes,
		AdditionalParameters: opts.withAdditionalParameters,
		CustomHeaders:        opts.withCustomHeaders,
		ProviderCA:           opts.withProviderCA,
	}
	if len(c.Scopes) == 0 {
		c.Scopes = append([]string{}, DefaultScopes...)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid realm config: %w", op, err)
	}
	return c, nil
}

// Validate the realm configuration.  It verifies the required fields are not
// empty and that the provider URL parses, but it doesn't verify the realm is
// reachable via an http request.
func (c *Config) Validate() error {
	const op = "Config.Validate"
	if c == nil {
		return fmt.Errorf("%s: realm config is nil: %w", op, ErrNilParameter)
	}
	if c.URL == "" {
		return fmt.Errorf("%s: provider URL is empty: %w", op, ErrInvalidParameter)
	}
	if c.Realm == "" {
		return fmt.Errorf("%s: realm is empty: %w", op, ErrInvalidParameter)
	}
	if c.ClientId == "" {
		return fmt.Errorf("%s: client id is empty: %w", op, ErrInvalidParameter)
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("%s: redirect URL is empty: %w", op, ErrInvalidParameter)
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return fmt.Errorf("%s: provider URL %s is invalid: %w", op, c.URL, err)
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return fmt.Errorf("%s: provider URL %s scheme is not http or https: %w", op, c.URL, ErrInvalidParameter)
	}
	return nil
}

// realmURL is the base of every realm endpoint:
// {url}/realms/{realm}/protocol/openid-connect
func (c *Config) realmURL() string {
	return fmt.Sprintf("%s/realms/%s/protocol/openid-connect", strings.TrimSuffix(c.URL, "/"), c.Realm)
}

// AuthEndpoint returns the realm's authorization endpoint.
func (c *Config) AuthEndpoint() string {
	return c.realmURL() + "/auth"
}

// RegistrationsEndpoint returns the realm's registration endpoint, used in
// place of the authorization endpoint when a login is started with the
// register action.
func (c *Config) RegistrationsEndpoint() string {
	return c.realmURL() + "/registrations"
}

// TokenEndpoint returns the realm's token endpoint.
func (c *Config) TokenEndpoint() string {
	return c.realmURL() + "/token"
}

// UserInfoEndpoint returns the realm's userinfo endpoint.
func (c *Config) UserInfoEndpoint() string {
	return c.realmURL() + "/userinfo"
}

// EndSessionEndpoint returns the realm's end-session (logout) endpoint.
func (c *Config) EndSessionEndpoint() string {
	return c.realmURL() + "/logout"
}

// HttpClient is a helper function that creates a new http client for the
// realm configured, trusting the ProviderCA when one is set.
func (c *Config) HttpClient() (*http.Client, error) {
	const op = "Config.HttpClient"
	client, err := httputil.NewClient(c.ProviderCA)
	if err != nil {
		if err == httputil.ErrInvalidCertificatePem {
			return nil, fmt.Errorf("%s: could not parse CA PEM value: %w", op, ErrInvalidCACert)
		}
		return nil, fmt.Errorf("%s: could not get an http client: %w", op, err)
	}
	return client, nil
}

// configOptions is the set of available options for Config
type configOptions struct {
	withScopes               []string
	withAdditionalParameters map[string]string
	withCustomHeaders        map[string]string
	withProviderCA           string
}

// configDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func configDefaults() configOptions {
	return configOptions{}
}

// getConfigOpts gets the defaults and applies the opt overrides passed in.
func getConfigOpts(opt ...Option) configOptions {
	opts := configDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithScopes provides an optional ordered list of scopes for the realm's
// config, replacing DefaultScopes.
func WithScopes(scopes ...string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withScopes = scopes
		}
	}
}

// WithAdditionalParameters provides optional query parameters added to every
// authorization URL built from the config.
func WithAdditionalParameters(params map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withAdditionalParameters = params
		}
	}
}

// WithCustomHeaders provides optional headers merged into every
// token-endpoint request.
func WithCustomHeaders(headers map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withCustomHeaders = headers
		}
	}
}

// WithProviderCA provides an optional CA cert PEM for the realm's config.
func WithProviderCA(cert string) Option {
	return func(o interface{}) {
		if o, ok := o.(*configOptions); ok {
			o.withProviderCA = cert
		}
	}
}
