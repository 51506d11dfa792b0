package session

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Option defines a common functional options type
type Option func(interface{})

// ApplyOpts takes a pointer to the options struct as a set of default options
// and applies the slice of opts as overrides.
func ApplyOpts(opts interface{}, opt ...Option) {
	for _, o := range opt {
		o(opts)
	}
}

// DefaultExpiryInterval is the wall-clock period of the background expiry
// watch.
const DefaultExpiryInterval = 60 * time.Second

// sessionOptions is the set of available options for NewSession
type sessionOptions struct {
	withLogger         hclog.Logger
	withStorage        Storage
	withNamespace      string
	withExpiryInterval time.Duration
	withHTTPClient     *http.Client
}

// sessionDefaults is a handy way to get the defaults at runtime and during
// unit tests.
func sessionDefaults() sessionOptions {
	return sessionOptions{
		withExpiryInterval: DefaultExpiryInterval,
	}
}

func getSessionOpts(opt ...Option) sessionOptions {
	opts := sessionDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithLogger provides an optional logger for the session.
func WithLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withLogger = l
		}
	}
}

// WithStorage injects the storage backend credentials are persisted
// through.  Without it the session binds a process-lifetime Memory storage
// and logs the degradation once.
func WithStorage(s Storage) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withStorage = s
		}
	}
}

// WithNamespace provides an optional key namespace for persisted records,
// replacing DefaultNamespace.  Concurrent sessions sharing a storage backend
// must use distinct namespaces.
func WithNamespace(ns string) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withNamespace = ns
		}
	}
}

// WithExpiryInterval provides an optional period for the background expiry
// watch, replacing DefaultExpiryInterval.
func WithExpiryInterval(d time.Duration) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withExpiryInterval = d
		}
	}
}

// WithHTTPClient provides an optional http client for token-endpoint calls,
// overriding the one built from the config's ProviderCA.
func WithHTTPClient(client *http.Client) Option {
	return func(o interface{}) {
		if o, ok := o.(*sessionOptions); ok {
			o.withHTTPClient = client
		}
	}
}

// loginOptions is the set of available options for Session.Login
type loginOptions struct {
	withAction      string
	withPrompt      string
	withMaxAge      int
	withLoginHint   string
	withIdpHint     string
	withUILocales   string
	withExtraParams map[string]string
}

func loginDefaults() loginOptions {
	return loginOptions{
		withMaxAge: -1,
	}
}

func getLoginOpts(opt ...Option) loginOptions {
	opts := loginDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// ActionRegister starts the interactive flow on the realm's registration
// form instead of its login form.
const ActionRegister = "register"

// WithAction provides an optional action for an interactive login.
// ActionRegister switches the flow to the realm's registration endpoint; any
// other value is passed to the provider as its kc_action parameter.
func WithAction(action string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withAction = action
		}
	}
}

// WithPrompt provides an optional OIDC prompt parameter (none, login,
// consent, ...).
func WithPrompt(prompt string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withPrompt = prompt
		}
	}
}

// WithMaxAge provides an optional maximum authentication age in seconds,
// passed as the max_age parameter.
func WithMaxAge(seconds int) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withMaxAge = seconds
		}
	}
}

// WithLoginHint provides an optional login_hint parameter, pre-filling the
// provider's username field.
func WithLoginHint(hint string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withLoginHint = hint
		}
	}
}

// WithIdpHint provides an optional identity-provider hint, passed as the
// kc_idp_hint parameter to skip the realm's login form in favor of an
// external IdP.
func WithIdpHint(hint string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withIdpHint = hint
		}
	}
}

// WithUILocales provides an optional locale for the provider's pages,
// passed as the ui_locales parameter.
func WithUILocales(locales string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withUILocales = locales
		}
	}
}

// WithExtraParams provides optional per-login authorization parameters.
// They override the config's AdditionalParameters on conflict.
func WithExtraParams(params map[string]string) Option {
	return func(o interface{}) {
		if o, ok := o.(*loginOptions); ok {
			o.withExtraParams = params
		}
	}
}
