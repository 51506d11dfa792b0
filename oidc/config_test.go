package oidc

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("https://id.example.com", "demo", "web-app", "myapp://callback")
		require.NoError(err)
		assert.Equal("https://id.example.com", c.URL)
		assert.Equal("demo", c.Realm)
		assert.Equal("web-app", c.ClientId)
		assert.Equal("myapp://callback", c.RedirectURL)
		assert.Equal(DefaultScopes, c.Scopes)
	})
	t.Run("with-options", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("https://id.example.com", "demo", "web-app", "myapp://callback",
			WithScopes("openid", "roles"),
			WithAdditionalParameters(map[string]string{"audience": "api"}),
			WithCustomHeaders(map[string]string{"X-Tenant": "acme"}),
		)
		require.NoError(err)
		assert.Equal([]string{"openid", "roles"}, c.Scopes)
		assert.Equal("api", c.AdditionalParameters["audience"])
		assert.Equal("acme", c.CustomHeaders["X-Tenant"])
	})
	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			name                           string
			url, realm, clientId, redirect string
		}{
			{"missing-url", "", "demo", "web-app", "myapp://callback"},
			{"missing-realm", "https://id.example.com", "", "web-app", "myapp://callback"},
			{"missing-client-id", "https://id.example.com", "demo", "", "myapp://callback"},
			{"missing-redirect", "https://id.example.com", "demo", "web-app", ""},
			{"bad-scheme", "ftp://id.example.com", "demo", "web-app", "myapp://callback"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				assert := assert.New(t)
				c, err := NewConfig(tt.url, tt.realm, tt.clientId, tt.redirect)
				assert.Error(err)
				assert.Nil(c)
				assert.True(errors.Is(err, ErrInvalidParameter) || errors.Is(err, ErrNilParameter))
			})
		}
	})
}

func TestConfig_Endpoints(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	c, err := NewConfig("https://id.example.com/", "demo", "web-app", "myapp://callback")
	require.NoError(err)

	// the trailing slash on the provider URL must not double up
	assert.Equal("https://id.example.com/realms/demo/protocol/openid-connect/auth", c.AuthEndpoint())
	assert.Equal("https://id.example.com/realms/demo/protocol/openid-connect/registrations", c.RegistrationsEndpoint())
	assert.Equal("https://id.example.com/realms/demo/protocol/openid-connect/token", c.TokenEndpoint())
	assert.Equal("https://id.example.com/realms/demo/protocol/openid-connect/userinfo", c.UserInfoEndpoint())
	assert.Equal("https://id.example.com/realms/demo/protocol/openid-connect/logout", c.EndSessionEndpoint())
}

func TestConfig_HttpClient(t *testing.T) {
	t.Run("system-cas", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("https://id.example.com", "demo", "web-app", "myapp://callback")
		require.NoError(err)
		client, err := c.HttpClient()
		require.NoError(err)
		assert.NotNil(client)
	})
	t.Run("invalid-ca", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)
		c, err := NewConfig("https://id.example.com", "demo", "web-app", "myapp://callback",
			WithProviderCA("not a pem"))
		require.NoError(err)
		client, err := c.HttpClient()
		assert.Nil(client)
		assert.True(errors.Is(err, ErrInvalidCACert))
	})
}
