package session

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/PaulCunningham697/keycloak-auth-go/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStorage returns an error from every method.
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("backend down")
}
func (failingStorage) Set(context.Context, string, string) error { return errors.New("backend down") }
func (failingStorage) Remove(context.Context, string) error      { return errors.New("backend down") }

func TestMemory(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "k")
	require.NoError(err)
	assert.False(ok)

	require.NoError(m.Set(ctx, "k", "v"))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(err)
	assert.True(ok)
	assert.Equal("v", got)

	require.NoError(m.Remove(ctx, "k"))
	_, ok, err = m.Get(ctx, "k")
	require.NoError(err)
	assert.False(ok)

	// removing an absent key is not an error
	require.NoError(m.Remove(ctx, "missing"))

	// the zero value is usable without the constructor
	var zero Memory
	_, ok, err = zero.Get(ctx, "k")
	require.NoError(err)
	assert.False(ok)
	require.NoError(zero.Set(ctx, "k", "v"))
	got, ok, err = zero.Get(ctx, "k")
	require.NoError(err)
	assert.True(ok)
	assert.Equal("v", got)
}

func TestCredentialStore_RoundTrip(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	store := newCredentialStore(NewMemory(), "", hclog.NewNullLogger())

	_, ok := store.GetCredentials(ctx)
	assert.False(ok)

	creds := &oidc.Credentials{
		AccessToken:  "AT",
		RefreshToken: "RT",
		IdToken:      "IT",
		TokenType:    "Bearer",
		ExpiresIn:    3600,
	}
	store.SetCredentials(ctx, creds)
	got, ok := store.GetCredentials(ctx)
	require.True(ok)
	assert.Equal(*creds, *got)

	profile := &oidc.UserProfile{Subject: "u1", Email: "u1@example.com"}
	store.SetProfile(ctx, profile)
	gotProfile, ok := store.GetProfile(ctx)
	require.True(ok)
	assert.Equal(profile.Subject, gotProfile.Subject)
	assert.Equal(profile.Email, gotProfile.Email)

	store.Clear(ctx)
	_, ok = store.GetCredentials(ctx)
	assert.False(ok)
	_, ok = store.GetProfile(ctx)
	assert.False(ok)
}

func TestCredentialStore_VersionedEnvelope(t *testing.T) {
	assert, require := assert.New(t), require.New(t)
	ctx := context.Background()
	m := NewMemory()
	store := newCredentialStore(m, "", hclog.NewNullLogger())

	store.SetCredentials(ctx, &oidc.Credentials{AccessToken: "AT"})
	raw, ok, err := m.Get(ctx, store.credentialsKey())
	require.NoError(err)
	require.True(ok)

	var envelope storeEnvelope
	require.NoError(json.Unmarshal([]byte(raw), &envelope))
	assert.Equal(storeVersion, envelope.Version)

	// a record with an unknown version reads as absent instead of
	// corrupting restoration
	require.NoError(m.Set(ctx, store.credentialsKey(), `{"v":99,"payload":{}}`))
	_, ok = store.GetCredentials(ctx)
	assert.False(ok)

	// so does a record that predates the envelope entirely
	require.NoError(m.Set(ctx, store.credentialsKey(), `{"access_token":"AT"}`))
	_, ok = store.GetCredentials(ctx)
	assert.False(ok)
}

func TestCredentialStore_FailSafe(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	store := newCredentialStore(failingStorage{}, "", hclog.NewNullLogger())

	// none of these may panic or surface an error
	_, ok := store.GetCredentials(ctx)
	assert.False(ok)
	store.SetCredentials(ctx, &oidc.Credentials{AccessToken: "AT"})
	store.SetProfile(ctx, &oidc.UserProfile{Subject: "u1"})
	store.SetProfile(ctx, nil)
	store.Clear(ctx)
}

func TestCredentialStore_Namespace(t *testing.T) {
	assert := assert.New(t)
	def := newCredentialStore(NewMemory(), "", hclog.NewNullLogger())
	assert.Equal(DefaultNamespace+"/credentials", def.credentialsKey())
	assert.Equal(DefaultNamespace+"/profile", def.profileKey())

	custom := newCredentialStore(NewMemory(), "tenant-a", hclog.NewNullLogger())
	assert.Equal("tenant-a/credentials", custom.credentialsKey())
}
