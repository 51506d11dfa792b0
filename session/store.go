package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/PaulCunningham697/keycloak-auth-go/oidc"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
)

// DefaultNamespace prefixes the keys the session persists records under.
const DefaultNamespace = "kc-auth"

// storeVersion versions the persisted record envelope.  A record with a
// different version reads as absent, so a format change degrades to a fresh
// login instead of corrupting restoration.
const storeVersion = 1

// storeEnvelope wraps every persisted record with its format version.
type storeEnvelope struct {
	Version int             `json:"v"`
	Payload json.RawMessage `json:"payload"`
}

// credentialStore persists the credential and profile snapshots through a
// Storage backend.  It is fail-safe: a backend failure surfaces as absent on
// read and a no-op on write, logged but never returned, so storage trouble
// can't take the state machine down.
type credentialStore struct {
	storage   Storage
	logger    hclog.Logger
	namespace string
}

func newCredentialStore(storage Storage, namespace string, logger hclog.Logger) *credentialStore {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &credentialStore{
		storage:   storage,
		logger:    logger,
		namespace: namespace,
	}
}

func (s *credentialStore) credentialsKey() string { return s.namespace + "/credentials" }
func (s *credentialStore) profileKey() string     { return s.namespace + "/profile" }

// GetCredentials loads the persisted credential snapshot, reporting false
// when none is present or it can't be read.
func (s *credentialStore) GetCredentials(ctx context.Context) (*oidc.Credentials, bool) {
	var creds oidc.Credentials
	if !s.get(ctx, s.credentialsKey(), &creds) {
		return nil, false
	}
	return &creds, true
}

// SetCredentials persists the credential snapshot.
func (s *credentialStore) SetCredentials(ctx context.Context, creds *oidc.Credentials) {
	s.set(ctx, s.credentialsKey(), creds)
}

// GetProfile loads the persisted user profile, reporting false when none is
// present or it can't be read.
func (s *credentialStore) GetProfile(ctx context.Context) (*oidc.UserProfile, bool) {
	var profile oidc.UserProfile
	if !s.get(ctx, s.profileKey(), &profile) {
		return nil, false
	}
	return &profile, true
}

// SetProfile persists the user profile.  A nil profile removes any persisted
// one.
func (s *credentialStore) SetProfile(ctx context.Context, profile *oidc.UserProfile) {
	if profile == nil {
		s.remove(ctx, s.profileKey())
		return
	}
	s.set(ctx, s.profileKey(), profile)
}

// Clear removes both persisted records.
func (s *credentialStore) Clear(ctx context.Context) {
	var result *multierror.Error
	if err := s.storage.Remove(ctx, s.credentialsKey()); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove %s: %w", s.credentialsKey(), err))
	}
	if err := s.storage.Remove(ctx, s.profileKey()); err != nil {
		result = multierror.Append(result, fmt.Errorf("remove %s: %w", s.profileKey(), err))
	}
	if err := result.ErrorOrNil(); err != nil {
		s.logger.Warn("unable to clear persisted session records", "error", err)
	}
}

func (s *credentialStore) get(ctx context.Context, key string, v interface{}) bool {
	raw, ok, err := s.storage.Get(ctx, key)
	if err != nil {
		s.logger.Warn("storage read failed; treating record as absent", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	var envelope storeEnvelope
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		s.logger.Warn("persisted record is not a valid envelope; treating as absent", "key", key, "error", err)
		return false
	}
	if envelope.Version != storeVersion {
		s.logger.Warn("persisted record version mismatch; treating as absent", "key", key, "version", envelope.Version)
		return false
	}
	if err := json.Unmarshal(envelope.Payload, v); err != nil {
		s.logger.Warn("unable to unmarshal persisted record; treating as absent", "key", key, "error", err)
		return false
	}
	return true
}

func (s *credentialStore) set(ctx context.Context, key string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		s.logger.Warn("unable to marshal record; skipping persist", "key", key, "error", err)
		return
	}
	raw, err := json.Marshal(storeEnvelope{Version: storeVersion, Payload: payload})
	if err != nil {
		s.logger.Warn("unable to marshal record envelope; skipping persist", "key", key, "error", err)
		return
	}
	if err := s.storage.Set(ctx, key, string(raw)); err != nil {
		s.logger.Warn("storage write failed; record not persisted", "key", key, "error", err)
	}
}

func (s *credentialStore) remove(ctx context.Context, key string) {
	if err := s.storage.Remove(ctx, key); err != nil {
		s.logger.Warn("storage remove failed", "key", key, "error", err)
	}
}
