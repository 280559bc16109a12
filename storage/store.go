// Package storage defines the durable local key-value collaborator the
// session pipeline persists its state into. Embedding applications supply
// the implementation (browser localStorage bridge, file store, ...); an
// in-memory implementation lives in storagefakes.
package storage

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

// Keys used by the session pipeline. Every value is a JSON document encoded
// as a string.
const (
	KeyIdentity      = "user_identity"  // users.Identity
	KeyCurrentTenant = "current_tenant" // tenants.Tenant
	KeyTenantList    = "tenant_list"    // tenants.Set
	KeyToken         = "access_token"   // raw bearer token string
	KeyTokenExpiry   = "token_expiry"   // RFC3339, coarse credential expiry
	KeySessionExpiry = "session_expiry" // RFC3339, authoritative expiry for protected routes
)

// Store is a durable key-value store. Implementations must return
// found=false, not an error, for missing keys.
type Store interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Set(ctx context.Context, key string, value string) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// ReadJSON reads and decodes a JSON value under key. The second return is
// false when the key is absent.
func ReadJSON[T any](ctx context.Context, s Store, key string) (T, bool, error) {
	var out T
	raw, found, err := s.Get(ctx, key)
	if err != nil {
		return out, false, errors.Wrap(err, "[ReadJSON] store get")
	}
	if !found || raw == "" {
		return out, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return out, false, errors.Wrapf(err, "[ReadJSON] decoding %q", key)
	}
	return out, true, nil
}

// WriteJSON encodes v as JSON and stores it under key.
func WriteJSON[T any](ctx context.Context, s Store, key string, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "[WriteJSON] encoding %q", key)
	}
	if err := s.Set(ctx, key, string(raw)); err != nil {
		return errors.Wrap(err, "[WriteJSON] store set")
	}
	return nil
}
