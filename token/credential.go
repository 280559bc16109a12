// Package token models the session credential: an opaque bearer token with
// two separately tracked expiry timestamps and an embedded subject
// identifier. Signatures are never verified here; verification belongs to
// the backends the token is presented to. Only the sub and exp claims feed
// local resolution decisions.
package token

import (
	"context"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/iblai/go-mentor-session/storage"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

// ErrNoCredential is returned when no credential is stored.
var ErrNoCredential = errors.New("no stored credential")

// Credential is a bearer token plus its coarse expiry. A second, finer
// expiry (SessionExpiresAt) is tracked independently and is authoritative
// for protected routes.
type Credential struct {
	Token            string
	ExpiresAt        time.Time
	SessionExpiresAt time.Time
}

// Empty reports whether there is no token at all.
func (c Credential) Empty() bool {
	return c.Token == ""
}

// Expired applies the coarse expiry check.
func (c Credential) Expired(now time.Time) bool {
	return c.ExpiresAt.IsZero() || !c.ExpiresAt.After(now)
}

// SessionExpired applies the fine-grained check against the independently
// tracked session expiry.
func (c Credential) SessionExpired(now time.Time) bool {
	return c.SessionExpiresAt.IsZero() || !c.SessionExpiresAt.After(now)
}

// Subject extracts the sub claim without verifying the signature.
func (c Credential) Subject() (string, error) {
	unverified, _, err := jwtlib.NewParser().ParseUnverified(c.Token, jwtlib.MapClaims{})
	if err != nil {
		return "", errors.Wrap(err, "[Subject] parsing token")
	}
	claims, ok := unverified.Claims.(jwtlib.MapClaims)
	if !ok {
		return "", errors.New("[Subject] error extracting claims")
	}
	sub, _ := claims["sub"].(string)
	return sub, nil
}

// Pair is the result of a credential refresh.
type Pair struct {
	Token            string
	ExpiresAt        time.Time
	SessionExpiresAt time.Time
}

// Refresher obtains fresh credentials from the external authentication
// service. RefreshForTenant scopes the new credential to a specific tenant
// (used when switching into a freshly joined tenant).
type Refresher interface {
	Refresh(ctx context.Context) (*Pair, error)
	RefreshForTenant(ctx context.Context, tenantKey string) (*Pair, error)
}

// Load reads the stored credential. Returns ErrNoCredential when no token is
// stored; missing expiry keys leave zero timestamps, which read as expired.
func Load(ctx context.Context, store storage.Store) (Credential, error) {
	tok, found, err := store.Get(ctx, storage.KeyToken)
	if err != nil {
		return Credential{}, errors.Wrap(err, "[Load] reading token")
	}
	if !found || tok == "" {
		return Credential{}, ErrNoCredential
	}
	cred := Credential{Token: tok}
	cred.ExpiresAt = loadExpiry(ctx, store, storage.KeyTokenExpiry)
	cred.SessionExpiresAt = loadExpiry(ctx, store, storage.KeySessionExpiry)
	return cred, nil
}

// Save persists a refreshed credential and both expiry timestamps.
func Save(ctx context.Context, store storage.Store, pair Pair) error {
	if err := store.Set(ctx, storage.KeyToken, pair.Token); err != nil {
		return errors.Wrap(err, "[Save] writing token")
	}
	if err := store.Set(ctx, storage.KeyTokenExpiry, pair.ExpiresAt.Format(time.RFC3339)); err != nil {
		return errors.Wrap(err, "[Save] writing token expiry")
	}
	if err := store.Set(ctx, storage.KeySessionExpiry, pair.SessionExpiresAt.Format(time.RFC3339)); err != nil {
		return errors.Wrap(err, "[Save] writing session expiry")
	}
	return nil
}

// Clear removes the credential and both expiry timestamps.
func Clear(ctx context.Context, store storage.Store) {
	_ = store.Remove(ctx, storage.KeyToken)
	_ = store.Remove(ctx, storage.KeyTokenExpiry)
	_ = store.Remove(ctx, storage.KeySessionExpiry)
}

func loadExpiry(ctx context.Context, store storage.Store, key string) time.Time {
	raw, found, err := store.Get(ctx, key)
	if err != nil || !found {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}
	}
	return ts
}
