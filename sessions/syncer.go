// Package sessions keeps browser-local durable storage consistent with the
// small set of parent-domain cookies that mirror identity, tenant-list and
// current-tenant state, so independently-deployed applications sharing the
// domain observe the same logical session.
package sessions

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/cookies"
	"github.com/iblai/go-mentor-session/internal/metrics"
	"github.com/iblai/go-mentor-session/storage"
	"github.com/iblai/go-mentor-session/tenants"
	"github.com/iblai/go-mentor-session/users"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

const defaultCookieTTL = 365 * 24 * time.Hour

// field describes one mirrored value: its cookie name, its storage key, and
// the field-level equality used for diffing. Raw values are JSON documents.
type field struct {
	cookieName string
	storageKey string
	equal      func(a, b string) bool
	// emptySentinel treats the given raw value as "no data", so an absent
	// mirror and an empty one never count as a difference.
	emptySentinel func(raw string) bool
}

func mirroredFields() []field {
	return []field{
		{
			cookieName: cookies.NameIdentity,
			storageKey: storage.KeyIdentity,
			equal:      identityEqual,
		},
		{
			cookieName: cookies.NameCurrentTenant,
			storageKey: storage.KeyCurrentTenant,
			equal:      currentTenantEqual,
		},
		{
			cookieName:    cookies.NameTenantList,
			storageKey:    storage.KeyTenantList,
			equal:         tenantListEqual,
			emptySentinel: tenantListEmpty,
		},
	}
}

// Syncer mirrors session state between durable storage and the shared
// parent-domain cookies.
type Syncer struct {
	store   storage.Store
	jar     cookies.Jar
	domain  string
	ttl     time.Duration
	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// SyncerOption modifies a Syncer.
type SyncerOption func(*Syncer)

// WithCookieTTL overrides the default one-year cookie expiry.
func WithCookieTTL(ttl time.Duration) SyncerOption {
	return func(s *Syncer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSyncerLogger sets the logger.
func WithSyncerLogger(logger zerolog.Logger) SyncerOption {
	return func(s *Syncer) { s.logger = logger }
}

// WithSyncerMetrics sets the metrics collectors.
func WithSyncerMetrics(m *metrics.Metrics) SyncerOption {
	return func(s *Syncer) { s.metrics = m }
}

// NewSyncer creates a Syncer scoping cookies to the given parent domain.
func NewSyncer(store storage.Store, jar cookies.Jar, domain string, options ...SyncerOption) *Syncer {
	s := &Syncer{
		store:  store,
		jar:    jar,
		domain: domain,
		ttl:    defaultCookieTTL,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// PushToCookies mirrors durable storage out to the shared cookies: each
// present value is written as an encoded parent-domain cookie, each absent
// value deletes its cookie. Failures are logged and skipped; the mirror is
// best-effort and the next pass retries.
func (s *Syncer) PushToCookies(ctx context.Context) {
	expires := NowTimeFunc().Add(s.ttl)
	for _, f := range mirroredFields() {
		raw, found, err := s.store.Get(ctx, f.storageKey)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", f.storageKey).Msg("sync push: storage read failed")
			continue
		}
		if !found || raw == "" {
			s.jar.Delete(f.cookieName, s.domain, "/")
			continue
		}
		s.jar.Set(cookies.Cookie{
			Name:         f.cookieName,
			Value:        cookies.EncodeRaw(raw),
			Domain:       s.domain,
			Path:         "/",
			Expires:      expires,
			Secure:       true,
			SameSiteNone: true,
		})
	}
}

// PullFromCookies reconciles the shared cookies into durable storage. For
// every field whose cookie value differs from storage under field-level
// equality, the cookie wins and storage is overwritten. Returns whether any
// field changed, which callers treat as a needs-refresh signal.
func (s *Syncer) PullFromCookies(ctx context.Context) (bool, error) {
	changed := false
	for _, f := range mirroredFields() {
		fieldChanged, err := s.pullField(ctx, f)
		if err != nil {
			return changed, err
		}
		if fieldChanged {
			changed = true
		}
	}
	if changed {
		s.metrics.RecordSyncChange()
	}
	return changed, nil
}

func (s *Syncer) pullField(ctx context.Context, f field) (bool, error) {
	encoded, cookieFound := s.jar.Get(f.cookieName)
	storRaw, storFound, err := s.store.Get(ctx, f.storageKey)
	if err != nil {
		return false, err
	}

	if !cookieFound {
		if !storFound {
			return false, nil
		}
		if f.emptySentinel != nil && f.emptySentinel(storRaw) {
			return false, nil
		}
		if err := s.store.Remove(ctx, f.storageKey); err != nil {
			return false, err
		}
		return true, nil
	}

	cookieRaw, err := cookies.DecodeRaw(encoded)
	if err != nil {
		// Undecodable cookie value: compare the literal string instead of
		// crashing the sync pass.
		cookieRaw = encoded
	}

	if f.emptySentinel != nil && f.emptySentinel(cookieRaw) && (!storFound || f.emptySentinel(storRaw)) {
		return false, nil
	}
	if storFound && f.equal(cookieRaw, storRaw) {
		return false, nil
	}
	if err := s.store.Set(ctx, f.storageKey, cookieRaw); err != nil {
		return false, err
	}
	return true, nil
}

// CookieTenantKey reads the current-tenant cookie, returning "" when absent
// or unparsable. Used to preserve the externally-set tenant across a
// sync-triggered refresh.
func (s *Syncer) CookieTenantKey() string {
	encoded, found := s.jar.Get(cookies.NameCurrentTenant)
	if !found {
		return ""
	}
	var t tenants.Tenant
	if err := cookies.Decode(encoded, &t); err != nil {
		return ""
	}
	return t.Key
}

// ClearSharedCookies deletes the three mirrored cookies. The logout stamp is
// left alone: it is written, never deleted.
func (s *Syncer) ClearSharedCookies() {
	for _, f := range mirroredFields() {
		s.jar.Delete(f.cookieName, s.domain, "/")
	}
}

// Logout clears local storage, drops the shared cookies, and advances the
// cross-application logout stamp so sibling applications force their own
// logout on the next poll.
func (s *Syncer) Logout(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("logout: storage clear failed")
	}
	s.ClearSharedCookies()
	s.jar.Set(cookies.Cookie{
		Name:         cookies.NameLogoutStamp,
		Value:        strconv.FormatInt(NowTimeFunc().UnixMilli(), 10),
		Domain:       s.domain,
		Path:         "/",
		Expires:      NowTimeFunc().Add(s.ttl),
		Secure:       true,
		SameSiteNone: true,
	})
}

func identityEqual(a, b string) bool {
	var ia, ib users.Identity
	if !decodePair(a, b, &ia, &ib) {
		return a == b
	}
	return ia.Same(ib)
}

func currentTenantEqual(a, b string) bool {
	var ta, tb tenants.Tenant
	if !decodePair(a, b, &ta, &tb) {
		return a == b
	}
	return ta.Key == tb.Key
}

func tenantListEqual(a, b string) bool {
	var sa, sb tenants.Set
	if !decodePair(a, b, &sa, &sb) {
		return a == b
	}
	return sa.SameKeys(sb)
}

func tenantListEmpty(raw string) bool {
	if raw == "" || raw == "[]" || raw == "null" {
		return true
	}
	var set tenants.Set
	if err := unmarshal(raw, &set); err != nil {
		return false
	}
	return len(set) == 0
}
