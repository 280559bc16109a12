package tenants

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/internal/metrics"
	"github.com/iblai/go-mentor-session/nav"
	"github.com/iblai/go-mentor-session/storage"
	"github.com/iblai/go-mentor-session/token"
	"github.com/iblai/go-mentor-session/users"
)

// DefaultMainTenant is the key of the distinguished platform-wide tenant.
const DefaultMainTenant = "main"

// CookieClearer drops the cross-application cookie mirror when tenant
// resolution forces a logout. sessions.Syncer satisfies it.
type CookieClearer interface {
	ClearSharedCookies()
}

// Input is what tenant resolution needs from the auth stage.
type Input struct {
	Route    nav.Route
	Public   bool
	Identity users.Identity
}

// Result is the resolved tenant context.
type Result struct {
	Tenant   Tenant
	Metadata *Metadata
	Set      Set
	// Visiting marks a tenant the user navigated to but could not be
	// silently joined into; the UI may offer an explicit join later.
	Visiting bool
	// Redirected is set when resolution ended in a navigation side effect
	// and nothing downstream may run.
	Redirected bool
}

// Deps holds the required collaborators for the Resolver.
type Deps struct {
	Store     storage.Store
	Sync      CookieClearer
	Navigator nav.Navigator
	Service   Service
	Domains   DomainResolver
	Refresher token.Refresher
}

// Resolver determines which tenant context applies: explicit request, custom
// domain mapping, previously-active tenant, or first available.
type Resolver struct {
	store     storage.Store
	sync      CookieClearer
	navigator nav.Navigator
	service   Service
	domains   DomainResolver
	refresher token.Refresher

	mainKey   string
	appDomain string
	onFailure func(ctx context.Context, reason string)

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option modifies the Resolver.
type Option func(*Resolver)

// WithMainTenant overrides the distinguished main tenant key.
func WithMainTenant(key string) Option {
	return func(r *Resolver) {
		if key != "" {
			r.mainKey = key
		}
	}
}

// WithAppDomain names the sub-application domain this instance serves, so
// resolution can recognize tenants owned by a sibling application.
func WithAppDomain(domain string) Option {
	return func(r *Resolver) { r.appDomain = domain }
}

// WithOnFailure sets the host failure callback.
func WithOnFailure(fn func(ctx context.Context, reason string)) Option {
	return func(r *Resolver) { r.onFailure = fn }
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Resolver) { r.logger = logger }
}

// WithMetrics sets the metrics collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// NewResolver initializes the tenant stage with required dependencies.
func NewResolver(deps Deps, options ...Option) (*Resolver, error) {
	if deps.Store == nil {
		return nil, errors.New("[NewResolver] Store is required")
	}
	if deps.Sync == nil {
		return nil, errors.New("[NewResolver] Sync is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("[NewResolver] Navigator is required")
	}
	if deps.Service == nil {
		return nil, errors.New("[NewResolver] Service is required")
	}
	if deps.Refresher == nil {
		return nil, errors.New("[NewResolver] Refresher is required")
	}

	r := &Resolver{
		store:     deps.Store,
		sync:      deps.Sync,
		navigator: deps.Navigator,
		service:   deps.Service,
		domains:   deps.Domains,
		refresher: deps.Refresher,
		mainKey:   DefaultMainTenant,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Resolve determines the active tenant. It never returns an error: failures
// end in a redirect, reported through the result.
func (r *Resolver) Resolve(ctx context.Context, in Input) *Result {
	result := r.resolve(ctx, in)
	outcome := "resolved"
	switch {
	case result.Redirected:
		outcome = "redirected"
	case result.Visiting:
		outcome = "visiting"
	}
	r.metrics.RecordStage("tenant", outcome)
	return result
}

func (r *Resolver) resolve(ctx context.Context, in Input) *Result {
	set, _, err := storage.ReadJSON[Set](ctx, r.store, storage.KeyTenantList)
	if err != nil {
		return r.fail(ctx, err)
	}

	domainKey := r.domainTenant(ctx, in.Route.Host)
	requested := in.Route.TenantKey
	if requested == "" {
		requested = domainKey
	}

	// Visiting path: a public route naming a tenant the user has not joined.
	if in.Public && requested != "" && !set.Contains(requested) {
		return r.visit(ctx, requested, set)
	}

	// Being on a custom domain mapped to a tenant outside the user's set is
	// an access violation, not a soft miss: force logout.
	if domainKey != "" && !set.Contains(domainKey) {
		r.logger.Warn().Str("tenant", domainKey).Msg("domain-mapped tenant outside user set, forcing logout")
		r.sync.ClearSharedCookies()
		r.navigator.RedirectToAuth(ctx, nav.AuthRedirect{Logout: true})
		return &Result{Redirected: true}
	}

	prev, _, err := storage.ReadJSON[Tenant](ctx, r.store, storage.KeyCurrentTenant)
	if err != nil {
		return r.fail(ctx, err)
	}

	var selected Tenant
	switch {
	case requested != "" && set.Contains(requested):
		selected, _ = set.Get(requested)
	case !in.Public:
		if prevTenant, ok := set.Get(prev.Key); ok {
			selected = prevTenant
		} else if len(set) > 0 {
			selected = set[0]
		} else {
			return r.fail(ctx, errors.New("[Resolve] user has no tenants"))
		}
	default:
		// Public route without an explicit tenant: nothing to resolve here.
		return &Result{Set: set}
	}

	// Newly-joined users can transiently appear to belong to both the main
	// tenant and the one they actually joined; land them on the latter.
	switched := false
	if other, ok := r.twoTenantOther(set); ok && requested != other.Key && selected.Key != other.Key {
		selected = other
		switched = true
	}

	meta, err := r.service.Metadata(ctx, selected.Key)
	if err != nil {
		return r.fail(ctx, errors.Wrap(err, "[Resolve] fetching tenant metadata"))
	}

	set = r.annotateAdvertising(ctx, set, selected.Key, meta)
	if err := storage.WriteJSON(ctx, r.store, storage.KeyTenantList, set); err != nil {
		return r.fail(ctx, err)
	}
	if annotated, ok := set.Get(selected.Key); ok {
		selected = annotated
	}

	if switched || (prev.Key != "" && prev.Key != selected.Key) {
		r.navigator.RedirectToTenant(ctx, selected.Key)
		return &Result{Tenant: selected, Metadata: meta, Set: set, Redirected: true}
	}

	// A tenant owned by a sibling sub-application keeps its own local
	// state; resolution is satisfied without persisting anything here.
	if meta.ActiveApp != "" && meta.ActiveApp != r.appDomain {
		return &Result{Tenant: selected, Metadata: meta, Set: set}
	}

	if err := storage.WriteJSON(ctx, r.store, storage.KeyCurrentTenant, selected); err != nil {
		return r.fail(ctx, err)
	}
	return &Result{Tenant: selected, Metadata: meta, Set: set}
}

// visit handles a tenant the user is looking at without membership: fetch
// its metadata and try to join silently. A failed join is not fatal; the
// tenant is remembered as visiting so the UI can offer an explicit join.
func (r *Resolver) visit(ctx context.Context, requested string, set Set) *Result {
	meta, err := r.service.Metadata(ctx, requested)
	if err != nil {
		return r.fail(ctx, errors.Wrap(err, "[visit] fetching tenant metadata"))
	}

	if err := r.service.Join(ctx, requested); err != nil {
		r.logger.Info().Err(err).Str("tenant", requested).Msg("silent join failed, recording visiting tenant")
		return &Result{
			Tenant:   Tenant{Key: requested, Advertising: true},
			Metadata: meta,
			Set:      set,
			Visiting: true,
		}
	}

	pair, err := r.refresher.RefreshForTenant(ctx, requested)
	if err != nil {
		return r.fail(ctx, errors.Wrap(err, "[visit] fetching tenant-scoped credential"))
	}
	if err := token.Save(ctx, r.store, *pair); err != nil {
		return r.fail(ctx, err)
	}

	joined := Tenant{Key: requested}
	set = append(set, joined)
	if err := storage.WriteJSON(ctx, r.store, storage.KeyTenantList, set); err != nil {
		return r.fail(ctx, err)
	}
	if err := storage.WriteJSON(ctx, r.store, storage.KeyCurrentTenant, joined); err != nil {
		return r.fail(ctx, err)
	}
	return &Result{Tenant: joined, Metadata: meta, Set: set}
}

func (r *Resolver) domainTenant(ctx context.Context, host string) string {
	if r.domains == nil || host == "" {
		return ""
	}
	key, err := r.domains.TenantForHost(ctx, host)
	if err != nil {
		r.logger.Warn().Err(err).Str("host", host).Msg("custom-domain lookup failed")
		return ""
	}
	return key
}

// twoTenantOther returns the non-main tenant when the set is exactly the
// main tenant plus one other.
func (r *Resolver) twoTenantOther(set Set) (Tenant, bool) {
	if len(set) != 2 || !set.Contains(r.mainKey) {
		return Tenant{}, false
	}
	for _, t := range set {
		if t.Key != r.mainKey {
			return t, true
		}
	}
	return Tenant{}, false
}

// annotateAdvertising re-derives the advertising flag for every tenant in
// the set: present in the set without a formal subscription record, or
// explicitly flagged by the resolved tenant's metadata.
func (r *Resolver) annotateAdvertising(ctx context.Context, set Set, selectedKey string, meta *Metadata) Set {
	subs, err := r.service.Subscriptions(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Msg("subscription lookup failed, keeping existing advertising flags")
		return set
	}
	subscribed := make(map[string]bool, len(subs))
	for _, sub := range subs {
		if sub.Active {
			subscribed[sub.TenantKey] = true
		}
	}
	for i := range set {
		adv := !subscribed[set[i].Key]
		if meta != nil && meta.Advertising && set[i].Key == selectedKey {
			adv = true
		}
		set[i].Advertising = adv
	}
	return set
}

func (r *Resolver) fail(ctx context.Context, err error) *Result {
	r.logger.Error().Err(err).Msg("tenant resolution failed")
	if r.onFailure != nil {
		r.onFailure(ctx, err.Error())
	}
	r.navigator.RedirectToAuth(ctx, nav.AuthRedirect{SavePath: true})
	return &Result{Redirected: true}
}
