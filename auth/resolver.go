// Package auth validates the stored session credential against the
// navigation target: whether the route needs authentication at all, whether
// the credential is live under both expiry checks, and whether its embedded
// subject matches the stored identity. Every failure funnels into a single
// redirect to the external authentication service.
package auth

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/internal/metrics"
	"github.com/iblai/go-mentor-session/nav"
	"github.com/iblai/go-mentor-session/storage"
	"github.com/iblai/go-mentor-session/token"
	"github.com/iblai/go-mentor-session/users"
)

// State is the outcome of an auth resolution pass.
type State int

const (
	// StateDetermining is the initial state while checks run.
	StateDetermining State = iota
	// StateAuthenticated allows downstream stages to proceed.
	StateAuthenticated
	// StateRedirecting is terminal: the browser is leaving for the external
	// auth service and nothing downstream may run.
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRedirecting:
		return "redirecting"
	default:
		return "determining"
	}
}

// Result carries the resolution outcome downstream.
type Result struct {
	State    State
	Identity users.Identity
	// Public marks routes that never required authentication; the tenant
	// stage relaxes membership requirements for them.
	Public bool
}

// CookieClearer drops the cross-application cookie mirror during a logout
// redirect. sessions.Syncer satisfies it.
type CookieClearer interface {
	ClearSharedCookies()
}

// Deps holds the required collaborators for the Resolver.
type Deps struct {
	Store     storage.Store
	Sync      CookieClearer
	Navigator nav.Navigator
	Refresher token.Refresher
}

// Resolver runs the auth stage.
type Resolver struct {
	store     storage.Store
	sync      CookieClearer
	navigator nav.Navigator
	refresher token.Refresher
	rules     Rules

	onAuthenticated func(ctx context.Context, identity users.Identity)
	onFailure       func(ctx context.Context, reason string)

	logger  zerolog.Logger
	metrics *metrics.Metrics
	nowTime func() time.Time
}

// Option modifies the Resolver.
type Option func(*Resolver)

// WithRules installs the route-to-predicate table.
func WithRules(rules Rules) Option {
	return func(r *Resolver) { r.rules = rules }
}

// WithOnAuthenticated sets the host success callback.
func WithOnAuthenticated(fn func(ctx context.Context, identity users.Identity)) Option {
	return func(r *Resolver) { r.onAuthenticated = fn }
}

// WithOnFailure sets the host failure callback, invoked with a stringified
// reason before the generic auth redirect.
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

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(r *Resolver) { r.nowTime = nowFunc }
}

// NewResolver initializes the auth stage with required dependencies.
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
	if deps.Refresher == nil {
		return nil, errors.New("[NewResolver] Refresher is required")
	}

	r := &Resolver{
		store:     deps.Store,
		sync:      deps.Sync,
		navigator: deps.Navigator,
		refresher: deps.Refresher,
		logger:    zerolog.Nop(),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Resolve runs the auth checks for a route. It never returns an error:
// every failure path ends in a redirect, reported through the result state.
func (r *Resolver) Resolve(ctx context.Context, route nav.Route) *Result {
	result := r.resolve(ctx, route)
	r.metrics.RecordStage("auth", result.State.String())
	return result
}

func (r *Resolver) resolve(ctx context.Context, route nav.Route) *Result {
	// A credential carried directly on the route is honored by the
	// downstream surface; the requirement check is bypassed entirely.
	if route.InlineToken != "" {
		return r.authenticated(ctx, users.Identity{}, true)
	}

	required, err := r.rules.RequiresAuth(ctx, route)
	if err != nil {
		return r.fail(ctx, errors.Wrap(err, "[Resolve] evaluating route rules"))
	}
	if !required {
		// Public-route fast path: no credential checks at all.
		identity, _, err := storage.ReadJSON[users.Identity](ctx, r.store, storage.KeyIdentity)
		if err != nil {
			return r.fail(ctx, err)
		}
		return r.authenticated(ctx, identity, true)
	}

	cred, err := token.Load(ctx, r.store)
	if err != nil && !errors.Is(err, token.ErrNoCredential) {
		return r.fail(ctx, err)
	}

	now := r.nowTime()
	if cred.Empty() || cred.Expired(now) {
		r.logger.Info().Msg("credential missing or expired, redirecting to auth")
		return r.redirectToAuth(ctx, true)
	}
	if cred.SessionExpired(now) {
		r.logger.Info().Msg("session expiry reached, redirecting to auth")
		return r.redirectToAuth(ctx, true)
	}

	identity, _, err := storage.ReadJSON[users.Identity](ctx, r.store, storage.KeyIdentity)
	if err != nil {
		return r.fail(ctx, err)
	}

	subject, subErr := cred.Subject()
	if subErr != nil || subject != identity.UserID {
		// One refresh attempt. On failure the redirect is terminal; the
		// check never continues past it.
		pair, refreshErr := r.refresher.Refresh(ctx)
		if refreshErr != nil {
			r.metrics.RecordRefresh("failure")
			r.logger.Warn().Err(refreshErr).Msg("credential refresh failed, redirecting to auth")
			return r.redirectToAuth(ctx, false)
		}
		if err := token.Save(ctx, r.store, *pair); err != nil {
			return r.fail(ctx, err)
		}
		r.metrics.RecordRefresh("success")
	}

	return r.authenticated(ctx, identity, false)
}

func (r *Resolver) authenticated(ctx context.Context, identity users.Identity, public bool) *Result {
	if r.onAuthenticated != nil {
		r.onAuthenticated(ctx, identity)
	}
	return &Result{State: StateAuthenticated, Identity: identity, Public: public}
}

// redirectToAuth performs the single fatal side effect: expired or absent
// credentials clear the shared cookies and carry the logout flag, so the
// external service tears the remote session down too.
func (r *Resolver) redirectToAuth(ctx context.Context, logout bool) *Result {
	if logout {
		r.sync.ClearSharedCookies()
	}
	r.navigator.RedirectToAuth(ctx, nav.AuthRedirect{Logout: logout, SavePath: !logout})
	return &Result{State: StateRedirecting}
}

// fail handles unexpected errors: report through the failure callback, then
// take the generic auth redirect without logout semantics.
func (r *Resolver) fail(ctx context.Context, err error) *Result {
	r.logger.Error().Err(err).Msg("auth resolution failed")
	if r.onFailure != nil {
		r.onFailure(ctx, err.Error())
	}
	r.navigator.RedirectToAuth(ctx, nav.AuthRedirect{SavePath: true})
	return &Result{State: StateRedirecting}
}
