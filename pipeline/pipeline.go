// Package pipeline composes the resolution stages (session sync, auth,
// tenant, mentor) into one ordered pass. Each stage either yields state for
// the next or ends the pass with a navigation side effect; ordering is
// enforced here instead of being implied by mount order in the embedding
// application.
package pipeline

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/auth"
	"github.com/iblai/go-mentor-session/mentors"
	"github.com/iblai/go-mentor-session/nav"
	"github.com/iblai/go-mentor-session/sessions"
	"github.com/iblai/go-mentor-session/tenants"
	"github.com/iblai/go-mentor-session/users"
)

// Session is a fully resolved session context.
type Session struct {
	Identity users.Identity
	Tenant   tenants.Tenant
	Metadata *tenants.Metadata
	Mentor   *mentors.Mentor
	// Visiting marks a tenant the user has not formally joined.
	Visiting bool
}

// Result reports how far a resolution pass got. When Redirected is set the
// browser is navigating away and Session must not be rendered; Stage names
// the stage that ended the pass.
type Result struct {
	Session    *Session
	Redirected bool
	Stage      string
}

// Runner owns the stage ordering.
type Runner struct {
	sync   *sessions.Syncer
	auth   *auth.Resolver
	tenant *tenants.Resolver
	mentor *mentors.Resolver
	logger zerolog.Logger

	notFound mentors.NotFoundHandler
}

// Option modifies the Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithMentorNotFound installs a handler for deep-linked mentors missing
// from the resolved tenant; supplying one suppresses the fallback cascade.
func WithMentorNotFound(fn mentors.NotFoundHandler) Option {
	return func(r *Runner) { r.notFound = fn }
}

// New wires the four stages together.
func New(syncer *sessions.Syncer, authResolver *auth.Resolver, tenantResolver *tenants.Resolver, mentorResolver *mentors.Resolver, options ...Option) (*Runner, error) {
	if syncer == nil {
		return nil, errors.New("[New] syncer is required")
	}
	if authResolver == nil {
		return nil, errors.New("[New] auth resolver is required")
	}
	if tenantResolver == nil {
		return nil, errors.New("[New] tenant resolver is required")
	}
	if mentorResolver == nil {
		return nil, errors.New("[New] mentor resolver is required")
	}
	r := &Runner{
		sync:   syncer,
		auth:   authResolver,
		tenant: tenantResolver,
		mentor: mentorResolver,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Resolve runs one full resolution pass for a route. The initial sync pass
// runs first so the auth check never sees stale mirrored state; every later
// stage runs only if its upstream proceeded.
func (r *Runner) Resolve(ctx context.Context, route nav.Route) *Result {
	// Initial sync: cookies win, then push the reconciled state back out.
	if _, err := r.sync.PullFromCookies(ctx); err != nil {
		r.logger.Warn().Err(err).Msg("initial cookie pull failed")
	}
	r.sync.PushToCookies(ctx)

	authResult := r.auth.Resolve(ctx, route)
	if authResult.State != auth.StateAuthenticated {
		return &Result{Redirected: true, Stage: "auth"}
	}

	tenantResult := r.tenant.Resolve(ctx, tenants.Input{
		Route:    route,
		Public:   authResult.Public,
		Identity: authResult.Identity,
	})
	if tenantResult.Redirected {
		return &Result{Redirected: true, Stage: "tenant"}
	}

	session := &Session{
		Identity: authResult.Identity,
		Tenant:   tenantResult.Tenant,
		Metadata: tenantResult.Metadata,
		Visiting: tenantResult.Visiting,
	}

	// Public routes can finish without a tenant; there is no mentor to
	// resolve in that case.
	if tenantResult.Tenant.Key == "" {
		return &Result{Session: session, Stage: "tenant"}
	}

	mentorResult := r.mentor.Resolve(ctx, mentors.Input{
		Tenant:      tenantResult.Tenant,
		Metadata:    tenantResult.Metadata,
		RequestedID: route.MentorID,
		NotFound:    r.notFound,
	})
	if mentorResult.Redirected {
		return &Result{Redirected: true, Stage: "mentor"}
	}
	session.Mentor = mentorResult.Mentor
	return &Result{Session: session, Stage: "mentor"}
}
