// Package mentors resolves which mentor the user lands on within a resolved
// tenant, following a fixed priority cascade across the backend's mentor
// listings, with an admin-only auto-provisioning fallback.
package mentors

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/internal/metrics"
	"github.com/iblai/go-mentor-session/nav"
	"github.com/iblai/go-mentor-session/tenants"
)

// NotFoundHandler is invoked when a deep-linked mentor does not exist within
// the resolved tenant. Supplying one suppresses the fallback cascade.
type NotFoundHandler func(ctx context.Context, mentorID string)

// Input is what mentor resolution needs from the tenant stage.
type Input struct {
	Tenant      tenants.Tenant
	Metadata    *tenants.Metadata
	RequestedID string
	NotFound    NotFoundHandler
}

// Result is the resolved mentor, or nothing when resolution ended in a
// navigation side effect or was delegated to a NotFoundHandler.
type Result struct {
	Mentor     *Mentor
	Redirected bool
}

// Deps holds the required collaborators for the Resolver.
type Deps struct {
	Service     Service
	Permissions PermissionsService
	Navigator   nav.Navigator
}

// Resolver runs the mentor stage.
type Resolver struct {
	service     Service
	permissions PermissionsService
	navigator   nav.Navigator
	sink        nav.PermissionsSink

	onFailure func(ctx context.Context, reason string)

	logger  zerolog.Logger
	metrics *metrics.Metrics
}

// Option modifies the Resolver.
type Option func(*Resolver)

// WithPermissionsSink sets where loaded permission sets are delivered.
func WithPermissionsSink(sink nav.PermissionsSink) Option {
	return func(r *Resolver) { r.sink = sink }
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

// NewResolver initializes the mentor stage with required dependencies.
func NewResolver(deps Deps, options ...Option) (*Resolver, error) {
	if deps.Service == nil {
		return nil, errors.New("[NewResolver] Service is required")
	}
	if deps.Permissions == nil {
		return nil, errors.New("[NewResolver] Permissions is required")
	}
	if deps.Navigator == nil {
		return nil, errors.New("[NewResolver] Navigator is required")
	}

	r := &Resolver{
		service:     deps.Service,
		permissions: deps.Permissions,
		navigator:   deps.Navigator,
		logger:      zerolog.Nop(),
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Resolve picks the mentor for the tenant. It never returns an error:
// failures end in a redirect, reported through the result.
func (r *Resolver) Resolve(ctx context.Context, in Input) *Result {
	result := r.resolve(ctx, in)
	outcome := "resolved"
	switch {
	case result.Redirected:
		outcome = "redirected"
	case result.Mentor == nil:
		outcome = "delegated"
	}
	r.metrics.RecordStage("mentor", outcome)
	return result
}

func (r *Resolver) resolve(ctx context.Context, in Input) *Result {
	// Deep link: the mentor's existence within this tenant must be
	// re-verified, since requests may be stale or cross-tenant.
	if in.RequestedID != "" {
		m, err := r.service.Settings(ctx, in.Tenant.Key, in.RequestedID)
		switch {
		case err == nil && m != nil:
			return r.finalize(ctx, *m)
		case err != nil && !errors.Is(err, ErrMentorNotFound):
			return r.fail(ctx, errors.Wrap(err, "[resolve] verifying requested mentor"))
		case in.NotFound != nil:
			in.NotFound(ctx, in.RequestedID)
			return &Result{}
		}
		// No handler supplied: fall back to the full cascade.
	}

	return r.cascade(ctx, in)
}

func (r *Resolver) cascade(ctx context.Context, in Input) *Result {
	tenantKey := in.Tenant.Key

	// 1. Structured default-mentor override in tenant metadata.
	if in.Metadata != nil && in.Metadata.DefaultMentor != nil {
		m, err := r.service.Settings(ctx, tenantKey, in.Metadata.DefaultMentor.ID)
		if err == nil && m != nil {
			return r.finalize(ctx, *m)
		}
		r.logger.Warn().Err(err).Str("mentor", in.Metadata.DefaultMentor.ID).
			Msg("metadata default mentor unavailable, continuing cascade")
	}

	// 2. First starred mentor.
	if result, done := r.firstOf(ctx, in, func() ([]Mentor, error) {
		return r.service.Starred(ctx, tenantKey)
	}); done {
		return result
	}

	// 3. First recently accessed mentor.
	if result, done := r.firstOf(ctx, in, func() ([]Mentor, error) {
		return r.service.Recent(ctx, tenantKey)
	}); done {
		return result
	}

	// 4. Tenant catalog ordered by recent access.
	if result, done := r.firstOf(ctx, in, func() ([]Mentor, error) {
		return r.service.Featured(ctx, tenantKey, true)
	}); done {
		return result
	}

	// 5. Featured catalog, preferring a default-flagged mentor.
	featured, err := r.service.Featured(ctx, tenantKey, false)
	if err != nil {
		return r.fail(ctx, errors.Wrap(err, "[cascade] listing featured mentors"))
	}
	if len(featured) > 0 {
		return r.finalize(ctx, pickDefault(featured))
	}

	// 6. Anything outside the featured catalog.
	if result, done := r.firstOf(ctx, in, func() ([]Mentor, error) {
		return r.service.NonFeatured(ctx, tenantKey)
	}); done {
		return result
	}

	// 7/8. Empty tenant: admins get a seeded starter set, everyone else the
	// no-mentors page.
	if !in.Tenant.Admin {
		r.navigator.RedirectToNoMentors(ctx)
		return &Result{Redirected: true}
	}
	return r.seed(ctx, tenantKey)
}

func (r *Resolver) seed(ctx context.Context, tenantKey string) *Result {
	if err := r.service.Seed(ctx, tenantKey); err != nil {
		r.logger.Warn().Err(err).Str("tenant", tenantKey).Msg("mentor seeding failed")
		r.navigator.RedirectToCreateMentor(ctx)
		return &Result{Redirected: true}
	}
	featured, err := r.service.Featured(ctx, tenantKey, false)
	if err != nil || len(featured) == 0 {
		r.navigator.RedirectToCreateMentor(ctx)
		return &Result{Redirected: true}
	}
	return r.finalize(ctx, featured[0])
}

// firstOf runs one cascade query and finalizes on its first entry. The
// second return reports whether the cascade should stop.
func (r *Resolver) firstOf(ctx context.Context, in Input, query func() ([]Mentor, error)) (*Result, bool) {
	list, err := query()
	if err != nil {
		return r.fail(ctx, errors.Wrap(err, "[cascade] mentor lookup")), true
	}
	if len(list) == 0 {
		return nil, false
	}
	return r.finalize(ctx, list[0]), true
}

// finalize loads the mentor-scoped permission set before handing the mentor
// back. The permission fetch is a side channel: its failure is logged, not
// escalated.
func (r *Resolver) finalize(ctx context.Context, m Mentor) *Result {
	perms, err := r.permissions.MentorPermissions(ctx, m.InternalID)
	if err != nil {
		r.logger.Warn().Err(err).Str("mentor", m.ID).Msg("permission load failed")
		perms = nil
	}
	if r.sink != nil {
		r.sink.PermissionsLoaded(ctx, m.ID, perms)
	}
	return &Result{Mentor: &m}
}

func (r *Resolver) fail(ctx context.Context, err error) *Result {
	r.logger.Error().Err(err).Msg("mentor resolution failed")
	if r.onFailure != nil {
		r.onFailure(ctx, err.Error())
	}
	r.navigator.RedirectToAuth(ctx, nav.AuthRedirect{SavePath: true})
	return &Result{Redirected: true}
}

// pickDefault returns the first default-flagged mentor, falling back to the
// first entry.
func pickDefault(list []Mentor) Mentor {
	for _, m := range list {
		if m.Default {
			return m
		}
	}
	return list[0]
}
