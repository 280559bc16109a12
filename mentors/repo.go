package mentors

import (
	"context"

	"github.com/pkg/errors"
)

// ErrMentorNotFound is returned by Settings when the mentor does not exist
// within the tenant.
var ErrMentorNotFound = errors.New("mentor not found")

// Service is the backend surface mentor resolution consumes. Mentor sets
// are tenant-scoped; every lookup carries the tenant key.
type Service interface {
	// Starred lists the user's starred mentors for the tenant.
	Starred(ctx context.Context, tenantKey string) ([]Mentor, error)
	// Recent lists the user's recently accessed mentors for the tenant.
	Recent(ctx context.Context, tenantKey string) ([]Mentor, error)
	// Featured lists the tenant's featured catalog, optionally ordered by
	// the user's recent access.
	Featured(ctx context.Context, tenantKey string, orderedByRecent bool) ([]Mentor, error)
	// NonFeatured lists mentors outside the featured catalog.
	NonFeatured(ctx context.Context, tenantKey string) ([]Mentor, error)
	// Settings looks a specific mentor up within the tenant, returning
	// ErrMentorNotFound when absent. Used to re-verify deep links, which may
	// be stale or cross-tenant.
	Settings(ctx context.Context, tenantKey, mentorID string) (*Mentor, error)
	// Seed auto-provisions a starter set of mentors for an empty tenant.
	Seed(ctx context.Context, tenantKey string) error
}

// PermissionsService evaluates the RBAC permission set for a mentor by its
// internal numeric identifier.
type PermissionsService interface {
	MentorPermissions(ctx context.Context, internalID int64) ([]string, error)
}
