// Package nav holds the capability interfaces the embedding application
// injects once: where to send the browser when resolution cannot proceed,
// and where loaded permission sets are delivered.
package nav

import "context"

// AuthRedirect parameterizes a redirect to the external authentication
// service.
type AuthRedirect struct {
	Logout   bool   // Clear the remote session as well (expired/invalid credential)
	Tenant   string // Optional tenant to land on after authentication
	SavePath bool   // Ask the auth surface to return to the current path
}

// MentorRef names a mentor as a navigation target without carrying the full
// mentor record.
type MentorRef struct {
	ID   string
	Name string
}

// Navigator is the single navigation capability the pipeline needs. Every
// fatal resolution path funnels into exactly one of these calls; the
// pipeline renders nothing after invoking any of them.
type Navigator interface {
	// RedirectToAuth sends the browser to the external authentication service.
	RedirectToAuth(ctx context.Context, r AuthRedirect)
	// RedirectToTenant switches the application to another tenant context.
	RedirectToTenant(ctx context.Context, tenantKey string)
	// RedirectToMentor lands the user on a resolved mentor.
	RedirectToMentor(ctx context.Context, m MentorRef)
	// RedirectToCreateMentor sends an admin to the mentor-creation flow.
	RedirectToCreateMentor(ctx context.Context)
	// RedirectToNoMentors sends a non-admin to the "no mentors available" page.
	RedirectToNoMentors(ctx context.Context)
	// Refresh reloads the current application, optionally preserving a tenant.
	Refresh(ctx context.Context, tenantKey string)
}

// PermissionsSink receives the mentor-scoped permission set loaded as a side
// channel of mentor resolution.
type PermissionsSink interface {
	PermissionsLoaded(ctx context.Context, mentorID string, permissions []string)
}
