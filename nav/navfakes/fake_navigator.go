package navfakes

import (
	"context"
	"sync"

	"github.com/iblai/go-mentor-session/nav"
)

var (
	_ nav.Navigator       = (*FakeNavigator)(nil)
	_ nav.PermissionsSink = (*FakeNavigator)(nil)
)

// FakeNavigator records every navigation and permission delivery for
// assertions.
type FakeNavigator struct {
	AuthRedirects    []nav.AuthRedirect
	TenantRedirects  []string
	MentorRedirects  []nav.MentorRef
	CreateRedirects  int
	NoMentorRedirs   int
	Refreshes        []string
	PermissionsCalls []PermissionsCall

	lock sync.Mutex
}

type PermissionsCall struct {
	MentorID    string
	Permissions []string
}

func NewFakeNavigator() *FakeNavigator {
	return &FakeNavigator{}
}

func (f *FakeNavigator) RedirectToAuth(_ context.Context, r nav.AuthRedirect) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.AuthRedirects = append(f.AuthRedirects, r)
}

func (f *FakeNavigator) RedirectToTenant(_ context.Context, tenantKey string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.TenantRedirects = append(f.TenantRedirects, tenantKey)
}

func (f *FakeNavigator) RedirectToMentor(_ context.Context, m nav.MentorRef) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.MentorRedirects = append(f.MentorRedirects, m)
}

func (f *FakeNavigator) RedirectToCreateMentor(_ context.Context) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.CreateRedirects++
}

func (f *FakeNavigator) RedirectToNoMentors(_ context.Context) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.NoMentorRedirs++
}

func (f *FakeNavigator) Refresh(_ context.Context, tenantKey string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Refreshes = append(f.Refreshes, tenantKey)
}

func (f *FakeNavigator) PermissionsLoaded(_ context.Context, mentorID string, permissions []string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.PermissionsCalls = append(f.PermissionsCalls, PermissionsCall{MentorID: mentorID, Permissions: permissions})
}

// Redirected reports whether any fatal navigation happened.
func (f *FakeNavigator) Redirected() bool {
	f.lock.Lock()
	defer f.lock.Unlock()
	return len(f.AuthRedirects)+len(f.TenantRedirects)+f.CreateRedirects+f.NoMentorRedirs > 0
}
