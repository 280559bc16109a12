package servicefakes

import (
	"context"
	"sync"

	"github.com/iblai/go-mentor-session/mentors"
)

var (
	_ mentors.Service            = (*FakeService)(nil)
	_ mentors.PermissionsService = (*FakePermissions)(nil)
)

// FakeService is a scriptable mentors.Service. Listings are keyed per
// tenant; the recent-ordered featured listing is scripted separately so
// tests can drive each cascade step independently.
type FakeService struct {
	StarredByTenant     map[string][]mentors.Mentor
	RecentByTenant      map[string][]mentors.Mentor
	FeaturedByTenant    map[string][]mentors.Mentor
	ByRecentByTenant    map[string][]mentors.Mentor
	NonFeaturedByTenant map[string][]mentors.Mentor
	SettingsByID        map[string]*mentors.Mentor
	LookupErr           error
	SeedErr             error
	SeedCalls           []string
	// OnSeed lets tests make seeding populate the featured listing.
	OnSeed func(tenantKey string)

	lock sync.Mutex
}

func NewFakeService() *FakeService {
	return &FakeService{
		StarredByTenant:     make(map[string][]mentors.Mentor),
		RecentByTenant:      make(map[string][]mentors.Mentor),
		FeaturedByTenant:    make(map[string][]mentors.Mentor),
		ByRecentByTenant:    make(map[string][]mentors.Mentor),
		NonFeaturedByTenant: make(map[string][]mentors.Mentor),
		SettingsByID:        make(map[string]*mentors.Mentor),
	}
}

func (f *FakeService) Starred(_ context.Context, tenantKey string) ([]mentors.Mentor, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.StarredByTenant[tenantKey], f.LookupErr
}

func (f *FakeService) Recent(_ context.Context, tenantKey string) ([]mentors.Mentor, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.RecentByTenant[tenantKey], f.LookupErr
}

func (f *FakeService) Featured(_ context.Context, tenantKey string, orderedByRecent bool) ([]mentors.Mentor, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if orderedByRecent {
		return f.ByRecentByTenant[tenantKey], f.LookupErr
	}
	return f.FeaturedByTenant[tenantKey], f.LookupErr
}

func (f *FakeService) NonFeatured(_ context.Context, tenantKey string) ([]mentors.Mentor, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.NonFeaturedByTenant[tenantKey], f.LookupErr
}

func (f *FakeService) Settings(_ context.Context, tenantKey, mentorID string) (*mentors.Mentor, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if m, ok := f.SettingsByID[tenantKey+"/"+mentorID]; ok {
		return m, nil
	}
	return nil, mentors.ErrMentorNotFound
}

func (f *FakeService) Seed(_ context.Context, tenantKey string) error {
	f.lock.Lock()
	f.SeedCalls = append(f.SeedCalls, tenantKey)
	seedErr := f.SeedErr
	onSeed := f.OnSeed
	f.lock.Unlock()
	if seedErr != nil {
		return seedErr
	}
	if onSeed != nil {
		onSeed(tenantKey)
	}
	return nil
}

// FakePermissions returns a fixed permission set per internal mentor ID.
type FakePermissions struct {
	ByInternalID map[int64][]string
	Err          error
	Calls        []int64

	lock sync.Mutex
}

func NewFakePermissions() *FakePermissions {
	return &FakePermissions{ByInternalID: make(map[int64][]string)}
}

func (f *FakePermissions) MentorPermissions(_ context.Context, internalID int64) ([]string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.Calls = append(f.Calls, internalID)
	if f.Err != nil {
		return nil, f.Err
	}
	return f.ByInternalID[internalID], nil
}
