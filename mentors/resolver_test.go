package mentors_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/iblai/go-mentor-session/mentors"
	"github.com/iblai/go-mentor-session/mentors/servicefakes"
	"github.com/iblai/go-mentor-session/nav/navfakes"
	"github.com/iblai/go-mentor-session/tenants"
)

type mentorFixture struct {
	service     *servicefakes.FakeService
	permissions *servicefakes.FakePermissions
	navigator   *navfakes.FakeNavigator
	resolver    *mentors.Resolver
}

func setupMentorFixture(t *testing.T, options ...mentors.Option) *mentorFixture {
	t.Helper()
	f := &mentorFixture{
		service:     servicefakes.NewFakeService(),
		permissions: servicefakes.NewFakePermissions(),
		navigator:   navfakes.NewFakeNavigator(),
	}
	options = append([]mentors.Option{mentors.WithPermissionsSink(f.navigator)}, options...)
	resolver, err := mentors.NewResolver(mentors.Deps{
		Service:     f.service,
		Permissions: f.permissions,
		Navigator:   f.navigator,
	}, options...)
	require.NoError(t, err)
	f.resolver = resolver
	return f
}

func acmeInput() mentors.Input {
	return mentors.Input{Tenant: tenants.Tenant{Key: "acme"}}
}

func TestCascadePriorityOrder(t *testing.T) {
	m := func(id string) mentors.Mentor { return mentors.Mentor{ID: id} }

	tests := []struct {
		name     string
		setup    func(f *mentorFixture)
		metadata *tenants.Metadata
		want     string
	}{
		{
			name: "metadata default mentor wins",
			setup: func(f *mentorFixture) {
				f.service.SettingsByID["acme/m-default"] = &mentors.Mentor{ID: "m-default"}
				f.service.StarredByTenant["acme"] = []mentors.Mentor{m("m-starred")}
			},
			metadata: &tenants.Metadata{DefaultMentor: &tenants.MentorRef{ID: "m-default"}},
			want:     "m-default",
		},
		{
			name: "starred beats recent",
			setup: func(f *mentorFixture) {
				f.service.StarredByTenant["acme"] = []mentors.Mentor{m("m-starred"), m("m-starred2")}
				f.service.RecentByTenant["acme"] = []mentors.Mentor{m("m-recent")}
			},
			want: "m-starred",
		},
		{
			name: "recent beats catalog",
			setup: func(f *mentorFixture) {
				f.service.RecentByTenant["acme"] = []mentors.Mentor{m("m-recent")}
				f.service.ByRecentByTenant["acme"] = []mentors.Mentor{m("m-cat")}
			},
			want: "m-recent",
		},
		{
			name: "recent-ordered catalog beats plain featured",
			setup: func(f *mentorFixture) {
				f.service.ByRecentByTenant["acme"] = []mentors.Mentor{m("m-cat")}
				f.service.FeaturedByTenant["acme"] = []mentors.Mentor{m("m-feat")}
			},
			want: "m-cat",
		},
		{
			name: "featured prefers default flag",
			setup: func(f *mentorFixture) {
				f.service.FeaturedByTenant["acme"] = []mentors.Mentor{
					m("m-feat1"),
					{ID: "m-feat2", Default: true},
				}
			},
			want: "m-feat2",
		},
		{
			name: "featured falls back to first without default flag",
			setup: func(f *mentorFixture) {
				f.service.FeaturedByTenant["acme"] = []mentors.Mentor{m("m-feat1"), m("m-feat2")}
			},
			want: "m-feat1",
		},
		{
			name: "non-featured is the last listing",
			setup: func(f *mentorFixture) {
				f.service.NonFeaturedByTenant["acme"] = []mentors.Mentor{m("m-other")}
			},
			want: "m-other",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := setupMentorFixture(t)
			tc.setup(f)

			in := acmeInput()
			in.Metadata = tc.metadata

			result := f.resolver.Resolve(context.Background(), in)
			require.False(t, result.Redirected)
			require.NotNil(t, result.Mentor)
			require.Equal(t, tc.want, result.Mentor.ID)
		})
	}
}

func TestCascadeIsDeterministic(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.FeaturedByTenant["acme"] = []mentors.Mentor{
		{ID: "m1", Default: true},
		{ID: "m2"},
	}

	for i := 0; i < 3; i++ {
		result := f.resolver.Resolve(context.Background(), acmeInput())
		require.NotNil(t, result.Mentor)
		require.Equal(t, "m1", result.Mentor.ID)
	}
}

func TestDeepLinkReVerifiesExistence(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.SettingsByID["acme/m7"] = &mentors.Mentor{ID: "m7", InternalID: 7}

	in := acmeInput()
	in.RequestedID = "m7"

	result := f.resolver.Resolve(context.Background(), in)
	require.False(t, result.Redirected)
	require.Equal(t, "m7", result.Mentor.ID)
}

func TestDeepLinkNotFoundHandlerSuppressesCascade(t *testing.T) {
	f := setupMentorFixture(t)
	// The cascade would resolve this mentor if it ran.
	f.service.StarredByTenant["acme"] = []mentors.Mentor{{ID: "m-starred"}}

	var handled []string
	in := acmeInput()
	in.RequestedID = "m9"
	in.NotFound = func(_ context.Context, mentorID string) {
		handled = append(handled, mentorID)
	}

	result := f.resolver.Resolve(context.Background(), in)

	require.Equal(t, []string{"m9"}, handled)
	require.Nil(t, result.Mentor)
	require.False(t, result.Redirected)
	require.False(t, f.navigator.Redirected())
}

func TestDeepLinkNotFoundWithoutHandlerRunsCascade(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.StarredByTenant["acme"] = []mentors.Mentor{{ID: "m-starred"}}

	in := acmeInput()
	in.RequestedID = "m9"

	result := f.resolver.Resolve(context.Background(), in)
	require.NotNil(t, result.Mentor)
	require.Equal(t, "m-starred", result.Mentor.ID)
}

func TestEmptyTenantNonAdminRedirectsToNoMentors(t *testing.T) {
	f := setupMentorFixture(t)

	result := f.resolver.Resolve(context.Background(), acmeInput())

	require.True(t, result.Redirected)
	require.Equal(t, 1, f.navigator.NoMentorRedirs)
	require.Empty(t, f.service.SeedCalls)
}

func TestEmptyTenantAdminSeedsStarterSet(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.OnSeed = func(tenantKey string) {
		f.service.FeaturedByTenant[tenantKey] = []mentors.Mentor{{ID: "m-seeded"}}
	}

	in := acmeInput()
	in.Tenant.Admin = true

	result := f.resolver.Resolve(context.Background(), in)

	require.False(t, result.Redirected)
	require.Equal(t, []string{"acme"}, f.service.SeedCalls)
	require.Equal(t, "m-seeded", result.Mentor.ID)
}

func TestSeedFailureRedirectsToCreateMentor(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.SeedErr = errors.New("seeding unavailable")

	in := acmeInput()
	in.Tenant.Admin = true

	result := f.resolver.Resolve(context.Background(), in)

	require.True(t, result.Redirected)
	require.Equal(t, 1, f.navigator.CreateRedirects)
}

func TestSeedYieldingNothingRedirectsToCreateMentor(t *testing.T) {
	f := setupMentorFixture(t)

	in := acmeInput()
	in.Tenant.Admin = true

	result := f.resolver.Resolve(context.Background(), in)

	require.True(t, result.Redirected)
	require.Equal(t, []string{"acme"}, f.service.SeedCalls)
	require.Equal(t, 1, f.navigator.CreateRedirects)
}

func TestFinalizeDeliversPermissions(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.FeaturedByTenant["acme"] = []mentors.Mentor{{ID: "m1", InternalID: 42}}
	f.permissions.ByInternalID[42] = []string{"chat", "upload"}

	result := f.resolver.Resolve(context.Background(), acmeInput())

	require.NotNil(t, result.Mentor)
	require.Equal(t, []int64{42}, f.permissions.Calls)
	require.Len(t, f.navigator.PermissionsCalls, 1)
	require.Equal(t, "m1", f.navigator.PermissionsCalls[0].MentorID)
	require.Equal(t, []string{"chat", "upload"}, f.navigator.PermissionsCalls[0].Permissions)
}

func TestPermissionLoadFailureIsNotFatal(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.FeaturedByTenant["acme"] = []mentors.Mentor{{ID: "m1", InternalID: 42}}
	f.permissions.Err = errors.New("rbac unavailable")

	result := f.resolver.Resolve(context.Background(), acmeInput())

	require.NotNil(t, result.Mentor)
	require.Len(t, f.navigator.PermissionsCalls, 1)
	require.Nil(t, f.navigator.PermissionsCalls[0].Permissions)
}

func TestMetadataDefaultUnavailableContinuesCascade(t *testing.T) {
	f := setupMentorFixture(t)
	f.service.StarredByTenant["acme"] = []mentors.Mentor{{ID: "m-starred"}}

	in := acmeInput()
	in.Metadata = &tenants.Metadata{DefaultMentor: &tenants.MentorRef{ID: "m-gone"}}

	result := f.resolver.Resolve(context.Background(), in)

	require.False(t, result.Redirected)
	require.Equal(t, "m-starred", result.Mentor.ID)
}
