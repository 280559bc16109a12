package tenants_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/iblai/go-mentor-session/cookies/cookiefakes"
	"github.com/iblai/go-mentor-session/nav"
	"github.com/iblai/go-mentor-session/nav/navfakes"
	"github.com/iblai/go-mentor-session/sessions"
	"github.com/iblai/go-mentor-session/storage"
	"github.com/iblai/go-mentor-session/storage/storagefakes"
	"github.com/iblai/go-mentor-session/tenants"
	"github.com/iblai/go-mentor-session/tenants/servicefakes"
	"github.com/iblai/go-mentor-session/token"
	"github.com/iblai/go-mentor-session/token/refresherfakes"
)

var _ tenants.CookieClearer = (*sessions.Syncer)(nil)

type tenantFixture struct {
	store     *storagefakes.FakeStore
	jar       *cookiefakes.FakeJar
	navigator *navfakes.FakeNavigator
	service   *servicefakes.FakeService
	refresher *refresherfakes.FakeRefresher
	resolver  *tenants.Resolver
}

func setupTenantFixture(t *testing.T, options ...tenants.Option) *tenantFixture {
	t.Helper()
	f := &tenantFixture{
		store:     storagefakes.NewFakeStore(),
		jar:       cookiefakes.NewFakeJar(),
		navigator: navfakes.NewFakeNavigator(),
		service:   servicefakes.NewFakeService(),
		refresher: refresherfakes.NewFakeRefresher(),
	}
	syncer := sessions.NewSyncer(f.store, f.jar, "example.com")
	resolver, err := tenants.NewResolver(tenants.Deps{
		Store:     f.store,
		Sync:      syncer,
		Navigator: f.navigator,
		Service:   f.service,
		Domains:   f.service,
		Refresher: f.refresher,
	}, options...)
	require.NoError(t, err)
	f.resolver = resolver
	return f
}

func (f *tenantFixture) seedSet(t *testing.T, set tenants.Set) {
	t.Helper()
	require.NoError(t, storage.WriteJSON(context.Background(), f.store, storage.KeyTenantList, set))
}

func (f *tenantFixture) seedCurrent(t *testing.T, tenant tenants.Tenant) {
	t.Helper()
	require.NoError(t, storage.WriteJSON(context.Background(), f.store, storage.KeyCurrentTenant, tenant))
}

// subscribe marks keys as actively subscribed so the advertising annotation
// leaves them alone.
func (f *tenantFixture) subscribe(keys ...string) {
	for _, k := range keys {
		f.service.Subs = append(f.service.Subs, tenants.Subscription{TenantKey: k, Active: true})
	}
}

func TestResolveExplicitRequestWins(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1", Name: "Alpha"}, {Key: "t2"}})
	f.seedCurrent(t, tenants.Tenant{Key: "t1"})
	f.subscribe("t1", "t2")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/t/t1", TenantKey: "t1"},
	})

	require.False(t, result.Redirected)
	require.Equal(t, "t1", result.Tenant.Key)
	require.Equal(t, "Alpha", result.Tenant.Name)
	require.Empty(t, f.navigator.TenantRedirects)
}

func TestResolveFallsBackToValidCurrentTenant(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}, {Key: "t3"}})
	f.seedCurrent(t, tenants.Tenant{Key: "t1"})
	f.subscribe("t1", "t3")

	// Requested tenant is not in the user's set; the stored current tenant
	// wins over positional fallback.
	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/t/t2", TenantKey: "t2"},
	})

	require.False(t, result.Redirected)
	require.Equal(t, "t1", result.Tenant.Key)

	current, found, err := storage.ReadJSON[tenants.Tenant](context.Background(), f.store, storage.KeyCurrentTenant)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "t1", current.Key)
}

func TestResolveFirstTenantWhenNoCurrent(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}, {Key: "t3"}})
	f.subscribe("t1", "t3")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard"},
	})

	require.False(t, result.Redirected)
	require.Equal(t, "t1", result.Tenant.Key)
}

func TestResolveEmptySetFails(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{})

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard"},
	})

	require.True(t, result.Redirected)
	require.Len(t, f.navigator.AuthRedirects, 1)
	require.False(t, f.navigator.AuthRedirects[0].Logout)
}

func TestResolveTwoTenantWorkaroundSwitchesOffMain(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "main"}, {Key: "acme"}})
	f.subscribe("main", "acme")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard"},
	})

	require.True(t, result.Redirected)
	require.Equal(t, "acme", result.Tenant.Key)
	require.Equal(t, []string{"acme"}, f.navigator.TenantRedirects)
}

func TestResolveWorkaroundSkippedWhenOtherRequested(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "main"}, {Key: "acme"}})
	f.subscribe("main", "acme")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/t/acme", TenantKey: "acme"},
	})

	// Explicitly requesting the non-main tenant selects it directly, no
	// switch redirect needed.
	require.False(t, result.Redirected)
	require.Equal(t, "acme", result.Tenant.Key)
	require.Empty(t, f.navigator.TenantRedirects)
}

func TestResolveDomainViolationForcesLogout(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}})
	f.service.HostMap["portal.ghost.io"] = "ghost"

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard", Host: "portal.ghost.io"},
	})

	require.True(t, result.Redirected)
	require.Len(t, f.navigator.AuthRedirects, 1)
	require.True(t, f.navigator.AuthRedirects[0].Logout)
}

func TestResolvePublicRouteWithoutTenant(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}})

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route:  nav.Route{Path: "/public/share/abc"},
		Public: true,
	})

	require.False(t, result.Redirected)
	require.Empty(t, result.Tenant.Key, "public routes resolve no tenant unless one is requested")
}

func TestResolveVisitingJoinFailure(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}})
	f.service.JoinErr = errors.New("join rejected")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route:  nav.Route{Path: "/public/acme", TenantKey: "acme"},
		Public: true,
	})

	require.False(t, result.Redirected)
	require.True(t, result.Visiting)
	require.Equal(t, "acme", result.Tenant.Key)
	require.True(t, result.Tenant.Advertising)
	require.Equal(t, []string{"acme"}, f.service.JoinCalls)

	// Nothing was persisted for the visited tenant.
	_, found, err := f.store.Get(context.Background(), storage.KeyCurrentTenant)
	require.NoError(t, err)
	require.False(t, found)
}

func TestResolveVisitingSilentJoinSucceeds(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}})
	f.refresher.ForTenantResult = &token.Pair{
		Token:            "scoped-token",
		ExpiresAt:        time.Now().Add(time.Hour),
		SessionExpiresAt: time.Now().Add(time.Hour),
	}

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route:  nav.Route{Path: "/public/acme", TenantKey: "acme"},
		Public: true,
	})

	require.False(t, result.Redirected)
	require.False(t, result.Visiting)
	require.Equal(t, "acme", result.Tenant.Key)
	require.Equal(t, []string{"acme"}, f.refresher.ForTenantCalls)

	cred, err := token.Load(context.Background(), f.store)
	require.NoError(t, err)
	require.Equal(t, "scoped-token", cred.Token)

	set, _, err := storage.ReadJSON[tenants.Set](context.Background(), f.store, storage.KeyTenantList)
	require.NoError(t, err)
	require.True(t, set.Contains("acme"))
}

func TestResolveSwitchRedirectsWhenCurrentChanges(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}, {Key: "t2"}, {Key: "t3"}})
	f.seedCurrent(t, tenants.Tenant{Key: "t1"})
	f.subscribe("t1", "t2", "t3")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/t/t2", TenantKey: "t2"},
	})

	require.True(t, result.Redirected)
	require.Equal(t, []string{"t2"}, f.navigator.TenantRedirects)
}

func TestResolveAdvertisingAnnotation(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}, {Key: "t2"}})
	f.seedCurrent(t, tenants.Tenant{Key: "t1"})
	f.subscribe("t1")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard"},
	})

	require.False(t, result.Redirected)
	sub, ok := result.Set.Get("t1")
	require.True(t, ok)
	require.False(t, sub.Advertising)
	unsub, ok := result.Set.Get("t2")
	require.True(t, ok)
	require.True(t, unsub.Advertising)
}

func TestResolveSubscriptionLookupFailureIsNonFatal(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1", Advertising: true}})
	f.seedCurrent(t, tenants.Tenant{Key: "t1"})
	f.service.SubsErr = errors.New("subscriptions unavailable")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard"},
	})

	require.False(t, result.Redirected)
	existing, ok := result.Set.Get("t1")
	require.True(t, ok)
	require.True(t, existing.Advertising, "existing flags survive a failed lookup")
}

func TestResolveAlternateAppTenantNotPersisted(t *testing.T) {
	f := setupTenantFixture(t, tenants.WithAppDomain("mentor.example.com"))
	f.seedSet(t, tenants.Set{{Key: "t1"}})
	f.subscribe("t1")
	f.service.MetadataByKey["t1"] = &tenants.Metadata{ActiveApp: "skills.example.com"}

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard"},
	})

	require.False(t, result.Redirected)
	require.Equal(t, "t1", result.Tenant.Key)

	_, found, err := f.store.Get(context.Background(), storage.KeyCurrentTenant)
	require.NoError(t, err)
	require.False(t, found, "tenants owned by sibling applications are not persisted as current")
}

func TestResolveMetadataFailureIsFatal(t *testing.T) {
	f := setupTenantFixture(t)
	f.seedSet(t, tenants.Set{{Key: "t1"}})
	f.service.MetadataErr = errors.New("metadata unavailable")

	result := f.resolver.Resolve(context.Background(), tenants.Input{
		Route: nav.Route{Path: "/dashboard"},
	})

	require.True(t, result.Redirected)
	require.Len(t, f.navigator.AuthRedirects, 1)
}
