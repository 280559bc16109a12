// sessioncheck runs one session resolution pass against a live platform
// backend and reports where it lands: resolved tenant and mentor, or the
// redirect that ended resolution. Session state (tokens, identity, tenants)
// is seeded from the environment into an in-memory mirror, making this a
// backend diagnostic rather than a browser.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/auth"
	"github.com/iblai/go-mentor-session/cookies"
	"github.com/iblai/go-mentor-session/cookies/cookiefakes"
	"github.com/iblai/go-mentor-session/internal/config"
	"github.com/iblai/go-mentor-session/internal/httpapi"
	"github.com/iblai/go-mentor-session/internal/metrics"
	"github.com/iblai/go-mentor-session/internal/utils"
	"github.com/iblai/go-mentor-session/mentors"
	"github.com/iblai/go-mentor-session/nav"
	"github.com/iblai/go-mentor-session/pipeline"
	"github.com/iblai/go-mentor-session/sessions"
	"github.com/iblai/go-mentor-session/storage"
	"github.com/iblai/go-mentor-session/storage/storagefakes"
	"github.com/iblai/go-mentor-session/tenants"
	"github.com/iblai/go-mentor-session/token"
	"github.com/iblai/go-mentor-session/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "sessioncheck: %s\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		path      = flag.String("path", "/", "route path to resolve")
		host      = flag.String("host", "", "browser hostname, for custom-domain tenant mapping")
		tenantKey = flag.String("tenant", "", "explicitly requested tenant")
		mentorID  = flag.String("mentor", "", "explicitly requested mentor (deep link)")
		watch     = flag.Bool("watch", false, "keep polling the shared cookie mirror after resolving")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	displayAppname("sessioncheck")

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().
		Timestamp().
		Str("run_id", uuid.NewString()).
		Logger()

	ctx := context.Background()
	store := storagefakes.NewFakeStore()
	jar := cookiefakes.NewFakeJar()
	seedFromEnv(ctx, store)

	domain := cfg.ParentDomain
	if domain == "" && *host != "" {
		domain = cookies.ParentDomain(*host)
	}

	collectors := metrics.New(nil)
	syncer := sessions.NewSyncer(store, jar, domain,
		sessions.WithCookieTTL(cfg.CookieTTL),
		sessions.WithSyncerLogger(logger),
		sessions.WithSyncerMetrics(collectors),
	)

	refresher := httpapi.NewRefresher(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret,
		func(context.Context) (string, error) { return os.Getenv("REFRESH_TOKEN"), nil })

	client := httpapi.NewClient(cfg.APIBaseURL,
		func(ctx context.Context) (string, error) {
			tok, _, err := store.Get(ctx, storage.KeyToken)
			return tok, err
		},
		httpapi.WithLogger(logger),
	)

	reporter := &reportNavigator{logger: logger}

	authResolver, err := auth.NewResolver(auth.Deps{
		Store:     store,
		Sync:      syncer,
		Navigator: reporter,
		Refresher: refresher,
	},
		auth.WithRules(auth.Rules{
			{Pattern: regexp.MustCompile(`^/(public|share|invite)(/|$)`), Requires: auth.Always(false)},
		}),
		auth.WithLogger(logger),
		auth.WithMetrics(collectors),
	)
	if err != nil {
		return err
	}

	tenantResolver, err := tenants.NewResolver(tenants.Deps{
		Store:     store,
		Sync:      syncer,
		Navigator: reporter,
		Service:   client,
		Domains:   client,
		Refresher: refresher,
	},
		tenants.WithMainTenant(cfg.MainTenant),
		tenants.WithAppDomain(cfg.AppDomain),
		tenants.WithLogger(logger),
		tenants.WithMetrics(collectors),
	)
	if err != nil {
		return err
	}

	mentorResolver, err := mentors.NewResolver(mentors.Deps{
		Service:     client,
		Permissions: client,
		Navigator:   reporter,
	},
		mentors.WithPermissionsSink(reporter),
		mentors.WithLogger(logger),
		mentors.WithMetrics(collectors),
	)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(syncer, authResolver, tenantResolver, mentorResolver,
		pipeline.WithLogger(logger))
	if err != nil {
		return err
	}

	result := runner.Resolve(ctx, nav.Route{
		Path:      *path,
		Host:      *host,
		TenantKey: *tenantKey,
		MentorID:  *mentorID,
	})

	if result.Redirected {
		fmt.Printf("resolution redirected at the %s stage\n", result.Stage)
	} else {
		fmt.Printf("tenant: %s (visiting=%t)\n", result.Session.Tenant.Key, result.Session.Visiting)
		if m := utils.Value(result.Session.Mentor); m.ID != "" {
			fmt.Printf("mentor: %s (%s)\n", m.ID, m.Name)
		}
	}

	if *watch {
		poller := sessions.NewPoller(syncer, jar, reporter, func() string { return *path },
			sessions.WithInterval(cfg.PollInterval),
			sessions.WithPollerLogger(logger),
			sessions.WithPollerMetrics(collectors),
		)
		watchCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		defer stop()
		if err := poller.Run(watchCtx); !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

// seedFromEnv loads the session state a browser would already hold.
func seedFromEnv(ctx context.Context, store storage.Store) {
	now := time.Now()
	if tok := os.Getenv("ACCESS_TOKEN"); tok != "" {
		_ = token.Save(ctx, store, token.Pair{
			Token:            tok,
			ExpiresAt:        now.Add(time.Hour),
			SessionExpiresAt: now.Add(time.Hour),
		})
	}
	if userID := os.Getenv("USER_ID"); userID != "" {
		_ = storage.WriteJSON(ctx, store, storage.KeyIdentity, users.Identity{UserID: userID})
	}
	if raw := os.Getenv("TENANT_LIST"); raw != "" {
		_ = store.Set(ctx, storage.KeyTenantList, raw)
	}
	if raw := os.Getenv("CURRENT_TENANT"); raw != "" {
		_ = store.Set(ctx, storage.KeyCurrentTenant, raw)
	}
}

// reportNavigator logs navigation side effects instead of performing them.
type reportNavigator struct {
	logger zerolog.Logger
}

var (
	_ nav.Navigator       = (*reportNavigator)(nil)
	_ nav.PermissionsSink = (*reportNavigator)(nil)
)

func (n *reportNavigator) RedirectToAuth(_ context.Context, r nav.AuthRedirect) {
	n.logger.Info().Bool("logout", r.Logout).Str("tenant", r.Tenant).Msg("would redirect to auth")
}

func (n *reportNavigator) RedirectToTenant(_ context.Context, tenantKey string) {
	n.logger.Info().Str("tenant", tenantKey).Msg("would switch tenant")
}

func (n *reportNavigator) RedirectToMentor(_ context.Context, m nav.MentorRef) {
	n.logger.Info().Str("mentor", m.ID).Msg("would redirect to mentor")
}

func (n *reportNavigator) RedirectToCreateMentor(context.Context) {
	n.logger.Info().Msg("would redirect to mentor creation")
}

func (n *reportNavigator) RedirectToNoMentors(context.Context) {
	n.logger.Info().Msg("would redirect to no-mentors page")
}

func (n *reportNavigator) Refresh(_ context.Context, tenantKey string) {
	n.logger.Info().Str("tenant", tenantKey).Msg("would refresh")
}

func (n *reportNavigator) PermissionsLoaded(_ context.Context, mentorID string, permissions []string) {
	n.logger.Info().Str("mentor", mentorID).Strs("permissions", permissions).Msg("permissions loaded")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
