package sessions

import (
	"context"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/iblai/go-mentor-session/cookies"
	"github.com/iblai/go-mentor-session/internal/metrics"
	"github.com/iblai/go-mentor-session/nav"
)

const defaultPollInterval = 2 * time.Second

// RouteFunc returns the path currently being displayed.
type RouteFunc func() string

// Poller periodically reconciles cookies and storage. Each tick:
//  1. Skips entirely while an SSO-completion route is active.
//  2. Fires a forced logout when the logout stamp has moved, once per value.
//  3. Pulls cookie state in; a reported change triggers a refresh that
//     preserves the tenant read from the cookie.
//  4. Otherwise pushes local state back out: local wins when nothing
//     external changed.
//
// Ticks are not serialized against in-flight resolution passes; the mirror
// is eventually consistent by design, last cookie write wins.
type Poller struct {
	syncer     *Syncer
	jar        cookies.Jar
	navigator  nav.Navigator
	route      RouteFunc
	ssoPattern *regexp.Regexp
	interval   time.Duration
	tracker    LogoutTracker
	kick       chan struct{}
	logger     zerolog.Logger
	metrics    *metrics.Metrics
}

// PollerOption modifies a Poller.
type PollerOption func(*Poller)

// WithInterval overrides the default two-second poll interval.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithSSOPattern sets the route pattern during which polling is suspended.
func WithSSOPattern(re *regexp.Regexp) PollerOption {
	return func(p *Poller) { p.ssoPattern = re }
}

// WithPollerLogger sets the logger.
func WithPollerLogger(logger zerolog.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// WithPollerMetrics sets the metrics collectors.
func WithPollerMetrics(m *metrics.Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// NewPoller creates a Poller around an existing Syncer.
func NewPoller(syncer *Syncer, jar cookies.Jar, navigator nav.Navigator, route RouteFunc, options ...PollerOption) *Poller {
	p := &Poller{
		syncer:    syncer,
		jar:       jar,
		navigator: navigator,
		route:     route,
		interval:  defaultPollInterval,
		kick:      make(chan struct{}, 1),
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Run ticks until the context is cancelled. The first tick runs immediately
// so downstream stages never start against stale mirrored state.
func (p *Poller) Run(ctx context.Context) error {
	p.Tick(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		case <-p.kick:
			// Local state changed; propagate without waiting for the next tick.
			p.syncer.PushToCookies(ctx)
		}
	}
}

// Kick requests an immediate storage-to-cookie push, mirroring a local
// storage-change notification. Never blocks.
func (p *Poller) Kick() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

// Tick runs one reconciliation pass.
func (p *Poller) Tick(ctx context.Context) {
	if p.ssoPattern != nil && p.route != nil && p.ssoPattern.MatchString(p.route()) {
		return
	}

	if p.tracker.Observe(p.readLogoutStamp()) {
		p.logger.Info().Msg("external logout stamp observed, forcing logout")
		p.metrics.RecordForcedLogout()
		p.navigator.RedirectToAuth(ctx, nav.AuthRedirect{Logout: true})
		return
	}

	changed, err := p.syncer.PullFromCookies(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("poll: cookie pull failed")
	}
	if changed {
		p.navigator.Refresh(ctx, p.syncer.CookieTenantKey())
		return
	}
	p.syncer.PushToCookies(ctx)
}

func (p *Poller) readLogoutStamp() int64 {
	encoded, found := p.jar.Get(cookies.NameLogoutStamp)
	if !found {
		return 0
	}
	raw, err := cookies.DecodeRaw(encoded)
	if err != nil {
		raw = encoded
	}
	stamp, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return stamp
}
