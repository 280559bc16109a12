package auth

import (
	"context"
	"regexp"

	"github.com/iblai/go-mentor-session/nav"
)

// Predicate decides whether a matched route requires authentication.
// Predicates may call out (admin checks, subscription checks), hence the
// context and error.
type Predicate func(ctx context.Context, route nav.Route) (bool, error)

// Rule binds a route pattern to its authentication predicate.
type Rule struct {
	Pattern  *regexp.Regexp
	Requires Predicate
}

// Rules is the ordered route-to-predicate table supplied by the embedding
// application. The first matching pattern decides; a route matching no
// pattern requires authentication.
type Rules []Rule

// RequiresAuth evaluates the table for a route.
func (rs Rules) RequiresAuth(ctx context.Context, route nav.Route) (bool, error) {
	for _, r := range rs {
		if r.Pattern == nil || !r.Pattern.MatchString(route.Path) {
			continue
		}
		if r.Requires == nil {
			return true, nil
		}
		return r.Requires(ctx, route)
	}
	return true, nil
}

// Always returns a predicate with a fixed answer, the common case for fully
// public or fully protected patterns.
func Always(required bool) Predicate {
	return func(context.Context, nav.Route) (bool, error) {
		return required, nil
	}
}
