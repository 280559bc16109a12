package sessions

// LogoutTracker watches the cross-application logout stamp. The stamp is a
// wall-clock value written by whichever application performed the logout;
// any value different from the last one seen is a new logout event, and each
// value fires at most once. The first observation only establishes the
// baseline: a stamp left over from a past logout must not log the user out
// again on load.
type LogoutTracker struct {
	seen bool
	last int64
}

// Observe records a stamp value and reports whether it represents a new
// logout event.
func (t *LogoutTracker) Observe(stamp int64) bool {
	if stamp == 0 {
		return false
	}
	if !t.seen {
		t.seen = true
		t.last = stamp
		return false
	}
	if stamp == t.last {
		return false
	}
	t.last = stamp
	return true
}
