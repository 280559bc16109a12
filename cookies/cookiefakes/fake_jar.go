package cookiefakes

import (
	"sync"

	"github.com/iblai/go-mentor-session/cookies"
)

var _ cookies.Jar = (*FakeJar)(nil)

// FakeJar is an in-memory cookies.Jar keyed by cookie name. Domain and path
// attributes are recorded but not used for matching, which is enough for the
// single-host scenarios tests exercise.
type FakeJar struct {
	jar  map[string]cookies.Cookie
	lock sync.RWMutex
}

func NewFakeJar() *FakeJar {
	return &FakeJar{jar: make(map[string]cookies.Cookie)}
}

func (f *FakeJar) Get(name string) (string, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	c, ok := f.jar[name]
	return c.Value, ok
}

func (f *FakeJar) Set(c cookies.Cookie) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.jar[c.Name] = c
}

func (f *FakeJar) Delete(name, _, _ string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	delete(f.jar, name)
}

// Cookie returns the full stored cookie, attributes included.
func (f *FakeJar) Cookie(name string) (cookies.Cookie, bool) {
	f.lock.RLock()
	defer f.lock.RUnlock()
	c, ok := f.jar[name]
	return c, ok
}

// Len returns the number of stored cookies.
func (f *FakeJar) Len() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.jar)
}
