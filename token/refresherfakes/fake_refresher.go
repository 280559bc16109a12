package refresherfakes

import (
	"context"
	"sync"

	"github.com/iblai/go-mentor-session/token"
)

var _ token.Refresher = (*FakeRefresher)(nil)

// FakeRefresher returns scripted refresh results and counts invocations.
type FakeRefresher struct {
	RefreshResult   *token.Pair
	RefreshErr      error
	RefreshCalls    int
	ForTenantResult *token.Pair
	ForTenantErr    error
	ForTenantCalls  []string

	lock sync.Mutex
}

func NewFakeRefresher() *FakeRefresher {
	return &FakeRefresher{}
}

func (f *FakeRefresher) Refresh(_ context.Context) (*token.Pair, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.RefreshCalls++
	return f.RefreshResult, f.RefreshErr
}

func (f *FakeRefresher) RefreshForTenant(_ context.Context, tenantKey string) (*token.Pair, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.ForTenantCalls = append(f.ForTenantCalls, tenantKey)
	return f.ForTenantResult, f.ForTenantErr
}
