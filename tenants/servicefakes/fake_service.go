package servicefakes

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/iblai/go-mentor-session/tenants"
)

var (
	_ tenants.Service        = (*FakeService)(nil)
	_ tenants.DomainResolver = (*FakeService)(nil)
)

// FakeService is a scriptable tenants.Service and DomainResolver.
type FakeService struct {
	MetadataByKey map[string]*tenants.Metadata
	MetadataErr   error
	JoinErr       error
	JoinCalls     []string
	Subs          []tenants.Subscription
	SubsErr       error
	HostMap       map[string]string

	lock sync.Mutex
}

func NewFakeService() *FakeService {
	return &FakeService{
		MetadataByKey: make(map[string]*tenants.Metadata),
		HostMap:       make(map[string]string),
	}
}

func (f *FakeService) Metadata(_ context.Context, tenantKey string) (*tenants.Metadata, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.MetadataErr != nil {
		return nil, f.MetadataErr
	}
	if meta, ok := f.MetadataByKey[tenantKey]; ok {
		return meta, nil
	}
	return &tenants.Metadata{}, nil
}

func (f *FakeService) Join(_ context.Context, tenantKey string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.JoinCalls = append(f.JoinCalls, tenantKey)
	return f.JoinErr
}

func (f *FakeService) Subscriptions(_ context.Context) ([]tenants.Subscription, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.SubsErr != nil {
		return nil, f.SubsErr
	}
	return f.Subs, nil
}

func (f *FakeService) TenantForHost(_ context.Context, host string) (string, error) {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.HostMap == nil {
		return "", errors.New("no host map")
	}
	return f.HostMap[host], nil
}
