package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/cachemeta"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/domain/property"
	"github.com/KairamCabral/Site-imobiliaria-pharos-sub004/internal/core/ports"
)

// PropertyProviderMock is a lightweight mock for ports.PropertyProvider. Calls are counted.
type PropertyProviderMock struct {
	NameValue        string
	ListPropertiesFn func(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.ListResult, error)
	GetPropertyFn    func(ctx context.Context, id string) (*ports.RawRecord, error)

	mu        sync.Mutex
	listCalls int
	getCalls  int
}

func (m *PropertyProviderMock) Name() string {
	if m.NameValue == "" {
		return "mock"
	}
	return m.NameValue
}

func (m *PropertyProviderMock) ListProperties(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.ListResult, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.ListPropertiesFn != nil {
		return m.ListPropertiesFn(ctx, filters, pagination)
	}
	return &ports.ListResult{Page: pagination.Page, Limit: pagination.Limit}, nil
}

func (m *PropertyProviderMock) GetProperty(ctx context.Context, id string) (*ports.RawRecord, error) {
	m.mu.Lock()
	m.getCalls++
	m.mu.Unlock()
	if m.GetPropertyFn != nil {
		return m.GetPropertyFn(ctx, id)
	}
	return nil, property.ErrNotFound
}

func (m *PropertyProviderMock) ListCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

func (m *PropertyProviderMock) GetCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCalls
}

// PropertyServiceMock is a lightweight mock for ports.PropertyService.
type PropertyServiceMock struct {
	SearchFn     func(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.SearchResult, error)
	GetByIDFn    func(ctx context.Context, id string) (*ports.DetailResult, error)
	InvalidateFn func(ctx context.Context, key string) error
	StatsFn      func() []cachemeta.Stats
}

func (m *PropertyServiceMock) Search(ctx context.Context, filters property.Filters, pagination property.Pagination) (*ports.SearchResult, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, filters, pagination)
	}
	return &ports.SearchResult{Properties: []*property.Property{}}, nil
}

func (m *PropertyServiceMock) GetByID(ctx context.Context, id string) (*ports.DetailResult, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	return nil, property.ErrNotFound
}

func (m *PropertyServiceMock) Invalidate(ctx context.Context, key string) error {
	if m.InvalidateFn != nil {
		return m.InvalidateFn(ctx, key)
	}
	return nil
}

func (m *PropertyServiceMock) Stats() []cachemeta.Stats {
	if m.StatsFn != nil {
		return m.StatsFn()
	}
	return nil
}

// RemoteCacheMock is a lightweight mock for ports.RemoteCache backed by an in-memory map
// unless the Fn fields override it.
type RemoteCacheMock struct {
	GetFn           func(ctx context.Context, key string) ([]byte, bool, error)
	SetFn           func(ctx context.Context, key string, value []byte, ttl time.Duration) error
	DeleteFn        func(ctx context.Context, key string) error
	ScanAndDeleteFn func(ctx context.Context, pattern string) (int, error)
	EnabledFn       func() bool

	mu   sync.Mutex
	data map[string][]byte
}

func (m *RemoteCacheMock) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *RemoteCacheMock) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.SetFn != nil {
		return m.SetFn(ctx, key, value, ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *RemoteCacheMock) Delete(ctx context.Context, key string) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *RemoteCacheMock) ScanAndDelete(ctx context.Context, pattern string) (int, error) {
	if m.ScanAndDeleteFn != nil {
		return m.ScanAndDeleteFn(ctx, pattern)
	}
	return 0, nil
}

func (m *RemoteCacheMock) Enabled() bool {
	if m.EnabledFn != nil {
		return m.EnabledFn()
	}
	return true
}

// HealthCheckerMock is a lightweight mock for ports.HealthChecker.
type HealthCheckerMock struct {
	NameValue     string
	CriticalValue bool
	CheckFn       func(ctx context.Context) error
}

func (m *HealthCheckerMock) Name() string   { return m.NameValue }
func (m *HealthCheckerMock) Critical() bool { return m.CriticalValue }
func (m *HealthCheckerMock) Check(ctx context.Context) error {
	if m.CheckFn != nil {
		return m.CheckFn(ctx)
	}
	return nil
}

var (
	_ ports.PropertyProvider = (*PropertyProviderMock)(nil)
	_ ports.PropertyService  = (*PropertyServiceMock)(nil)
	_ ports.RemoteCache      = (*RemoteCacheMock)(nil)
	_ ports.HealthChecker    = (*HealthCheckerMock)(nil)
)
