package application

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/cutoff-service/internal/config"
	"github.com/wms-platform/cutoff-service/internal/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// monday08 is 08:00 UTC, eight hours before the default 16:00 cutoff
var monday08 = time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC)

func pinned(t time.Time) Clock {
	return func() time.Time { return t }
}

type staticRules struct {
	rules config.Rules
}

func (s staticRules) Rules() config.Rules { return s.rules }

func testRules(t *testing.T) staticRules {
	t.Helper()
	rules := config.DefaultRules()
	rules.Timezone = "UTC"
	require.NoError(t, rules.Validate())
	return staticRules{rules: rules}
}

func newTestEngine(t *testing.T, now time.Time) *DecisionEngine {
	rules := testRules(t)
	return NewDecisionEngine(NewWorkloadEstimator(), NewCapacityAggregator(rules), rules, pinned(now))
}

// memStore is an in-memory CacheStore. TTLs are recorded but not enforced.
type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
	setErr  error
	incrErr error
	sets    int
}

func newMemStore() *memStore {
	return &memStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.sets++
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Increment(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incrErr != nil {
		return 0, m.incrErr
	}
	n, _ := strconv.ParseInt(string(m.data[key]), 10, 64)
	n++
	m.data[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func (m *memStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ttls[key] = ttl
	return nil
}

func (m *memStore) Ping(context.Context) error { return nil }

func (m *memStore) ttl(key string) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ttls[key]
}

// atomicStore adds IncrementWithExpiry on top of memStore
type atomicStore struct {
	*memStore
	atomicCalls int
}

func (a *atomicStore) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	a.atomicCalls++
	n, err := a.memStore.Increment(ctx, key)
	if err != nil {
		return 0, err
	}
	if n == 1 {
		_ = a.memStore.Expire(ctx, key, ttl)
	}
	return n, nil
}

type fakeCapacitySource struct {
	getCurrentCapacityFn func(context.Context, string, time.Time) (domain.ResourceCounts, error)
}

func (f *fakeCapacitySource) GetCurrentCapacity(ctx context.Context, warehouseID string, date time.Time) (domain.ResourceCounts, error) {
	if f.getCurrentCapacityFn != nil {
		return f.getCurrentCapacityFn(ctx, warehouseID, date)
	}
	return domain.ResourceCounts{WarehouseID: warehouseID, Date: date, AvailablePickers: 100, AvailablePackers: 200, AvailableLoaders: 100}, nil
}

type fakeWorkloadSource struct {
	getCommittedWorkloadFn func(context.Context, string) (domain.CommittedWorkload, error)
}

func (f *fakeWorkloadSource) GetCommittedWorkload(ctx context.Context, warehouseID string) (domain.CommittedWorkload, error) {
	if f.getCommittedWorkloadFn != nil {
		return f.getCommittedWorkloadFn(ctx, warehouseID)
	}
	return domain.CommittedWorkload{WarehouseID: warehouseID, TotalRemainingWorkload: decimal.Zero}, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	decisions []DecisionEvent
	switches  [][2]string
	err       error
}

func (f *fakePublisher) PublishDecision(_ context.Context, event DecisionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, event)
	return f.err
}

func (f *fakePublisher) PublishScenarioSwitched(_ context.Context, previous, current string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.switches = append(f.switches, [2]string{previous, current})
	return f.err
}

type fakeRecorder struct {
	checks      int
	cacheHits   int
	utilization map[string]float64
	remaining   map[string]float64
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{utilization: map[string]float64{}, remaining: map[string]float64{}}
}

func (f *fakeRecorder) RecordCapacityCheck(bool, string, bool, time.Duration) { f.checks++ }

func (f *fakeRecorder) RecordCacheLookup(hit bool) {
	if hit {
		f.cacheHits++
	}
}

func (f *fakeRecorder) SetWarehouseUtilization(wh string, u float64) { f.utilization[wh] = u }

func (f *fakeRecorder) SetCutoffMinutesRemaining(wh string, m float64) { f.remaining[wh] = m }
