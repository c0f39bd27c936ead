package application

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/logging"
)

func mustItem(t *testing.T, productID string, qty int) domain.OrderItem {
	t.Helper()
	item, err := domain.NewOrderItem(productID, qty, dec("1"), dec("1"))
	require.NoError(t, err)
	return item
}

func sampleDecision(t *testing.T) domain.Decision {
	d, err := newTestEngine(t, monday08).Decide(DecisionInput{
		NewWorkload:       dec("16.5"),
		CommittedWorkload: dec("100"),
		Capacity:          dec("200"),
		Bottleneck:        domain.ResourcePicker,
		Priority:          domain.PriorityStandard,
	})
	require.NoError(t, err)
	return d
}

func TestFingerprint(t *testing.T) {
	a := mustItem(t, "SKU-A", 2)
	b := mustItem(t, "SKU-B", 1)

	key := Fingerprint("WH-MAIN", domain.PriorityStandard, []domain.OrderItem{a, b})
	assert.True(t, strings.HasPrefix(key, "capacity:"))
	assert.Len(t, key, len("capacity:")+16)

	assert.Equal(t, key, Fingerprint("WH-MAIN", domain.PriorityStandard, []domain.OrderItem{b, a}), "line order must not matter")

	heavier, err := domain.NewOrderItem("SKU-A", 2, dec("3"), dec("2"))
	require.NoError(t, err)
	assert.Equal(t, key, Fingerprint("WH-MAIN", domain.PriorityStandard, []domain.OrderItem{heavier, b}), "handling factors are not part of the key")

	assert.NotEqual(t, key, Fingerprint("WH-MAIN", domain.PriorityVIP, []domain.OrderItem{a, b}))
	assert.NotEqual(t, key, Fingerprint("WH-NORTH", domain.PriorityStandard, []domain.OrderItem{a, b}))
	assert.NotEqual(t, key, Fingerprint("WH-MAIN", domain.PriorityStandard, []domain.OrderItem{mustItem(t, "SKU-A", 3), b}))
}

func TestFingerprint_SeparatorsInProductIDs(t *testing.T) {
	merged := []domain.OrderItem{mustItem(t, "x:1,y", 2)}
	split := []domain.OrderItem{mustItem(t, "x", 1), mustItem(t, "y", 2)}

	assert.NotEqual(t,
		Fingerprint("WH-MAIN", domain.PriorityStandard, merged),
		Fingerprint("WH-MAIN", domain.PriorityStandard, split),
	)

	// Warehouse and priority boundaries are length prefixed too
	assert.NotEqual(t,
		Fingerprint("WH-A", domain.Priority("STANDARD"), split),
		Fingerprint("WH-AS", domain.Priority("TANDARD"), split),
	)
}

func TestFingerprint_DuplicateLinesAreOrderIndependent(t *testing.T) {
	a1 := mustItem(t, "SKU-A", 1)
	a5 := mustItem(t, "SKU-A", 5)

	assert.Equal(t,
		Fingerprint("WH-MAIN", domain.PriorityStandard, []domain.OrderItem{a5, a1}),
		Fingerprint("WH-MAIN", domain.PriorityStandard, []domain.OrderItem{a1, a5}),
	)
}

func TestDecisionCache_MissThenHit(t *testing.T) {
	store := newMemStore()
	cache := NewDecisionCache(store, logging.NewNop())
	want := sampleDecision(t)

	calls := 0
	compute := func() (domain.Decision, error) {
		calls++
		return want, nil
	}

	first, err := cache.GetOrCompute(context.Background(), "capacity:k", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)
	assert.Equal(t, time.Minute, store.ttl("capacity:k"))

	second, err := cache.GetOrCompute(context.Background(), "capacity:k", time.Minute, compute)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, calls)

	assert.True(t, second.Decision.CurrentUtilization.Equal(want.CurrentUtilization))
	assert.Equal(t, want.CalculatedAt, second.Decision.CalculatedAt)
	assert.Equal(t, want.Message, second.Decision.Message)
}

func TestDecisionCache_ComputeErrorIsNotCached(t *testing.T) {
	store := newMemStore()
	cache := NewDecisionCache(store, logging.NewNop())
	boom := errors.New("boom")

	_, err := cache.GetOrCompute(context.Background(), "capacity:k", time.Minute, func() (domain.Decision, error) {
		return domain.Decision{}, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, store.sets)
}

func TestDecisionCache_StoreFailuresDegradeToMiss(t *testing.T) {
	store := newMemStore()
	store.getErr = errors.New("read refused")
	store.setErr = errors.New("write refused")
	cache := NewDecisionCache(store, logging.NewNop())
	want := sampleDecision(t)

	for i := 0; i < 2; i++ {
		got, err := cache.GetOrCompute(context.Background(), "capacity:k", time.Minute, func() (domain.Decision, error) {
			return want, nil
		})
		require.NoError(t, err)
		assert.False(t, got.CacheHit)
		assert.Equal(t, want.CanShipToday, got.Decision.CanShipToday)
	}
}

func TestDecisionCache_CorruptEntryIsRecomputed(t *testing.T) {
	store := newMemStore()
	store.data["capacity:k"] = []byte("{not json")
	cache := NewDecisionCache(store, logging.NewNop())

	got, err := cache.GetOrCompute(context.Background(), "capacity:k", time.Minute, func() (domain.Decision, error) {
		return sampleDecision(t), nil
	})
	require.NoError(t, err)
	assert.False(t, got.CacheHit)
}

func TestDecisionCache_NilStoreAlwaysComputes(t *testing.T) {
	cache := NewDecisionCache(nil, logging.NewNop())
	calls := 0
	for i := 0; i < 2; i++ {
		_, err := cache.GetOrCompute(context.Background(), "capacity:k", time.Minute, func() (domain.Decision, error) {
			calls++
			return sampleDecision(t), nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 2, calls)
}
