package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/cutoff-service/internal/domain"
	apperrors "github.com/wms-platform/cutoff-service/pkg/errors"
	"github.com/wms-platform/cutoff-service/pkg/logging"
	"github.com/wms-platform/cutoff-service/pkg/resilience"
)

type serviceFixture struct {
	service   *CutoffService
	store     *memStore
	capacity  *fakeCapacitySource
	workload  *fakeWorkloadSource
	publisher *fakePublisher
	recorder  *fakeRecorder
}

// newServiceFixture builds a service over a warehouse of 100 pickers,
// 200 packers and 100 loaders (usable capacity 108 per minute) with the
// given committed workload.
func newServiceFixture(t *testing.T, now time.Time, committed string) *serviceFixture {
	rules := testRules(t)
	estimator := NewWorkloadEstimator()
	aggregator := NewCapacityAggregator(rules)
	logger := logging.NewNop()

	f := &serviceFixture{
		store:    newMemStore(),
		capacity: &fakeCapacitySource{},
		workload: &fakeWorkloadSource{
			getCommittedWorkloadFn: func(_ context.Context, wh string) (domain.CommittedWorkload, error) {
				return domain.CommittedWorkload{WarehouseID: wh, TotalRemainingWorkload: dec(committed), OrdersInQueue: 47}, nil
			},
		},
		publisher: &fakePublisher{},
		recorder:  newFakeRecorder(),
	}

	f.service = NewCutoffService(CutoffServiceDeps{
		Capacity:   f.capacity,
		Workload:   f.workload,
		Estimator:  estimator,
		Aggregator: aggregator,
		Engine:     NewDecisionEngine(estimator, aggregator, rules, pinned(now)),
		Cache:      NewDecisionCache(f.store, logger),
		Stats:      NewDecisionStatsRecorder(f.store, logger),
		Rules:      rules,
		Publisher:  f.publisher,
		Recorder:   f.recorder,
		Logger:     logger,
	})
	return f
}

func orderCommand(priority string, qty int) CheckCapacityCommand {
	return CheckCapacityCommand{
		OrderID:     "ORD-1",
		Priority:    priority,
		WarehouseID: "WH-MAIN",
		Items:       []OrderItemInput{{ProductID: "MAT-001", Quantity: qty}},
	}
}

func requireAppCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T", err)
	assert.Equal(t, code, appErr.Code)
}

func TestCheckCapacity_ApprovesAndPublishesOnce(t *testing.T) {
	f := newServiceFixture(t, monday08, "54")
	ctx := context.Background()

	first, err := f.service.CheckCapacity(ctx, orderCommand("standard", 10))
	require.NoError(t, err)

	assert.True(t, first.CanShipToday)
	assert.Equal(t, string(domain.StatusAccepting), first.Status)
	assert.Equal(t, MessageShipToday, first.Message)
	// (54 + 16.5) / 108
	assert.True(t, first.CurrentUtilization.Equal(dec("0.6528")), "utilization %s", first.CurrentUtilization)
	assert.Equal(t, "PICKER", first.DecisionFactors.BottleneckResource)
	assert.False(t, first.Metadata.CacheHit)
	assert.Equal(t, "STANDARD", first.Metadata.Priority)
	assert.Equal(t, "ORD-1", first.Metadata.OrderID)

	second, err := f.service.CheckCapacity(ctx, orderCommand("STANDARD", 10))
	require.NoError(t, err)
	assert.True(t, second.Metadata.CacheHit)
	assert.True(t, second.CurrentUtilization.Equal(first.CurrentUtilization))

	require.Len(t, f.publisher.decisions, 1)
	event := f.publisher.decisions[0]
	assert.Equal(t, "WH-MAIN", event.WarehouseID)
	assert.Equal(t, domain.PriorityStandard, event.Priority)

	assert.Equal(t, 2, f.recorder.checks)
	assert.Equal(t, 1, f.recorder.cacheHits)

	stats := f.service.stats.Today(ctx, "WH-MAIN", monday08)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Approved)
}

func TestCheckCapacity_RejectsWhenOverloaded(t *testing.T) {
	f := newServiceFixture(t, monday08, "100")

	got, err := f.service.CheckCapacity(context.Background(), orderCommand("STANDARD", 10))
	require.NoError(t, err)

	assert.False(t, got.CanShipToday)
	assert.Equal(t, MessageCapacityExceeded, got.Message)
	assert.Equal(t, string(domain.StatusClosed), got.Status)
}

func TestCheckCapacity_DefaultsWarehouseAndPriority(t *testing.T) {
	f := newServiceFixture(t, monday08, "0")
	var seen string
	f.capacity.getCurrentCapacityFn = func(_ context.Context, wh string, date time.Time) (domain.ResourceCounts, error) {
		seen = wh
		return domain.ResourceCounts{WarehouseID: wh, AvailablePickers: 10, AvailablePackers: 10, AvailableLoaders: 10}, nil
	}

	cmd := orderCommand("", 1)
	cmd.WarehouseID = ""
	got, err := f.service.CheckCapacity(context.Background(), cmd)
	require.NoError(t, err)

	assert.Equal(t, DefaultWarehouseID, seen)
	assert.Equal(t, DefaultWarehouseID, got.Metadata.WarehouseID)
	assert.Equal(t, "STANDARD", got.Metadata.Priority)
}

func TestCheckCapacity_DeliveryDateReadsThatDaysStaffing(t *testing.T) {
	f := newServiceFixture(t, monday08, "0")
	shortStaffed := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	var seen []time.Time
	f.capacity.getCurrentCapacityFn = func(_ context.Context, wh string, date time.Time) (domain.ResourceCounts, error) {
		seen = append(seen, date)
		if date.Equal(shortStaffed) {
			return domain.ResourceCounts{WarehouseID: wh, Date: date, AvailablePickers: 1, AvailablePackers: 1, AvailableLoaders: 1}, nil
		}
		return domain.ResourceCounts{WarehouseID: wh, Date: date, AvailablePickers: 100, AvailablePackers: 200, AvailableLoaders: 100}, nil
	}

	today, err := f.service.CheckCapacity(context.Background(), orderCommand("STANDARD", 10))
	require.NoError(t, err)

	cmd := orderCommand("STANDARD", 10)
	cmd.DeliveryDate = &shortStaffed
	dated, err := f.service.CheckCapacity(context.Background(), cmd)
	require.NoError(t, err)

	require.Equal(t, []time.Time{monday08, shortStaffed}, seen)
	assert.True(t, today.CanShipToday)
	assert.False(t, dated.CanShipToday)
	assert.False(t, dated.Metadata.CacheHit)
	// 16.5 / 108 against 16.5 / 0.72
	assert.True(t, today.CurrentUtilization.Equal(dec("0.1528")), "utilization %s", today.CurrentUtilization)
	assert.True(t, dated.CurrentUtilization.GreaterThan(dec("1")), "utilization %s", dated.CurrentUtilization)

	// The undated order is still served from the cache afterwards
	again, err := f.service.CheckCapacity(context.Background(), orderCommand("STANDARD", 10))
	require.NoError(t, err)
	assert.True(t, again.Metadata.CacheHit)
	assert.Len(t, seen, 2)
}

func TestCheckCapacity_DatedOrdersAreNotCached(t *testing.T) {
	f := newServiceFixture(t, monday08, "0")
	delivery := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	calls := 0
	f.capacity.getCurrentCapacityFn = func(_ context.Context, wh string, date time.Time) (domain.ResourceCounts, error) {
		calls++
		return domain.ResourceCounts{WarehouseID: wh, Date: date, AvailablePickers: 10, AvailablePackers: 10, AvailableLoaders: 10}, nil
	}

	cmd := orderCommand("EXPRESS", 1)
	cmd.DeliveryDate = &delivery
	for range 2 {
		got, err := f.service.CheckCapacity(context.Background(), cmd)
		require.NoError(t, err)
		assert.False(t, got.Metadata.CacheHit)
	}

	assert.Equal(t, 2, calls)
	assert.Zero(t, f.store.sets, "dated decisions must not be cached")
	assert.Len(t, f.publisher.decisions, 2)
}

func TestCheckCapacity_VIPOverride(t *testing.T) {
	// 81 + 16.5 = 97.5 of 108 is 0.9028: past 0.85 but under 0.95
	f := newServiceFixture(t, monday08, "81")

	standard, err := f.service.CheckCapacity(context.Background(), orderCommand("STANDARD", 10))
	require.NoError(t, err)
	vip, err := f.service.CheckCapacity(context.Background(), orderCommand("VIP", 10))
	require.NoError(t, err)

	assert.False(t, standard.CanShipToday)
	assert.True(t, vip.CanShipToday)
	assert.True(t, vip.DecisionFactors.VIPOverrideUsed)

	stats := f.service.stats.Today(context.Background(), "WH-MAIN", monday08)
	assert.Equal(t, int64(1), stats.VIPOverrides)
	assert.Equal(t, int64(1), stats.Rejected)
}

func TestCheckCapacity_WorkloadSourceFailureAssumesZero(t *testing.T) {
	f := newServiceFixture(t, monday08, "0")
	f.workload.getCommittedWorkloadFn = func(context.Context, string) (domain.CommittedWorkload, error) {
		return domain.CommittedWorkload{}, errors.New("workload backend down")
	}

	got, err := f.service.CheckCapacity(context.Background(), orderCommand("STANDARD", 10))
	require.NoError(t, err)
	// 16.5 / 108
	assert.True(t, got.CurrentUtilization.Equal(dec("0.1528")), "utilization %s", got.CurrentUtilization)
	assert.True(t, got.CanShipToday)
}

func TestCheckCapacity_CapacitySourceErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"backend down", errors.New("connection refused"), apperrors.CodeCapacityUnavailable},
		{"unknown warehouse", fmt.Errorf("%w: WH-X", domain.ErrWarehouseNotFound), apperrors.CodeNotFound},
		{"breaker open", fmt.Errorf("%w: datasource-mongodb", resilience.ErrCircuitOpen), apperrors.CodeServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture(t, monday08, "0")
			f.capacity.getCurrentCapacityFn = func(context.Context, string, time.Time) (domain.ResourceCounts, error) {
				return domain.ResourceCounts{}, tt.err
			}

			_, err := f.service.CheckCapacity(context.Background(), orderCommand("STANDARD", 1))
			requireAppCode(t, err, tt.code)
			assert.Empty(t, f.publisher.decisions)
			assert.Zero(t, f.store.sets, "failed decisions are not cached")
		})
	}
}

func TestCheckCapacity_ValidationErrors(t *testing.T) {
	f := newServiceFixture(t, monday08, "0")

	tests := []struct {
		name string
		cmd  CheckCapacityCommand
	}{
		{"unknown priority", orderCommand("PLATINUM", 1)},
		{"no items", CheckCapacityCommand{WarehouseID: "WH-MAIN"}},
		{"zero quantity", orderCommand("STANDARD", 0)},
		{"weight out of range", CheckCapacityCommand{Items: []OrderItemInput{{ProductID: "P", Quantity: 1, WeightFactor: decPtr("9")}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CheckCapacity(context.Background(), tt.cmd)
			requireAppCode(t, err, apperrors.CodeValidationError)
		})
	}
}

func TestCheckCapacity_PublisherFailureDoesNotFailRequest(t *testing.T) {
	f := newServiceFixture(t, monday08, "0")
	f.publisher.err = errors.New("broker down")

	got, err := f.service.CheckCapacity(context.Background(), orderCommand("STANDARD", 1))
	require.NoError(t, err)
	assert.True(t, got.CanShipToday)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestGetCurrentCutoff(t *testing.T) {
	f := newServiceFixture(t, monday08, "54")

	got, err := f.service.GetCurrentCutoff(context.Background(), GetCutoffQuery{WarehouseID: "WH-MAIN"})
	require.NoError(t, err)

	// 16:00 less 0.5 minutes of committed work and the 30 minute buffer
	assert.Equal(t, time.Date(2026, 1, 5, 15, 29, 30, 0, time.UTC), got.CutoffTime)
	assert.Equal(t, time.Date(2026, 1, 5, 16, 0, 0, 0, time.UTC), got.HardDeadline)
	assert.Equal(t, 449, got.TimeRemainingMinutes)
	assert.True(t, got.CurrentUtilization.Equal(dec("0.5")))
	assert.Equal(t, string(domain.StatusAccepting), got.Status)
	assert.Equal(t, TrendDecreasing, got.Trend)
	assert.Equal(t, AlertNone, got.AlertLevel)
	assert.Equal(t, 50, got.EstimatedOrdersRemaining)
	assert.Equal(t, 47, got.OrdersInQueue)

	assert.Equal(t, 0.5, f.recorder.utilization["WH-MAIN"])
	assert.Equal(t, 449.0, f.recorder.remaining["WH-MAIN"])
}

func TestGetCurrentCutoff_PassedCutoffIsClosed(t *testing.T) {
	f := newServiceFixture(t, time.Date(2026, 1, 5, 15, 45, 0, 0, time.UTC), "54")

	got, err := f.service.GetCurrentCutoff(context.Background(), GetCutoffQuery{})
	require.NoError(t, err)

	assert.Equal(t, 0, got.TimeRemainingMinutes)
	assert.Equal(t, string(domain.StatusClosed), got.Status)
	assert.Equal(t, AlertHigh, got.AlertLevel)
}

func TestGetCurrentCutoff_Trend(t *testing.T) {
	tests := []struct {
		committed string
		want      string
		alert     string
	}{
		{"54", TrendDecreasing, AlertNone},
		{"75.6", TrendStable, AlertLow},
		{"97.2", TrendIncreasing, AlertMedium},
	}

	for _, tt := range tests {
		t.Run(tt.committed, func(t *testing.T) {
			f := newServiceFixture(t, monday08, tt.committed)
			got, err := f.service.GetCurrentCutoff(context.Background(), GetCutoffQuery{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Trend)
			assert.Equal(t, tt.alert, got.AlertLevel)
		})
	}
}

func TestSimulate(t *testing.T) {
	f := newServiceFixture(t, monday08, "54")

	got, err := f.service.Simulate(context.Background(), SimulateCommand{
		ScenarioName:       "flash-sale",
		WarehouseID:        "WH-MAIN",
		Orders:             []OrderItemInput{{ProductID: "MAT-001", Quantity: 40}},
		TimeHorizonMinutes: 60,
	})
	require.NoError(t, err)

	assert.Equal(t, "flash-sale", got.ScenarioName)
	assert.True(t, got.Impact.AdditionalWorkload.Equal(dec("40")))
	// (54 + 40) / 108
	assert.True(t, got.SimulatedState.Utilization.Equal(dec("0.8704")), "utilization %s", got.SimulatedState.Utilization)
	assert.True(t, got.CurrentState.Utilization.Equal(dec("0.5")))
	assert.Equal(t, string(domain.StatusCritical), got.SimulatedState.Status)
	assert.Equal(t, 2, got.Impact.OrdersAtRisk)
	assert.Equal(t, 0, got.Impact.CutoffShiftMinutes)
	assert.True(t, got.SimulatedState.CutoffTime.Before(got.CurrentState.CutoffTime))
	assert.Equal(t, []string{
		"Consider adding staff to the picker pool",
		"Alert sales team to slow order intake",
	}, got.Recommendations)

	assert.Empty(t, f.publisher.decisions, "simulations publish nothing")
}

func TestSimulate_Recommendations(t *testing.T) {
	assert.Equal(t, []string{"Current capacity is sufficient, no action needed"}, recommendations(dec("0.85"), domain.ResourcePicker))
	assert.Len(t, recommendations(dec("0.96"), domain.ResourceLoader), 4)
	assert.Contains(t, recommendations(dec("0.9"), domain.ResourceLoader), "Consider adding staff to the loader pool")
}

func TestSimulate_RejectsInvalidOrders(t *testing.T) {
	f := newServiceFixture(t, monday08, "54")

	_, err := f.service.Simulate(context.Background(), SimulateCommand{WarehouseID: "WH-MAIN"})
	requireAppCode(t, err, apperrors.CodeValidationError)
}

func TestGetWarehouseStatus(t *testing.T) {
	f := newServiceFixture(t, monday08, "81")
	ctx := context.Background()

	_, err := f.service.CheckCapacity(ctx, orderCommand("VIP", 1))
	require.NoError(t, err)

	got, err := f.service.GetWarehouseStatus(ctx, GetWarehouseStatusQuery{WarehouseID: "WH-MAIN"})
	require.NoError(t, err)

	assert.Equal(t, string(domain.StatusWarning), got.Status)
	assert.Len(t, got.Capacity.Resources, 3)
	assert.Equal(t, "PICKER", got.Capacity.Bottleneck)
	assert.True(t, got.Capacity.BottleneckCapacity.Equal(dec("120")))
	assert.True(t, got.Capacity.UsableCapacity.Equal(dec("108")))
	assert.True(t, got.Capacity.AvailableCapacity.Equal(dec("27")))
	assert.True(t, got.Capacity.Utilization.Equal(dec("0.75")))
	assert.Equal(t, int64(1), got.DecisionsToday.Total)
	assert.Equal(t, TrendStable, got.Cutoff.Trend)

	require.Len(t, got.Alerts, 1)
	assert.Equal(t, "UTIL_HIGH", got.Alerts[0].Code)
	assert.Equal(t, AlertLow, got.Alerts[0].Level)
}

func TestGetWarehouseStatus_CutoffPassedAlert(t *testing.T) {
	f := newServiceFixture(t, time.Date(2026, 1, 5, 15, 50, 0, 0, time.UTC), "0")

	got, err := f.service.GetWarehouseStatus(context.Background(), GetWarehouseStatusQuery{})
	require.NoError(t, err)

	require.Len(t, got.Alerts, 1)
	assert.Equal(t, "CUTOFF_PASSED", got.Alerts[0].Code)
}
