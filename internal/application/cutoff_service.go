package application

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/errors"
	"github.com/wms-platform/cutoff-service/pkg/logging"
	"github.com/wms-platform/cutoff-service/pkg/resilience"
	"github.com/wms-platform/cutoff-service/pkg/tracing"
)

// DefaultWarehouseID is used when a request names no warehouse
const DefaultWarehouseID = "WH-MAIN"

// Cutoff trend labels
const (
	TrendIncreasing = "INCREASING"
	TrendStable     = "STABLE"
	TrendDecreasing = "DECREASING"
)

// Alert levels
const (
	AlertNone   = "NONE"
	AlertLow    = "LOW"
	AlertMedium = "MEDIUM"
	AlertHigh   = "HIGH"
)

var (
	trendUpThreshold   = decimal.RequireFromString("0.80")
	trendDownThreshold = decimal.RequireFromString("0.60")
	riskThreshold      = decimal.RequireFromString("0.85")
	overtimeThreshold  = decimal.RequireFromString("0.95")
	hundred            = decimal.NewFromInt(100)
)

// CutoffServiceDeps are the collaborators of CutoffService. Publisher,
// Recorder and Tracer are optional.
type CutoffServiceDeps struct {
	Capacity   domain.CapacitySource
	Workload   domain.WorkloadSource
	Estimator  *WorkloadEstimator
	Aggregator *CapacityAggregator
	Engine     *DecisionEngine
	Cache      *DecisionCache
	Stats      *DecisionStatsRecorder
	Rules      RulesProvider
	Publisher  EventPublisher
	Recorder   DecisionRecorder
	Tracer     trace.Tracer
	Logger     *logging.Logger
}

// CutoffService handles the cutoff and capacity use cases
type CutoffService struct {
	capacity   domain.CapacitySource
	workload   domain.WorkloadSource
	estimator  *WorkloadEstimator
	aggregator *CapacityAggregator
	engine     *DecisionEngine
	cache      *DecisionCache
	stats      *DecisionStatsRecorder
	rules      RulesProvider
	publisher  EventPublisher
	recorder   DecisionRecorder
	tracer     trace.Tracer
	logger     *logging.Logger
}

// NewCutoffService creates a new CutoffService
func NewCutoffService(deps CutoffServiceDeps) *CutoffService {
	recorder := deps.Recorder
	if recorder == nil {
		recorder = noopRecorder{}
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer("cutoff-service")
	}
	return &CutoffService{
		capacity:   deps.Capacity,
		workload:   deps.Workload,
		estimator:  deps.Estimator,
		aggregator: deps.Aggregator,
		engine:     deps.Engine,
		cache:      deps.Cache,
		stats:      deps.Stats,
		rules:      deps.Rules,
		publisher:  deps.Publisher,
		recorder:   recorder,
		tracer:     tracer,
		logger:     deps.Logger,
	}
}

// CheckCapacity decides whether an order can still ship today
func (s *CutoffService) CheckCapacity(ctx context.Context, cmd CheckCapacityCommand) (*CapacityCheckDTO, error) {
	start := time.Now()

	items, err := ToOrderItems(cmd.Items)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}
	priority, err := domain.ParsePriority(cmd.Priority)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}
	warehouseID := cmd.WarehouseID
	if warehouseID == "" {
		warehouseID = DefaultWarehouseID
	}

	rules := s.rules.Rules()
	compute := func() (domain.Decision, error) {
		return s.computeDecision(ctx, warehouseID, priority, items, cmd.DeliveryDate)
	}

	// The key carries no date, so a dated order reads its own day's
	// staffing and never touches the cache.
	var cached CachedDecision
	if cmd.DeliveryDate != nil {
		cached.Decision, err = compute()
	} else {
		cached, err = s.cache.GetOrCompute(ctx, Fingerprint(warehouseID, priority, items), rules.CacheTTL(), compute)
	}
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	decision := cached.Decision

	tracing.RecordDecision(ctx, warehouseID, decision.CanShipToday, string(decision.Status),
		decision.CurrentUtilization.InexactFloat64(), cached.CacheHit)
	s.recorder.RecordCacheLookup(cached.CacheHit)
	s.recorder.RecordCapacityCheck(decision.CanShipToday, string(priority), cached.CacheHit, elapsed)
	s.stats.Record(ctx, warehouseID, s.engine.Now().In(rules.Location()), decision)

	if !cached.CacheHit {
		s.recorder.SetWarehouseUtilization(warehouseID, decision.CurrentUtilization.InexactFloat64())
		s.publish(ctx, DecisionEvent{WarehouseID: warehouseID, OrderID: cmd.OrderID, Priority: priority, Decision: decision})
	}

	s.logger.WithWarehouse(warehouseID).Performance(ctx, "capacity_check", elapsed, true,
		"orderId", cmd.OrderID,
		"priority", string(priority),
		"canShipToday", decision.CanShipToday,
		"status", string(decision.Status),
		"utilization", decision.CurrentUtilization.StringFixed(4),
		"cacheHit", cached.CacheHit,
		"dated", cmd.DeliveryDate != nil,
	)

	return ToCapacityCheckDTO(cached, warehouseID, cmd.OrderID, priority, elapsed), nil
}

func (s *CutoffService) computeDecision(ctx context.Context, warehouseID string, priority domain.Priority, items []domain.OrderItem, deliveryDate *time.Time) (domain.Decision, error) {
	workload, err := s.estimator.OrderWorkload(items)
	if err != nil {
		return domain.Decision{}, errors.ErrValidation(err.Error()).Wrap(err)
	}
	newWorkload := workload.Total()
	if s.rules.Rules().IncludePackingBonus {
		newWorkload = workload.TotalWithPackingBonus()
	}

	date := s.engine.Now()
	if deliveryDate != nil {
		date = *deliveryDate
	}

	capacity, err := s.warehouseCapacity(ctx, warehouseID, date)
	if err != nil {
		return domain.Decision{}, err
	}
	committed := s.committedWorkload(ctx, warehouseID)

	decision, err := s.engine.Decide(DecisionInput{
		NewWorkload:       newWorkload,
		CommittedWorkload: committed.TotalRemainingWorkload,
		Capacity:          capacity.UsableCapacity(),
		Bottleneck:        capacity.BottleneckResource(),
		Priority:          priority,
	})
	if err != nil {
		return domain.Decision{}, errors.MapDomainError(err)
	}
	return decision, nil
}

// warehouseCapacity reads staff counts. Failure aborts the request.
func (s *CutoffService) warehouseCapacity(ctx context.Context, warehouseID string, date time.Time) (domain.WarehouseCapacity, error) {
	counts, err := tracing.ReadWarehouse(ctx, s.tracer, tracing.SpanCapacityRead, warehouseID,
		func(ctx context.Context) (domain.ResourceCounts, error) {
			return s.capacity.GetCurrentCapacity(ctx, warehouseID, date)
		},
	)
	if err != nil {
		s.logger.WithContext(ctx).WithOperation(tracing.SpanCapacityRead).WithWarehouse(warehouseID).
			WithError(err).Error("Failed to query warehouse capacity")
		switch {
		case errors.MapDomainError(err).Code == errors.CodeNotFound:
			return domain.WarehouseCapacity{}, errors.ErrNotFoundWithID("warehouse", warehouseID).Wrap(err)
		case stderrors.Is(err, resilience.ErrCircuitOpen):
			return domain.WarehouseCapacity{}, errors.ErrServiceUnavailable("warehouse data source").
				WithDetail("warehouseId", warehouseID).Wrap(err)
		}
		return domain.WarehouseCapacity{}, errors.ErrCapacityUnavailable(warehouseID).Wrap(err)
	}

	capacity, err := s.aggregator.FromCounts(counts)
	if err != nil {
		return domain.WarehouseCapacity{}, errors.ErrCapacityUnavailable(warehouseID).Wrap(err)
	}
	return capacity, nil
}

// committedWorkload reads the committed workload, degrading to zero
func (s *CutoffService) committedWorkload(ctx context.Context, warehouseID string) domain.CommittedWorkload {
	committed, err := tracing.ReadWarehouse(ctx, s.tracer, tracing.SpanWorkloadRead, warehouseID,
		func(ctx context.Context) (domain.CommittedWorkload, error) {
			return s.workload.GetCommittedWorkload(ctx, warehouseID)
		},
	)
	if err != nil {
		s.logger.WithContext(ctx).WithOperation(tracing.SpanWorkloadRead).WithWarehouse(warehouseID).
			WithError(err).Warn("Committed workload unavailable, assuming zero")
		return domain.CommittedWorkload{WarehouseID: warehouseID, TotalRemainingWorkload: decimal.Zero}
	}
	if committed.TotalRemainingWorkload.IsNegative() {
		committed.TotalRemainingWorkload = decimal.Zero
	}
	return committed
}

func (s *CutoffService) publish(ctx context.Context, event DecisionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDecision(ctx, event); err != nil {
		s.logger.WithContext(ctx).WithWarehouse(event.WarehouseID).WithError(err).Warn("Failed to publish decision event")
	}
}

// warehouseSnapshot is the state shared by the cutoff, simulation and
// status views.
type warehouseSnapshot struct {
	now         time.Time
	deadline    time.Time
	capacity    domain.WarehouseCapacity
	usable      decimal.Decimal
	committed   domain.CommittedWorkload
	utilization decimal.Decimal
	cutoff      time.Time
}

func (s *CutoffService) snapshot(ctx context.Context, warehouseID string) (*warehouseSnapshot, error) {
	rules := s.rules.Rules()
	now := s.engine.Now()

	capacity, err := s.warehouseCapacity(ctx, warehouseID, now)
	if err != nil {
		return nil, err
	}
	committed := s.committedWorkload(ctx, warehouseID)
	usable := capacity.UsableCapacity()
	deadline := DefaultDeadline(now, rules)

	return &warehouseSnapshot{
		now:         now,
		deadline:    deadline,
		capacity:    capacity,
		usable:      usable,
		committed:   committed,
		utilization: s.aggregator.Utilization(committed.TotalRemainingWorkload, usable),
		cutoff:      cutoffTime(deadline, committed.TotalRemainingWorkload, usable, rules.SafetyBufferMinutes),
	}, nil
}

// cutoffTime is the latest moment new work can be accepted: the deadline
// minus the time to drain workload and the safety buffer.
func cutoffTime(deadline time.Time, workload, capacity decimal.Decimal, safetyBufferMinutes int) time.Time {
	processing := decimal.Zero
	if capacity.IsPositive() {
		processing = workload.Div(capacity)
	}
	total := processing.Add(decimal.NewFromInt(int64(safetyBufferMinutes)))
	return deadline.Add(-minutesToDuration(total))
}

func trendFor(utilization decimal.Decimal) string {
	switch {
	case utilization.GreaterThan(trendUpThreshold):
		return TrendIncreasing
	case utilization.LessThan(trendDownThreshold):
		return TrendDecreasing
	default:
		return TrendStable
	}
}

func alertLevelFor(status domain.DecisionStatus) string {
	switch status {
	case domain.StatusAccepting:
		return AlertNone
	case domain.StatusWarning:
		return AlertLow
	case domain.StatusCritical:
		return AlertMedium
	case domain.StatusClosed:
		return AlertHigh
	default:
		panic(fmt.Sprintf("unhandled decision status %q", string(status)))
	}
}

// GetCurrentCutoff returns the dynamic cutoff of a warehouse
func (s *CutoffService) GetCurrentCutoff(ctx context.Context, query GetCutoffQuery) (*CutoffStatusDTO, error) {
	warehouseID := query.WarehouseID
	if warehouseID == "" {
		warehouseID = DefaultWarehouseID
	}

	snap, err := s.snapshot(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	status := domain.ClassifyStatus(snap.utilization)
	remaining := int(snap.cutoff.Sub(snap.now).Minutes())
	if remaining < 0 {
		remaining = 0
		status = domain.StatusClosed
	}

	ordersRemaining := int(decimal.NewFromInt(1).Sub(snap.utilization).Mul(hundred).IntPart())
	if ordersRemaining < 0 {
		ordersRemaining = 0
	}

	s.recorder.SetWarehouseUtilization(warehouseID, snap.utilization.InexactFloat64())
	s.recorder.SetCutoffMinutesRemaining(warehouseID, float64(remaining))

	s.logger.WithContext(ctx).WithWarehouse(warehouseID).Info("Cutoff retrieved",
		"cutoffTime", snap.cutoff.UTC().Format(time.RFC3339),
		"status", string(status),
		"utilization", snap.utilization.StringFixed(4),
	)

	return &CutoffStatusDTO{
		WarehouseID:              warehouseID,
		CutoffTime:               snap.cutoff.UTC(),
		HardDeadline:             snap.deadline.UTC(),
		CurrentTime:              snap.now.UTC(),
		TimeRemainingMinutes:     remaining,
		CurrentUtilization:       snap.utilization.Round(4),
		OrdersInQueue:            snap.committed.OrdersInQueue,
		EstimatedOrdersRemaining: ordersRemaining,
		Status:                   string(status),
		Trend:                    trendFor(snap.utilization),
		AlertLevel:               alertLevelFor(status),
	}, nil
}

// Simulate projects how a batch of extra orders would change a warehouse
func (s *CutoffService) Simulate(ctx context.Context, cmd SimulateCommand) (*SimulationDTO, error) {
	items, err := ToOrderItems(cmd.Orders)
	if err != nil {
		return nil, errors.ErrValidation(err.Error()).Wrap(err)
	}
	warehouseID := cmd.WarehouseID
	if warehouseID == "" {
		warehouseID = DefaultWarehouseID
	}

	snap, err := s.snapshot(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	additional := s.estimator.BatchWorkload(items)
	simulatedUtilization := s.aggregator.Utilization(snap.committed.TotalRemainingWorkload.Add(additional), snap.usable)

	increase := additional
	if snap.usable.IsPositive() {
		increase = additional.Div(snap.usable)
	}
	simulatedCutoff := snap.cutoff.Add(-minutesToDuration(increase))

	ordersAtRisk := saturatingInt(simulatedUtilization.Sub(riskThreshold).Mul(hundred))
	if ordersAtRisk < 0 {
		ordersAtRisk = 0
	}

	s.logger.WithContext(ctx).WithWarehouse(warehouseID).Info("Simulation performed",
		"scenario", cmd.ScenarioName,
		"additionalWorkload", additional.String(),
		"simulatedUtilization", simulatedUtilization.StringFixed(4),
	)

	return &SimulationDTO{
		ScenarioName:       cmd.ScenarioName,
		WarehouseID:        warehouseID,
		TimeHorizonMinutes: cmd.TimeHorizonMinutes,
		CurrentState: SimulationStateDTO{
			Utilization: snap.utilization.Round(4),
			CutoffTime:  snap.cutoff.UTC(),
			Status:      string(domain.ClassifyStatus(snap.utilization)),
		},
		SimulatedState: SimulationStateDTO{
			Utilization: simulatedUtilization.Round(4),
			CutoffTime:  simulatedCutoff.UTC(),
			Status:      string(domain.ClassifyStatus(simulatedUtilization)),
		},
		Impact: SimulationImpactDTO{
			AdditionalWorkload: additional,
			UtilizationDelta:   simulatedUtilization.Sub(snap.utilization).Round(4),
			CutoffShiftMinutes: -int(increase.IntPart()),
			OrdersAtRisk:       ordersAtRisk,
		},
		Recommendations: recommendations(simulatedUtilization, snap.capacity.BottleneckResource()),
	}, nil
}

func recommendations(utilization decimal.Decimal, bottleneck domain.ResourceClass) []string {
	out := []string{}
	if utilization.GreaterThan(riskThreshold) {
		out = append(out,
			fmt.Sprintf("Consider adding staff to the %s pool", strings.ToLower(string(bottleneck))),
			"Alert sales team to slow order intake",
		)
	}
	if utilization.GreaterThan(overtimeThreshold) {
		out = append(out,
			"Prepare overtime authorization",
			"Consider split deliveries for large orders",
		)
	}
	if len(out) == 0 {
		out = append(out, "Current capacity is sufficient, no action needed")
	}
	return out
}

// GetWarehouseStatus returns the dashboard view of a warehouse
func (s *CutoffService) GetWarehouseStatus(ctx context.Context, query GetWarehouseStatusQuery) (*WarehouseStatusDTO, error) {
	warehouseID := query.WarehouseID
	if warehouseID == "" {
		warehouseID = DefaultWarehouseID
	}

	snap, err := s.snapshot(ctx, warehouseID)
	if err != nil {
		return nil, err
	}

	rules := s.rules.Rules()
	status := domain.ClassifyStatus(snap.utilization)
	stats := s.stats.Today(ctx, warehouseID, snap.now.In(rules.Location()))
	bottleneck := snap.capacity.Bottleneck()

	return &WarehouseStatusDTO{
		WarehouseID:   warehouseID,
		Timestamp:     snap.now.UTC(),
		Status:        string(status),
		OrdersInQueue: snap.committed.OrdersInQueue,
		Cutoff: CutoffInfoDTO{
			CutoffTime: snap.cutoff.UTC(),
			Status:     string(status),
			Trend:      trendFor(snap.utilization),
		},
		Capacity: CapacityStatusDTO{
			Resources:          ToResourceStatusDTOs(snap.capacity),
			Bottleneck:         string(bottleneck.Class),
			BottleneckCapacity: bottleneck.CapacityPerMinute(),
			UsableCapacity:     snap.usable,
			CommittedWorkload:  snap.committed.TotalRemainingWorkload,
			AvailableCapacity:  s.aggregator.RemainingCapacity(snap.usable, snap.committed.TotalRemainingWorkload),
			Utilization:        snap.utilization.Round(4),
		},
		DecisionsToday: ToDecisionStatsDTO(stats),
		Alerts:         alertsFor(snap, status),
	}, nil
}

func alertsFor(snap *warehouseSnapshot, status domain.DecisionStatus) []AlertDTO {
	alerts := []AlertDTO{}
	pct := snap.utilization.Mul(hundred).StringFixed(1)

	switch status {
	case domain.StatusWarning:
		alerts = append(alerts, AlertDTO{Level: AlertLow, Code: "UTIL_HIGH", Message: "Utilization at " + pct + "%", Timestamp: snap.now.UTC()})
	case domain.StatusCritical:
		alerts = append(alerts, AlertDTO{Level: AlertMedium, Code: "UTIL_CRITICAL", Message: "Utilization at " + pct + "%, only VIP orders may still be admitted", Timestamp: snap.now.UTC()})
	case domain.StatusClosed:
		alerts = append(alerts, AlertDTO{Level: AlertHigh, Code: "CAPACITY_EXHAUSTED", Message: "Utilization at " + pct + "%, new orders ship tomorrow", Timestamp: snap.now.UTC()})
	}

	if !snap.cutoff.After(snap.now) {
		alerts = append(alerts, AlertDTO{Level: AlertHigh, Code: "CUTOFF_PASSED", Message: "Today's cutoff has passed", Timestamp: snap.now.UTC()})
	}
	return alerts
}
