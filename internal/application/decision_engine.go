package application

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/cutoff-service/internal/config"
	"github.com/wms-platform/cutoff-service/internal/domain"
)

// Decision messages
const (
	MessageShipToday        = "Ship today possible"
	MessageCapacityExceeded = "Ships tomorrow - capacity exceeded"
	MessageTimeExceeded     = "Ships tomorrow - insufficient time"
)

var (
	// vipExtraUtilization widens the utilization ceiling for VIP orders
	vipExtraUtilization = decimal.RequireFromString("0.10")

	lowBufferMinutes     = 15
	reducedBufferMinutes = 30
	lowBufferPenalty     = decimal.RequireFromString("0.7")
	reducedBufferPenalty = decimal.RequireFromString("0.85")
	vipOverridePenalty   = decimal.RequireFromString("0.80")

	nanosPerMinute = decimal.NewFromInt(int64(time.Minute))
	maxMinutes     = decimal.NewFromInt(int64(math.MaxInt64 / int64(time.Minute)))
	maxInt         = decimal.NewFromInt(math.MaxInt)
	minInt         = decimal.NewFromInt(math.MinInt)
)

// Clock returns the current time
type Clock func() time.Time

// DecisionInput is everything the engine needs for one order
type DecisionInput struct {
	NewWorkload       decimal.Decimal
	CommittedWorkload decimal.Decimal
	Capacity          decimal.Decimal
	Bottleneck        domain.ResourceClass
	Priority          domain.Priority
	// Deadline defaults to the next daily cutoff when zero
	Deadline time.Time
}

// DecisionEngine decides whether an order can still ship today. It holds
// no mutable state and is safe for concurrent use.
type DecisionEngine struct {
	estimator  *WorkloadEstimator
	aggregator *CapacityAggregator
	rules      RulesProvider
	clock      Clock
}

// NewDecisionEngine creates a DecisionEngine. A nil clock means time.Now.
func NewDecisionEngine(estimator *WorkloadEstimator, aggregator *CapacityAggregator, rules RulesProvider, clock Clock) *DecisionEngine {
	if clock == nil {
		clock = time.Now
	}
	return &DecisionEngine{
		estimator:  estimator,
		aggregator: aggregator,
		rules:      rules,
		clock:      clock,
	}
}

// Now returns the engine's notion of the current time
func (e *DecisionEngine) Now() time.Time {
	return e.clock()
}

// DefaultDeadline is today's cutoff hour in the rules' time zone, or
// tomorrow's once now has reached it.
func DefaultDeadline(now time.Time, rules config.Rules) time.Time {
	local := now.In(rules.Location())
	deadline := time.Date(local.Year(), local.Month(), local.Day(), rules.CutoffHour, 0, 0, 0, rules.Location())
	if !now.Before(deadline) {
		deadline = deadline.AddDate(0, 0, 1)
	}
	return deadline
}

// ProcessingMinutes is workload / capacity scaled by congestion. Without
// capacity the workload itself is used as the base time.
func (e *DecisionEngine) ProcessingMinutes(workload, capacity, congestion decimal.Decimal) decimal.Decimal {
	base := workload
	if capacity.IsPositive() {
		base = workload.Div(capacity)
	}
	return base.Mul(congestion)
}

// Decide evaluates one order against the warehouse state
func (e *DecisionEngine) Decide(in DecisionInput) (domain.Decision, error) {
	if in.NewWorkload.IsNegative() {
		return domain.Decision{}, fmt.Errorf("%w: new workload must not be negative, got %s", domain.ErrInvalidWorkload, in.NewWorkload)
	}
	if in.CommittedWorkload.IsNegative() {
		return domain.Decision{}, fmt.Errorf("%w: committed workload must not be negative, got %s", domain.ErrInvalidWorkload, in.CommittedWorkload)
	}
	if !in.Bottleneck.IsValid() {
		return domain.Decision{}, fmt.Errorf("%w: bottleneck %q", domain.ErrInvalidResourceClass, string(in.Bottleneck))
	}
	if !in.Priority.IsValid() {
		return domain.Decision{}, fmt.Errorf("%w: %q", domain.ErrInvalidPriority, string(in.Priority))
	}

	rules := e.rules.Rules()
	maxUtilization := rules.MaxUtilizationDecimal()
	now := e.clock()

	deadline := in.Deadline
	if deadline.IsZero() {
		deadline = DefaultDeadline(now, rules)
	}

	projectedWorkload := in.CommittedWorkload.Add(in.NewWorkload)
	projected := e.aggregator.Utilization(projectedWorkload, in.Capacity)
	congestion := e.estimator.CongestionFactor(projected, rules.CongestionAlphaDecimal())
	processing := e.ProcessingMinutes(projectedWorkload, in.Capacity, congestion)

	estimatedCompletion := now.Add(minutesToDuration(processing))

	timeRemaining := decimal.NewFromInt(deadline.Sub(now).Nanoseconds()).Div(nanosPerMinute)
	timeBuffer := saturatingInt(timeRemaining.Sub(processing))

	utilizationOk := projected.LessThan(maxUtilization)
	timeOk := timeBuffer >= rules.SafetyBufferMinutes

	vipOverride := false
	if in.Priority.IsVIP() && !(utilizationOk && timeOk) {
		if projected.LessThan(maxUtilization.Add(vipExtraUtilization)) {
			utilizationOk = true
			vipOverride = true
		}
	}

	canShip := utilizationOk && timeOk

	message := MessageShipToday
	switch {
	case !utilizationOk:
		message = MessageCapacityExceeded
	case !timeOk:
		message = MessageTimeExceeded
	}

	return domain.Decision{
		CanShipToday:        canShip,
		Status:              domain.ClassifyStatus(projected),
		Confidence:          confidence(projected, timeBuffer, vipOverride),
		CurrentUtilization:  projected,
		EstimatedCompletion: estimatedCompletion.UTC(),
		Message:             message,
		Factors: domain.DecisionFactors{
			WorkloadImpact:     in.NewWorkload,
			RemainingCapacity:  in.Capacity.Sub(projectedWorkload),
			TimeBufferMinutes:  timeBuffer,
			BottleneckResource: in.Bottleneck,
			CongestionFactor:   congestion,
			VIPOverrideUsed:    vipOverride,
		},
		CalculatedAt: now.UTC(),
	}, nil
}

func confidence(utilization decimal.Decimal, timeBuffer int, vipOverride bool) decimal.Decimal {
	c := clamp01(decimal.NewFromInt(1).Sub(utilization))

	switch {
	case timeBuffer < lowBufferMinutes:
		c = c.Mul(lowBufferPenalty)
	case timeBuffer < reducedBufferMinutes:
		c = c.Mul(reducedBufferPenalty)
	}
	if vipOverride {
		c = c.Mul(vipOverridePenalty)
	}

	return clamp01(c)
}

func clamp01(d decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.NewFromInt(1), decimal.Max(decimal.Zero, d))
}

// minutesToDuration converts fractional minutes to a Duration, saturating
// instead of overflowing.
func minutesToDuration(minutes decimal.Decimal) time.Duration {
	if minutes.GreaterThan(maxMinutes) {
		return time.Duration(math.MaxInt64)
	}
	if minutes.IsNegative() {
		return 0
	}
	return time.Duration(minutes.Mul(nanosPerMinute).IntPart())
}

// saturatingInt truncates d to an int, pinning values outside the int range
// to its bounds.
func saturatingInt(d decimal.Decimal) int {
	if d.GreaterThan(maxInt) {
		return math.MaxInt
	}
	if d.LessThan(minInt) {
		return math.MinInt
	}
	return int(d.IntPart())
}
