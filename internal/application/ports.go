package application

import (
	"context"
	"time"

	"github.com/wms-platform/cutoff-service/internal/domain"
)

// DecisionEvent is published after every freshly computed decision
type DecisionEvent struct {
	WarehouseID string
	OrderID     string
	Priority    domain.Priority
	Decision    domain.Decision
}

// EventPublisher publishes service events. Failures never fail a request.
type EventPublisher interface {
	PublishDecision(ctx context.Context, event DecisionEvent) error
	PublishScenarioSwitched(ctx context.Context, previous, current string) error
}

// DecisionRecorder receives business metrics
type DecisionRecorder interface {
	RecordCapacityCheck(approved bool, priority string, cacheHit bool, duration time.Duration)
	RecordCacheLookup(hit bool)
	SetWarehouseUtilization(warehouseID string, utilization float64)
	SetCutoffMinutesRemaining(warehouseID string, minutes float64)
}

type noopRecorder struct{}

func (noopRecorder) RecordCapacityCheck(bool, string, bool, time.Duration) {}
func (noopRecorder) RecordCacheLookup(bool)                                {}
func (noopRecorder) SetWarehouseUtilization(string, float64)               {}
func (noopRecorder) SetCutoffMinutesRemaining(string, float64)             {}
