package cloudevents

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/cutoff-service/pkg/tracing"
)

// EventFactory creates CloudEvents for a single source
type EventFactory struct {
	source string
	now    func() time.Time
}

// NewEventFactory creates a new EventFactory for a specific source
func NewEventFactory(source string) *EventFactory {
	return &EventFactory{source: source, now: time.Now}
}

// CreateEvent creates a new WMSCloudEvent and copies the active trace
// context from ctx into the traceparent extension.
func (f *EventFactory) CreateEvent(ctx context.Context, eventType, subject string, data interface{}) *WMSCloudEvent {
	event := &WMSCloudEvent{
		SpecVersion:     "1.0",
		Type:            eventType,
		Source:          f.source,
		Subject:         subject,
		ID:              uuid.New().String(),
		Time:            f.now().UTC(),
		DataContentType: "application/json",
		Data:            data,
	}

	event.TraceParent, event.TraceState = tracing.TraceParent(ctx)

	return event
}

// CreateDecisionMadeEvent creates a DecisionMade event for a warehouse
func (f *EventFactory) CreateDecisionMadeEvent(ctx context.Context, correlationID string, data DecisionMadeData) *WMSCloudEvent {
	event := f.CreateEvent(ctx, DecisionMade, "warehouse/"+data.WarehouseID, data)
	event.CorrelationID = correlationID
	event.WarehouseID = data.WarehouseID
	event.OrderID = data.OrderID
	return event
}

// CreateScenarioSwitchedEvent creates a ScenarioSwitched event
func (f *EventFactory) CreateScenarioSwitchedEvent(ctx context.Context, previous, current string) *WMSCloudEvent {
	return f.CreateEvent(ctx, ScenarioSwitched, "scenario/"+current, ScenarioSwitchedData{
		Previous: previous,
		Current:  current,
	})
}
