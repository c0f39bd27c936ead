package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/wms-platform/cutoff-service/internal/application"
	"github.com/wms-platform/cutoff-service/pkg/cloudevents"
	"github.com/wms-platform/cutoff-service/pkg/logging"
)

// EventProducer writes CloudEvents to a topic
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, event *cloudevents.WMSCloudEvent) error
}

// PublishRecorder receives publish metrics
type PublishRecorder interface {
	RecordKafkaPublish(topic, eventType string, success bool)
}

// DecisionPublisher publishes cutoff events as CloudEvents to Kafka
type DecisionPublisher struct {
	producer     EventProducer
	eventFactory *cloudevents.EventFactory
	topic        string
	recorder     PublishRecorder
	logger       *logging.Logger
}

// NewDecisionPublisher creates a publisher writing to topic. recorder may be nil.
func NewDecisionPublisher(producer EventProducer, eventFactory *cloudevents.EventFactory, topic string, recorder PublishRecorder, logger *logging.Logger) *DecisionPublisher {
	return &DecisionPublisher{
		producer:     producer,
		eventFactory: eventFactory,
		topic:        topic,
		recorder:     recorder,
		logger:       logger,
	}
}

// PublishDecision publishes a DecisionMade event
func (p *DecisionPublisher) PublishDecision(ctx context.Context, event application.DecisionEvent) error {
	d := event.Decision
	ce := p.eventFactory.CreateDecisionMadeEvent(ctx, logging.CorrelationIDFromContext(ctx), cloudevents.DecisionMadeData{
		WarehouseID:          event.WarehouseID,
		OrderID:              event.OrderID,
		Priority:             string(event.Priority),
		CanShipToday:         d.CanShipToday,
		Status:               string(d.Status),
		Confidence:           d.Confidence.String(),
		ProjectedUtilization: d.CurrentUtilization.String(),
		BottleneckResource:   string(d.Factors.BottleneckResource),
		VIPOverrideUsed:      d.Factors.VIPOverrideUsed,
		EstimatedCompletion:  d.EstimatedCompletion,
		CalculatedAt:         d.CalculatedAt,
	})
	return p.publish(ctx, ce)
}

// PublishScenarioSwitched publishes a ScenarioSwitched event
func (p *DecisionPublisher) PublishScenarioSwitched(ctx context.Context, previous, current string) error {
	ce := p.eventFactory.CreateScenarioSwitchedEvent(ctx, previous, current)
	ce.CorrelationID = logging.CorrelationIDFromContext(ctx)
	return p.publish(ctx, ce)
}

func (p *DecisionPublisher) publish(ctx context.Context, ce *cloudevents.WMSCloudEvent) error {
	start := time.Now()
	err := p.producer.PublishEvent(ctx, p.topic, ce)

	if p.recorder != nil {
		p.recorder.RecordKafkaPublish(p.topic, ce.Type, err == nil)
	}
	p.logger.KafkaPublish(ctx, p.topic, ce.Type, err == nil, time.Since(start))

	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", ce.Type, err)
	}
	return nil
}
