package cloudevents

import (
	"time"
)

// Event types emitted by the cutoff service
const (
	DecisionMade     = "wms.cutoff.decision-made"
	ScenarioSwitched = "wms.cutoff.scenario-switched"
)

// SourceCutoff is the CloudEvents source of this service
const SourceCutoff = "/wms/cutoff-service"

// Extension attribute names carried as message headers
const (
	ExtCorrelationID = "wmscorrelationid"
	ExtWarehouseID   = "wmswarehouseid"
	ExtOrderID       = "wmsorderid"
)

// WMSCloudEvent represents a CloudEvents v1.0 compliant event for WMS
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS-specific extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	WarehouseID   string `json:"wmswarehouseid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// DecisionMadeData is the payload of a DecisionMade event. Decimal values are
// carried as strings so consumers never see float rounding.
type DecisionMadeData struct {
	WarehouseID          string    `json:"warehouseId"`
	OrderID              string    `json:"orderId,omitempty"`
	Priority             string    `json:"priority"`
	CanShipToday         bool      `json:"canShipToday"`
	Status               string    `json:"status"`
	Confidence           string    `json:"confidence"`
	ProjectedUtilization string    `json:"projectedUtilization"`
	BottleneckResource   string    `json:"bottleneckResource"`
	VIPOverrideUsed      bool      `json:"vipOverrideUsed"`
	EstimatedCompletion  time.Time `json:"estimatedCompletion"`
	CalculatedAt         time.Time `json:"calculatedAt"`
}

// ScenarioSwitchedData is the payload of a ScenarioSwitched event
type ScenarioSwitchedData struct {
	Previous string `json:"previous"`
	Current  string `json:"current"`
}
