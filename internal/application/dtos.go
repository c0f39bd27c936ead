package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// DecisionFactorsDTO explains a capacity decision
type DecisionFactorsDTO struct {
	WorkloadImpact     decimal.Decimal `json:"workloadImpact"`
	RemainingCapacity  decimal.Decimal `json:"remainingCapacity"`
	TimeBufferMinutes  int             `json:"timeBufferMinutes"`
	BottleneckResource string          `json:"bottleneckResource"`
	CongestionFactor   decimal.Decimal `json:"congestionFactor"`
	VIPOverrideUsed    bool            `json:"vipOverrideUsed"`
}

// DecisionMetadataDTO describes how a decision was produced
type DecisionMetadataDTO struct {
	WarehouseID       string    `json:"warehouseId"`
	OrderID           string    `json:"orderId,omitempty"`
	Priority          string    `json:"priority"`
	CalculatedAt      time.Time `json:"calculatedAt"`
	CacheHit          bool      `json:"cacheHit"`
	CalculationTimeMs float64   `json:"calculationTimeMs"`
}

// CapacityCheckDTO is the answer to a capacity check
type CapacityCheckDTO struct {
	CanShipToday        bool                `json:"canShipToday"`
	Confidence          decimal.Decimal     `json:"confidence"`
	EstimatedCompletion time.Time           `json:"estimatedCompletion"`
	CurrentUtilization  decimal.Decimal     `json:"currentUtilization"`
	Status              string              `json:"status"`
	Message             string              `json:"message"`
	DecisionFactors     DecisionFactorsDTO  `json:"decisionFactors"`
	Metadata            DecisionMetadataDTO `json:"metadata"`
}

// CutoffStatusDTO is the current dynamic cutoff of a warehouse
type CutoffStatusDTO struct {
	WarehouseID              string          `json:"warehouseId"`
	CutoffTime               time.Time       `json:"cutoffTime"`
	HardDeadline             time.Time       `json:"hardDeadline"`
	CurrentTime              time.Time       `json:"currentTime"`
	TimeRemainingMinutes     int             `json:"timeRemainingMinutes"`
	CurrentUtilization       decimal.Decimal `json:"currentUtilization"`
	OrdersInQueue            int             `json:"ordersInQueue"`
	EstimatedOrdersRemaining int             `json:"estimatedOrdersRemaining"`
	Status                   string          `json:"status"`
	Trend                    string          `json:"trend"`
	AlertLevel               string          `json:"alertLevel"`
}

// SimulationStateDTO is a warehouse state before or after a simulation
type SimulationStateDTO struct {
	Utilization decimal.Decimal `json:"utilization"`
	CutoffTime  time.Time       `json:"cutoffTime"`
	Status      string          `json:"status"`
}

// SimulationImpactDTO summarizes the difference a simulation makes
type SimulationImpactDTO struct {
	AdditionalWorkload decimal.Decimal `json:"additionalWorkload"`
	UtilizationDelta   decimal.Decimal `json:"utilizationDelta"`
	CutoffShiftMinutes int             `json:"cutoffShiftMinutes"`
	OrdersAtRisk       int             `json:"ordersAtRisk"`
}

// SimulationDTO is the result of a what-if simulation
type SimulationDTO struct {
	ScenarioName       string              `json:"scenarioName"`
	WarehouseID        string              `json:"warehouseId"`
	TimeHorizonMinutes int                 `json:"timeHorizonMinutes"`
	CurrentState       SimulationStateDTO  `json:"currentState"`
	SimulatedState     SimulationStateDTO  `json:"simulatedState"`
	Impact             SimulationImpactDTO `json:"impact"`
	Recommendations    []string            `json:"recommendations"`
}

// ResourceStatusDTO is one staff pool in the status view
type ResourceStatusDTO struct {
	Class                      string          `json:"class"`
	Available                  int             `json:"available"`
	Efficiency                 decimal.Decimal `json:"efficiency"`
	CapacityPerMinute          decimal.Decimal `json:"capacityPerMinute"`
	EffectiveCapacityPerMinute decimal.Decimal `json:"effectiveCapacityPerMinute"`
}

// CapacityStatusDTO is the capacity section of the status view
type CapacityStatusDTO struct {
	Resources          []ResourceStatusDTO `json:"resources"`
	Bottleneck         string              `json:"bottleneck"`
	BottleneckCapacity decimal.Decimal     `json:"bottleneckCapacity"`
	UsableCapacity     decimal.Decimal     `json:"usableCapacity"`
	CommittedWorkload  decimal.Decimal     `json:"committedWorkload"`
	AvailableCapacity  decimal.Decimal     `json:"availableCapacity"`
	Utilization        decimal.Decimal     `json:"utilization"`
}

// CutoffInfoDTO is the cutoff section of the status view
type CutoffInfoDTO struct {
	CutoffTime time.Time `json:"cutoffTime"`
	Status     string    `json:"status"`
	Trend      string    `json:"trend"`
}

// DecisionStatsDTO counts today's decisions
type DecisionStatsDTO struct {
	Total        int64           `json:"total"`
	Approved     int64           `json:"approved"`
	Rejected     int64           `json:"rejected"`
	VIPOverrides int64           `json:"vipOverrides"`
	ApprovalRate decimal.Decimal `json:"approvalRate"`
}

// AlertDTO is an operational alert
type AlertDTO struct {
	Level     string    `json:"level"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// WarehouseStatusDTO is the dashboard view of a warehouse
type WarehouseStatusDTO struct {
	WarehouseID    string            `json:"warehouseId"`
	Timestamp      time.Time         `json:"timestamp"`
	Status         string            `json:"status"`
	OrdersInQueue  int               `json:"ordersInQueue"`
	Cutoff         CutoffInfoDTO     `json:"cutoff"`
	Capacity       CapacityStatusDTO `json:"capacity"`
	DecisionsToday DecisionStatsDTO  `json:"decisionsToday"`
	Alerts         []AlertDTO        `json:"alerts"`
}

// ScenarioDTO describes a demo scenario
type ScenarioDTO struct {
	Key         string          `json:"key"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Utilization decimal.Decimal `json:"utilization"`
	Status      string          `json:"status"`
}

// ScenarioListDTO lists the demo scenarios and the active one
type ScenarioListDTO struct {
	Scenarios []ScenarioDTO `json:"scenarios"`
	Current   string        `json:"current"`
}

// ScenarioSwitchDTO is the result of switching scenarios
type ScenarioSwitchDTO struct {
	Previous string      `json:"previous"`
	Scenario ScenarioDTO `json:"scenario"`
}
