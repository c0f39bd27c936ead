package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Priority is the service level requested for an order
type Priority string

const (
	PriorityStandard Priority = "STANDARD"
	PriorityExpress  Priority = "EXPRESS"
	PriorityVIP      Priority = "VIP"
)

// ParsePriority converts a string into a Priority. Empty means STANDARD.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityStandard, nil
	}
	p := Priority(strings.ToUpper(s))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, s)
	}
	return p, nil
}

// IsValid reports whether p is a known priority
func (p Priority) IsValid() bool {
	switch p {
	case PriorityStandard, PriorityExpress, PriorityVIP:
		return true
	}
	return false
}

// IsVIP reports whether p may use the VIP reserve
func (p Priority) IsVIP() bool {
	return p == PriorityVIP
}

// DecisionStatus is the admission state of a warehouse
type DecisionStatus string

const (
	StatusAccepting DecisionStatus = "ACCEPTING"
	StatusWarning   DecisionStatus = "WARNING"
	StatusCritical  DecisionStatus = "CRITICAL"
	StatusClosed    DecisionStatus = "CLOSED"
)

// Status thresholds on utilization
var (
	WarningThreshold  = decimal.RequireFromString("0.70")
	CriticalThreshold = decimal.RequireFromString("0.85")
	ClosedThreshold   = decimal.RequireFromString("0.95")
)

// ClassifyStatus maps a utilization onto a status. Each threshold belongs
// to the higher band.
func ClassifyStatus(utilization decimal.Decimal) DecisionStatus {
	switch {
	case utilization.LessThan(WarningThreshold):
		return StatusAccepting
	case utilization.LessThan(CriticalThreshold):
		return StatusWarning
	case utilization.LessThan(ClosedThreshold):
		return StatusCritical
	default:
		return StatusClosed
	}
}

// IsValid reports whether s is a known status
func (s DecisionStatus) IsValid() bool {
	switch s {
	case StatusAccepting, StatusWarning, StatusCritical, StatusClosed:
		return true
	}
	return false
}

// DecisionFactors explains how a decision was reached
type DecisionFactors struct {
	WorkloadImpact     decimal.Decimal `json:"workloadImpact"`
	RemainingCapacity  decimal.Decimal `json:"remainingCapacity"`
	TimeBufferMinutes  int             `json:"timeBufferMinutes"`
	BottleneckResource ResourceClass   `json:"bottleneckResource"`
	CongestionFactor   decimal.Decimal `json:"congestionFactor"`
	VIPOverrideUsed    bool            `json:"vipOverrideUsed"`
}

// Decision is the outcome of one admission check
type Decision struct {
	CanShipToday        bool            `json:"canShipToday"`
	Status              DecisionStatus  `json:"status"`
	Confidence          decimal.Decimal `json:"confidence"`
	CurrentUtilization  decimal.Decimal `json:"currentUtilization"`
	EstimatedCompletion time.Time       `json:"estimatedCompletion"`
	Message             string          `json:"message"`
	Factors             DecisionFactors `json:"decisionFactors"`
	CalculatedAt        time.Time       `json:"calculatedAt"`
}
