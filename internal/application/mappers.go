package application

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/cutoff-service/internal/domain"
)

// ToOrderItems validates client order lines into domain items
func ToOrderItems(inputs []OrderItemInput) ([]domain.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, domain.ErrEmptyOrder
	}

	items := make([]domain.OrderItem, 0, len(inputs))
	for i, in := range inputs {
		weight := decimal.NewFromInt(1)
		if in.WeightFactor != nil {
			weight = *in.WeightFactor
		}
		location := decimal.NewFromInt(1)
		if in.LocationFactor != nil {
			location = *in.LocationFactor
		}

		item, err := domain.NewOrderItem(in.ProductID, in.Quantity, weight, location)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// ToCapacityCheckDTO converts a decision into the capacity check response
func ToCapacityCheckDTO(cached CachedDecision, warehouseID, orderID string, priority domain.Priority, elapsed time.Duration) *CapacityCheckDTO {
	d := cached.Decision
	return &CapacityCheckDTO{
		CanShipToday:        d.CanShipToday,
		Confidence:          d.Confidence.Round(4),
		EstimatedCompletion: d.EstimatedCompletion,
		CurrentUtilization:  d.CurrentUtilization.Round(4),
		Status:              string(d.Status),
		Message:             d.Message,
		DecisionFactors: DecisionFactorsDTO{
			WorkloadImpact:     d.Factors.WorkloadImpact,
			RemainingCapacity:  d.Factors.RemainingCapacity.Round(4),
			TimeBufferMinutes:  d.Factors.TimeBufferMinutes,
			BottleneckResource: string(d.Factors.BottleneckResource),
			CongestionFactor:   d.Factors.CongestionFactor.Round(4),
			VIPOverrideUsed:    d.Factors.VIPOverrideUsed,
		},
		Metadata: DecisionMetadataDTO{
			WarehouseID:       warehouseID,
			OrderID:           orderID,
			Priority:          string(priority),
			CalculatedAt:      d.CalculatedAt,
			CacheHit:          cached.CacheHit,
			CalculationTimeMs: float64(elapsed.Microseconds()) / 1000,
		},
	}
}

// ToResourceStatusDTOs lists the staff pools of a warehouse
func ToResourceStatusDTOs(capacity domain.WarehouseCapacity) []ResourceStatusDTO {
	resources := capacity.Resources()
	out := make([]ResourceStatusDTO, 0, len(resources))
	for _, r := range resources {
		out = append(out, ResourceStatusDTO{
			Class:                      string(r.Class),
			Available:                  r.AvailableCount,
			Efficiency:                 r.Efficiency,
			CapacityPerMinute:          r.CapacityPerMinute(),
			EffectiveCapacityPerMinute: r.EffectiveCapacityPerMinute(),
		})
	}
	return out
}

// ToDecisionStatsDTO converts daily counters
func ToDecisionStatsDTO(stats DecisionStats) DecisionStatsDTO {
	return DecisionStatsDTO{
		Total:        stats.Total,
		Approved:     stats.Approved,
		Rejected:     stats.Rejected,
		VIPOverrides: stats.VIPOverrides,
		ApprovalRate: stats.ApprovalRate(),
	}
}

// ToScenarioDTO converts a demo scenario
func ToScenarioDTO(s domain.Scenario) ScenarioDTO {
	return ScenarioDTO{
		Key:         s.Key,
		Name:        s.Name,
		Description: s.Description,
		Utilization: s.Utilization,
		Status:      string(s.Status),
	}
}
