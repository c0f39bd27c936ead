package application

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/cutoff-service/internal/domain"
)

// WorkloadConstants are the fixed per-order handling times in workload units
type WorkloadConstants struct {
	SetupTime      decimal.Decimal
	PackingBase    decimal.Decimal
	PackingPerItem decimal.Decimal
	LoadingTime    decimal.Decimal
}

// DefaultWorkloadConstants returns the standard handling times
func DefaultWorkloadConstants() WorkloadConstants {
	return WorkloadConstants{
		SetupTime:      decimal.RequireFromString("2.0"),
		PackingBase:    decimal.RequireFromString("3.0"),
		PackingPerItem: decimal.RequireFromString("0.5"),
		LoadingTime:    decimal.RequireFromString("1.5"),
	}
}

// WorkloadEstimator converts orders into workload units
type WorkloadEstimator struct {
	constants WorkloadConstants
}

// NewWorkloadEstimator creates an estimator with the standard constants
func NewWorkloadEstimator() *WorkloadEstimator {
	return &WorkloadEstimator{constants: DefaultWorkloadConstants()}
}

// ItemWorkload is quantity × weight factor × location factor
func (e *WorkloadEstimator) ItemWorkload(item domain.OrderItem) decimal.Decimal {
	return decimal.NewFromInt(int64(item.Quantity())).
		Mul(item.WeightFactor()).
		Mul(item.LocationFactor())
}

// BatchWorkload sums the item workload of items without any fixed times
func (e *WorkloadEstimator) BatchWorkload(items []domain.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(e.ItemWorkload(item))
	}
	return total
}

// OrderWorkload estimates one order. An empty order is rejected.
func (e *WorkloadEstimator) OrderWorkload(items []domain.OrderItem) (domain.Workload, error) {
	if len(items) == 0 {
		return domain.Workload{}, domain.ErrEmptyOrder
	}

	return domain.Workload{
		ItemWorkload:   e.BatchWorkload(items),
		SetupTime:      e.constants.SetupTime,
		PackingBase:    e.constants.PackingBase,
		PackingPerItem: e.constants.PackingPerItem,
		LoadingTime:    e.constants.LoadingTime,
		ItemCount:      len(items),
	}, nil
}

// RemainingWorkload scales workload by how much of it is still ahead of an
// order in the given fulfilment stage.
func (e *WorkloadEstimator) RemainingWorkload(workload decimal.Decimal, status domain.OrderStatus) (decimal.Decimal, error) {
	if workload.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: workload must not be negative, got %s", domain.ErrInvalidWorkload, workload)
	}
	if _, err := domain.ParseOrderStatus(string(status)); err != nil {
		return decimal.Zero, err
	}
	return workload.Mul(status.ProgressFactor()), nil
}

// CongestionFactor is 1 + alpha × utilization². It is never below 1.
func (e *WorkloadEstimator) CongestionFactor(utilization, alpha decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(alpha.Mul(utilization).Mul(utilization))
}
