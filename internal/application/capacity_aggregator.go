package application

import (
	"github.com/shopspring/decimal"

	"github.com/wms-platform/cutoff-service/internal/config"
	"github.com/wms-platform/cutoff-service/internal/domain"
)

// RulesProvider returns the rules in force at the time of the call
type RulesProvider interface {
	Rules() config.Rules
}

// CapacityAggregator turns staff counts into warehouse throughput
type CapacityAggregator struct {
	rules RulesProvider
}

// NewCapacityAggregator creates an aggregator reading the VIP reserve from rules
func NewCapacityAggregator(rules RulesProvider) *CapacityAggregator {
	return &CapacityAggregator{rules: rules}
}

// ResourceCapacity builds one validated staff pool
func (a *CapacityAggregator) ResourceCapacity(class domain.ResourceClass, count int, efficiency decimal.Decimal) (domain.ResourceCapacity, error) {
	return domain.NewResourceCapacity(class, count, efficiency)
}

// WarehouseCapacity builds the three pools with the configured VIP reserve.
// Efficiencies are given in PICKER, PACKER, LOADER order; missing ones
// default to 1.0.
func (a *CapacityAggregator) WarehouseCapacity(pickers, packers, loaders int, efficiencies ...decimal.Decimal) (domain.WarehouseCapacity, error) {
	eff := []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(1), decimal.NewFromInt(1)}
	copy(eff, efficiencies)

	counts := []int{pickers, packers, loaders}
	pools := make([]domain.ResourceCapacity, len(domain.ResourceClasses))
	for i, class := range domain.ResourceClasses {
		pool, err := a.ResourceCapacity(class, counts[i], eff[i])
		if err != nil {
			return domain.WarehouseCapacity{}, err
		}
		pools[i] = pool
	}

	return domain.NewWarehouseCapacity(pools[0], pools[1], pools[2], a.rules.Rules().VIPReserveDecimal())
}

// FromCounts builds warehouse capacity from a data-source reading
func (a *CapacityAggregator) FromCounts(counts domain.ResourceCounts) (domain.WarehouseCapacity, error) {
	return a.WarehouseCapacity(counts.AvailablePickers, counts.AvailablePackers, counts.AvailableLoaders)
}

// Utilization is committed / capacity, saturating to 1.0 when there is no
// capacity at all.
func (a *CapacityAggregator) Utilization(committed, capacity decimal.Decimal) decimal.Decimal {
	if !capacity.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return committed.Div(capacity)
}

// RemainingCapacity is total − committed, floored at zero
func (a *CapacityAggregator) RemainingCapacity(total, committed decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, total.Sub(committed))
}

// CanAccommodate reports whether adding newWorkload keeps utilization
// strictly below maxUtilization, along with the projected utilization.
func (a *CapacityAggregator) CanAccommodate(newWorkload, committed, capacity, maxUtilization decimal.Decimal) (bool, decimal.Decimal) {
	projected := a.Utilization(committed.Add(newWorkload), capacity)
	return projected.LessThan(maxUtilization), projected
}
