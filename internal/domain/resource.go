package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ResourceClass is a pool of warehouse staff
type ResourceClass string

const (
	ResourcePicker ResourceClass = "PICKER"
	ResourcePacker ResourceClass = "PACKER"
	ResourceLoader ResourceClass = "LOADER"
)

// ResourceClasses lists every class in tie-break order
var ResourceClasses = []ResourceClass{ResourcePicker, ResourcePacker, ResourceLoader}

// ParseResourceClass converts a string into a ResourceClass
func ParseResourceClass(s string) (ResourceClass, error) {
	class := ResourceClass(s)
	if !class.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidResourceClass, s)
	}
	return class, nil
}

// IsValid reports whether c is one of the known classes
func (c ResourceClass) IsValid() bool {
	switch c {
	case ResourcePicker, ResourcePacker, ResourceLoader:
		return true
	}
	return false
}

// Rate is the workload units one person of this class processes per minute
func (c ResourceClass) Rate() decimal.Decimal {
	switch c {
	case ResourcePicker:
		return decimal.RequireFromString("1.2")
	case ResourcePacker:
		return decimal.RequireFromString("0.8")
	case ResourceLoader:
		return decimal.RequireFromString("2.0")
	default:
		panic(fmt.Sprintf("unhandled resource class %q", string(c)))
	}
}

// ResourceCapacity is the throughput of one staff pool
type ResourceCapacity struct {
	Class          ResourceClass   `json:"class"`
	AvailableCount int             `json:"availableCount"`
	Efficiency     decimal.Decimal `json:"efficiency"`
}

// NewResourceCapacity validates and builds a ResourceCapacity
func NewResourceCapacity(class ResourceClass, count int, efficiency decimal.Decimal) (ResourceCapacity, error) {
	if !class.IsValid() {
		return ResourceCapacity{}, fmt.Errorf("%w: %q", ErrInvalidResourceClass, string(class))
	}
	if count < 0 {
		return ResourceCapacity{}, fmt.Errorf("%w: %s count must not be negative, got %d", ErrInvalidCapacity, class, count)
	}
	if efficiency.IsNegative() || efficiency.GreaterThan(decimal.NewFromInt(1)) {
		return ResourceCapacity{}, fmt.Errorf("%w: %s efficiency %s out of range [0, 1]", ErrInvalidCapacity, class, efficiency)
	}
	return ResourceCapacity{Class: class, AvailableCount: count, Efficiency: efficiency}, nil
}

// CapacityPerMinute is count × rate. Efficiency is not applied.
func (r ResourceCapacity) CapacityPerMinute() decimal.Decimal {
	return decimal.NewFromInt(int64(r.AvailableCount)).Mul(r.Class.Rate())
}

// EffectiveCapacityPerMinute applies efficiency; used for reporting only
func (r ResourceCapacity) EffectiveCapacityPerMinute() decimal.Decimal {
	return r.CapacityPerMinute().Mul(r.Efficiency)
}

// MaxVIPReserve is the largest share of capacity that may be held back
var MaxVIPReserve = decimal.RequireFromString("0.3")

// WarehouseCapacity combines the three staff pools of a warehouse
type WarehouseCapacity struct {
	Picker            ResourceCapacity `json:"picker"`
	Packer            ResourceCapacity `json:"packer"`
	Loader            ResourceCapacity `json:"loader"`
	VIPReservePercent decimal.Decimal  `json:"vipReservePercent"`
}

// NewWarehouseCapacity checks that each pool sits in its own slot and the
// VIP reserve is within [0, 0.3].
func NewWarehouseCapacity(picker, packer, loader ResourceCapacity, vipReserve decimal.Decimal) (WarehouseCapacity, error) {
	slots := []struct {
		got  ResourceCapacity
		want ResourceClass
	}{{picker, ResourcePicker}, {packer, ResourcePacker}, {loader, ResourceLoader}}
	for _, s := range slots {
		if s.got.Class != s.want {
			return WarehouseCapacity{}, fmt.Errorf("%w: expected %s pool, got %q", ErrInvalidCapacity, s.want, string(s.got.Class))
		}
	}
	if vipReserve.IsNegative() || vipReserve.GreaterThan(MaxVIPReserve) {
		return WarehouseCapacity{}, fmt.Errorf("%w: vip reserve %s out of range [0, 0.3]", ErrInvalidCapacity, vipReserve)
	}
	return WarehouseCapacity{Picker: picker, Packer: packer, Loader: loader, VIPReservePercent: vipReserve}, nil
}

// Resources returns the pools in tie-break order
func (w WarehouseCapacity) Resources() []ResourceCapacity {
	return []ResourceCapacity{w.Picker, w.Packer, w.Loader}
}

// Bottleneck is the pool with the lowest capacity per minute. On a tie
// the first pool in PICKER, PACKER, LOADER order wins.
func (w WarehouseCapacity) Bottleneck() ResourceCapacity {
	resources := w.Resources()
	lowest := resources[0]
	for _, r := range resources[1:] {
		if r.CapacityPerMinute().LessThan(lowest.CapacityPerMinute()) {
			lowest = r
		}
	}
	return lowest
}

// BottleneckResource is the class of Bottleneck
func (w WarehouseCapacity) BottleneckResource() ResourceClass {
	return w.Bottleneck().Class
}

// BottleneckCapacity is the capacity per minute of the bottleneck pool
func (w WarehouseCapacity) BottleneckCapacity() decimal.Decimal {
	return w.Bottleneck().CapacityPerMinute()
}

// UsableCapacity is the bottleneck capacity after the VIP reserve
func (w WarehouseCapacity) UsableCapacity() decimal.Decimal {
	return w.BottleneckCapacity().Mul(decimal.NewFromInt(1).Sub(w.VIPReservePercent))
}
