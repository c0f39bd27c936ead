package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Allowed ranges of the per-item handling factors
var (
	MinWeightFactor   = decimal.NewFromInt(1)
	MaxWeightFactor   = decimal.NewFromInt(3)
	MinLocationFactor = decimal.NewFromInt(1)
	MaxLocationFactor = decimal.NewFromInt(2)
)

// OrderItem is one line of an order as seen by workload estimation.
// It is immutable once built.
type OrderItem struct {
	productID      string
	quantity       int
	weightFactor   decimal.Decimal
	locationFactor decimal.Decimal
}

// NewOrderItem validates and builds an order line
func NewOrderItem(productID string, quantity int, weightFactor, locationFactor decimal.Decimal) (OrderItem, error) {
	if productID == "" {
		return OrderItem{}, fmt.Errorf("%w: product id is required", ErrInvalidOrderItem)
	}
	if quantity <= 0 {
		return OrderItem{}, fmt.Errorf("%w: quantity must be positive, got %d", ErrInvalidOrderItem, quantity)
	}
	if weightFactor.LessThan(MinWeightFactor) || weightFactor.GreaterThan(MaxWeightFactor) {
		return OrderItem{}, fmt.Errorf("%w: weight factor %s out of range [1.0, 3.0]", ErrInvalidOrderItem, weightFactor)
	}
	if locationFactor.LessThan(MinLocationFactor) || locationFactor.GreaterThan(MaxLocationFactor) {
		return OrderItem{}, fmt.Errorf("%w: location factor %s out of range [1.0, 2.0]", ErrInvalidOrderItem, locationFactor)
	}

	return OrderItem{
		productID:      productID,
		quantity:       quantity,
		weightFactor:   weightFactor,
		locationFactor: locationFactor,
	}, nil
}

func (i OrderItem) ProductID() string               { return i.productID }
func (i OrderItem) Quantity() int                   { return i.quantity }
func (i OrderItem) WeightFactor() decimal.Decimal   { return i.weightFactor }
func (i OrderItem) LocationFactor() decimal.Decimal { return i.locationFactor }

// OrderStatus is the fulfilment stage of an order already in the pipeline
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusAllocated OrderStatus = "ALLOCATED"
	OrderStatusPicking   OrderStatus = "PICKING"
	OrderStatusPacking   OrderStatus = "PACKING"
	OrderStatusLoading   OrderStatus = "LOADING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
)

// ParseOrderStatus converts a string into an OrderStatus
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(s)
	switch status {
	case OrderStatusNew, OrderStatusAllocated, OrderStatusPicking,
		OrderStatusPacking, OrderStatusLoading, OrderStatusShipped:
		return status, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderStatus, s)
}

// ProgressFactor is the share of an order's workload still ahead of it
func (s OrderStatus) ProgressFactor() decimal.Decimal {
	switch s {
	case OrderStatusNew:
		return decimal.NewFromInt(1)
	case OrderStatusAllocated:
		return decimal.RequireFromString("0.95")
	case OrderStatusPicking:
		return decimal.RequireFromString("0.60")
	case OrderStatusPacking:
		return decimal.RequireFromString("0.25")
	case OrderStatusLoading:
		return decimal.RequireFromString("0.08")
	case OrderStatusShipped:
		return decimal.Zero
	default:
		panic(fmt.Sprintf("unhandled order status %q", string(s)))
	}
}
