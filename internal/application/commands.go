package application

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItemInput is an order line as received from a client. Missing
// handling factors default to 1.0.
type OrderItemInput struct {
	ProductID      string
	Quantity       int
	WeightFactor   *decimal.Decimal
	LocationFactor *decimal.Decimal
}

// CheckCapacityCommand asks whether an order can ship today
type CheckCapacityCommand struct {
	OrderID      string
	CustomerID   string
	Priority     string
	WarehouseID  string
	DeliveryDate *time.Time
	Items        []OrderItemInput
}

// GetCutoffQuery requests the current cutoff of a warehouse
type GetCutoffQuery struct {
	WarehouseID string
}

// SimulateCommand projects the effect of extra orders on a warehouse
type SimulateCommand struct {
	ScenarioName       string
	WarehouseID        string
	Orders             []OrderItemInput
	TimeHorizonMinutes int
}

// GetWarehouseStatusQuery requests the dashboard view of a warehouse
type GetWarehouseStatusQuery struct {
	WarehouseID string
}

// SwitchScenarioCommand selects a demo scenario
type SwitchScenarioCommand struct {
	Name string
}
