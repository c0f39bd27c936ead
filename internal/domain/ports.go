package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ResourceCounts is the staff on shift in a warehouse for a given date
type ResourceCounts struct {
	WarehouseID      string    `json:"warehouseId"`
	Date             time.Time `json:"date"`
	AvailablePickers int       `json:"availablePickers"`
	AvailablePackers int       `json:"availablePackers"`
	AvailableLoaders int       `json:"availableLoaders"`
}

// CommittedWorkload is the work already accepted for today and not yet done
type CommittedWorkload struct {
	WarehouseID            string          `json:"warehouseId"`
	TotalRemainingWorkload decimal.Decimal `json:"totalRemainingWorkload"`
	CurrentUtilization     decimal.Decimal `json:"currentUtilization"`
	SystemStatus           DecisionStatus  `json:"systemStatus"`
	OrdersInQueue          int             `json:"ordersInQueue"`
}

// CapacitySource reports available staff per warehouse
type CapacitySource interface {
	GetCurrentCapacity(ctx context.Context, warehouseID string, date time.Time) (ResourceCounts, error)
}

// WorkloadSource reports the committed workload per warehouse
type WorkloadSource interface {
	GetCommittedWorkload(ctx context.Context, warehouseID string) (CommittedWorkload, error)
}

// WarehouseDataSource is a complete backing store for warehouse state
type WarehouseDataSource interface {
	CapacitySource
	WorkloadSource
	Name() string
	HealthCheck(ctx context.Context) error
}

// CacheStore is a key-value store with TTLs and counters
type CacheStore interface {
	// Get returns found=false when the key does not exist
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// AtomicCounter is implemented by stores that can increment a key and set
// its TTL on creation in one step.
type AtomicCounter interface {
	IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Scenario describes one fixed warehouse state of the demo data source
type Scenario struct {
	Key         string          `json:"key" yaml:"key"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description" yaml:"description"`
	Utilization decimal.Decimal `json:"utilization" yaml:"-"`
	Status      DecisionStatus  `json:"status" yaml:"-"`
}

// ScenarioCatalog lists and switches the demo scenarios
type ScenarioCatalog interface {
	Scenarios() []Scenario
	Current() string
	Switch(name string) (previous Scenario, current Scenario, err error)
}
