package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/wms-platform/cutoff-service/internal/domain"
)

// Schema creates the tables read by WarehouseRepository
const Schema = `
CREATE TABLE IF NOT EXISTS warehouse_capacity (
    warehouse_id      TEXT    NOT NULL,
    resource_date     DATE    NOT NULL,
    available_pickers INTEGER NOT NULL CHECK (available_pickers >= 0),
    available_packers INTEGER NOT NULL CHECK (available_packers >= 0),
    available_loaders INTEGER NOT NULL CHECK (available_loaders >= 0),
    PRIMARY KEY (warehouse_id, resource_date)
);

CREATE TABLE IF NOT EXISTS cutoff_calculation (
    warehouse_id             TEXT        PRIMARY KEY,
    total_remaining_workload NUMERIC     NOT NULL,
    current_utilization      NUMERIC     NOT NULL,
    system_status            TEXT        NOT NULL,
    orders_in_queue          INTEGER     NOT NULL DEFAULT 0,
    calculated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

const (
	capacityQuery = `
	SELECT warehouse_id, resource_date, available_pickers, available_packers, available_loaders
	FROM warehouse_capacity
	WHERE warehouse_id = $1
	    AND resource_date <= $2::date
	ORDER BY resource_date DESC
	LIMIT 1;
	`

	workloadQuery = `
	SELECT warehouse_id, total_remaining_workload::text, current_utilization::text, system_status, orders_in_queue
	FROM cutoff_calculation
	WHERE warehouse_id = $1;
	`
)

// Querier is the subset of *pgxpool.Pool the repository uses
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// Config holds PostgreSQL connection settings
type Config struct {
	DSN      string
	MaxConns int32
}

// NewPool opens a connection pool and verifies it
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("verify postgres connection: %w", err)
	}
	return pool, nil
}

// WarehouseRepository reads warehouse state from PostgreSQL
type WarehouseRepository struct {
	db Querier
}

// NewWarehouseRepository creates a repository over db
func NewWarehouseRepository(db Querier) *WarehouseRepository {
	return &WarehouseRepository{db: db}
}

// EnsureSchema creates the tables if they do not exist
func (r *WarehouseRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Name identifies the data source
func (r *WarehouseRepository) Name() string { return "postgres" }

// HealthCheck pings the database
func (r *WarehouseRepository) HealthCheck(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// GetCurrentCapacity returns the staffing of warehouseID on date, or of the
// most recent earlier day.
func (r *WarehouseRepository) GetCurrentCapacity(ctx context.Context, warehouseID string, date time.Time) (domain.ResourceCounts, error) {
	var counts domain.ResourceCounts
	err := r.db.QueryRow(ctx, capacityQuery, warehouseID, date.Format("2006-01-02")).Scan(
		&counts.WarehouseID,
		&counts.Date,
		&counts.AvailablePickers,
		&counts.AvailablePackers,
		&counts.AvailableLoaders,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ResourceCounts{}, fmt.Errorf("%w: no capacity for %s on %s", domain.ErrWarehouseNotFound, warehouseID, date.Format("2006-01-02"))
	}
	if err != nil {
		return domain.ResourceCounts{}, fmt.Errorf("get warehouse capacity: query warehouse_capacity: %w", err)
	}
	return counts, nil
}

// GetCommittedWorkload returns the latest calculation for warehouseID
func (r *WarehouseRepository) GetCommittedWorkload(ctx context.Context, warehouseID string) (domain.CommittedWorkload, error) {
	var (
		w           domain.CommittedWorkload
		total       string
		utilization string
		status      string
	)
	err := r.db.QueryRow(ctx, workloadQuery, warehouseID).Scan(&w.WarehouseID, &total, &utilization, &status, &w.OrdersInQueue)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.CommittedWorkload{}, fmt.Errorf("%w: no committed workload for %s", domain.ErrWarehouseNotFound, warehouseID)
	}
	if err != nil {
		return domain.CommittedWorkload{}, fmt.Errorf("get committed workload: query cutoff_calculation: %w", err)
	}

	if w.TotalRemainingWorkload, err = decimal.NewFromString(total); err != nil {
		return domain.CommittedWorkload{}, fmt.Errorf("get committed workload: remaining workload %q: %w", total, err)
	}
	if w.CurrentUtilization, err = decimal.NewFromString(utilization); err != nil {
		return domain.CommittedWorkload{}, fmt.Errorf("get committed workload: utilization %q: %w", utilization, err)
	}

	w.SystemStatus = domain.DecisionStatus(status)
	if !w.SystemStatus.IsValid() {
		w.SystemStatus = domain.ClassifyStatus(w.CurrentUtilization)
	}
	return w, nil
}
