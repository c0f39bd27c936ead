package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/cutoff-service/internal/domain"
)

var _ domain.WarehouseDataSource = (*WarehouseRepository)(nil)

// fakeRow scans fixed values into the destinations in order
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: want %d destinations, got %d", len(r.values), len(dest))
	}
	for i, v := range r.values {
		switch d := dest[i].(type) {
		case *string:
			*d = v.(string)
		case *int:
			*d = v.(int)
		case *time.Time:
			*d = v.(time.Time)
		default:
			return fmt.Errorf("scan: unsupported destination %T", dest[i])
		}
	}
	return nil
}

type fakeQuerier struct {
	queryRowFn func(ctx context.Context, sql string, args ...any) pgx.Row
	execFn     func(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	pingErr    error
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.queryRowFn(ctx, sql, args...)
}

func (f *fakeQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if f.execFn != nil {
		return f.execFn(ctx, sql, args...)
	}
	return pgconn.CommandTag{}, nil
}

func (f *fakeQuerier) Ping(context.Context) error { return f.pingErr }

func TestGetCurrentCapacity(t *testing.T) {
	day := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	var gotArgs []any
	q := &fakeQuerier{queryRowFn: func(_ context.Context, _ string, args ...any) pgx.Row {
		gotArgs = args
		return fakeRow{values: []any{"WH-MAIN", day, 8, 5, 3}}
	}}
	repo := NewWarehouseRepository(q)

	counts, err := repo.GetCurrentCapacity(context.Background(), "WH-MAIN", time.Date(2026, 1, 5, 13, 30, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, []any{"WH-MAIN", "2026-01-05"}, gotArgs)
	assert.Equal(t, domain.ResourceCounts{
		WarehouseID: "WH-MAIN", Date: day, AvailablePickers: 8, AvailablePackers: 5, AvailableLoaders: 3,
	}, counts)
}

func TestGetCurrentCapacity_Errors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantNotFound bool
	}{
		{"no rows", pgx.ErrNoRows, true},
		{"connection lost", errors.New("conn closed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := NewWarehouseRepository(&fakeQuerier{queryRowFn: func(context.Context, string, ...any) pgx.Row {
				return fakeRow{err: tt.err}
			}})
			_, err := repo.GetCurrentCapacity(context.Background(), "WH-MAIN", time.Now())
			require.Error(t, err)
			assert.Equal(t, tt.wantNotFound, errors.Is(err, domain.ErrWarehouseNotFound))
		})
	}
}

func TestGetCommittedWorkload(t *testing.T) {
	repo := NewWarehouseRepository(&fakeQuerier{queryRowFn: func(context.Context, string, ...any) pgx.Row {
		return fakeRow{values: []any{"WH-MAIN", "280.50", "0.701", "WARNING", 47}}
	}})

	w, err := repo.GetCommittedWorkload(context.Background(), "WH-MAIN")
	require.NoError(t, err)

	assert.Equal(t, "280.5", w.TotalRemainingWorkload.String())
	assert.Equal(t, "0.701", w.CurrentUtilization.String())
	assert.Equal(t, domain.StatusWarning, w.SystemStatus)
	assert.Equal(t, 47, w.OrdersInQueue)
}

func TestGetCommittedWorkload_DerivesUnknownStatus(t *testing.T) {
	repo := NewWarehouseRepository(&fakeQuerier{queryRowFn: func(context.Context, string, ...any) pgx.Row {
		return fakeRow{values: []any{"WH-MAIN", "390", "0.975", "", 95}}
	}})

	w, err := repo.GetCommittedWorkload(context.Background(), "WH-MAIN")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, w.SystemStatus)
}

func TestGetCommittedWorkload_BadNumeric(t *testing.T) {
	repo := NewWarehouseRepository(&fakeQuerier{queryRowFn: func(context.Context, string, ...any) pgx.Row {
		return fakeRow{values: []any{"WH-MAIN", "NaN?", "0.5", "ACCEPTING", 1}}
	}})

	_, err := repo.GetCommittedWorkload(context.Background(), "WH-MAIN")
	assert.Error(t, err)
}

func TestEnsureSchemaAndHealth(t *testing.T) {
	var executed string
	q := &fakeQuerier{
		execFn: func(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
			executed = sql
			return pgconn.CommandTag{}, nil
		},
		pingErr: errors.New("down"),
	}
	repo := NewWarehouseRepository(q)

	require.NoError(t, repo.EnsureSchema(context.Background()))
	assert.Contains(t, executed, "CREATE TABLE IF NOT EXISTS warehouse_capacity")
	assert.Error(t, repo.HealthCheck(context.Background()))
	assert.Equal(t, "postgres", repo.Name())
}
