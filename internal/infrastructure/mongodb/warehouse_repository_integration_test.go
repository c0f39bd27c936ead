//go:build integration

package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/wms-platform/cutoff-service/internal/domain"
	wmstesting "github.com/wms-platform/cutoff-service/pkg/testing"
)

func TestWarehouseRepository_Integration(t *testing.T) {
	ctx := context.Background()

	db, err := wmstesting.StartWarehouseMongo(ctx, "cutoff_test")
	require.NoError(t, err)
	defer db.Close(ctx)

	repo := NewWarehouseRepository(db.Database)
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.SaveCapacity(ctx, domain.ResourceCounts{
		WarehouseID: "WH-MAIN", Date: monday, AvailablePickers: 8, AvailablePackers: 5, AvailableLoaders: 3,
	}))
	require.NoError(t, repo.SaveCapacity(ctx, domain.ResourceCounts{
		WarehouseID: "WH-MAIN", Date: monday.AddDate(0, 0, 2), AvailablePickers: 9, AvailablePackers: 6, AvailableLoaders: 4,
	}))

	t.Run("exact day", func(t *testing.T) {
		counts, err := repo.GetCurrentCapacity(ctx, "WH-MAIN", monday.Add(10*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 8, counts.AvailablePickers)
	})

	t.Run("falls back to latest earlier day", func(t *testing.T) {
		counts, err := repo.GetCurrentCapacity(ctx, "WH-MAIN", monday.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, monday, counts.Date)
	})

	t.Run("no earlier day", func(t *testing.T) {
		_, err := repo.GetCurrentCapacity(ctx, "WH-MAIN", monday.AddDate(0, 0, -1))
		assert.ErrorIs(t, err, domain.ErrWarehouseNotFound)
	})

	t.Run("committed workload keeps exact decimals", func(t *testing.T) {
		require.NoError(t, repo.SaveCommittedWorkload(ctx, domain.CommittedWorkload{
			WarehouseID:            "WH-MAIN",
			TotalRemainingWorkload: decimal.RequireFromString("280.50"),
			CurrentUtilization:     decimal.RequireFromString("0.701"),
			SystemStatus:           domain.StatusWarning,
			OrdersInQueue:          47,
		}))

		w, err := repo.GetCommittedWorkload(ctx, "WH-MAIN")
		require.NoError(t, err)
		assert.Equal(t, "280.5", w.TotalRemainingWorkload.String())
		assert.Equal(t, "0.701", w.CurrentUtilization.String())
		assert.Equal(t, 47, w.OrdersInQueue)
	})

	t.Run("reads documents written upstream", func(t *testing.T) {
		total, err := primitive.ParseDecimal128("12.25")
		require.NoError(t, err)
		utilization, err := primitive.ParseDecimal128("0.9")
		require.NoError(t, err)

		require.NoError(t, db.Insert(ctx, capacityCollection, bson.M{
			"warehouseId": "WH-NORTH", "resourceDate": "2026-01-05",
			"availablePickers": 2, "availablePackers": 2, "availableLoaders": 2,
		}))
		require.NoError(t, db.Insert(ctx, workloadCollection, bson.M{
			"warehouseId": "WH-NORTH", "totalRemainingWorkload": total, "currentUtilization": utilization,
			"systemStatus": "", "ordersInQueue": 3,
		}))

		counts, err := repo.GetCurrentCapacity(ctx, "WH-NORTH", monday)
		require.NoError(t, err)
		assert.Equal(t, 2, counts.AvailableLoaders)

		w, err := repo.GetCommittedWorkload(ctx, "WH-NORTH")
		require.NoError(t, err)
		assert.Equal(t, "12.25", w.TotalRemainingWorkload.String())
		assert.Equal(t, domain.StatusCritical, w.SystemStatus, "a missing status is derived from utilization")
	})

	require.NoError(t, repo.HealthCheck(ctx))
}
