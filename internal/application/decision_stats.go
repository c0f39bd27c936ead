package application

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/logging"
)

const statsRetention = 48 * time.Hour

// Daily decision counters
const (
	statTotal       = "total"
	statApproved    = "approved"
	statRejected    = "rejected"
	statVIPOverride = "vip_override"
)

// DecisionStats are the decision counts of one warehouse for one day
type DecisionStats struct {
	Total        int64
	Approved     int64
	Rejected     int64
	VIPOverrides int64
}

// ApprovalRate is Approved / Total, or zero before the first decision
func (s DecisionStats) ApprovalRate() decimal.Decimal {
	if s.Total == 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(s.Approved).Div(decimal.NewFromInt(s.Total)).Round(4)
}

// DecisionStatsRecorder keeps daily counters in the cache store. Counting is
// best effort; store errors are logged and swallowed.
type DecisionStatsRecorder struct {
	store  domain.CacheStore
	logger *logging.Logger
}

// NewDecisionStatsRecorder creates a recorder over store
func NewDecisionStatsRecorder(store domain.CacheStore, logger *logging.Logger) *DecisionStatsRecorder {
	return &DecisionStatsRecorder{store: store, logger: logger.WithComponent("decision-stats")}
}

func statsKey(warehouseID string, day time.Time, field string) string {
	return fmt.Sprintf("stats:%s:%s:%s", warehouseID, day.Format("2006-01-02"), field)
}

// Record counts decision against the warehouse's counters for day
func (r *DecisionStatsRecorder) Record(ctx context.Context, warehouseID string, day time.Time, decision domain.Decision) {
	fields := []string{statTotal}
	if decision.CanShipToday {
		fields = append(fields, statApproved)
	} else {
		fields = append(fields, statRejected)
	}
	if decision.Factors.VIPOverrideUsed {
		fields = append(fields, statVIPOverride)
	}

	for _, field := range fields {
		if err := r.incr(ctx, statsKey(warehouseID, day, field)); err != nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Failed to record decision stats", "warehouseId", warehouseID, "field", field)
			return
		}
	}
}

func (r *DecisionStatsRecorder) incr(ctx context.Context, key string) error {
	if counter, ok := r.store.(domain.AtomicCounter); ok {
		_, err := counter.IncrementWithExpiry(ctx, key, statsRetention)
		return err
	}
	count, err := r.store.Increment(ctx, key)
	if err != nil {
		return err
	}
	if count == 1 {
		return r.store.Expire(ctx, key, statsRetention)
	}
	return nil
}

// Today reads the counters of warehouseID for day. Unreadable counters
// are reported as zero.
func (r *DecisionStatsRecorder) Today(ctx context.Context, warehouseID string, day time.Time) DecisionStats {
	read := func(field string) int64 {
		raw, found, err := r.store.Get(ctx, statsKey(warehouseID, day, field))
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).Warn("Failed to read decision stats", "warehouseId", warehouseID, "field", field)
			return 0
		}
		if !found {
			return 0
		}
		n, err := strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}

	return DecisionStats{
		Total:        read(statTotal),
		Approved:     read(statApproved),
		Rejected:     read(statRejected),
		VIPOverrides: read(statVIPOverride),
	}
}
