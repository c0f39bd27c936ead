// Package resilient decorates a warehouse data source with a circuit
// breaker, retries and per-query instrumentation.
package resilient

import (
	"context"
	"errors"
	"time"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/logging"
	"github.com/wms-platform/cutoff-service/pkg/resilience"
)

// Query names used in logs and metrics
const (
	QueryCapacity = "warehouse_capacity"
	QueryWorkload = "committed_workload"
)

// QueryRecorder receives data-source query metrics
type QueryRecorder interface {
	RecordDataSourceQuery(query string, success bool, duration time.Duration)
}

// Source is a WarehouseDataSource guarded by a circuit breaker. Lookups of
// unknown warehouses are answers, not failures: they are neither retried
// nor counted against the breaker.
type Source struct {
	next     domain.WarehouseDataSource
	breaker  *resilience.CircuitBreaker
	retry    *resilience.RetryConfig
	recorder QueryRecorder
	logger   *logging.Logger
}

// NewSource wraps next. recorder may be nil.
func NewSource(next domain.WarehouseDataSource, breaker *resilience.CircuitBreaker, retry *resilience.RetryConfig, recorder QueryRecorder, logger *logging.Logger) *Source {
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	return &Source{
		next:     next,
		breaker:  breaker,
		retry:    retry,
		recorder: recorder,
		logger:   logger.WithComponent("datasource"),
	}
}

// outcome carries a result through the breaker along with an error the
// breaker should not count.
type outcome[T any] struct {
	value T
	err   error
}

func call[T any](ctx context.Context, s *Source, query string, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()

	out, err := resilience.RetryWithResult(ctx, s.retry, func() (outcome[T], error) {
		return resilience.Call(ctx, s.breaker, func() (outcome[T], error) {
			v, err := fn(ctx)
			if errors.Is(err, domain.ErrWarehouseNotFound) {
				return outcome[T]{err: err}, nil
			}
			return outcome[T]{value: v}, err
		})
	})
	if err == nil {
		err = out.err
	}

	duration := time.Since(start)
	success := err == nil || errors.Is(err, domain.ErrWarehouseNotFound)
	if s.recorder != nil {
		s.recorder.RecordDataSourceQuery(query, success, duration)
	}
	s.logger.DataSourceQuery(ctx, s.next.Name(), query, duration, success)

	if err != nil {
		var zero T
		return zero, err
	}
	return out.value, nil
}

// GetCurrentCapacity reads staffing through the breaker
func (s *Source) GetCurrentCapacity(ctx context.Context, warehouseID string, date time.Time) (domain.ResourceCounts, error) {
	return call(ctx, s, QueryCapacity, func(ctx context.Context) (domain.ResourceCounts, error) {
		return s.next.GetCurrentCapacity(ctx, warehouseID, date)
	})
}

// GetCommittedWorkload reads committed workload through the breaker
func (s *Source) GetCommittedWorkload(ctx context.Context, warehouseID string) (domain.CommittedWorkload, error) {
	return call(ctx, s, QueryWorkload, func(ctx context.Context) (domain.CommittedWorkload, error) {
		return s.next.GetCommittedWorkload(ctx, warehouseID)
	})
}

// Name is the wrapped source's name
func (s *Source) Name() string { return s.next.Name() }

// HealthCheck bypasses the breaker so readiness reflects the backend
func (s *Source) HealthCheck(ctx context.Context) error {
	return s.next.HealthCheck(ctx)
}
