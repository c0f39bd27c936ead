package application

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"sort"
	"time"

	"github.com/wms-platform/cutoff-service/internal/domain"
	"github.com/wms-platform/cutoff-service/pkg/logging"
)

const decisionKeyPrefix = "capacity:"

// CachedDecision is a Decision plus whether it came from the cache
type CachedDecision struct {
	Decision domain.Decision
	CacheHit bool
}

// DecisionCache memoizes decisions by order fingerprint for a short window.
// Concurrent misses on the same key may both compute; the last write wins.
type DecisionCache struct {
	store  domain.CacheStore
	logger *logging.Logger
}

// NewDecisionCache creates a cache over store. A nil store disables caching.
func NewDecisionCache(store domain.CacheStore, logger *logging.Logger) *DecisionCache {
	return &DecisionCache{store: store, logger: logger.WithComponent("decision-cache")}
}

// Fingerprint derives the cache key of an order. Line order, handling
// factors and order metadata do not change the key. Every field is length
// prefixed so no product id can mimic a field boundary.
func Fingerprint(warehouseID string, priority domain.Priority, items []domain.OrderItem) string {
	lines := make([]domain.OrderItem, len(items))
	copy(lines, items)
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProductID() != lines[j].ProductID() {
			return lines[i].ProductID() < lines[j].ProductID()
		}
		return lines[i].Quantity() < lines[j].Quantity()
	})

	h := sha256.New()
	writeField(h, warehouseID)
	writeField(h, string(priority))
	var n [binary.MaxVarintLen64]byte
	h.Write(n[:binary.PutUvarint(n[:], uint64(len(lines)))])
	for _, line := range lines {
		writeField(h, line.ProductID())
		h.Write(n[:binary.PutVarint(n[:], int64(line.Quantity()))])
	}

	return decisionKeyPrefix + hex.EncodeToString(h.Sum(nil))[:16]
}

func writeField(w io.Writer, field string) {
	var n [binary.MaxVarintLen64]byte
	_, _ = w.Write(n[:binary.PutUvarint(n[:], uint64(len(field)))])
	_, _ = io.WriteString(w, field)
}

// GetOrCompute returns the cached decision for key or computes and stores a
// fresh one. Store failures are logged and treated as a miss.
func (c *DecisionCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func() (domain.Decision, error)) (CachedDecision, error) {
	if c.store != nil {
		if d, ok := c.lookup(ctx, key); ok {
			return CachedDecision{Decision: d, CacheHit: true}, nil
		}
	}

	d, err := compute()
	if err != nil {
		return CachedDecision{}, err
	}

	if c.store != nil {
		c.save(ctx, key, d, ttl)
	}
	return CachedDecision{Decision: d, CacheHit: false}, nil
}

func (c *DecisionCache) lookup(ctx context.Context, key string) (domain.Decision, bool) {
	raw, found, err := c.store.Get(ctx, key)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Decision cache read failed", "key", key)
		return domain.Decision{}, false
	}
	if !found {
		c.logger.CacheAccess(ctx, key, false)
		return domain.Decision{}, false
	}

	d, err := domain.DecodeDecision(raw)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Discarding undecodable cached decision", "key", key)
		return domain.Decision{}, false
	}

	c.logger.CacheAccess(ctx, key, true)
	return d, true
}

func (c *DecisionCache) save(ctx context.Context, key string, d domain.Decision, ttl time.Duration) {
	raw, err := domain.EncodeDecision(d)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Failed to encode decision for cache", "key", key)
		return
	}
	if err := c.store.Set(ctx, key, raw, ttl); err != nil {
		c.logger.WithContext(ctx).WithError(err).Warn("Decision cache write failed", "key", key)
	}
}
