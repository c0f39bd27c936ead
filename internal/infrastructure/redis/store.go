package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

// incrementWithExpiry sets the TTL only when the counter is created, so a
// window never slides forward on later hits.
var incrementWithExpiry = goredis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Store is a CacheStore backed by Redis
type Store struct {
	client   goredis.UniversalClient
	embedded *miniredis.Miniredis
}

// NewStore connects to Redis and pings it
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.Addr, err)
	}

	return &Store{client: client}, nil
}

// NewEmbeddedStore starts an in-process Redis server and connects to it.
// State lives only as long as the process.
func NewEmbeddedStore() (*Store, error) {
	server, err := miniredis.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start embedded redis: %w", err)
	}
	return &Store{
		client:   goredis.NewClient(&goredis.Options{Addr: server.Addr()}),
		embedded: server,
	}, nil
}

// NewStoreFromClient wraps an existing client
func NewStoreFromClient(client goredis.UniversalClient) *Store {
	return &Store{client: client}
}

// Get returns the value of key. A missing key is not an error.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return val, true, nil
}

// Set stores value under key for ttl
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Increment adds one to the counter at key
func (s *Store) Increment(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}
	return n, nil
}

// Expire sets the TTL of key
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
		return fmt.Errorf("redis expire %s: %w", key, err)
	}
	return nil
}

// IncrementWithExpiry increments key and, when this created it, sets its
// TTL in the same round trip.
func (s *Store) IncrementWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := incrementWithExpiry.Run(ctx, s.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis incr with expiry %s: %w", key, err)
	}
	return n, nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Embedded reports whether the store runs on the in-process server
func (s *Store) Embedded() bool {
	return s.embedded != nil
}

// Close closes the client and stops the embedded server, if any
func (s *Store) Close() error {
	err := s.client.Close()
	if s.embedded != nil {
		s.embedded.Close()
	}
	return err
}
