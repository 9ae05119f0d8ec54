// Package ledgerstore provides durable backing for the performance
// ledger. The redis implementation mirrors the in-memory append/trim
// contract with per-key lists.
package ledgerstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/quantrail/sor/pkg/types"
)

const keyPrefix = "sor:ledger:"

// Redis stores per-(symbol, venue) record lists in redis lists,
// trimmed to the ledger cap on every append.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a redis-backed ledger store
func NewRedis(addr, password string, db int) *Redis {
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

// Ping verifies connectivity
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}

// Load returns all stored records for a key, oldest first
func (r *Redis) Load(ctx context.Context, symbol, venue string) ([]types.PerformanceRecord, error) {
	raw, err := r.client.LRange(ctx, recordKey(symbol, venue), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("ledger load failed: %w", err)
	}

	records := make([]types.PerformanceRecord, 0, len(raw))
	for _, item := range raw {
		var rec types.PerformanceRecord
		if err := json.Unmarshal([]byte(item), &rec); err != nil {
			return nil, fmt.Errorf("corrupt ledger record: %w", err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Append pushes a record onto a key's list and trims it to the most
// recent cap entries.
func (r *Redis) Append(ctx context.Context, symbol, venue string, rec types.PerformanceRecord, cap int) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := recordKey(symbol, venue)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-cap), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ledger append failed: %w", err)
	}
	return nil
}

func recordKey(symbol, venue string) string {
	return keyPrefix + symbol + ":" + venue
}
