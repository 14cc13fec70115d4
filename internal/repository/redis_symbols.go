package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/redis/go-redis/v9"
)

// RedisSymbolUniverse discovers the active symbol set from a Redis set
// maintained by the subscription layer.
type RedisSymbolUniverse struct {
	client *redis.Client
	key    string
}

func NewRedisSymbolUniverse(client *redis.Client, key string) *RedisSymbolUniverse {
	if key == "" {
		key = "signalforge:symbols:active"
	}
	return &RedisSymbolUniverse{client: client, key: key}
}

// ActiveSymbols returns the discovered set in a stable order. An empty set
// is not an error; the caller falls back to its configured list.
func (u *RedisSymbolUniverse) ActiveSymbols(ctx context.Context) ([]string, error) {
	symbols, err := u.client.SMembers(ctx, u.key).Result()
	if err != nil {
		return nil, fmt.Errorf("active symbols: %w", err)
	}
	sort.Strings(symbols)
	return symbols, nil
}
