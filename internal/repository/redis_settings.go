package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"SignalForge/internal/domain/models"
)

// RedisSettingsStore reads persisted per-tenant settings records from Redis.
// Records are written by the settings management surface; this store is
// read-only.
type RedisSettingsStore struct {
	client *redis.Client
	prefix string
}

func NewRedisSettingsStore(client *redis.Client, prefix string) *RedisSettingsStore {
	if prefix == "" {
		prefix = "signalforge:settings"
	}
	return &RedisSettingsStore{client: client, prefix: prefix}
}

func (s *RedisSettingsStore) key(userID string) string {
	return s.prefix + ":" + userID
}

// Load fetches the stored record for a tenant. A missing record is
// (nil, nil), not an error.
func (s *RedisSettingsStore) Load(ctx context.Context, userID string) (*models.StoredAISettings, error) {
	if userID == "" {
		return nil, fmt.Errorf("load settings: empty user id")
	}
	raw, err := s.client.Get(ctx, s.key(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load settings %q: %w", userID, err)
	}
	var stored models.StoredAISettings
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode settings %q: %w", userID, err)
	}
	return &stored, nil
}
