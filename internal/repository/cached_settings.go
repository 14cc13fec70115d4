package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"SignalForge/internal/domain/models"
	domrepo "SignalForge/internal/domain/repository"
	"SignalForge/pkg/cache"
	applogger "SignalForge/pkg/logger"
)

// settingsCacheTTL is effectively process-lifetime: settings are populated
// once per run and never invalidated mid-run.
const settingsCacheTTL = 24 * time.Hour

// cachedSettingsEntry carries a negative marker so tenants with no stored
// record also hit the underlying store only once.
type cachedSettingsEntry struct {
	Missing bool                     `json:"missing"`
	Record  *models.StoredAISettings `json:"record,omitempty"`
}

// CachedSettingsStore is a read-through cache in front of a SettingsStore.
// Values are cached as JSON strings so any cache backend can serve them.
type CachedSettingsStore struct {
	inner domrepo.SettingsStore
	cache cache.Service
	l     *applogger.Logger
}

func NewCachedSettingsStore(inner domrepo.SettingsStore, c cache.Service) *CachedSettingsStore {
	return &CachedSettingsStore{inner: inner, cache: c}
}

// SetLogger injects a structured logger.
func (s *CachedSettingsStore) SetLogger(l *applogger.Logger) { s.l = l }

func (s *CachedSettingsStore) Load(ctx context.Context, userID string) (*models.StoredAISettings, error) {
	key := cache.GenerateKey("settings:stored", userID)

	var raw string
	err := s.cache.Get(ctx, key, &raw)
	if err == nil {
		var entry cachedSettingsEntry
		if decErr := json.Unmarshal([]byte(raw), &entry); decErr == nil {
			if entry.Missing {
				return nil, nil
			}
			return entry.Record, nil
		}
		// Corrupt entry: fall through to the store and overwrite.
	} else if !errors.Is(err, cache.ErrCacheMiss) && s.l != nil {
		s.l.Warn("settings cache read failed, falling through",
			applogger.String("user_id", userID),
			applogger.Error(err),
		)
	}

	stored, err := s.inner.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(cachedSettingsEntry{Missing: stored == nil, Record: stored})
	if err != nil {
		return nil, fmt.Errorf("encode settings cache entry: %w", err)
	}
	if cacheErr := s.cache.Set(ctx, key, string(data), settingsCacheTTL); cacheErr != nil && s.l != nil {
		s.l.Warn("settings cache write failed",
			applogger.String("user_id", userID),
			applogger.Error(cacheErr),
		)
	}
	return stored, nil
}
