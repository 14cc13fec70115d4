package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/cache"
)

type countingStore struct {
	mu     sync.Mutex
	loads  int
	record *models.StoredAISettings
}

func (s *countingStore) Load(context.Context, string) (*models.StoredAISettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loads++
	return s.record, nil
}

func TestCachedSettingsStoreHitsInnerOnce(t *testing.T) {
	inner := &countingStore{record: &models.StoredAISettings{
		UserID:           "tenant-1",
		SmartModeEnabled: true,
		UpdatedAt:        time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}}
	store := NewCachedSettingsStore(inner, cache.NewMemoryCache())

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		got, err := store.Load(ctx, "tenant-1")
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if got == nil || got.UserID != "tenant-1" || !got.SmartModeEnabled {
			t.Fatalf("load %d: got %+v", i, got)
		}
	}
	if inner.loads != 1 {
		t.Fatalf("inner store hit %d times, want 1", inner.loads)
	}
}

func TestCachedSettingsStoreCachesMisses(t *testing.T) {
	inner := &countingStore{}
	store := NewCachedSettingsStore(inner, cache.NewMemoryCache())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		got, err := store.Load(ctx, "tenant-2")
		if err != nil {
			t.Fatalf("load %d: %v", i, err)
		}
		if got != nil {
			t.Fatalf("load %d: expected nil record, got %+v", i, got)
		}
	}
	if inner.loads != 1 {
		t.Fatalf("inner store hit %d times, want 1", inner.loads)
	}
}
