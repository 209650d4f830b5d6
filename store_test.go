package gameground

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func setupTestStore(t *testing.T) *SnapshotStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "cache.db")

	s, err := NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSnapshotStore(t *testing.T) {
	s := setupTestStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestSnapshotStoreSaveAndLoad(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	stored := time.Now().Truncate(time.Millisecond)

	entry := CacheEntry{
		Value:    json.RawMessage(`[{"id":"1","title":"First"}]`),
		StoredAt: stored,
		Policy:   ListPolicy,
	}
	if err := s.Save(ctx, "list:10", entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok, err := s.Load(ctx, "list:10")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if string(got.Value) != string(entry.Value) {
		t.Errorf("Value = %s, want %s", got.Value, entry.Value)
	}
	if !got.StoredAt.Equal(stored) {
		t.Errorf("StoredAt = %v, want %v", got.StoredAt, stored)
	}
	if got.Policy != ListPolicy {
		t.Errorf("Policy = %+v, want %+v", got.Policy, ListPolicy)
	}
}

func TestSnapshotStoreUpsert(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	first := CacheEntry{Value: json.RawMessage(`"a"`), StoredAt: time.Now(), Policy: ArticlePolicy}
	second := CacheEntry{Value: json.RawMessage(`"b"`), StoredAt: time.Now(), Policy: ArticlePolicy}
	if err := s.Save(ctx, "post:1", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := s.Save(ctx, "post:1", second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, ok, err := s.Load(ctx, "post:1")
	if err != nil || !ok {
		t.Fatalf("Load = %v, %v", ok, err)
	}
	if string(got.Value) != `"b"` {
		t.Errorf("Value = %s, want the second save", got.Value)
	}
}

func TestSnapshotStoreMissAndExpiry(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Load(ctx, "post:missing"); err != nil || ok {
		t.Fatalf("Load(missing) = %v, %v; want miss", ok, err)
	}

	old := CacheEntry{
		Value:    json.RawMessage(`"old"`),
		StoredAt: time.Now().Add(-time.Hour),
		Policy:   ListPolicy,
	}
	if err := s.Save(ctx, "list:10", old); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, ok, _ := s.Load(ctx, "list:10"); ok {
		t.Error("entries past their grace window should be misses")
	}

	n, err := s.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Prune removed %d rows, want 1", n)
	}
}

func TestSnapshotStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("NewSnapshotStore failed: %v", err)
	}
	entry := CacheEntry{Value: json.RawMessage(`"kept"`), StoredAt: time.Now(), Policy: ArticlePolicy}
	if err := s.Save(ctx, "post:9", entry); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	s.Close()

	reopened, err := NewSnapshotStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	got, ok, err := reopened.Load(ctx, "post:9")
	if err != nil || !ok {
		t.Fatalf("Load after reopen = %v, %v", ok, err)
	}
	if string(got.Value) != `"kept"` {
		t.Errorf("Value = %s", got.Value)
	}
}
