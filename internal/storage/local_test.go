package storage

import (
	"context"
	"testing"

	"seriesflow/config"
)

func TestLocalBackendLifecycle(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(t.TempDir())

	key := "exports/out.csv"
	data := []byte("series_id,timestamp\nAAPL,2024-01-15\n")
	if err := l.Save(ctx, key, data); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	exists, err := l.Exists(ctx, key)
	if err != nil || !exists {
		t.Fatalf("expected key to exist: %v", err)
	}
	size, err := l.GetSize(ctx, key)
	if err != nil || size != int64(len(data)) {
		t.Fatalf("unexpected size %d: %v", size, err)
	}
	loaded, err := l.Load(ctx, key)
	if err != nil || string(loaded) != string(data) {
		t.Fatalf("load mismatch: %v", err)
	}

	keys, err := l.ListKeys(ctx, "exports/")
	if err != nil || len(keys) != 1 || keys[0] != key {
		t.Fatalf("unexpected listing %v: %v", keys, err)
	}

	if err := l.Delete(ctx, key); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if exists, _ := l.Exists(ctx, key); exists {
		t.Fatal("key should be gone after delete")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := &config.StorageConfig{Backend: "local", Local: config.LocalStoreConfig{BaseDir: t.TempDir()}}
	b, err := New(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := b.(*Local); !ok {
		t.Fatalf("expected local backend, got %T", b)
	}
	if _, err := New(&config.StorageConfig{Backend: "ftp"}); err == nil {
		t.Fatal("expected unknown backend to error")
	}
}
