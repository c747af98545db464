package storage

import (
	"path/filepath"
	"testing"

	"ipscope/internal/db"
)

func exercise(t *testing.T, kv KV) {
	t.Helper()

	if _, ok, err := kv.Get("missing"); err != nil || ok {
		t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
	}

	if err := kv.Set("k", "v1"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set("k", "v2"); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	got, ok, err := kv.Get("k")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if got != "v2" {
		t.Errorf("Expected v2, got %q", got)
	}

	if err := kv.Remove("k"); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := kv.Remove("k"); err != nil {
		t.Fatalf("second Remove failed: %v", err)
	}
	if _, ok, _ := kv.Get("k"); ok {
		t.Error("Expected key gone after Remove")
	}
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestSQL(t *testing.T) {
	database, err := db.Connect(filepath.Join(t.TempDir(), "kv.db"))
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	exercise(t, NewSQL(database))
}
