package cache

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKey_DeterministicAndNamespaced(t *testing.T) {
	a := Key("search", "category 5 hurricanes since 1900")
	b := Key("search", "category 5 hurricanes since 1900")
	c := Key("doc", "category 5 hurricanes since 1900")

	if a != b {
		t.Error("Expected identical inputs to produce identical keys")
	}
	if a == c {
		t.Error("Expected different namespaces to produce different keys")
	}
	if !strings.HasPrefix(a, "foresight:v1:search:") {
		t.Errorf("Unexpected key format: %s", a)
	}
}

func TestMemoryCache_SetGetDelete(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	defer func() { _ = c.Close() }()

	key := Key("doc", "https://example.com/a")
	if _, found := c.Get(key); found {
		t.Error("Expected a miss before Set")
	}

	if err := c.Set(key, []byte("body"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	val, found := c.Get(key)
	if !found || string(val) != "body" {
		t.Errorf("Expected hit with 'body', got %q found=%v", val, found)
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := c.Get(key); found {
		t.Error("Expected a miss after Delete")
	}
}

func TestMemoryCache_TTLExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	defer func() { _ = c.Close() }()

	key := Key("doc", "https://example.com/short-lived")
	if err := c.Set(key, []byte("x"), 20*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if _, found := c.Get(key); found {
		t.Error("Expected the entry to expire")
	}
}

func TestSQLiteCache_PersistsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := OpenSQLiteCache(path, time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLiteCache failed: %v", err)
	}
	key := Key("search", "query")
	if err := c.Set(key, []byte("results"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	c, err = OpenSQLiteCache(path, time.Hour)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	val, found := c.Get(key)
	if !found || string(val) != "results" {
		t.Errorf("Expected the entry to survive a reopen, got %q found=%v", val, found)
	}
}

func TestSQLiteCache_ExpiredRowsAreMisses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c, err := OpenSQLiteCache(path, time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLiteCache failed: %v", err)
	}
	defer func() { _ = c.Close() }()

	key := Key("doc", "https://example.com/old")
	if err := c.Set(key, []byte("stale"), -time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, found := c.Get(key); found {
		t.Error("Expected an expired row to read as a miss")
	}
}

func TestLayeredCache_PromotesDurableHits(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	durable, err := OpenSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLiteCache failed: %v", err)
	}
	layered := NewLayeredCache(memory, durable)
	defer func() { _ = layered.Close() }()

	key := Key("doc", "https://example.com/page")
	if err := durable.Set(key, []byte("from disk"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	val, found := layered.Get(key)
	if !found || string(val) != "from disk" {
		t.Fatalf("Expected a durable hit, got %q found=%v", val, found)
	}

	// The hit must now live in the memory layer too.
	if _, found := memory.Get(key); !found {
		t.Error("Expected the durable hit to be promoted to memory")
	}
}

func TestLayeredCache_SetWritesBothLayers(t *testing.T) {
	memory := NewMemoryCache(time.Minute, time.Minute)
	durable, err := OpenSQLiteCache(filepath.Join(t.TempDir(), "cache.db"), time.Hour)
	if err != nil {
		t.Fatalf("OpenSQLiteCache failed: %v", err)
	}
	layered := NewLayeredCache(memory, durable)
	defer func() { _ = layered.Close() }()

	key := Key("search", "q")
	if err := layered.Set(key, []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, found := memory.Get(key); !found {
		t.Error("Expected the value in the memory layer")
	}
	if _, found := durable.Get(key); !found {
		t.Error("Expected the value in the durable layer")
	}
}
