package cache_test

import (
	"testing"
	"time"

	"github.com/jengatrack/jengatrack-api/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("project:p1", "Kampala Villa")
	val, ok := c.Get("project:p1")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "Kampala Villa" {
		t.Errorf("expected 'Kampala Villa', got '%s'", val)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("nonexistent"); ok {
		t.Fatal("expected cache miss for nonexistent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := cache.New[string](50 * time.Millisecond)
	defer c.Close()

	c.Set("key1", "value1")
	time.Sleep(100 * time.Millisecond)

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected cache entry to be expired")
	}
}

func TestCache_SweeperRemovesExpired(t *testing.T) {
	c := cache.New[int](20 * time.Millisecond)
	defer c.Close()

	c.Set("a", 1)
	c.Set("b", 2)

	deadline := time.Now().Add(time.Second)
	for c.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n := c.Len(); n != 0 {
		t.Errorf("expected sweeper to empty the cache, %d left", n)
	}
}

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := cache.New[string](time.Minute)
	c.Close()
	c.Close()

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("cache should remain usable after Close")
	}
}
