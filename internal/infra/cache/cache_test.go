package cache_test

import (
	"testing"
	"time"

	"github.com/boddenberg/realty-pipeline-go/internal/domain"
	"github.com/boddenberg/realty-pipeline-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[*domain.Dashboard](5 * time.Minute)
	defer c.Close()

	c.Set("all", &domain.Dashboard{Scope: "all"})
	val, ok := c.Get("all")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val.Scope != "all" {
		t.Errorf("expected scope 'all', got '%s'", val.Scope)
	}
}

func TestCache_GetMiss(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	if _, ok := c.Get("team:t1"); ok {
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

func TestCache_Delete(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("key1", "value1")
	c.Delete("key1")

	if _, ok := c.Get("key1"); ok {
		t.Fatal("expected key to be deleted")
	}
}

func TestCache_Clear(t *testing.T) {
	c := cache.New[int](5 * time.Minute)
	defer c.Close()

	c.Set("all", 1)
	c.Set("team:t1", 2)
	c.Clear()

	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_ZeroTTLDisables(t *testing.T) {
	c := cache.New[int](0)
	defer c.Close()

	c.Set("all", 1)
	if _, ok := c.Get("all"); ok {
		t.Fatal("zero ttl must not retain values")
	}
}
