package infra

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache()
	defer c.Close()

	c.Set("xyzwiki", "catalog", time.Minute)

	got, ok := c.Get("xyzwiki")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got.(string) != "catalog" {
		t.Errorf("got %v", got)
	}
	if c.Size() != 1 {
		t.Errorf("Size = %d, want 1", c.Size())
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache()
	defer c.Close()

	if _, ok := c.Get("absent"); ok {
		t.Error("expected cache miss")
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache()
	defer c.Close()

	c.Set("short", "value", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expired entry must not be returned")
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d after lazy expiry, want 0", c.Size())
	}
}

func TestCacheDelete(t *testing.T) {
	c := NewCache()
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("deleted entry must not be returned")
	}
	if c.Size() != 0 {
		t.Errorf("Size = %d, want 0", c.Size())
	}
}

func TestCacheOverwriteKeepsCount(t *testing.T) {
	c := NewCache()
	defer c.Close()

	c.Set("a", 1, time.Minute)
	c.Set("a", 2, time.Minute)
	if c.Size() != 1 {
		t.Errorf("Size = %d after overwrite, want 1", c.Size())
	}
	got, _ := c.Get("a")
	if got.(int) != 2 {
		t.Errorf("got %v, want 2", got)
	}
}

func TestCacheCloseIsIdempotent(t *testing.T) {
	c := NewCache()
	c.Close()
	c.Close()
}
