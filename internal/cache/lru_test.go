package cache

import (
	"testing"
	"time"
)

func TestLRUCache_Eviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // a is now most recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("rossi|2024-03", "summary")
	c.Set("rossi|2024-04", "summary")
	now = now.Add(30 * time.Second)
	c.Set("bianchi|2024-03", "summary")

	now = now.Add(45 * time.Second)
	if _, ok := c.Get("rossi|2024-03"); ok {
		t.Error("expired entry returned")
	}
	if removed := c.CleanExpired(); removed != 1 {
		t.Errorf("CleanExpired removed %d, want 1", removed)
	}
	if _, ok := c.Get("bianchi|2024-03"); !ok {
		t.Error("fresh entry missing")
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("hits=%d misses=%d", hits, misses)
	}
}

func TestLRUCache_DeletePrefix(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("rossi|summary|2024-03", 1)
	c.Set("rossi|projection|2024-03-02", 2)
	c.Set("rossini|summary|2024-03", 3)
	c.Set("bianchi|summary|2024-03", 4)

	if n := c.DeletePrefix("rossi|"); n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if _, ok := c.Get("rossini|summary|2024-03"); !ok {
		t.Error("prefix match must respect the separator")
	}
	c.Delete("bianchi|summary|2024-03")
	if c.Size() != 1 {
		t.Errorf("size = %d", c.Size())
	}
}

func TestManager(t *testing.T) {
	now := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](10, time.Second)
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(2 * time.Second)

	m := NewManager()
	m.Register(c)
	if n := m.CleanAll(); n != 1 {
		t.Errorf("CleanAll = %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()

	NewManager().Stop()
}
