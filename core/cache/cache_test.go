package cache

import (
	"fmt"
	"sync"
	"testing"
)

func TestMap_Basic(t *testing.T) {
	m := NewMap[string, int]()

	if _, ok := m.Get("a"); ok {
		t.Errorf("expected miss on empty map")
	}

	m.Put("a", 1)
	m.Put("a", 2)
	if val, ok := m.Get("a"); !ok || val != 2 {
		t.Errorf("expected a=2, got %v, %v", val, ok)
	}

	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Errorf("expected a to be deleted")
	}
	if m.Len() != 0 {
		t.Errorf("expected empty map, got %d", m.Len())
	}
}

func TestLRU_Basic(t *testing.T) {
	l := NewLRU[string, int](2)

	l.Put("a", 1)
	l.Put("b", 2)

	val, ok := l.Get("a")
	if !ok || val != 1 {
		t.Errorf("expected a=1, got %v, %v", val, ok)
	}

	l.Put("c", 3) // should evict "b"

	if _, ok = l.Get("b"); ok {
		t.Errorf("expected b to be evicted")
	}

	val, ok = l.Get("c")
	if !ok || val != 3 {
		t.Errorf("expected c=3, got %v, %v", val, ok)
	}
	if l.Len() != 2 {
		t.Errorf("expected len 2, got %d", l.Len())
	}
}

func TestLRU_Update(t *testing.T) {
	l := NewLRU[string, int](2)

	l.Put("a", 1)
	l.Put("b", 2)
	l.Put("a", 3) // refreshes "a"
	l.Put("c", 4) // evicts "b"

	if val, ok := l.Get("a"); !ok || val != 3 {
		t.Errorf("expected a=3, got %v, %v", val, ok)
	}
	if _, ok := l.Get("b"); ok {
		t.Errorf("expected b to be evicted")
	}
}

func TestLRU_Delete(t *testing.T) {
	l := NewLRU[string, int](0)

	l.Put("a", 1)
	l.Delete("a")
	l.Delete("missing")

	if _, ok := l.Get("a"); ok {
		t.Errorf("expected a to be deleted")
	}
	if l.size != defaultLRUSize {
		t.Errorf("expected default size, got %d", l.size)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	l := NewLRU[string, int](16)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%32)
				l.Put(key, i)
				l.Get(key)
			}
		}(i)
	}
	wg.Wait()

	if l.Len() > 16 {
		t.Errorf("expected at most 16 entries, got %d", l.Len())
	}
}
