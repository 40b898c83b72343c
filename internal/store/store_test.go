package store

import (
	"sync"
	"testing"
)

func TestGetMiss(t *testing.T) {
	s := New(nil)
	if _, ok := s.Get("missing"); ok {
		t.Fatal("expected miss on empty store")
	}
}

func TestSetThenGet(t *testing.T) {
	s := New(nil)
	s.Set("apple", []byte("red"))
	v, ok := s.Get("apple")
	if !ok {
		t.Fatal("expected hit after set")
	}
	if string(v) != "red" {
		t.Fatalf("got %q, want %q", v, "red")
	}
}

func TestSetOverwritesLastWriteWins(t *testing.T) {
	s := New(nil)
	s.Set("k", []byte("v1"))
	s.Set("k", []byte("v2"))
	v, _ := s.Get("k")
	if string(v) != "v2" {
		t.Fatalf("got %q, want v2", v)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Set("k", []byte{byte(i)})
		}(i)
		go func() {
			defer wg.Done()
			s.Get("k")
		}()
	}
	wg.Wait()
}
