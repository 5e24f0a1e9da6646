package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/crypto-companion-bfa-go/internal/infra/cache"
)

func TestCache_SetAndGet(t *testing.T) {
	c := cache.New[string](5 * time.Minute)
	defer c.Close()

	c.Set("education", "ahorro: guardar parte de tus ingresos")
	val, ok := c.Get("education")
	if !ok {
		t.Fatal("expected key to exist")
	}
	if val != "ahorro: guardar parte de tus ingresos" {
		t.Errorf("unexpected value %q", val)
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

func TestCache_NoTTLNeverExpires(t *testing.T) {
	c := cache.New[int](0)
	defer c.Close()

	c.Set("k", 7)
	time.Sleep(10 * time.Millisecond)

	if v, ok := c.Get("k"); !ok || v != 7 {
		t.Fatalf("expected 7, got %d (ok=%v)", v, ok)
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
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d entries", c.Len())
	}
}

func TestCache_GetOrLoadSingleFlight(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	var loads int32
	release := make(chan struct{})
	load := func(context.Context) (string, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return "corpus", nil
	}

	var wg sync.WaitGroup
	results := make([]string, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, _, err := c.GetOrLoad(context.Background(), "kb", load)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			results[i] = v
		}(i)
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("expected a single load, got %d", n)
	}
	for _, r := range results {
		if r != "corpus" {
			t.Errorf("expected corpus, got %q", r)
		}
	}

	_, hit, err := c.GetOrLoad(context.Background(), "kb", load)
	if err != nil || !hit {
		t.Errorf("expected cache hit, got hit=%v err=%v", hit, err)
	}
}

func TestCache_GetOrLoadDoesNotCacheErrors(t *testing.T) {
	c := cache.New[string](time.Minute)
	defer c.Close()

	calls := 0
	load := func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("file not found")
		}
		return "ok", nil
	}

	if _, _, err := c.GetOrLoad(context.Background(), "kb", load); err == nil {
		t.Fatal("expected first load to fail")
	}
	v, hit, err := c.GetOrLoad(context.Background(), "kb", load)
	if err != nil || hit || v != "ok" {
		t.Fatalf("expected fresh load, got v=%q hit=%v err=%v", v, hit, err)
	}
}
