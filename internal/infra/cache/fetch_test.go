package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchColdCacheAwaitsFetcher(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	var calls int32
	got := Fetch(ctx, FetchParams[string]{
		Cache: store,
		Key:   "k",
		Fetcher: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "fetched", nil
		},
		Fallback: "fallback",
	})
	if got != "fetched" {
		t.Fatalf("expected fetched value, got %q", got)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one fetch, got %d", calls)
	}

	// 取数结果应当已入缓存
	if cached, ok := store.Get(ctx, "k"); !ok || cached != "fetched" {
		t.Fatalf("expected fetch result cached, got %q ok=%v", cached, ok)
	}
}

func TestFetchFreshHitSkipsFetcher(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()
	store.Set(ctx, "k", "warm")

	var calls int32
	got := Fetch(ctx, FetchParams[string]{
		Cache: store,
		Key:   "k",
		Fetcher: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			return "fetched", nil
		},
		Fallback: "fallback",
	})
	if got != "warm" {
		t.Fatalf("expected cached value, got %q", got)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Fatalf("expected no fetch on fresh hit, got %d", calls)
	}
}

func TestFetchStaleServesOldValueAndRefreshesOnce(t *testing.T) {
	store, now := newTestStore(t, 10*time.Millisecond)
	ctx := context.Background()
	store.Set(ctx, "k", "stale")
	*now = now.Add(time.Second)

	var calls int32
	done := make(chan struct{})
	got := Fetch(ctx, FetchParams[string]{
		Cache: store,
		Key:   "k",
		Fetcher: func(ctx context.Context) (string, error) {
			atomic.AddInt32(&calls, 1)
			close(done)
			return "refreshed", nil
		},
		Fallback: "fallback",
	})
	if got != "stale" {
		t.Fatalf("expected stale value served immediately, got %q", got)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected background refresh to run")
	}

	waitFor(t, func() bool {
		value, found, _ := store.GetWithStatus(ctx, "k")
		return found && value == "refreshed"
	})
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one background fetch, got %d", calls)
	}
}

func TestFetchStaleKeepsValueWhenRefreshFails(t *testing.T) {
	store, now := newTestStore(t, 10*time.Millisecond)
	ctx := context.Background()
	store.Set(ctx, "k", "stale")
	*now = now.Add(time.Second)

	done := make(chan struct{})
	got := Fetch(ctx, FetchParams[string]{
		Cache: store,
		Key:   "k",
		Fetcher: func(ctx context.Context) (string, error) {
			close(done)
			return "", errors.New("upstream down")
		},
		Fallback: "fallback",
	})
	if got != "stale" {
		t.Fatalf("expected stale value, got %q", got)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected background refresh attempt")
	}

	// 刷新失败不得逐出旧值
	waitFor(t, func() bool {
		value, found, _ := store.GetWithStatus(ctx, "k")
		return found && value == "stale"
	})
}

func TestFetchMissWithFailingFetcherReturnsFallback(t *testing.T) {
	store, _ := newTestStore(t, time.Minute)
	ctx := context.Background()

	got := Fetch(ctx, FetchParams[string]{
		Cache: store,
		Key:   "k",
		Fetcher: func(ctx context.Context) (string, error) {
			return "", errors.New("upstream down")
		},
		Fallback: "fallback",
	})
	if got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if _, found, _ := store.GetWithStatus(ctx, "k"); found {
		t.Fatalf("expected nothing cached after failed cold fetch")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}
