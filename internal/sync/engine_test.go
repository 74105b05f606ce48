package sync

import (
	"context"
	stdsync "sync"
	"testing"
	"time"
)

func testEngine(provider *mockProvider, store *mockStore) *Engine {
	return NewEngine(NewSyncer(provider, testLogger), provider, store, EngineConfig{
		CalendarID:   "primary",
		Strategy:     StrategyNewest,
		WindowSpan:   7 * 24 * time.Hour,
		PollInterval: time.Minute,
	}, testLogger)
}

func TestEngine_AppliesResultToStore(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	remote := newEvent("ev-1", "Standup", start)

	provider := newMockProvider(remote)
	provider.nextToken = "tok-1"
	store := newMockStore()

	e := testEngine(provider, store)
	res, err := e.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Created != 1 {
		t.Errorf("Created = %d, want 1", res.Created)
	}
	if _, ok := store.get("test-provider", "ev-1"); !ok {
		t.Error("remote event was not persisted locally")
	}

	tok, _ := store.SyncToken(context.Background(), "test-provider", "primary")
	if tok != "tok-1" {
		t.Errorf("stored token = %q, want %q", tok, "tok-1")
	}
}

func TestEngine_AppliesTombstoneDeletes(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	local := newEvent("ev-1", "Standup", start)

	provider := newMockProvider()
	provider.tombstones = []string{"ev-1"}
	store := newMockStore()
	store.seed("test-provider", local)
	_ = store.SetSyncToken(context.Background(), "test-provider", "primary", "tok-0")

	e := testEngine(provider, store)
	res, err := e.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Deleted != 1 {
		t.Errorf("Deleted = %d, want 1", res.Deleted)
	}
	if _, ok := store.get("test-provider", "ev-1"); ok {
		t.Error("tombstoned event still present in the local store")
	}
}

func TestEngine_ExpiredTokenTriggersFullResync(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	remote := newEvent("ev-9", "Recovered", start)

	provider := newMockProvider(remote)
	provider.expiredToken = "tok-stale"
	provider.nextToken = "tok-fresh"

	store := newMockStore()
	_ = store.SetSyncToken(context.Background(), "test-provider", "primary", "tok-stale")

	e := testEngine(provider, store)
	res, err := e.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// First fetch used the stale token, second was a full fetch.
	if len(provider.fetchTokens) != 2 {
		t.Fatalf("fetch calls = %d, want 2", len(provider.fetchTokens))
	}
	if provider.fetchTokens[0] != "tok-stale" || provider.fetchTokens[1] != "" {
		t.Errorf("fetch tokens = %v, want [tok-stale \"\"]", provider.fetchTokens)
	}

	if res.Created != 1 {
		t.Errorf("Created = %d, want 1", res.Created)
	}
	tok, _ := store.SyncToken(context.Background(), "test-provider", "primary")
	if tok != "tok-fresh" {
		t.Errorf("stored token = %q, want %q", tok, "tok-fresh")
	}
}

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	km := newKeyedMutex()

	var mu stdsync.Mutex
	var active, maxActive int

	var wg stdsync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := km.lock("google/primary")
			defer unlock()

			mu.Lock()
			active++
			if active > maxActive {
				maxActive = active
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			active--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxActive != 1 {
		t.Errorf("max concurrent holders = %d, want 1", maxActive)
	}
}

func TestKeyedMutex_DifferentKeysDoNotBlock(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.lock("google/primary")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := km.lock("outlook/default")
		unlockB()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on a different key blocked")
	}
}

func TestEngine_WindowSpansFromNow(t *testing.T) {
	provider := newMockProvider()
	store := newMockStore()
	e := testEngine(provider, store)

	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	w := e.window(now)

	if !w.Start.Equal(now) {
		t.Errorf("window start = %v, want %v", w.Start, now)
	}
	if want := now.Add(7 * 24 * time.Hour); !w.End.Equal(want) {
		t.Errorf("window end = %v, want %v", w.End, want)
	}
}
