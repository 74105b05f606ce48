package sync

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

func testWindow() model.Window {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	return model.Window{Start: start, End: start.Add(7 * 24 * time.Hour)}
}

func TestBootstrap_ImportsIntoEmptyStore(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	a := newEvent("ev-1", "Standup", start)
	b := newEvent("ev-2", "Planning", start.Add(2*time.Hour))

	provider := newMockProvider(a, b)
	provider.nextToken = "tok-initial"
	store := newMockStore()

	var out strings.Builder
	bs := NewBootstrap(provider, store, "primary", testLogger, strings.NewReader("y\n"), &out)

	ran, err := bs.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Fatal("bootstrap did not run on an empty store")
	}

	if store.count() != 2 {
		t.Errorf("store events = %d, want 2", store.count())
	}
	tok, _ := store.SyncToken(context.Background(), "test-provider", "primary")
	if tok != "tok-initial" {
		t.Errorf("stored token = %q, want %q", tok, "tok-initial")
	}
	if !strings.Contains(out.String(), "Standup") {
		t.Error("summary output does not mention the imported event")
	}
}

func TestBootstrap_SkipsNonEmptyStore(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	provider := newMockProvider(newEvent("ev-1", "Standup", start))
	store := newMockStore()
	store.seed("test-provider", newEvent("ev-0", "Existing", start))

	var out strings.Builder
	bs := NewBootstrap(provider, store, "primary", testLogger, strings.NewReader("y\n"), &out)

	ran, err := bs.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran {
		t.Error("bootstrap ran against a non-empty store")
	}
	if store.count() != 1 {
		t.Errorf("store events = %d, want 1 (untouched)", store.count())
	}
}

func TestBootstrap_CancelledByUser(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	provider := newMockProvider(newEvent("ev-1", "Standup", start))
	store := newMockStore()

	var out strings.Builder
	bs := NewBootstrap(provider, store, "primary", testLogger, strings.NewReader("n\n"), &out)

	ran, err := bs.Run(context.Background(), testWindow())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran {
		t.Error("bootstrap reported running after the user declined")
	}
	if store.count() != 0 {
		t.Errorf("store events = %d, want 0", store.count())
	}
}
