// Package sync implements the two-way reconciliation engine between a local
// calendar event store and a remote provider. It classifies each local/remote
// pairing as new, deleted, unchanged, or conflicting, resolves conflicts
// according to a configurable strategy, and pushes outbound writes through
// the provider adapter.
//
// The package contains three main components:
//
//   - [Syncer] performs a single reconciliation pass ([Syncer.TwoWaySync]).
//   - [Engine] runs the polling loop, applies results to the local store,
//     and handles sync-token expiry.
//   - [Bootstrap] seeds an empty local store from a full remote fetch on
//     first run.
package sync

import (
	"context"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// Provider is a remote calendar source (Google Calendar, Outlook).
// Implemented by [google.Adapter] and [outlook.Adapter].
type Provider interface {
	// ID returns the unique identifier from the config (e.g. "work_google").
	ID() string
	// Name returns a human-readable label (e.g. "Work Account").
	Name() string

	// FetchEvents retrieves remote events. With an empty syncToken it
	// performs a full window fetch; with a token it returns only changes
	// since that token, including tombstones for deletions. An expired
	// token surfaces as an error wrapping [model.ErrExpiredSyncToken].
	FetchEvents(ctx context.Context, window model.Window, syncToken string) (*model.Delta, error)

	// CreateEvent persists ev remotely and round-trips it back with the
	// provider-assigned ID populated.
	CreateEvent(ctx context.Context, ev model.Event) (model.Event, error)

	// UpdateEvent overwrites the remote event with the given ID.
	UpdateEvent(ctx context.Context, id string, ev model.Event) (model.Event, error)

	// DeleteEvent removes the remote event with the given ID.
	DeleteEvent(ctx context.Context, id string) error

	// Watch registers a push-notification channel pointing at webhookURL.
	// Dispatching inbound webhooks back into a sync pass is the caller's
	// responsibility.
	Watch(ctx context.Context, webhookURL string) (*model.Subscription, error)
}

// EventStore is the local persistence collaborator: it supplies the local
// event set before each pass and absorbs the pass's reported changes.
// Implemented by [state.Store].
type EventStore interface {
	ListEvents(ctx context.Context, providerID string, w model.Window) ([]model.Event, error)
	UpsertEvent(ctx context.Context, providerID string, ev model.Event) error
	DeleteEvent(ctx context.Context, providerID, eventID string) error
	SyncToken(ctx context.Context, providerID, calendarID string) (string, error)
	SetSyncToken(ctx context.Context, providerID, calendarID, token string) error
	IsEmpty(ctx context.Context) (bool, error)
}
