package sync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// Options configures a single reconciliation pass.
type Options struct {
	// Strategy selects the conflict-resolution policy.
	Strategy Strategy

	// SyncToken, when set, requests an incremental fetch of changes since
	// the last pass. Empty means a full window fetch.
	SyncToken string

	// Window bounds full fetches. Ignored when SyncToken is set.
	Window model.Window
}

// Syncer reconciles one local event collection against one provider's remote
// state. It is stateless between calls; the only state that survives a pass
// is the sync token, which the caller stores and passes back in.
type Syncer struct {
	provider Provider
	log      *slog.Logger
}

// NewSyncer creates a Syncer bound to the given provider adapter.
func NewSyncer(provider Provider, logger *slog.Logger) *Syncer {
	return &Syncer{provider: provider, log: logger}
}

// TwoWaySync performs one reconciliation pass and returns the accumulated
// result.
//
// A failure of the initial remote fetch aborts the pass with no partial
// result. Per-event write failures are isolated: they become entries in
// SyncResult.Errors and the rest of the batch continues.
//
// Remote events are processed in provider order; local-only events are
// pushed in the order of the local slice. Writes are issued sequentially,
// one at a time.
func (s *Syncer) TwoWaySync(ctx context.Context, local []model.Event, opts Options) (*SyncResult, error) {
	delta, err := s.provider.FetchEvents(ctx, opts.Window, opts.SyncToken)
	if err != nil {
		return nil, fmt.Errorf("fetching remote events from %s: %w", s.provider.ID(), err)
	}

	res := &SyncResult{NextSyncToken: delta.NextToken}

	// Index local events by ID, preserving slice order for the push phase.
	// Events with no ID yet have never been created remotely and go
	// straight to the push phase.
	localByID := make(map[string]model.Event, len(local))
	order := make([]string, 0, len(local))
	var unsaved []model.Event
	for _, ev := range local {
		if ev.ID == "" {
			unsaved = append(unsaved, ev)
			continue
		}
		localByID[ev.ID] = ev
		order = append(order, ev.ID)
	}

	// Remote deletions. Only incremental fetches carry tombstones; a full
	// window fetch stays additive-only. Every tombstone is reported so the
	// caller can purge rows that drifted outside the listing window, but
	// only matched IDs count as deletions.
	for _, id := range delta.Tombstones {
		res.RemoteDeletes = append(res.RemoteDeletes, id)
		if _, ok := localByID[id]; !ok {
			continue
		}
		delete(localByID, id)
		res.Deleted++
		s.log.Debug("remote deletion", "id", id, "provider", s.provider.ID())
	}

	for _, remote := range delta.Events {
		localEv, ok := localByID[remote.ID]
		if !ok {
			// Remote-originated event the caller must persist locally.
			res.Created++
			res.RemoteAdds = append(res.RemoteAdds, remote)
			continue
		}

		// Matched IDs leave the local index regardless of conflict outcome.
		delete(localByID, remote.ID)

		if !localEv.ConflictsWith(remote) {
			continue
		}

		cr := Resolve(localEv, remote, opts.Strategy)
		res.Conflicts = append(res.Conflicts, cr)
		s.log.Info("conflict resolved",
			"title", localEv.Title,
			"resolution", cr.Resolution.String(),
			"provider", s.provider.ID(),
		)

		winner := cr.Winner()

		if cr.Resolution != ResolutionLocal {
			res.Updated++
			res.LocalUpdates = append(res.LocalUpdates, winner)
		}

		// A winning version that is not purely the remote one must
		// propagate outward.
		if cr.Resolution != ResolutionRemote {
			if _, err := s.provider.UpdateEvent(ctx, remote.ID, winner); err != nil {
				res.Errors = append(res.Errors, SyncError{
					Event:    winner,
					Message:  err.Error(),
					Provider: s.provider.ID(),
				})
			}
		}
	}

	// On a full fetch, every local event the remote side never mentioned is
	// pushed as a new remote event. An incremental delta omits unchanged
	// events, so absence there says nothing; only ID-less drafts are safe
	// to push on an incremental pass.
	if opts.SyncToken == "" {
		for _, id := range order {
			ev, ok := localByID[id]
			if !ok {
				continue
			}
			s.pushCreate(ctx, ev, res)
		}
	}
	for _, ev := range unsaved {
		s.pushCreate(ctx, ev, res)
	}

	return res, nil
}

// pushCreate creates one local-only event remotely, recording either the
// round-tripped event (with its provider-assigned ID) or an isolated error.
func (s *Syncer) pushCreate(ctx context.Context, ev model.Event, res *SyncResult) {
	if err := ev.Validate(); err != nil {
		res.Errors = append(res.Errors, SyncError{
			Event:    ev,
			Message:  err.Error(),
			Provider: s.provider.ID(),
		})
		return
	}

	created, err := s.provider.CreateEvent(ctx, ev)
	if err != nil {
		res.Errors = append(res.Errors, SyncError{
			Event:    ev,
			Message:  err.Error(),
			Provider: s.provider.ID(),
		})
		return
	}

	res.Created++
	res.LocalUpdates = append(res.LocalUpdates, created)
	s.log.Debug("pushed local event", "title", ev.Title, "id", created.ID)
}
