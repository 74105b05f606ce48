package sync

import (
	"fmt"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// Strategy selects how a conflicting local/remote pair is resolved.
type Strategy int

const (
	// StrategyNewest compares provider modification timestamps and keeps
	// the more recently modified version. Ties favour remote.
	StrategyNewest Strategy = iota
	// StrategyLocal always keeps the local version.
	StrategyLocal
	// StrategyRemote always keeps the remote version.
	StrategyRemote
	// StrategyManual merges the two versions field by field.
	StrategyManual
)

// String returns the config-level label for the strategy.
func (s Strategy) String() string {
	switch s {
	case StrategyLocal:
		return "local"
	case StrategyRemote:
		return "remote"
	case StrategyManual:
		return "manual"
	default:
		return "newest"
	}
}

// ParseStrategy maps a config string to a Strategy.
func ParseStrategy(raw string) (Strategy, error) {
	switch raw {
	case "local":
		return StrategyLocal, nil
	case "remote":
		return StrategyRemote, nil
	case "newest":
		return StrategyNewest, nil
	case "manual":
		return StrategyManual, nil
	default:
		return StrategyNewest, fmt.Errorf("unknown conflict strategy %q", raw)
	}
}

// Resolution records which side of a conflict won.
type Resolution int

const (
	ResolutionLocal Resolution = iota
	ResolutionRemote
	ResolutionMerge
)

// String returns the lowercase label for the resolution.
func (r Resolution) String() string {
	switch r {
	case ResolutionLocal:
		return "local"
	case ResolutionMerge:
		return "merge"
	default:
		return "remote"
	}
}

// ConflictResolution records the outcome of resolving one conflicting pair.
// Merged is non-nil exactly when Resolution is ResolutionMerge.
type ConflictResolution struct {
	Local      model.Event
	Remote     model.Event
	Resolution Resolution
	Merged     *model.Event
}

// Winner returns the event version that won the conflict.
func (c ConflictResolution) Winner() model.Event {
	switch c.Resolution {
	case ResolutionLocal:
		return c.Local
	case ResolutionMerge:
		return *c.Merged
	default:
		return c.Remote
	}
}

// SyncError records a per-event failure that did not abort the pass.
type SyncError struct {
	Event    model.Event
	Message  string
	Provider string
}

// Error implements the error interface.
func (e SyncError) Error() string {
	return fmt.Sprintf("%s: %q: %s", e.Provider, e.Event.Title, e.Message)
}

// SyncResult is the output of one reconciliation pass.
//
// Created counts both directions: remote-originated events discovered for
// the caller to persist locally, and local-only events pushed to the
// provider. Updated counts conflicts whose resolution was not "local".
type SyncResult struct {
	Created int
	Updated int
	Deleted int

	Errors    []SyncError
	Conflicts []ConflictResolution

	// RemoteAdds are remote-originated events the caller must persist
	// locally. The engine does not own local storage.
	RemoteAdds []model.Event

	// LocalUpdates are events whose local copy must be rewritten: conflict
	// winners that were not the local version, and freshly created events
	// carrying their new provider-assigned IDs.
	LocalUpdates []model.Event

	// RemoteDeletes lists IDs whose local copy must be removed, sourced
	// from provider tombstones.
	RemoteDeletes []string

	// NextSyncToken is the opaque token to pass into the next pass. The
	// caller is responsible for storing it.
	NextSyncToken string
}
