package sync

import (
	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// Resolve decides the winner of a conflicting local/remote pair. It is a
// pure function of its three inputs: no I/O, no side effects.
func Resolve(local, remote model.Event, strategy Strategy) ConflictResolution {
	cr := ConflictResolution{Local: local, Remote: remote}

	switch strategy {
	case StrategyLocal:
		cr.Resolution = ResolutionLocal

	case StrategyRemote:
		cr.Resolution = ResolutionRemote

	case StrategyNewest:
		// Ties and missing timestamps favour remote.
		if local.LastModified.After(remote.LastModified) {
			cr.Resolution = ResolutionLocal
		} else {
			cr.Resolution = ResolutionRemote
		}

	case StrategyManual:
		cr.Resolution = ResolutionMerge
		merged := mergeEvents(local, remote)
		cr.Merged = &merged

	default:
		cr.Resolution = ResolutionRemote
	}

	return cr
}

// mergeEvents overlays remote fields onto local: a remote field wins when it
// carries a value, otherwise the local value shows through. Title and
// description invert the rule: local wins when present. Attendee lists are
// unioned without duplicates.
func mergeEvents(local, remote model.Event) model.Event {
	merged := remote

	if local.Title != "" {
		merged.Title = local.Title
	}
	if local.Description != "" {
		merged.Description = local.Description
	}

	if merged.Location == "" {
		merged.Location = local.Location
	}
	if merged.Start.IsZero() {
		merged.Start = local.Start
	}
	if merged.End.IsZero() {
		merged.End = local.End
	}
	if merged.Recurrence == nil {
		merged.Recurrence = local.Recurrence
	}
	if len(merged.Reminders) == 0 {
		merged.Reminders = local.Reminders
	}
	if len(merged.Attachments) == 0 {
		merged.Attachments = local.Attachments
	}
	if merged.Status == model.StatusUnspecified {
		merged.Status = local.Status
	}
	if merged.Visibility == model.VisibilityDefault {
		merged.Visibility = local.Visibility
	}
	if local.LastModified.After(merged.LastModified) {
		merged.LastModified = local.LastModified
	}

	merged.Attendees = model.UnionAttendees(local.Attendees, remote.Attendees)

	return merged
}
