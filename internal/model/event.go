// Package model defines shared types used across the sync engine and
// provider adapters.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrExpiredSyncToken is wrapped by adapters when the provider rejects an
// incremental sync token as expired or invalid. The engine reacts by
// clearing the stored token and re-running the pass as a full fetch.
var ErrExpiredSyncToken = errors.New("sync token expired")

// Status represents the confirmation state of an event.
type Status int

const (
	// StatusUnspecified means the provider default applies.
	StatusUnspecified Status = iota
	StatusConfirmed
	StatusTentative
	StatusCancelled
)

// String returns the wire-level label for the status.
func (s Status) String() string {
	switch s {
	case StatusConfirmed:
		return "confirmed"
	case StatusTentative:
		return "tentative"
	case StatusCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// ParseStatus maps a provider status string to a Status. Unknown values map
// to StatusUnspecified.
func ParseStatus(raw string) Status {
	switch raw {
	case "confirmed":
		return StatusConfirmed
	case "tentative":
		return StatusTentative
	case "cancelled":
		return StatusCancelled
	default:
		return StatusUnspecified
	}
}

// Visibility represents who may see an event's details.
type Visibility int

const (
	// VisibilityDefault means the provider default applies.
	VisibilityDefault Visibility = iota
	VisibilityPublic
	VisibilityPrivate
)

// String returns the wire-level label for the visibility.
func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityPrivate:
		return "private"
	default:
		return ""
	}
}

// ParseVisibility maps a provider visibility string to a Visibility.
func ParseVisibility(raw string) Visibility {
	switch raw {
	case "public":
		return VisibilityPublic
	case "private":
		return VisibilityPrivate
	default:
		return VisibilityDefault
	}
}

// ReminderMethod is the delivery channel of a reminder.
type ReminderMethod int

const (
	MethodPopup ReminderMethod = iota
	MethodEmail
	MethodSMS
)

// String returns the wire-level label for the method.
func (m ReminderMethod) String() string {
	switch m {
	case MethodEmail:
		return "email"
	case MethodSMS:
		return "sms"
	default:
		return "popup"
	}
}

// ParseReminderMethod maps a provider method string to a ReminderMethod.
// Unknown values map to popup, the universal default.
func ParseReminderMethod(raw string) ReminderMethod {
	switch raw {
	case "email":
		return MethodEmail
	case "sms":
		return MethodSMS
	default:
		return MethodPopup
	}
}

// Reminder is a single notification before an event starts.
type Reminder struct {
	Method ReminderMethod
	// Minutes before the event start. Never negative.
	Minutes int
}

// Attachment is a file linked to an event. Only the link is stored; content
// is never downloaded.
type Attachment struct {
	FileURL  string
	Title    string
	MimeType string
	IconLink string
}

// Event is the provider-agnostic representation of a calendar entry.
// All adapters (Google, Outlook) convert their native data to this shape.
type Event struct {
	// ID is the provider-assigned identifier. Empty for local events that
	// have not been created remotely yet. IDs are provider-local and must
	// not be compared across providers.
	ID string

	Title       string
	Description string
	Location    string

	// Start and End are instants, not floating local times. Start <= End.
	Start time.Time
	End   time.Time

	// AllDay marks date-scoped events. Start and End then sit on midnight
	// UTC date boundaries, End exclusive, and adapters export the date form
	// instead of timed instants.
	AllDay bool

	// Attendees is a set of email addresses. Order carries no meaning and
	// duplicates collapse on normalisation.
	Attendees []string

	// Recurrence is nil for one-off events.
	Recurrence *RecurrenceRule

	Reminders   []Reminder
	Status      Status
	Visibility  Visibility
	Attachments []Attachment

	// LastModified is the modification instant reported by the provider.
	// Used by the newest-wins conflict strategy. Zero for events that have
	// never been persisted remotely.
	LastModified time.Time
}

// Validate checks the invariants an event must satisfy before it can be
// pushed to a provider.
func (e Event) Validate() error {
	if e.Title == "" {
		return fmt.Errorf("event has no title")
	}
	if e.Start.IsZero() || e.End.IsZero() {
		return fmt.Errorf("event %q has no start or end time", e.Title)
	}
	if e.End.Before(e.Start) {
		return fmt.Errorf("event %q ends before it starts", e.Title)
	}
	for _, r := range e.Reminders {
		if r.Minutes < 0 {
			return fmt.Errorf("event %q has a negative reminder offset", e.Title)
		}
	}
	if e.Recurrence != nil {
		if err := e.Recurrence.Validate(); err != nil {
			return fmt.Errorf("event %q: %w", e.Title, err)
		}
	}
	return nil
}

// Duration returns the length of the event's occurrence window.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// ConflictHash returns a deterministic SHA-256 hex digest of the fields that
// participate in conflict detection: title, start, end (both at millisecond
// precision), and location. Description, attendees, recurrence, and
// reminders are intentionally excluded; changes limited to those fields do
// not trigger reconciliation.
func (e Event) ConflictHash() string {
	h := sha256.New()
	h.Write([]byte(e.Title))
	h.Write([]byte("|"))
	h.Write([]byte(e.Start.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)))
	h.Write([]byte("|"))
	h.Write([]byte(e.End.UTC().Truncate(time.Millisecond).Format(time.RFC3339Nano)))
	h.Write([]byte("|"))
	h.Write([]byte(e.Location))
	return hex.EncodeToString(h.Sum(nil))
}

// ConflictsWith reports whether two versions of the same event diverge on a
// tracked field.
func (e Event) ConflictsWith(other Event) bool {
	return e.ConflictHash() != other.ConflictHash()
}

// NormalizeAttendees lowercases, trims, deduplicates, and sorts an attendee
// list. The result is a canonical set representation.
func NormalizeAttendees(attendees []string) []string {
	seen := make(map[string]bool, len(attendees))
	var result []string
	for _, a := range attendees {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, key)
	}
	sort.Strings(result)
	return result
}

// UnionAttendees returns the deduplicated union of two attendee lists.
func UnionAttendees(a, b []string) []string {
	return NormalizeAttendees(append(append([]string{}, a...), b...))
}
