package model

import (
	"fmt"
	"time"
)

// Frequency is the base repetition unit of a recurrence rule.
type Frequency int

const (
	FreqDaily Frequency = iota
	FreqWeekly
	FreqMonthly
	FreqYearly
)

// String returns the lowercase label for the frequency.
func (f Frequency) String() string {
	switch f {
	case FreqWeekly:
		return "weekly"
	case FreqMonthly:
		return "monthly"
	case FreqYearly:
		return "yearly"
	default:
		return "daily"
	}
}

// RecurrenceRule describes how an event repeats.
//
// A rule carries at most one bound: Count (number of occurrences) or Until
// (last instant). Both zero means the recurrence is unbounded.
//
// When a provider's native recurrence grammar cannot be parsed, the rule is
// retained as {Unparsed: raw} instead of being discarded, so callers can
// distinguish "no recurrence" from "recurrence present but unreadable". An
// unparsed rule round-trips its raw text on export to the same provider
// family and is otherwise ignored.
type RecurrenceRule struct {
	Frequency Frequency
	// Interval is the step between occurrences, at least 1.
	Interval int
	// Count bounds the rule to a number of occurrences. 0 means no bound.
	Count int
	// Until bounds the rule to a last instant. Zero means no bound.
	Until time.Time
	// ByDay selects weekdays in two-letter iCalendar form ("MO".."SU").
	ByDay []string
	// ByMonth selects months 1-12.
	ByMonth []int
	// ByMonthDay selects days of the month 1-31.
	ByMonthDay []int

	// Unparsed holds the raw provider rule when parsing failed. When set,
	// all other fields are meaningless.
	Unparsed string
}

// IsUnparsed reports whether this rule is an opaque carrier for provider
// text that could not be parsed.
func (r *RecurrenceRule) IsUnparsed() bool {
	return r != nil && r.Unparsed != ""
}

// Validate checks the rule's structural invariants. Unparsed rules are
// always valid: they carry no structure to check.
func (r *RecurrenceRule) Validate() error {
	if r.IsUnparsed() {
		return nil
	}
	if r.Interval < 1 {
		return fmt.Errorf("recurrence interval %d is below 1", r.Interval)
	}
	if r.Count < 0 {
		return fmt.Errorf("recurrence count %d is negative", r.Count)
	}
	if r.Count > 0 && !r.Until.IsZero() {
		return fmt.Errorf("recurrence specifies both count and until")
	}
	for _, d := range r.ByDay {
		switch d {
		case "MO", "TU", "WE", "TH", "FR", "SA", "SU":
		default:
			return fmt.Errorf("unknown weekday selector %q", d)
		}
	}
	for _, m := range r.ByMonth {
		if m < 1 || m > 12 {
			return fmt.Errorf("month selector %d out of range", m)
		}
	}
	for _, d := range r.ByMonthDay {
		if d < 1 || d > 31 {
			return fmt.Errorf("month-day selector %d out of range", d)
		}
	}
	return nil
}
