package model

import "time"

// Window bounds a full event fetch (timeMin/timeMax style). Incremental
// fetches driven by a sync token ignore the window; the token already
// scopes the result to changes since the last run.
type Window struct {
	Start time.Time
	End   time.Time
}

// Delta is one batch of remote changes returned by a provider fetch.
type Delta struct {
	// Events changed (or, on a full fetch, all events in the window).
	Events []Event

	// Tombstones lists IDs of events deleted remotely. Only incremental
	// fetches carry tombstones; absence from a windowed full fetch is not
	// deletion evidence.
	Tombstones []string

	// NextToken is the opaque token to pass to the next incremental fetch.
	// The caller is responsible for storing it.
	NextToken string
}

// Subscription describes a registered push-notification channel. The caller
// must renew it before Expiration; providers cap the lifetime themselves
// (Outlook subscriptions at three days).
type Subscription struct {
	ID         string
	Resource   string
	Expiration time.Time
}
