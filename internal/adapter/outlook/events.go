package outlook

import (
	"context"
	"errors"
	"fmt"
	"time"

	abstractions "github.com/microsoft/kiota-abstractions-go"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"
	"github.com/microsoftgraph/msgraph-sdk-go/models/odataerrors"
	"github.com/microsoftgraph/msgraph-sdk-go/users"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// maxSubscriptionSpan is the longest lifetime Graph grants an event
// subscription (4230 minutes). Requests beyond it are rejected.
const maxSubscriptionSpan = 4230 * time.Minute

// FetchEvents retrieves remote events through the calendarView delta API.
// With a sync token (a full deltaLink URL from a previous run) it requests
// only changes since then, surfacing removed entries as tombstones; without
// one it performs a full window fetch. Graph reports a lapsed delta state
// with the SyncStateNotFound error code, which surfaces as
// [model.ErrExpiredSyncToken].
func (o *Adapter) FetchEvents(ctx context.Context, window model.Window, syncToken string) (*model.Delta, error) {
	delta := &model.Delta{}
	link := syncToken

	for {
		page, err := o.deltaPage(ctx, window, link)
		if err != nil {
			if isExpiredSyncState(err) {
				return nil, fmt.Errorf("fetching calendar view delta: %w", model.ErrExpiredSyncToken)
			}
			return nil, fmt.Errorf("fetching calendar view delta: %w", err)
		}

		for _, item := range page.GetValue() {
			if _, removed := item.GetAdditionalData()["@removed"]; removed {
				if syncToken != "" {
					delta.Tombstones = append(delta.Tombstones, derefStr(item.GetId()))
				}
				continue
			}
			if derefBool(item.GetIsCancelled()) {
				if syncToken != "" {
					delta.Tombstones = append(delta.Tombstones, derefStr(item.GetId()))
				}
				continue
			}
			delta.Events = append(delta.Events, fromGraph(item))
		}

		if next := page.GetOdataNextLink(); next != nil && *next != "" {
			link = *next
			continue
		}
		if dl := page.GetOdataDeltaLink(); dl != nil {
			delta.NextToken = *dl
		}
		return delta, nil
	}
}

// deltaPage fetches one page of the calendarView delta. link is either a
// nextLink (mid-pagination), a deltaLink (incremental fetch), or empty for
// the first page of a full window fetch.
func (o *Adapter) deltaPage(ctx context.Context, window model.Window, link string) (users.ItemCalendarViewDeltaGetResponseable, error) {
	headers := abstractions.NewRequestHeaders()
	headers.Add("Prefer", `outlook.timezone="UTC"`)

	builder := o.client.Me().CalendarView().Delta()
	if link != "" {
		return builder.WithUrl(link).Get(ctx, &users.ItemCalendarViewDeltaRequestBuilderGetRequestConfiguration{
			Headers: headers,
		})
	}

	startStr := window.Start.UTC().Format(time.RFC3339)
	endStr := window.End.UTC().Format(time.RFC3339)
	return builder.Get(ctx, &users.ItemCalendarViewDeltaRequestBuilderGetRequestConfiguration{
		QueryParameters: &users.ItemCalendarViewDeltaRequestBuilderGetQueryParameters{
			StartDateTime: &startStr,
			EndDateTime:   &endStr,
		},
		Headers: headers,
	})
}

// isExpiredSyncState reports whether err is Graph telling us the stored
// delta token no longer works and a full resync is required.
func isExpiredSyncState(err error) bool {
	var oerr *odataerrors.ODataError
	if !errors.As(err, &oerr) {
		return false
	}
	mainErr := oerr.GetErrorEscaped()
	return mainErr != nil && derefStr(mainErr.GetCode()) == "SyncStateNotFound"
}

// CreateEvent posts ev to the user's default calendar and round-trips the
// created event with its Graph-assigned ID.
func (o *Adapter) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	created, err := o.client.Me().Events().Post(ctx, toGraph(ev), nil)
	if err != nil {
		return model.Event{}, fmt.Errorf("creating event %q: %w", ev.Title, err)
	}
	return fromGraph(created), nil
}

// UpdateEvent patches the remote event with the given ID.
func (o *Adapter) UpdateEvent(ctx context.Context, id string, ev model.Event) (model.Event, error) {
	updated, err := o.client.Me().Events().ByEventId(id).Patch(ctx, toGraph(ev), nil)
	if err != nil {
		return model.Event{}, fmt.Errorf("updating event %q: %w", id, err)
	}
	return fromGraph(updated), nil
}

// DeleteEvent removes the remote event with the given ID.
func (o *Adapter) DeleteEvent(ctx context.Context, id string) error {
	if err := o.client.Me().Events().ByEventId(id).Delete(ctx, nil); err != nil {
		return fmt.Errorf("deleting event %q: %w", id, err)
	}
	return nil
}

// Watch registers a change-notification subscription on the user's events.
// Graph caps subscription lifetimes, so the returned expiration is at most
// ~70 hours out; the caller must renew before it lapses.
func (o *Adapter) Watch(ctx context.Context, webhookURL string) (*model.Subscription, error) {
	changeType := "created,updated,deleted"
	resource := "/me/events"
	expiration := time.Now().Add(maxSubscriptionSpan).UTC()

	sub := graphmodels.NewSubscription()
	sub.SetChangeType(&changeType)
	sub.SetNotificationUrl(&webhookURL)
	sub.SetResource(&resource)
	sub.SetExpirationDateTime(&expiration)

	created, err := o.client.Subscriptions().Post(ctx, sub, nil)
	if err != nil {
		return nil, fmt.Errorf("creating event subscription: %w", err)
	}

	got := &model.Subscription{
		ID:       derefStr(created.GetId()),
		Resource: derefStr(created.GetResource()),
	}
	if exp := created.GetExpirationDateTime(); exp != nil {
		got.Expiration = *exp
	}
	return got, nil
}
