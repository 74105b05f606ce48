// Package google implements the calendar provider adapter for Google
// Calendar using the official API client. It converts between Google's
// native event schema and the shared [model.Event] representation and
// exposes the CRUD, incremental-fetch, and watch operations the sync engine
// needs.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// defaultPageSize caps each events page. Pagination continues until the
// provider signals exhaustion.
const defaultPageSize = 100

// Adapter provides sync-oriented operations on a single Google
// calendar. Create one with [NewAdapter] and initialise it with
// [Adapter.Login] before use.
type Adapter struct {
	id         string
	name       string
	calendarID string
	credsFile  string
	tokenFile  string

	config    *oauth2.Config
	service   *calendar.Service
	calendars map[string]string
	log       *slog.Logger
}

// NewAdapter creates an Adapter for the given calendar. credsFile is the
// OAuth client JSON downloaded from the Google Cloud console; tokenFile
// holds the user token produced by the auth flow.
func NewAdapter(id, name, calendarID, credsFile, tokenFile string, logger *slog.Logger) *Adapter {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Adapter{
		id:         id,
		name:       name,
		calendarID: calendarID,
		credsFile:  credsFile,
		tokenFile:  tokenFile,
		calendars:  make(map[string]string),
		log:        logger,
	}
}

func (g *Adapter) ID() string   { return g.id }
func (g *Adapter) Name() string { return g.name }

// Login loads credentials and token, then initialises the Calendar service.
func (g *Adapter) Login(ctx context.Context) error {
	b, err := os.ReadFile(g.credsFile)
	if err != nil {
		return fmt.Errorf("reading credentials file: %w", err)
	}

	config, err := googleauth.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return fmt.Errorf("parsing credentials: %w", err)
	}
	g.config = config

	tok, err := tokenFromFile(g.tokenFile)
	if err != nil {
		return fmt.Errorf("reading token file (run 'calsync setup' first): %w", err)
	}

	client := g.config.Client(ctx, tok)
	g.service, err = calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("creating calendar service: %w", err)
	}

	if err := g.loadCalendarList(ctx); err != nil {
		return fmt.Errorf("loading calendar list: %w", err)
	}

	return nil
}

// loadCalendarList fetches all calendars the user has access to.
func (g *Adapter) loadCalendarList(ctx context.Context) error {
	calList, err := g.service.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return err
	}
	for _, cal := range calList.Items {
		g.calendars[cal.Id] = cal.Summary
	}
	return nil
}

// Calendars returns the available calendars (ID → name). Populated by Login.
func (g *Adapter) Calendars() map[string]string {
	return g.calendars
}

// tokenFromFile reads an OAuth token from a JSON file.
func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

// FetchEvents retrieves remote events. With a sync token it requests only
// changes since the last run, treating cancelled entries as tombstones;
// without one it performs a full window fetch. Google signals an expired
// token with HTTP 410, which surfaces as [model.ErrExpiredSyncToken].
func (g *Adapter) FetchEvents(ctx context.Context, window model.Window, syncToken string) (*model.Delta, error) {
	delta := &model.Delta{}
	pageToken := ""

	for {
		req := g.service.Events.List(g.calendarID).
			SingleEvents(true).
			MaxResults(defaultPageSize).
			Context(ctx)

		if syncToken != "" {
			// Sync-token requests must not carry window bounds; deleted
			// events come back as cancelled entries.
			req = req.SyncToken(syncToken).ShowDeleted(true)
		} else {
			req = req.
				TimeMin(window.Start.UTC().Format(time.RFC3339)).
				TimeMax(window.End.UTC().Format(time.RFC3339)).
				ShowDeleted(false)
		}
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		res, err := req.Do()
		if err != nil {
			var gerr *googleapi.Error
			if errors.As(err, &gerr) && gerr.Code == http.StatusGone {
				return nil, fmt.Errorf("listing events for calendar %s: %w", g.calendarID, model.ErrExpiredSyncToken)
			}
			return nil, fmt.Errorf("listing events for calendar %s: %w", g.calendarID, err)
		}

		for _, item := range res.Items {
			if item.Status == "cancelled" {
				if syncToken != "" {
					delta.Tombstones = append(delta.Tombstones, item.Id)
				}
				continue
			}
			delta.Events = append(delta.Events, fromGoogle(item))
		}

		if res.NextPageToken != "" {
			pageToken = res.NextPageToken
			continue
		}
		delta.NextToken = res.NextSyncToken
		return delta, nil
	}
}

// CreateEvent inserts ev and round-trips the created event with its
// provider-assigned ID.
func (g *Adapter) CreateEvent(ctx context.Context, ev model.Event) (model.Event, error) {
	created, err := g.service.Events.Insert(g.calendarID, toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return model.Event{}, fmt.Errorf("creating event %q: %w", ev.Title, err)
	}
	return fromGoogle(created), nil
}

// UpdateEvent overwrites the remote event with the given ID.
func (g *Adapter) UpdateEvent(ctx context.Context, id string, ev model.Event) (model.Event, error) {
	updated, err := g.service.Events.Update(g.calendarID, id, toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return model.Event{}, fmt.Errorf("updating event %q: %w", id, err)
	}
	return fromGoogle(updated), nil
}

// DeleteEvent removes the remote event with the given ID.
func (g *Adapter) DeleteEvent(ctx context.Context, id string) error {
	if err := g.service.Events.Delete(g.calendarID, id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("deleting event %q: %w", id, err)
	}
	return nil
}

// Watch registers a web_hook push channel for the calendar. Google assigns
// the expiration; the caller must renew before it lapses.
func (g *Adapter) Watch(ctx context.Context, webhookURL string) (*model.Subscription, error) {
	ch := &calendar.Channel{
		Id:      uuid.NewString(),
		Type:    "web_hook",
		Address: webhookURL,
	}

	got, err := g.service.Events.Watch(g.calendarID, ch).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("registering watch channel for calendar %s: %w", g.calendarID, err)
	}

	return &model.Subscription{
		ID:         got.Id,
		Resource:   got.ResourceId,
		Expiration: time.UnixMilli(got.Expiration),
	}, nil
}
