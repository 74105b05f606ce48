package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

const (
	otelScope       = "calsync/sync"
	spanPass        = "sync.pass"
	metricCreated   = "calsync.sync.events.created"
	metricUpdated   = "calsync.sync.events.updated"
	metricDeleted   = "calsync.sync.events.deleted"
	metricConflicts = "calsync.sync.conflicts"
	metricErrors    = "calsync.sync.errors"
)

// renewalSlack is how long before a subscription's expiry the watch loop
// re-registers it.
const renewalSlack = 10 * time.Minute

// Engine orchestrates the sync lifecycle: it loads the local event set,
// runs a [Syncer] pass, applies the result back to the local store, persists
// the next sync token, and repeats on a poll interval. Create one with
// [NewEngine] and start it with [Engine.Run].
type Engine struct {
	syncer       *Syncer
	provider     Provider
	store        EventStore
	calendarID   string
	strategy     Strategy
	windowSpan   time.Duration
	pollInterval time.Duration
	webhookURL   string
	log          *slog.Logger

	locks *keyedMutex

	// OTel instruments are always non-nil (no-op when telemetry is disabled).
	tracer       trace.Tracer
	cntCreated   metric.Int64Counter
	cntUpdated   metric.Int64Counter
	cntDeleted   metric.Int64Counter
	cntConflicts metric.Int64Counter
	cntErrors    metric.Int64Counter
}

// EngineConfig carries the knobs NewEngine needs beyond its collaborators.
type EngineConfig struct {
	// CalendarID scopes the sync-token key and the per-calendar lock.
	CalendarID string
	// Strategy is the conflict-resolution policy for every pass.
	Strategy Strategy
	// WindowSpan is how far ahead full fetches look.
	WindowSpan time.Duration
	// PollInterval is the delay between passes in daemon mode.
	PollInterval time.Duration
	// WebhookURL, when set, enables the watch-renewal loop.
	WebhookURL string
}

// NewEngine creates an Engine wired to the given provider adapter and store.
func NewEngine(syncer *Syncer, provider Provider, store EventStore, cfg EngineConfig, logger *slog.Logger) *Engine {
	tracer := otel.Tracer(otelScope)
	meter := otel.Meter(otelScope)

	mustCounter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		if err != nil {
			logger.Error("creating OTel counter", "name", name, "error", err)
			return noop.Int64Counter{}
		}
		return c
	}

	return &Engine{
		syncer:       syncer,
		provider:     provider,
		store:        store,
		calendarID:   cfg.CalendarID,
		strategy:     cfg.Strategy,
		windowSpan:   cfg.WindowSpan,
		pollInterval: cfg.PollInterval,
		webhookURL:   cfg.WebhookURL,
		log:          logger,

		locks: newKeyedMutex(),

		tracer:       tracer,
		cntCreated:   mustCounter(metricCreated, "Number of events created during sync"),
		cntUpdated:   mustCounter(metricUpdated, "Number of events updated during sync"),
		cntDeleted:   mustCounter(metricDeleted, "Number of events deleted during sync"),
		cntConflicts: mustCounter(metricConflicts, "Number of conflict resolutions during sync"),
		cntErrors:    mustCounter(metricErrors, "Number of per-event errors during sync"),
	}
}

// window returns the fetch bounds for a full (tokenless) pass.
func (e *Engine) window(now time.Time) model.Window {
	return model.Window{Start: now, End: now.Add(e.windowSpan)}
}

// runPass performs one serialized reconciliation pass and applies its result
// to the local store. Overlapping passes for the same (provider, calendar)
// pair queue behind each other.
func (e *Engine) runPass(ctx context.Context) (*SyncResult, error) {
	unlock := e.locks.lock(e.provider.ID() + "/" + e.calendarID)
	defer unlock()

	token, err := e.store.SyncToken(ctx, e.provider.ID(), e.calendarID)
	if err != nil {
		return nil, err
	}

	window := e.window(time.Now().UTC())
	local, err := e.store.ListEvents(ctx, e.provider.ID(), window)
	if err != nil {
		return nil, err
	}

	opts := Options{Strategy: e.strategy, SyncToken: token, Window: window}
	res, err := e.syncer.TwoWaySync(ctx, local, opts)
	if err != nil && token != "" && errors.Is(err, model.ErrExpiredSyncToken) {
		// The provider rejected our incremental token. Fall back to a full
		// resync once; the stored token is stale either way.
		e.log.Warn("sync token expired, running full resync", "provider", e.provider.ID())
		if clearErr := e.store.SetSyncToken(ctx, e.provider.ID(), e.calendarID, ""); clearErr != nil {
			e.log.Error("clearing expired sync token", "error", clearErr)
		}
		opts.SyncToken = ""
		res, err = e.syncer.TwoWaySync(ctx, local, opts)
	}
	if err != nil {
		return nil, err
	}

	e.apply(ctx, res)

	if res.NextSyncToken != "" {
		if err := e.store.SetSyncToken(ctx, e.provider.ID(), e.calendarID, res.NextSyncToken); err != nil {
			e.log.Error("storing sync token", "error", err)
		}
	}

	return res, nil
}

// apply writes the pass's reported changes into the local store. Store
// failures are isolated per event, matching the engine's per-item error
// policy.
func (e *Engine) apply(ctx context.Context, res *SyncResult) {
	for _, ev := range res.RemoteAdds {
		if err := e.store.UpsertEvent(ctx, e.provider.ID(), ev); err != nil {
			e.log.Error("persisting remote event", "title", ev.Title, "error", err)
			res.Errors = append(res.Errors, SyncError{Event: ev, Message: err.Error(), Provider: e.provider.ID()})
		}
	}
	for _, ev := range res.LocalUpdates {
		if err := e.store.UpsertEvent(ctx, e.provider.ID(), ev); err != nil {
			e.log.Error("updating local event", "title", ev.Title, "error", err)
			res.Errors = append(res.Errors, SyncError{Event: ev, Message: err.Error(), Provider: e.provider.ID()})
		}
	}
	for _, id := range res.RemoteDeletes {
		if err := e.store.DeleteEvent(ctx, e.provider.ID(), id); err != nil {
			e.log.Error("removing local event", "id", id, "error", err)
		}
	}
}

// reconcile runs one pass, recording a trace span and metrics.
func (e *Engine) reconcile(ctx context.Context) (*SyncResult, error) {
	ctx, span := e.tracer.Start(ctx, spanPass)
	defer span.End()

	res, err := e.runPass(ctx)
	if err != nil {
		span.RecordError(err)
		e.cntErrors.Add(ctx, 1)
		return nil, err
	}

	if res.Created > 0 {
		e.cntCreated.Add(ctx, int64(res.Created))
	}
	if res.Updated > 0 {
		e.cntUpdated.Add(ctx, int64(res.Updated))
	}
	if res.Deleted > 0 {
		e.cntDeleted.Add(ctx, int64(res.Deleted))
	}
	if len(res.Conflicts) > 0 {
		e.cntConflicts.Add(ctx, int64(len(res.Conflicts)))
	}
	if len(res.Errors) > 0 {
		e.cntErrors.Add(ctx, int64(len(res.Errors)))
	}

	span.SetAttributes(
		attribute.Int("sync.created", res.Created),
		attribute.Int("sync.updated", res.Updated),
		attribute.Int("sync.deleted", res.Deleted),
		attribute.Int("sync.conflicts", len(res.Conflicts)),
		attribute.Int("sync.errors", len(res.Errors)),
	)

	return res, nil
}

// RunOnce performs a single reconciliation pass and returns its result.
func (e *Engine) RunOnce(ctx context.Context) (*SyncResult, error) {
	return e.reconcile(ctx)
}

// Run starts the polling loop and, when a webhook URL is configured, the
// watch-renewal loop. It blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	if e.webhookURL != "" {
		go e.renewWatch(ctx)
	}

	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	// Run an immediate first pass.
	if res, err := e.reconcile(ctx); err != nil {
		e.log.Error("initial sync pass failed", "error", err)
	} else {
		e.logResult(res)
	}

	for {
		select {
		case <-ctx.Done():
			e.log.Info("sync engine shutting down")
			return ctx.Err()
		case <-ticker.C:
			res, err := e.reconcile(ctx)
			if err != nil {
				e.log.Error("sync pass failed", "error", err)
				continue
			}
			e.logResult(res)
		}
	}
}

// renewWatch keeps a push-notification channel registered, re-registering
// shortly before each expiry. Registration failures back off to the poll
// interval; polling still covers the calendar in the meantime.
func (e *Engine) renewWatch(ctx context.Context) {
	for {
		sub, err := e.provider.Watch(ctx, e.webhookURL)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			e.log.Error("watch registration failed", "provider", e.provider.ID(), "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.pollInterval):
			}
			continue
		}

		e.log.Info("watch channel registered",
			"subscription", sub.ID,
			"expires", sub.Expiration,
		)

		wait := time.Until(sub.Expiration) - renewalSlack
		if wait < time.Minute {
			wait = time.Minute
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (e *Engine) logResult(res *SyncResult) {
	e.log.Info("sync pass complete",
		"created", res.Created,
		"updated", res.Updated,
		"deleted", res.Deleted,
		"conflicts", len(res.Conflicts),
		"errors", len(res.Errors),
	)
}
