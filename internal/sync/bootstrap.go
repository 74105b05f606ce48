package sync

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ghxstship/atlvs-sub022/internal/model"
)

// Bootstrap seeds an empty local store on first run: it performs a full
// remote fetch, prints a summary of what would be imported, and (with user
// confirmation) writes the events and the initial sync token.
type Bootstrap struct {
	provider   Provider
	store      EventStore
	calendarID string
	log        *slog.Logger
	reader     io.Reader // for confirmation prompt (os.Stdin in production)
	writer     io.Writer // for summary output (os.Stdout in production)
}

// NewBootstrap creates a Bootstrap wired to the given adapter and store.
// reader and writer control the confirmation prompt I/O.
func NewBootstrap(provider Provider, store EventStore, calendarID string, logger *slog.Logger, reader io.Reader, writer io.Writer) *Bootstrap {
	return &Bootstrap{
		provider:   provider,
		store:      store,
		calendarID: calendarID,
		log:        logger,
		reader:     reader,
		writer:     writer,
	}
}

// Run checks whether the local store is empty and, if so, performs the
// first-run import. Returns true if the import was executed, false if
// skipped.
func (b *Bootstrap) Run(ctx context.Context, window model.Window) (bool, error) {
	empty, err := b.store.IsEmpty(ctx)
	if err != nil {
		return false, fmt.Errorf("checking local store: %w", err)
	}
	if !empty {
		b.log.Debug("local store is not empty, skipping bootstrap")
		return false, nil
	}

	b.log.Info("empty local store detected, starting first-run import")

	delta, err := b.provider.FetchEvents(ctx, window, "")
	if err != nil {
		return false, fmt.Errorf("fetching events for bootstrap: %w", err)
	}

	b.printSummary(delta.Events)

	if !b.confirm() {
		b.log.Info("bootstrap cancelled by user")
		return false, nil
	}

	for _, ev := range delta.Events {
		if err := b.store.UpsertEvent(ctx, b.provider.ID(), ev); err != nil {
			return false, fmt.Errorf("importing %q: %w", ev.Title, err)
		}
		b.log.Debug("imported event", "title", ev.Title, "id", ev.ID)
	}

	if delta.NextToken != "" {
		if err := b.store.SetSyncToken(ctx, b.provider.ID(), b.calendarID, delta.NextToken); err != nil {
			return false, fmt.Errorf("storing initial sync token: %w", err)
		}
	}

	b.log.Info("bootstrap complete", "imported", len(delta.Events))
	return true, nil
}

// printSummary writes a human-readable summary of the pending import.
func (b *Bootstrap) printSummary(events []model.Event) {
	_, _ = fmt.Fprintf(b.writer, "\n--- First-Run Import Summary ---\n\n")
	_, _ = fmt.Fprintf(b.writer, "Provider %s (%s): %d event(s) in window\n",
		b.provider.ID(), b.provider.Name(), len(events))
	for _, ev := range events {
		_, _ = fmt.Fprintf(b.writer, "  %s  %s\n", ev.Start.Format("2006-01-02 15:04"), ev.Title)
	}
	_, _ = fmt.Fprintln(b.writer)
}

// confirm reads a y/n response from the reader.
func (b *Bootstrap) confirm() bool {
	_, _ = fmt.Fprintf(b.writer, "Import these events into the local store? [y/N] ")
	scanner := bufio.NewScanner(b.reader)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes"
	}
	return false
}
