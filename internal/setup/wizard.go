package setup

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ghxstship/atlvs-sub022/internal/adapter/google"
	"github.com/ghxstship/atlvs-sub022/internal/adapter/outlook"
	"github.com/ghxstship/atlvs-sub022/internal/config"
)

// Wizard guides the user through first-run configuration: provider choice,
// OAuth sign-in, calendar selection, and writing the config file.
type Wizard struct {
	prompt *Prompter
	logger *slog.Logger
	w      io.Writer
}

// NewWizard creates a Wizard wired to the given I/O and logger.
func NewWizard(r io.Reader, w io.Writer, logger *slog.Logger) *Wizard {
	return &Wizard{
		prompt: NewPrompter(r, w),
		logger: logger,
		w:      w,
	}
}

// Run executes the interactive setup wizard.
func (wiz *Wizard) Run(ctx context.Context) error {
	fmt.Fprintf(wiz.w, "\nWelcome to calsync setup!\n")
	fmt.Fprintf(wiz.w, "This wizard connects a calendar provider and writes the config file.\n\n")

	cfgPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	if _, statErr := os.Stat(cfgPath); statErr == nil {
		fmt.Fprintf(wiz.w, "  Existing config found at %s\n", cfgPath)
		if !wiz.prompt.Confirm("Overwrite existing configuration?", false) {
			fmt.Fprintf(wiz.w, "\n  Keeping existing config.\n")
			return nil
		}
		fmt.Fprintf(wiz.w, "\n")
	}

	cfg := &config.Config{}

	// Step 1: provider and sign-in.
	fmt.Fprintf(wiz.w, "Step 1/3: Calendar Provider\n")

	choice, err := wiz.prompt.Select("Provider", []string{"Google Calendar", "Outlook / Office 365"})
	if err != nil {
		return fmt.Errorf("selecting provider: %w", err)
	}

	switch choice {
	case 0:
		if err := wiz.setupGoogle(ctx, cfg); err != nil {
			return err
		}
	case 1:
		if err := wiz.setupOutlook(ctx, cfg); err != nil {
			return err
		}
	}

	// Step 2: sync behaviour.
	fmt.Fprintf(wiz.w, "Step 2/3: Sync Behaviour\n")

	stratIdx, err := wiz.prompt.Select("When both copies of an event changed, which wins?", []string{
		"newest (most recently modified copy)",
		"local (this machine always wins)",
		"remote (the provider always wins)",
		"manual (merge fields from both)",
	})
	if err != nil {
		return fmt.Errorf("selecting conflict strategy: %w", err)
	}
	cfg.ConflictStrategy = []string{"newest", "local", "remote", "manual"}[stratIdx]

	pollStr := wiz.prompt.String("How often to run a sync pass? (30s-1h)", "5m")
	pollInterval, parseErr := time.ParseDuration(pollStr)
	if parseErr != nil {
		pollInterval = 5 * time.Minute
		fmt.Fprintf(wiz.w, "  (invalid duration, using default 5m)\n")
	}
	cfg.PollInterval = pollInterval

	if hook := wiz.prompt.Optional("Webhook URL for push notifications"); hook != "" {
		cfg.WebhookURL = hook
	}
	fmt.Fprintf(wiz.w, "\n")

	// Step 3: write config.
	fmt.Fprintf(wiz.w, "Step 3/3: Save Configuration\n")

	if err := cfg.Write(cfgPath); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	fmt.Fprintf(wiz.w, "  Config written to %s\n\n", cfgPath)
	fmt.Fprintf(wiz.w, "Setup complete. Next steps:\n")
	fmt.Fprintf(wiz.w, "  calsync sync-once   run a single sync pass\n")
	fmt.Fprintf(wiz.w, "  calsync daemon      sync continuously\n\n")

	return nil
}

// setupGoogle collects Google credentials, runs the OAuth flow, and lets the
// user pick a calendar.
func (wiz *Wizard) setupGoogle(ctx context.Context, cfg *config.Config) error {
	cfg.Provider = "google"

	credsFile := wiz.prompt.String("Path to OAuth client JSON (from Google Cloud console)", "")
	tokenFile := wiz.prompt.String("Where to store the auth token", defaultTokenPath("google"))

	fmt.Fprintf(wiz.w, "\n  Opening browser for Google sign-in...\n")
	if err := RunGoogleAuth(ctx, credsFile, tokenFile); err != nil {
		return fmt.Errorf("google authentication: %w", err)
	}
	fmt.Fprintf(wiz.w, "  Signed in.\n\n")

	cfg.Google = &config.GoogleConfig{
		CredentialsFile: credsFile,
		TokenFile:       tokenFile,
	}

	adapter := google.NewAdapter("google", "Google Calendar", "primary", credsFile, tokenFile, wiz.logger)
	if err := adapter.Login(ctx); err != nil {
		wiz.logger.Warn("could not list calendars", "error", err)
		cfg.CalendarID = wiz.prompt.String("Calendar ID", "primary")
		return nil
	}

	cfg.CalendarID = wiz.pickCalendar(adapter.Calendars(), "primary")
	fmt.Fprintf(wiz.w, "\n")
	return nil
}

// setupOutlook collects the Azure app registration details, runs the OAuth
// flow, and confirms the account's calendars are reachable.
func (wiz *Wizard) setupOutlook(ctx context.Context, cfg *config.Config) error {
	cfg.Provider = "outlook"

	clientID := wiz.prompt.String("Azure app client ID", "")
	tenantID := wiz.prompt.String("Tenant ID", "common")
	tokenFile := wiz.prompt.String("Where to store the auth token", defaultTokenPath("outlook"))

	adapter := outlook.NewAdapter("outlook", "Outlook", clientID, tenantID, tokenFile, wiz.logger)

	fmt.Fprintf(wiz.w, "\n  Opening browser for Microsoft sign-in...\n")
	oauthConfig := adapter.OAuthConfig()
	oauthConfig.RedirectURL = redirectURL
	if err := RunOutlookAuth(ctx, oauthConfig, tokenFile); err != nil {
		return fmt.Errorf("microsoft authentication: %w", err)
	}
	fmt.Fprintf(wiz.w, "  Signed in.\n\n")

	cfg.Outlook = &config.OutlookConfig{
		ClientID:  clientID,
		TenantID:  tenantID,
		TokenFile: tokenFile,
	}

	if err := adapter.Login(ctx); err != nil {
		wiz.logger.Warn("could not list calendars", "error", err)
	} else if cals := adapter.Calendars(); len(cals) > 0 {
		fmt.Fprintf(wiz.w, "  Found %d calendar(s). The default calendar will be synced.\n", len(cals))
	}
	cfg.CalendarID = "primary"
	fmt.Fprintf(wiz.w, "\n")
	return nil
}

// pickCalendar shows the discovered calendars and returns the chosen ID.
func (wiz *Wizard) pickCalendar(calendars map[string]string, fallback string) string {
	if len(calendars) == 0 {
		return fallback
	}

	ids := make([]string, 0, len(calendars))
	for id := range calendars {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	options := make([]string, len(ids))
	for i, id := range ids {
		options[i] = fmt.Sprintf("%s (%s)", calendars[id], id)
	}

	idx, err := wiz.prompt.Select("Which calendar should calsync manage?", options)
	if err != nil {
		return fallback
	}
	return ids[idx]
}

// defaultTokenPath suggests a token location under the user's config dir.
func defaultTokenPath(provider string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return provider + "-token.json"
	}
	return filepath.Join(home, ".config", "calsync", provider+"-token.json")
}
