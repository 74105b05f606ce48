// Calsync is a daemon that keeps a local event store and a remote calendar
// (Google Calendar or Outlook / Office 365) in two-way sync with
// configurable conflict resolution.
//
// Usage:
//
//	calsync setup                     # interactive first-run wizard
//	calsync daemon [--config <path>]  # continuous polling sync
//	calsync sync-once [--config ...]  # single sync pass then exit
//	calsync watch [--config ...]      # register a push-notification channel
//	calsync status                    # show config & state DB info
//	calsync version                   # print version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghxstship/atlvs-sub022/internal/adapter/google"
	"github.com/ghxstship/atlvs-sub022/internal/adapter/outlook"
	"github.com/ghxstship/atlvs-sub022/internal/config"
	"github.com/ghxstship/atlvs-sub022/internal/model"
	"github.com/ghxstship/atlvs-sub022/internal/setup"
	"github.com/ghxstship/atlvs-sub022/internal/state"
	syncp "github.com/ghxstship/atlvs-sub022/internal/sync"
	"github.com/ghxstship/atlvs-sub022/internal/telemetry"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

// run dispatches to the appropriate subcommand.
func run(args []string) error {
	if len(args) < 1 {
		return printUsage()
	}

	switch cmd := args[0]; cmd {
	case "setup":
		return runSetup()
	case "daemon":
		return runSync(args[1:], true)
	case "sync-once":
		return runSync(args[1:], false)
	case "watch":
		return runWatch(args[1:])
	case "status":
		return runStatus()
	case "version":
		fmt.Println("calsync", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q, run 'calsync' for usage", cmd)
	}
}

// printUsage shows help and suggests setup if no config exists.
func printUsage() error {
	cfgPath, _ := config.DefaultPath()
	_, cfgErr := os.Stat(cfgPath)

	fmt.Fprintln(os.Stderr, "calsync: two-way calendar sync for Google Calendar and Outlook")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  calsync setup                   Interactive first-run wizard")
	fmt.Fprintln(os.Stderr, "  calsync daemon [--config ...]   Run as continuous daemon")
	fmt.Fprintln(os.Stderr, "  calsync sync-once [--config ..] Single sync pass then exit")
	fmt.Fprintln(os.Stderr, "  calsync watch [--config ...]    Register a push-notification channel")
	fmt.Fprintln(os.Stderr, "  calsync status                  Show config & state DB info")
	fmt.Fprintln(os.Stderr, "  calsync version                 Print version")
	fmt.Fprintln(os.Stderr, "")

	if cfgErr != nil {
		fmt.Fprintln(os.Stderr, "No config file found. Run 'calsync setup' to get started.")
	}

	os.Exit(1)
	return nil // unreachable
}

// --- Subcommands -------------------------------------------------------------

// runSetup launches the interactive setup wizard.
func runSetup() error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	wiz := setup.NewWizard(os.Stdin, os.Stdout, logger)
	return wiz.Run(ctx)
}

// runSync handles both "daemon" and "sync-once" subcommands.
func runSync(args []string, daemon bool) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	return startSync(*cfgPath, *verbose, daemon)
}

// runWatch registers a single push-notification channel for the configured
// calendar and prints the subscription details. Renewal before the printed
// expiry is the caller's responsibility; the daemon renews automatically.
func runWatch(args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	defaultCfg, _ := config.DefaultPath()
	cfgPath := fs.String("config", defaultCfg, "path to config.yaml")
	verbose := fs.Bool("verbose", false, "enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", *cfgPath, err)
	}
	if cfg.WebhookURL == "" {
		return fmt.Errorf("no webhook_url configured in %q, nothing to register", *cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}

	sub, err := provider.Watch(ctx, cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("registering watch channel: %w", err)
	}

	fmt.Println("watch channel registered")
	fmt.Printf("  Subscription:  %s\n", sub.ID)
	fmt.Printf("  Resource:      %s\n", sub.Resource)
	fmt.Printf("  Expires:       %s\n", sub.Expiration.Format(time.RFC3339))
	return nil
}

// runStatus prints the current configuration and state database info.
func runStatus() error {
	cfgPath, _ := config.DefaultPath()

	fmt.Println("calsync status")
	fmt.Println("--------------")

	dbPath, _ := state.DefaultDBPath()

	if _, err := os.Stat(cfgPath); err == nil {
		if cfg, loadErr := config.Load(cfgPath); loadErr == nil {
			fmt.Printf("  Config:    %s\n", cfgPath)
			fmt.Printf("  Provider:  %s\n", cfg.Provider)
			fmt.Printf("  Calendar:  %s\n", cfg.CalendarID)
			fmt.Printf("  Strategy:  %s\n", cfg.ConflictStrategy)
			fmt.Printf("  Poll:      %s\n", cfg.PollInterval)
			if cfg.StateDB != "" {
				dbPath = cfg.StateDB
			}
		} else {
			fmt.Printf("  Config:    %s (invalid: %v)\n", cfgPath, loadErr)
		}
	} else {
		fmt.Printf("  Config:    not found (%s)\n", cfgPath)
	}

	if info, err := os.Stat(dbPath); err == nil {
		fmt.Printf("  State DB:  %s (%s)\n", dbPath, humanSize(info.Size()))
	} else {
		fmt.Printf("  State DB:  not found\n")
	}

	return nil
}

// --- Sync core ---------------------------------------------------------------

// startSync is the shared implementation for daemon and sync-once modes.
func startSync(cfgPath string, verbose, daemon bool) error {
	// --- Logger --------------------------------------------------------------

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// --- Config --------------------------------------------------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %q: %w", cfgPath, err)
	}
	logger.Info("config loaded",
		"provider", cfg.Provider,
		"calendar", cfg.CalendarID,
		"strategy", cfg.ConflictStrategy,
		"poll_interval", cfg.PollInterval,
	)

	// --- Telemetry (optional) ------------------------------------------------

	if cfg.Telemetry != nil {
		telCfg := telemetry.Config{
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			Insecure:     cfg.Telemetry.Insecure,
			ServiceName:  cfg.Telemetry.ServiceName,
			Version:      version,
			Headers:      cfg.Telemetry.Headers,
		}
		shutdownTel, err := telemetry.Setup(context.Background(), telCfg)
		if err != nil {
			logger.Error("telemetry setup failed, continuing without telemetry", "error", err)
		} else {
			logger.Info("telemetry enabled", "endpoint", cfg.Telemetry.OTLPEndpoint)
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdownTel(flushCtx); err != nil {
					logger.Error("telemetry shutdown error", "error", err)
				}
			}()
		}
	}

	// --- State DB ------------------------------------------------------------

	dbPath := cfg.StateDB
	if dbPath == "" {
		dbPath, err = state.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolving state DB path: %w", err)
		}
	}
	store, err := state.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening state DB at %q: %w", dbPath, err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			logger.Error("closing state DB", "error", closeErr)
		}
	}()
	logger.Info("state DB opened", "path", dbPath)

	// --- Provider adapter ----------------------------------------------------

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	provider, err := buildProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("provider ready", "provider", provider.Name())

	// --- First-run bootstrap -------------------------------------------------

	strategy, err := syncp.ParseStrategy(cfg.ConflictStrategy)
	if err != nil {
		return fmt.Errorf("parsing conflict strategy: %w", err)
	}
	windowSpan := time.Duration(cfg.WindowDays) * 24 * time.Hour

	bootstrap := syncp.NewBootstrap(provider, store, cfg.CalendarID, logger, os.Stdin, os.Stdout)
	window := model.Window{Start: time.Now(), End: time.Now().Add(windowSpan)}
	if _, err := bootstrap.Run(ctx, window); err != nil {
		return fmt.Errorf("first-run bootstrap: %w", err)
	}

	// --- Sync engine ---------------------------------------------------------

	syncer := syncp.NewSyncer(provider, logger)
	engine := syncp.NewEngine(syncer, provider, store, syncp.EngineConfig{
		CalendarID:   cfg.CalendarID,
		Strategy:     strategy,
		WindowSpan:   windowSpan,
		PollInterval: cfg.PollInterval,
		WebhookURL:   cfg.WebhookURL,
	}, logger)

	// --- Dispatch mode -------------------------------------------------------

	if !daemon {
		logger.Info("running single sync pass")
		res, err := engine.RunOnce(ctx)
		if res != nil {
			logger.Info("sync complete",
				"created", res.Created,
				"updated", res.Updated,
				"deleted", res.Deleted,
				"conflicts", len(res.Conflicts),
				"errors", len(res.Errors),
			)
		}
		return err
	}

	logger.Info("daemon starting", "poll_interval", cfg.PollInterval)
	if err := engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync engine: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

// buildProvider constructs and logs in the configured provider adapter.
func buildProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (syncp.Provider, error) {
	switch cfg.Provider {
	case "google":
		adapter := google.NewAdapter("google", "Google Calendar", cfg.CalendarID,
			cfg.Google.CredentialsFile, cfg.Google.TokenFile, logger)
		if err := adapter.Login(ctx); err != nil {
			return nil, fmt.Errorf("initialising Google Calendar client: %w", err)
		}
		return adapter, nil
	case "outlook":
		adapter := outlook.NewAdapter("outlook", "Outlook", cfg.Outlook.ClientID,
			cfg.Outlook.TenantID, cfg.Outlook.TokenFile, logger)
		if err := adapter.Login(ctx); err != nil {
			return nil, fmt.Errorf("initialising Outlook client: %w", err)
		}
		return adapter, nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// humanSize returns a human-readable file size string.
func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
