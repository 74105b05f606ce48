package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRun_UnknownCommand(t *testing.T) {
	err := run([]string{"bogus"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v, want unknown command", err)
	}
}

func TestRun_WatchIsDispatched(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "missing.yaml")

	err := run([]string{"watch", "--config", cfgPath})
	if err == nil {
		t.Fatal("expected an error for a missing config")
	}
	if strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("watch was not dispatched: %v", err)
	}
	if !strings.Contains(err.Error(), "loading config") {
		t.Errorf("err = %v, want a config-loading error", err)
	}
}

func TestRunWatch_RequiresWebhookURL(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	cfg := `provider: google
google:
  credentials_file: /tmp/creds.json
  token_file: /tmp/token.json
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	err := runWatch([]string{"--config", cfgPath})
	if err == nil || !strings.Contains(err.Error(), "webhook_url") {
		t.Fatalf("err = %v, want missing webhook_url error", err)
	}
}
