package setup

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	googleauth "golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
)

const (
	redirectPort = "8085"
	redirectURL  = "http://localhost:" + redirectPort + "/callback"

	authTimeout = 5 * time.Minute
)

// RunGoogleAuth runs the OAuth authorization-code flow for Google Calendar:
// it starts a local callback server, opens the browser for sign-in, and
// saves the resulting token to tokenFile.
func RunGoogleAuth(ctx context.Context, credsFile, tokenFile string) error {
	b, err := os.ReadFile(credsFile)
	if err != nil {
		return fmt.Errorf("reading credentials file: %w", err)
	}

	config, err := googleauth.ConfigFromJSON(b, calendar.CalendarScope)
	if err != nil {
		return fmt.Errorf("parsing credentials: %w", err)
	}
	config.RedirectURL = redirectURL

	tok, err := tokenViaLocalServer(ctx, config, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	if err != nil {
		return err
	}
	return saveToken(tokenFile, tok)
}

// RunOutlookAuth runs the OAuth authorization-code flow against the
// Microsoft identity platform and saves the resulting token to tokenFile.
// oauthConfig comes from the Outlook adapter so the scopes match what the
// sync engine later needs.
func RunOutlookAuth(ctx context.Context, oauthConfig *oauth2.Config, tokenFile string) error {
	tok, err := tokenViaLocalServer(ctx, oauthConfig, oauth2.SetAuthURLParam("prompt", "consent"))
	if err != nil {
		return err
	}
	return saveToken(tokenFile, tok)
}

// tokenViaLocalServer serves the OAuth callback on localhost, directs the
// user's browser to the provider's consent page, and exchanges the returned
// code for a token.
func tokenViaLocalServer(ctx context.Context, config *oauth2.Config, authOpts ...oauth2.AuthCodeOption) (*oauth2.Token, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errMsg := r.URL.Query().Get("error")
			http.Error(w, "Authorization failed: "+errMsg, http.StatusBadRequest)
			errChan <- fmt.Errorf("authorization failed: %s", errMsg)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authorization successful</h1><p>You can close this window and return to the terminal.</p></body></html>")
		codeChan <- code
	})

	server := &http.Server{Addr: ":" + redirectPort, Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()
	defer func() { _ = server.Shutdown(context.Background()) }()

	authURL := config.AuthCodeURL("state-token", authOpts...)
	if err := openBrowser(authURL); err != nil {
		fmt.Println("Could not open a browser automatically. Open this URL manually:")
		fmt.Println(authURL)
	}

	var code string
	select {
	case code = <-codeChan:
	case err := <-errChan:
		return nil, err
	case <-time.After(authTimeout):
		return nil, fmt.Errorf("timeout waiting for authorization")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform")
	}
	return cmd.Start()
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating token file: %w", err)
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(token); err != nil {
		return fmt.Errorf("encoding token: %w", err)
	}
	return nil
}
