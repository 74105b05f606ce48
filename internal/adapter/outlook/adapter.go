// Package outlook implements the calendar provider adapter for Microsoft
// Outlook / Office 365 using the official Microsoft Graph SDK. It converts
// between Graph's event schema and the shared [model.Event] representation
// and exposes the CRUD, delta-fetch, and subscription operations the sync
// engine needs.
package outlook

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	msgraphsdk "github.com/microsoftgraph/msgraph-sdk-go"
	msgraphcore "github.com/microsoftgraph/msgraph-sdk-go-core"
	graphmodels "github.com/microsoftgraph/msgraph-sdk-go/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

// tokenCredential bridges our saved OAuth2 token into the Azure SDK's
// TokenCredential interface, allowing the Microsoft Graph SDK to
// authenticate requests.
type tokenCredential struct {
	adapter *Adapter
}

func (c *tokenCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	tok, err := c.adapter.accessToken(ctx)
	if err != nil {
		return azcore.AccessToken{}, err
	}
	c.adapter.tokenMu.Lock()
	expiry := c.adapter.token.Expiry
	c.adapter.tokenMu.Unlock()
	return azcore.AccessToken{
		Token:     tok,
		ExpiresOn: expiry,
	}, nil
}

// Adapter provides sync-oriented operations on the signed-in user's
// Outlook calendar. Create one with [NewAdapter] and initialise it with
// [Adapter.Login] before use.
type Adapter struct {
	id        string
	name      string
	clientID  string
	tenantID  string
	tokenFile string
	calendars map[string]string

	token   *oauth2.Token
	tokenMu sync.Mutex
	client  *msgraphsdk.GraphServiceClient
	log     *slog.Logger
}

// NewAdapter creates an Adapter. tenantID defaults to "common" for personal
// and multi-tenant accounts.
func NewAdapter(id, name, clientID, tenantID, tokenFile string, logger *slog.Logger) *Adapter {
	if tenantID == "" {
		tenantID = "common"
	}
	return &Adapter{
		id:        id,
		name:      name,
		clientID:  clientID,
		tenantID:  tenantID,
		tokenFile: tokenFile,
		calendars: make(map[string]string),
		log:       logger,
	}
}

func (o *Adapter) ID() string   { return o.id }
func (o *Adapter) Name() string { return o.name }

// OAuthConfig returns the OAuth2 configuration for the Microsoft identity
// platform. Used by the setup command to run the initial OAuth flow.
func (o *Adapter) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:    o.clientID,
		Endpoint:    microsoft.AzureADEndpoint(o.tenantID),
		RedirectURL: "http://localhost:8085/callback",
		Scopes: []string{
			"https://graph.microsoft.com/Calendars.ReadWrite",
			"https://graph.microsoft.com/User.Read",
			"offline_access",
		},
	}
}

// Login loads the saved OAuth token and initialises the Graph SDK client.
func (o *Adapter) Login(ctx context.Context) error {
	tok, err := tokenFromFile(o.tokenFile)
	if err != nil {
		return fmt.Errorf("reading token file (run 'calsync setup' first): %w", err)
	}

	if tok.AccessToken == "" {
		return fmt.Errorf("token file has no access token: delete %s and run 'calsync setup' again", o.tokenFile)
	}

	o.token = tok

	cred := &tokenCredential{adapter: o}
	client, err := msgraphsdk.NewGraphServiceClientWithCredentials(cred, []string{
		"https://graph.microsoft.com/.default",
	})
	if err != nil {
		return fmt.Errorf("creating graph client: %w", err)
	}
	o.client = client

	if err := o.loadCalendarList(ctx); err != nil {
		return fmt.Errorf("loading calendar list: %w", err)
	}

	return nil
}

// accessToken returns a valid access token, refreshing if expired.
func (o *Adapter) accessToken(ctx context.Context) (string, error) {
	o.tokenMu.Lock()
	defer o.tokenMu.Unlock()

	if o.token.Valid() {
		return o.token.AccessToken, nil
	}

	src := o.OAuthConfig().TokenSource(ctx, o.token)
	newTok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("token expired and refresh failed (delete %s and run 'calsync setup'): %w", o.tokenFile, err)
	}

	o.token = newTok

	// Persist the refreshed token so the next process start skips the flow.
	if f, err := os.Create(o.tokenFile); err == nil {
		json.NewEncoder(f).Encode(newTok)
		f.Close()
	}

	return newTok.AccessToken, nil
}

// Calendars returns all available calendars (ID → name). Populated by Login.
func (o *Adapter) Calendars() map[string]string {
	return o.calendars
}

// loadCalendarList fetches all calendars the user has access to, following
// pagination.
func (o *Adapter) loadCalendarList(ctx context.Context) error {
	result, err := o.client.Me().Calendars().Get(ctx, nil)
	if err != nil {
		return err
	}

	pageIterator, err := msgraphcore.NewPageIterator[graphmodels.Calendarable](
		result,
		o.client.GetAdapter(),
		graphmodels.CreateCalendarCollectionResponseFromDiscriminatorValue,
	)
	if err != nil {
		return err
	}

	return pageIterator.Iterate(ctx, func(cal graphmodels.Calendarable) bool {
		id := cal.GetId()
		name := cal.GetName()
		if id != nil && name != nil {
			o.calendars[*id] = *name
		}
		return true
	})
}
