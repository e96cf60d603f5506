package graph

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/joseph-ayodele/wirecert-sync/internal/common"
)

// DefaultScope requests every application permission granted to the app registration.
const DefaultScope = "https://graph.microsoft.com/.default"

// Credentials identify the Azure AD app registration used for client-credentials.
type Credentials struct {
	AuthorityHost string // default https://login.microsoftonline.com
	TenantID      string
	ClientID      string
	ClientSecret  string
	Scopes        []string
}

// TokenURL returns the v2.0 token endpoint for the tenant.
func (c Credentials) TokenURL() string {
	host := c.AuthorityHost
	if host == "" {
		host = "https://login.microsoftonline.com"
	}
	return strings.TrimRight(host, "/") + "/" + c.TenantID + "/oauth2/v2.0/token"
}

func (c Credentials) validate() error {
	switch {
	case c.TenantID == "":
		return common.NewAppError(common.CodeAuth, "tenant id is empty", common.ErrUnauthorized)
	case c.ClientID == "":
		return common.NewAppError(common.CodeAuth, "client id is empty", common.ErrUnauthorized)
	case c.ClientSecret == "":
		return common.NewAppError(common.CodeAuth, "client secret is empty", common.ErrUnauthorized)
	}
	return nil
}

// authorizedClient returns an *http.Client that attaches a cached, auto-refreshed
// bearer token to every request. base carries the timeout and transport.
func authorizedClient(ctx context.Context, creds Credentials, base *http.Client) *http.Client {
	scopes := creds.Scopes
	if len(scopes) == 0 {
		scopes = []string{DefaultScope}
	}
	cc := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL(),
		Scopes:       scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	client := cc.Client(ctx)
	client.Timeout = base.Timeout
	return client
}
