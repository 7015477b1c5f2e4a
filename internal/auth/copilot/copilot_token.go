// Package copilot exchanges a GitHub OAuth access token for a Copilot API token.
// The resulting Session carries everything an authenticated API call needs: the API
// token, the API base URL, and the token's expiry when the provider reports one.
package copilot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/copilot-cli/copilot-cli/internal/auth"
	"github.com/copilot-cli/copilot-cli/internal/config"
	"github.com/copilot-cli/copilot-cli/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// TokenURL is the Copilot internal token exchange endpoint.
const TokenURL = "https://api.github.com/copilot_internal/v2/token"

// Session bundles the credentials of one authenticated run. It is immutable after
// creation and owned by the process for its lifetime; it is never persisted.
type Session struct {
	// APIToken is the short-lived Copilot API credential.
	APIToken auth.Token
	// APIBase is the base URL every authenticated call resolves against.
	APIBase string
	// ExpiresAt is the token expiry; zero when the provider does not report one.
	ExpiresAt time.Time
}

// Exchanger trades an OAuth access token for a Copilot Session.
type Exchanger struct {
	httpClient          *http.Client
	userAgent           string
	editorVersion       string
	editorPluginVersion string

	// tokenURL is a field so tests can point the exchanger at a local server.
	tokenURL string
}

// NewExchanger creates an Exchanger with a proxy-aware HTTP client.
func NewExchanger(cfg *config.Config) *Exchanger {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Exchanger{
		httpClient:          util.NewHTTPClient(cfg, 30*time.Second),
		userAgent:           cfg.UserAgent,
		editorVersion:       cfg.EditorVersion,
		editorPluginVersion: cfg.EditorPluginVersion,
		tokenURL:            TokenURL,
	}
}

// Exchange sends the OAuth token as a bearer credential and parses the Copilot API
// token, API base URL, and optional expiry out of the response.
func (e *Exchanger) Exchange(ctx context.Context, oauthToken auth.Token) (*Session, error) {
	if oauthToken.IsZero() {
		return nil, auth.NewError(auth.ErrProtocol, "copilot: oauth token is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.tokenURL, nil)
	if err != nil {
		return nil, auth.WrapError(auth.ErrProtocol, "copilot: failed to create token exchange request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+oauthToken.Reveal())
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Editor-Version", e.editorVersion)
	req.Header.Set("Editor-Plugin-Version", e.editorPluginVersion)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "copilot: token exchange request failed", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("copilot token exchange: close body error: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "copilot: failed to read token exchange response", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &auth.Error{
			Code:       auth.ErrAuthRejected,
			Message:    fmt.Sprintf("copilot: token exchange refused with status %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Body:       string(body),
		}
	}

	root := gjson.ParseBytes(body)
	apiToken := root.Get("token").String()
	if apiToken == "" {
		return nil, auth.NewError(auth.ErrProtocol, "copilot: token exchange response missing token field")
	}
	apiBase := strings.TrimRight(root.Get("endpoints.api").String(), "/")
	if apiBase == "" {
		return nil, auth.NewError(auth.ErrProtocol, "copilot: token exchange response missing endpoints.api field")
	}

	session := &Session{
		APIToken: auth.NewToken(apiToken),
		APIBase:  apiBase,
	}
	if expires := root.Get("expires_at"); expires.Exists() && expires.Int() > 0 {
		session.ExpiresAt = time.Unix(expires.Int(), 0).UTC()
		log.Debugf("copilot: API token expires at %s", session.ExpiresAt.Format(time.RFC3339))
	}
	return session, nil
}
