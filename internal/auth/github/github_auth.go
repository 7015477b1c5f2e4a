// Package github implements the GitHub side of Copilot authentication: the RFC 8628
// OAuth2 Device Authorization Grant against github.com. GitHub reports polling state
// with HTTP 200 responses carrying an "error" body field, so the poll loop triages the
// body vocabulary rather than the status code.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/copilot-cli/copilot-cli/internal/auth"
	"github.com/copilot-cli/copilot-cli/internal/config"
	"github.com/copilot-cli/copilot-cli/internal/util"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// DeviceCodeURL is the endpoint for initiating the device authorization flow.
	DeviceCodeURL = "https://github.com/login/device/code"
	// AccessTokenURL is the endpoint polled for the OAuth access token.
	AccessTokenURL = "https://github.com/login/oauth/access_token"
	// DeviceGrantType specifies the grant type for the device code flow.
	DeviceGrantType = "urn:ietf:params:oauth:grant-type:device_code"

	// slowDownIncrement is added to the poll interval whenever GitHub answers
	// slow_down, per the provider convention.
	slowDownIncrement = 5 * time.Second
)

// DeviceAuthorization represents the response from the device authorization endpoint.
// It is consumed entirely by the polling loop and never persisted.
type DeviceAuthorization struct {
	// DeviceCode is the code the client uses to poll for an access token.
	DeviceCode string `json:"device_code"`
	// UserCode is the code the user enters at the verification URI.
	UserCode string `json:"user_code"`
	// VerificationURI is the URL where the user authorizes the device.
	VerificationURI string `json:"verification_uri"`
	// ExpiresIn is the time in seconds until the device_code and user_code expire.
	ExpiresIn int `json:"expires_in"`
	// Interval is the minimum time in seconds between polling requests.
	Interval int `json:"interval"`
}

// DeviceFlowClient drives the device authorization flow for a single login attempt.
type DeviceFlowClient struct {
	httpClient *http.Client
	clientID   string
	scope      string
	userAgent  string

	// Endpoints are fields so tests can point the client at a local server.
	deviceCodeURL string
	tokenURL      string

	// flowID correlates the log lines of one login attempt.
	flowID string

	// sleep and now are swapped out in tests to make the poll loop's interval
	// accounting observable without real waiting.
	sleep func(time.Duration)
	now   func() time.Time
}

// NewDeviceFlowClient creates a device flow client with a proxy-aware HTTP client.
func NewDeviceFlowClient(cfg *config.Config) *DeviceFlowClient {
	if cfg == nil {
		cfg = config.Default()
	}
	return &DeviceFlowClient{
		httpClient:    util.NewHTTPClient(cfg, 30*time.Second),
		clientID:      cfg.ClientID,
		scope:         config.DefaultOAuthScope,
		userAgent:     cfg.UserAgent,
		deviceCodeURL: DeviceCodeURL,
		tokenURL:      AccessTokenURL,
		flowID:        uuid.New().String(),
		sleep:         time.Sleep,
		now:           time.Now,
	}
}

// RequestDeviceCode initiates the device flow by requesting a device code from GitHub.
// The caller is responsible for displaying the verification URI and user code before
// polling begins.
func (c *DeviceFlowClient) RequestDeviceCode(ctx context.Context) (*DeviceAuthorization, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id": c.clientID,
		"scope":     c.scope,
	})
	if err != nil {
		return nil, auth.WrapError(auth.ErrProtocol, "github: failed to encode device code request", err)
	}

	body, status, err := c.postJSON(ctx, c.deviceCodeURL, payload)
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "github: device code request failed", err)
	}
	if status != http.StatusOK {
		return nil, &auth.Error{
			Code:       auth.ErrProtocol,
			Message:    fmt.Sprintf("github: device code request failed with status %d", status),
			HTTPStatus: status,
			Body:       string(body),
		}
	}

	var deviceAuth DeviceAuthorization
	if err = json.Unmarshal(body, &deviceAuth); err != nil {
		return nil, auth.WrapError(auth.ErrProtocol, "github: failed to parse device code response", err)
	}
	if err = validateDeviceAuthorization(&deviceAuth); err != nil {
		return nil, err
	}

	log.Debugf("github: device flow %s initiated, code expires in %ds", c.flowID, deviceAuth.ExpiresIn)
	return &deviceAuth, nil
}

// validateDeviceAuthorization checks that the response carries every field the polling
// loop depends on.
func validateDeviceAuthorization(d *DeviceAuthorization) error {
	missing := ""
	switch {
	case d.DeviceCode == "":
		missing = "device_code"
	case d.UserCode == "":
		missing = "user_code"
	case d.VerificationURI == "":
		missing = "verification_uri"
	case d.Interval <= 0:
		missing = "interval"
	case d.ExpiresIn <= 0:
		missing = "expires_in"
	}
	if missing != "" {
		return auth.NewError(auth.ErrProtocol, "github: device authorization response missing "+missing)
	}
	return nil
}

// tokenPollResponse covers both the success and error shapes of the token endpoint.
type tokenPollResponse struct {
	AccessToken      string `json:"access_token"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// PollForToken polls the token endpoint until the user authorizes the device, the
// device code expires, or an unrecoverable error occurs. It sleeps the server-specified
// interval between attempts and honors slow_down by widening that interval.
func (c *DeviceFlowClient) PollForToken(ctx context.Context, deviceAuth *DeviceAuthorization) (auth.Token, error) {
	if deviceAuth == nil {
		return auth.Token{}, auth.NewError(auth.ErrProtocol, "github: device authorization is nil")
	}

	interval := time.Duration(deviceAuth.Interval) * time.Second
	deadline := c.now().Add(time.Duration(deviceAuth.ExpiresIn) * time.Second)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return auth.Token{}, fmt.Errorf("github: authorization cancelled: %w", err)
		}

		token, retryable, err := c.requestToken(ctx, deviceAuth.DeviceCode)
		if err == nil && !token.IsZero() {
			log.Debugf("github: device flow %s authorized after %d attempt(s)", c.flowID, attempt)
			return token, nil
		}
		if !retryable {
			return auth.Token{}, err
		}
		if auth.CodeOf(err) == slowDownCode {
			interval += slowDownIncrement
			log.WithFields(log.Fields{"attempt": attempt, "interval": interval}).
				Debug("github: server requested slow_down, widening poll interval")
		}

		if !c.now().Before(deadline) {
			return auth.Token{}, auth.NewError(auth.ErrAuthExpired, "github: device code expired before authorization completed")
		}
		c.sleep(interval)
		if !c.now().Before(deadline) {
			return auth.Token{}, auth.NewError(auth.ErrAuthExpired, "github: device code expired before authorization completed")
		}
	}
}

// slowDownCode is an internal marker so the loop can widen the interval; it is never
// returned to callers.
const slowDownCode auth.ErrorCode = "slow_down"

// requestToken performs a single poll of the token endpoint.
// Returns (token, retryable, error); retryable means the loop should keep polling.
func (c *DeviceFlowClient) requestToken(ctx context.Context, deviceCode string) (auth.Token, bool, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":   c.clientID,
		"device_code": deviceCode,
		"grant_type":  DeviceGrantType,
	})
	if err != nil {
		return auth.Token{}, false, auth.WrapError(auth.ErrProtocol, "github: failed to encode token request", err)
	}

	body, status, err := c.postJSON(ctx, c.tokenURL, payload)
	if err != nil {
		return auth.Token{}, false, auth.WrapError(auth.ErrNetwork, "github: token poll failed", err)
	}

	// GitHub reports poll state in the body regardless of status, so the body is
	// parsed first and the status consulted only when it yields nothing.
	var poll tokenPollResponse
	if errParse := json.Unmarshal(body, &poll); errParse != nil {
		return auth.Token{}, false, &auth.Error{
			Code:       auth.ErrProtocol,
			Message:    "github: failed to parse token poll response",
			HTTPStatus: status,
			Body:       string(body),
		}
	}

	if poll.AccessToken != "" {
		return auth.NewToken(poll.AccessToken), false, nil
	}

	switch poll.Error {
	case "authorization_pending":
		return auth.Token{}, true, auth.NewError(auth.ErrProtocol, "github: authorization pending")
	case "slow_down":
		return auth.Token{}, true, auth.NewError(slowDownCode, "github: slow down requested")
	case "expired_token":
		return auth.Token{}, false, auth.NewError(auth.ErrAuthExpired, "github: device code expired")
	case "access_denied":
		return auth.Token{}, false, auth.NewError(auth.ErrAuthDenied, "github: authorization denied by user")
	case "":
		return auth.Token{}, false, &auth.Error{
			Code:       auth.ErrProtocol,
			Message:    fmt.Sprintf("github: token poll returned neither token nor error (status %d)", status),
			HTTPStatus: status,
			Body:       string(body),
		}
	default:
		return auth.Token{}, false, &auth.Error{
			Code:    auth.ErrProtocol,
			Message: fmt.Sprintf("github: token poll failed: %s - %s", poll.Error, poll.ErrorDescription),
			Body:    string(body),
		}
	}
}

// postJSON issues a JSON POST with the headers the reference client sends.
func (c *DeviceFlowClient) postJSON(ctx context.Context, endpoint string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("github device flow: close body error: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}
