// Package api performs authenticated calls against a Copilot API base. A Client wraps
// one Session; it holds no other state and is meant for sequential reuse within a
// single process run, not for concurrent use.
package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/copilot-cli/copilot-cli/internal/auth"
	"github.com/copilot-cli/copilot-cli/internal/auth/copilot"
	"github.com/copilot-cli/copilot-cli/internal/config"
	"github.com/copilot-cli/copilot-cli/internal/logging"
	"github.com/copilot-cli/copilot-cli/internal/util"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Client issues authorized calls against the session's API base.
type Client struct {
	httpClient          *http.Client
	session             *copilot.Session
	userAgent           string
	editorVersion       string
	editorPluginVersion string
	requestLog          bool
}

// NewClient builds a Client around an established session.
func NewClient(cfg *config.Config, session *copilot.Session) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	return &Client{
		httpClient:          util.NewHTTPClient(cfg, 60*time.Second),
		session:             session,
		userAgent:           cfg.UserAgent,
		editorVersion:       cfg.EditorVersion,
		editorPluginVersion: cfg.EditorPluginVersion,
		requestLog:          cfg.RequestLog,
	}
}

// APIBase returns the base URL the client resolves paths against.
func (c *Client) APIBase() string {
	return c.session.APIBase
}

// Do sends an authorized request for path resolved against the session's API base and
// returns the response body. Every request carries the bearer API token, JSON content
// headers, and the reference client identity. Non-2xx responses surface as api errors
// with status and body attached; transport failures as network errors. Do never retries.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	url := c.session.APIBase + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, auth.WrapError(auth.ErrProtocol, "api: failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.session.APIToken.Reveal())
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Editor-Version", c.editorVersion)
	req.Header.Set("Editor-Plugin-Version", c.editorPluginVersion)
	req.Header.Set("X-Request-Id", uuid.New().String())

	if c.requestLog {
		log.WithFields(log.Fields{
			"request_id": logging.GetRequestID(ctx),
			"method":     method,
			"url":        url,
		}).Debug("api: outbound request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "api: request failed", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("api: close body error: %v", errClose)
		}
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "api: failed to read response body", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &auth.Error{
			Code:       auth.ErrAPI,
			Message:    fmt.Sprintf("api: %s %s returned status %d", method, path, resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Body:       string(respBody),
		}
	}
	return respBody, nil
}
