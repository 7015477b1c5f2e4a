// Package registry resolves the Copilot model catalog from the models.dev manifest and
// optionally verifies live access to each entry through an authenticated session.
// The manifest listing is advisory: whether a model actually answers depends on the
// account's Copilot subscription, which is what Verify checks.
package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/copilot-cli/copilot-cli/internal/api"
	"github.com/copilot-cli/copilot-cli/internal/auth"
	"github.com/copilot-cli/copilot-cli/internal/config"
	"github.com/copilot-cli/copilot-cli/internal/util"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

const (
	// ManifestURL is the models.dev catalog endpoint. The fetch is unauthenticated.
	ManifestURL = "https://models.dev/api.json"
	// ProviderID is the models.dev identifier for the GitHub Copilot provider.
	ProviderID = "github-copilot"
	// manifestUserAgent identifies this tool to models.dev, separately from the
	// Copilot client identity used on authenticated calls.
	manifestUserAgent = "copilot-cli-models/1.0"
)

// ModelEntry describes one catalog model. Entries are filtered in memory and never
// mutated after parsing.
type ModelEntry struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	Experimental bool   `json:"experimental"`
	Provider     string `json:"provider"`
}

// VerificationResult records the outcome of probing one model.
type VerificationResult struct {
	ModelID      string `json:"model_id"`
	Accessible   bool   `json:"accessible"`
	StatusDetail string `json:"status_detail"`
}

// Resolver fetches and filters the model manifest.
type Resolver struct {
	httpClient *http.Client

	// manifestURL is a field so tests can point the resolver at a local server.
	manifestURL string
}

// NewResolver creates a Resolver with a proxy-aware HTTP client.
func NewResolver(cfg *config.Config) *Resolver {
	return &Resolver{
		httpClient:  util.NewHTTPClient(cfg, 30*time.Second),
		manifestURL: ManifestURL,
	}
}

// FetchManifest retrieves the raw models.dev manifest.
func (r *Resolver) FetchManifest(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.manifestURL, nil)
	if err != nil {
		return nil, auth.WrapError(auth.ErrProtocol, "registry: failed to create manifest request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", manifestUserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "registry: manifest request failed", err)
	}
	defer func() {
		if errClose := resp.Body.Close(); errClose != nil {
			log.Errorf("registry: close body error: %v", errClose)
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, auth.WrapError(auth.ErrNetwork, "registry: failed to read manifest", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &auth.Error{
			Code:       auth.ErrProtocol,
			Message:    fmt.Sprintf("registry: manifest request failed with status %d", resp.StatusCode),
			HTTPStatus: resp.StatusCode,
			Body:       string(body),
		}
	}
	if !gjson.ValidBytes(body) {
		return nil, auth.NewError(auth.ErrProtocol, "registry: manifest is not valid JSON")
	}
	return body, nil
}

// ListModels filters the manifest to the Copilot provider, excluding experimental
// entries unless asked for, and preserves the manifest's document order.
func ListModels(manifest []byte, includeExperimental bool) []ModelEntry {
	models := gjson.GetBytes(manifest, gjson.Escape(ProviderID)+".models")
	if !models.Exists() {
		return nil
	}

	var out []ModelEntry
	models.ForEach(func(key, value gjson.Result) bool {
		experimental := value.Get("experimental").Bool()
		if experimental && !includeExperimental {
			return true
		}
		name := value.Get("name").String()
		if name == "" {
			name = key.String()
		}
		out = append(out, ModelEntry{
			ID:           key.String(),
			DisplayName:  name,
			Experimental: experimental,
			Provider:     ProviderID,
		})
		return true
	})
	return out
}

// Verify probes each model sequentially through the authenticated client, capped at
// limit entries when limit is positive. A failed probe is recorded on its entry and
// never aborts the rest of the batch.
func Verify(ctx context.Context, client *api.Client, models []ModelEntry, limit int) []VerificationResult {
	if limit > 0 && limit < len(models) {
		models = models[:limit]
	}

	results := make([]VerificationResult, 0, len(models))
	for _, m := range models {
		result := VerificationResult{ModelID: m.ID}
		if err := client.Probe(ctx, m.ID); err != nil {
			result.StatusDetail = verifyDetail(err)
			log.WithFields(log.Fields{"model": m.ID, "error": err}).Debug("registry: model probe failed")
		} else {
			result.Accessible = true
			result.StatusDetail = "ok"
		}
		results = append(results, result)
	}
	return results
}

// verifyDetail condenses a probe failure into a per-entry status string.
func verifyDetail(err error) string {
	var apiErr *auth.Error
	if errors.As(err, &apiErr) && apiErr.HTTPStatus > 0 {
		return fmt.Sprintf("status %d", apiErr.HTTPStatus)
	}
	return err.Error()
}
