package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/copilot-cli/copilot-cli/internal/api"
	"github.com/copilot-cli/copilot-cli/internal/config"
	"github.com/copilot-cli/copilot-cli/internal/registry"
)

// disclaimer reminds users that the listing comes from models.dev, not from a live
// Copilot endpoint.
const disclaimer = "Listing is from models.dev (filtered), not a live Copilot model listing. " +
	"Whether a model actually works depends on your GitHub Copilot subscription and settings."

// ModelsOptions carries the models tool's inputs.
type ModelsOptions struct {
	// IncludeExperimental keeps manifest entries flagged experimental.
	IncludeExperimental bool
	// Verify authenticates and probes each listed model.
	Verify bool
	// VerifyLimit caps how many models are probed; <= 0 probes all of them.
	VerifyLimit int
	// JSON switches output from the human-readable table to a JSON document.
	JSON bool
	// NoBrowser suppresses opening the verification URL during login.
	NoBrowser bool
}

// modelReport is the serialized form of one catalog entry, with verification fields
// present only when verification ran.
type modelReport struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Experimental bool   `json:"experimental"`
	Verified     *bool  `json:"verified,omitempty"`
	VerifyDetail string `json:"verify_detail,omitempty"`
}

var (
	headerStyle       = lipgloss.NewStyle().Bold(true)
	experimentalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#EB1D36"))
	okStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("#2E8B57"))
)

// DoModels fetches the catalog, optionally verifies access, and renders the report.
func DoModels(ctx context.Context, cfg *config.Config, opts *ModelsOptions) error {
	if opts == nil {
		opts = &ModelsOptions{}
	}

	resolver := registry.NewResolver(cfg)
	manifest, err := resolver.FetchManifest(ctx)
	if err != nil {
		return fmt.Errorf("model manifest fetch failed: %w", err)
	}
	models := registry.ListModels(manifest, opts.IncludeExperimental)

	reports := make([]modelReport, 0, len(models))
	for _, m := range models {
		reports = append(reports, modelReport{ID: m.ID, Name: m.DisplayName, Experimental: m.Experimental})
	}

	if opts.Verify && len(models) > 0 {
		fmt.Println("Starting verification flow...")
		session, errLogin := DoDeviceLogin(ctx, cfg, &LoginOptions{NoBrowser: opts.NoBrowser})
		if errLogin != nil {
			return errLogin
		}
		client := api.NewClient(cfg, session)
		results := registry.Verify(ctx, client, models, opts.VerifyLimit)
		for i := range results {
			verified := results[i].Accessible
			reports[i].Verified = &verified
			reports[i].VerifyDetail = results[i].StatusDetail
		}
	}

	if opts.JSON {
		return printJSONReport(reports)
	}
	printHumanReport(reports)
	return nil
}

// printJSONReport writes the machine-readable report to stdout.
func printJSONReport(reports []modelReport) error {
	doc := struct {
		Provider   string        `json:"provider"`
		Disclaimer string        `json:"disclaimer"`
		Count      int           `json:"count"`
		Models     []modelReport `json:"models"`
	}{
		Provider:   registry.ProviderID,
		Disclaimer: disclaimer,
		Count:      len(reports),
		Models:     reports,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(doc)
}

// printHumanReport writes the human-readable listing to stdout.
func printHumanReport(reports []modelReport) {
	fmt.Println(disclaimer)
	if len(reports) == 0 {
		fmt.Printf("No models found for provider: %s\n", registry.ProviderID)
		return
	}

	fmt.Printf("Provider: %s\n", registry.ProviderID)
	fmt.Println(headerStyle.Render(fmt.Sprintf("Models (%d):", len(reports))))
	for _, m := range reports {
		line := fmt.Sprintf("- %s (%s)", m.Name, m.ID)
		if m.Experimental {
			line += " " + experimentalStyle.Render("[experimental]")
		}
		if m.Verified != nil {
			tag := fmt.Sprintf("[verified=%t, %s]", *m.Verified, m.VerifyDetail)
			if *m.Verified {
				tag = okStyle.Render(tag)
			} else {
				tag = experimentalStyle.Render(tag)
			}
			line += " " + tag
		}
		fmt.Println(line)
	}
}
