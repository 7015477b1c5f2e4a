// Package cmd implements the user-facing flows behind the CLI entry points: the
// device-flow login display, the one-shot chat, and the model catalog listing.
// Core components never print; everything the human sees comes from here.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/copilot-cli/copilot-cli/internal/auth/copilot"
	"github.com/copilot-cli/copilot-cli/internal/auth/github"
	"github.com/copilot-cli/copilot-cli/internal/browser"
	"github.com/copilot-cli/copilot-cli/internal/config"
	log "github.com/sirupsen/logrus"
	"github.com/theckman/yacspin"
)

// LoginOptions controls the interactive parts of the device flow.
type LoginOptions struct {
	// NoBrowser suppresses opening the verification URL automatically.
	NoBrowser bool
}

var userCodeStyle = lipgloss.NewStyle().
	Bold(true).
	Padding(0, 1).
	Foreground(lipgloss.Color("#FAFAFA")).
	Background(lipgloss.Color("#7F5283"))

// DoDeviceLogin walks the full authentication chain: device code, user authorization,
// token polling, and the Copilot token exchange. It returns the session used by all
// authenticated calls for the rest of the run.
func DoDeviceLogin(ctx context.Context, cfg *config.Config, opts *LoginOptions) (*copilot.Session, error) {
	if opts == nil {
		opts = &LoginOptions{}
	}

	flow := github.NewDeviceFlowClient(cfg)
	deviceAuth, err := flow.RequestDeviceCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("device flow initiation failed: %w", err)
	}

	fmt.Println("Please complete GitHub authentication for Copilot:")
	fmt.Printf("- Visit: %s\n", deviceAuth.VerificationURI)
	fmt.Printf("- Enter code: %s\n", userCodeStyle.Render(deviceAuth.UserCode))
	if err = clipboard.WriteAll(deviceAuth.UserCode); err == nil {
		fmt.Println("  (code copied to clipboard)")
	} else {
		log.Debugf("clipboard unavailable: %v", err)
	}

	if !opts.NoBrowser {
		if !browser.IsAvailable() {
			log.Warn("No browser available; please open the URL manually")
		} else if err = browser.OpenURL(deviceAuth.VerificationURI); err != nil {
			log.Warnf("Failed to open browser automatically: %v", err)
		}
	}

	spinner := startSpinner("waiting for authorization")
	oauthToken, err := flow.PollForToken(ctx, deviceAuth)
	stopSpinner(spinner)
	if err != nil {
		return nil, fmt.Errorf("github authentication failed: %w", err)
	}
	log.Debug("github OAuth token acquired")

	session, err := copilot.NewExchanger(cfg).Exchange(ctx, oauthToken)
	if err != nil {
		return nil, fmt.Errorf("copilot token exchange failed: %w", err)
	}

	fmt.Printf("Copilot authentication successful. API base: %s\n", session.APIBase)
	return session, nil
}

// startSpinner begins an inline spinner; it degrades to a plain message when the
// terminal cannot animate.
func startSpinner(message string) *yacspin.Spinner {
	spinner, err := yacspin.New(yacspin.Config{
		Frequency: 150 * time.Millisecond,
		CharSet:   yacspin.CharSets[14],
		Suffix:    " " + message,
	})
	if err != nil || spinner.Start() != nil {
		fmt.Printf("%s...\n", message)
		return nil
	}
	return spinner
}

func stopSpinner(spinner *yacspin.Spinner) {
	if spinner != nil {
		_ = spinner.Stop()
	}
}
