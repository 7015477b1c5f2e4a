package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/copilot-cli/copilot-cli/internal/api"
	"github.com/copilot-cli/copilot-cli/internal/auth"
	"github.com/copilot-cli/copilot-cli/internal/config"
	log "github.com/sirupsen/logrus"
)

// DefaultPrompt is sent when the user provides no prompt argument.
const DefaultPrompt = "Say hello from GitHub Copilot."

// ChatOptions carries the chat tool's inputs.
type ChatOptions struct {
	// Prompt is the single user message; empty means DefaultPrompt.
	Prompt string
	// Model selects the completion model; empty lets the deployment choose.
	Model string
	// NoBrowser suppresses opening the verification URL during login.
	NoBrowser bool
}

// DoChat authenticates, sends one chat prompt, and prints the assistant reply.
func DoChat(ctx context.Context, cfg *config.Config, opts *ChatOptions) error {
	if opts == nil {
		opts = &ChatOptions{}
	}
	prompt := opts.Prompt
	if strings.TrimSpace(prompt) == "" {
		prompt = DefaultPrompt
	}

	session, err := DoDeviceLogin(ctx, cfg, &LoginOptions{NoBrowser: opts.NoBrowser})
	if err != nil {
		return err
	}
	client := api.NewClient(cfg, session)

	fmt.Println("Sending prompt to Copilot...")
	reply, err := client.Chat(ctx, opts.Model, prompt)
	if err != nil {
		var apiErr *auth.Error
		if opts.Model == "" && errors.As(err, &apiErr) &&
			apiErr.HTTPStatus == http.StatusBadRequest &&
			strings.Contains(strings.ToLower(apiErr.Body), "model") {
			log.Info("Hint: the endpoint may require a model. Set the MODEL environment variable (e.g. MODEL=gpt-4o).")
		}
		return fmt.Errorf("chat request failed: %w", err)
	}

	fmt.Println()
	fmt.Println(reply)
	return nil
}
