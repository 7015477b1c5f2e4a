package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/copilot-cli/copilot-cli/internal/auth"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// chatEndpointCandidates are the completion paths tried in order. Copilot deployments
// differ in whether they route the OpenAI-style path under /v1; a 404 from one
// candidate advances to the next, any other failure surfaces immediately.
var chatEndpointCandidates = []string{
	"/chat/completions",
	"/v1/chat/completions",
}

// probePrompt is the minimal request body content used to confirm model access.
const probePrompt = "Respond with the single word: ok"

// Chat sends a single-turn chat completion and returns the first choice's message
// content. When model is empty the field is omitted and the deployment's default
// model answers.
func (c *Client) Chat(ctx context.Context, model, prompt string) (string, error) {
	body := "{}"
	if model != "" {
		body, _ = sjson.Set(body, "model", model)
	}
	body, _ = sjson.Set(body, "messages.0.role", "user")
	body, _ = sjson.Set(body, "messages.0.content", prompt)

	respBody, err := c.postCompletion(ctx, []byte(body))
	if err != nil {
		return "", err
	}

	choices := gjson.GetBytes(respBody, "choices")
	if !choices.Exists() || len(choices.Array()) == 0 {
		return "", auth.NewError(auth.ErrEmptyResponse, "api: chat reply contains no completions")
	}
	return gjson.GetBytes(respBody, "choices.0.message.content").String(), nil
}

// Probe sends a one-token completion for the given model to confirm the current
// account can use it. Success means the reply parses into a choices array.
func (c *Client) Probe(ctx context.Context, model string) error {
	body := "{}"
	body, _ = sjson.Set(body, "model", model)
	body, _ = sjson.Set(body, "messages.0.role", "user")
	body, _ = sjson.Set(body, "messages.0.content", probePrompt)
	body, _ = sjson.Set(body, "max_tokens", 5)
	body, _ = sjson.Set(body, "temperature", 0)

	respBody, err := c.postCompletion(ctx, []byte(body))
	if err != nil {
		return err
	}
	if !gjson.GetBytes(respBody, "choices").Exists() {
		return auth.NewError(auth.ErrEmptyResponse, "api: probe reply contains no completions")
	}
	return nil
}

// postCompletion walks the endpoint candidates in order, advancing only on 404.
func (c *Client) postCompletion(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error
	for _, path := range chatEndpointCandidates {
		respBody, err := c.Do(ctx, http.MethodPost, path, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err
		var apiErr *auth.Error
		if errors.As(err, &apiErr) && apiErr.Code == auth.ErrAPI && apiErr.HTTPStatus == http.StatusNotFound {
			continue
		}
		return nil, err
	}
	return nil, lastErr
}
