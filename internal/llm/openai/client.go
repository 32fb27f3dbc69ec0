package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/joseph-ayodele/income-verifier/internal/llm"
)

var _ llm.Completer = (*Client)(nil)

func (c *Client) Name() string { return "openai:" + c.cfg.Model }

// Complete sends one chat completion. JSON requests use the json_object
// response format and carry the schema as an extra system message.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if c.cfg.APIKey == "" {
		return "", errors.New("openai: missing API key")
	}

	messages := make([]map[string]any, 0, 3)
	if req.System != "" {
		messages = append(messages, map[string]any{"role": "system", "content": req.System})
	}
	messages = append(messages, map[string]any{"role": "user", "content": req.Prompt})

	body := map[string]any{
		"model":       c.cfg.Model,
		"temperature": c.cfg.Temperature,
	}
	if req.JSON {
		body["response_format"] = map[string]any{"type": "json_object"}
		if req.Schema != nil {
			messages = append(messages, map[string]any{"role": "system", "content": "JSON Schema:\n" + mustJSON(req.Schema)})
		}
	}
	body["messages"] = messages

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	raw, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
	}, c.log)
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.openai.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return "", errors.New("no choices in openai response")
	}
	return strings.TrimSpace(cc.Choices[0].Message.Content), nil
}

func mustJSON(v any) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}
