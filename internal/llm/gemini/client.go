// Package gemini implements llm.Completer with the Google GenAI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/joseph-ayodele/income-verifier/internal/llm"
)

type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	Model       string // default gemini-2.0-flash
	Temperature float32
}

type Client struct {
	cfg    Config
	client *genai.Client
	log    *slog.Logger
}

var _ llm.Completer = (*Client)(nil)

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{cfg: cfg, client: client, log: logger}, nil
}

func (c *Client) Name() string { return "gemini:" + c.cfg.Model }

func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	start := time.Now()

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.cfg.Temperature),
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}
	if req.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.System}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.cfg.Model, genai.Text(req.Prompt), config)
	if err != nil {
		c.log.Error("llm.gemini.generate_failed", "model", c.cfg.Model, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	c.log.Debug("llm.gemini.generate_ok", "model", c.cfg.Model, "elapsed_ms", time.Since(start).Milliseconds())
	return strings.TrimSpace(result.Text()), nil
}
