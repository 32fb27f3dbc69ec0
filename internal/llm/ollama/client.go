// Package ollama talks to a self-hosted Ollama server through /api/generate.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/income-verifier/internal/llm"
)

type Config struct {
	BaseURL     string // default http://localhost:11434
	Model       string // default mistral
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger
}

var _ llm.Completer = (*Client)(nil)

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "mistral"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger,
	}
}

func (c *Client) Name() string { return "ollama:" + c.cfg.Model }

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete runs a non-streaming generation.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	body := map[string]any{
		"model":   c.cfg.Model,
		"prompt":  req.Prompt,
		"stream":  false,
		"options": map[string]any{"temperature": c.cfg.Temperature},
	}
	if req.System != "" {
		body["system"] = req.System
	}
	if req.JSON {
		if req.Schema != nil {
			body["format"] = req.Schema
		} else {
			body["format"] = "json"
		}
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/api/generate"
	raw, _, err := llm.SendJSON(ctx, c.httpClient, endpoint, body, nil, c.log)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	var gr generateResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		c.log.Error("llm.ollama.decode_error", "error", err, "raw_bytes", len(raw))
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return strings.TrimSpace(gr.Response), nil
}
