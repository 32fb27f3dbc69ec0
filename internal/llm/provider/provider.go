// Package provider builds the configured llm.Completer.
package provider

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/income-verifier/internal/common"
	"github.com/joseph-ayodele/income-verifier/internal/llm"
	"github.com/joseph-ayodele/income-verifier/internal/llm/gemini"
	"github.com/joseph-ayodele/income-verifier/internal/llm/ollama"
	"github.com/joseph-ayodele/income-verifier/internal/llm/openai"
)

func New(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	switch cfg.Provider {
	case "", "ollama":
		return ollama.NewClient(ollama.Config{
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "openai":
		return openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger), nil
	case "gemini":
		return gemini.NewClient(ctx, gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
		}, logger)
	}
	return nil, common.NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown LLM provider %q", cfg.Provider), common.ErrInvalidInput)
}

// NewService wires the configured provider into an llm.Service.
func NewService(ctx context.Context, cfg common.LLMConfig, logger *slog.Logger) (*llm.Service, error) {
	c, err := New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return llm.NewService(c, logger), nil
}
