// Package model abstracts the language-model collaborator behind a single
// Generate call. The router uses it for question contextualization and for
// structured route decisions; providers are interchangeable adapters over
// the vendor SDKs.
package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/lcastrov/andino/internal/config"
	"github.com/lcastrov/andino/internal/model/contract"
	"github.com/lcastrov/andino/internal/model/providers/anthropic"
	"github.com/lcastrov/andino/internal/model/providers/gemini"
	"github.com/lcastrov/andino/internal/model/providers/openai"
)

type Provider interface {
	Generate(ctx context.Context, req contract.CompletionRequest) (*contract.CompletionResponse, error)
	Name() string
}

// New builds the provider named by the configuration.
func New(cfg config.ModelConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "openai", "":
		return openai.New(cfg.APIKey, cfg.BaseURL), nil
	case "anthropic":
		return anthropic.New(cfg.APIKey), nil
	case "gemini":
		return gemini.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
