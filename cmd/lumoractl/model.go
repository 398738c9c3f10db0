package main

import (
	"fmt"

	"github.com/lumoracare/lumora/pkg/companion"
	"github.com/lumoracare/lumora/pkg/config"
	"github.com/lumoracare/lumora/pkg/memory"
	"github.com/lumoracare/lumora/pkg/model"
	"github.com/lumoracare/lumora/pkg/model/anthropic"
	"github.com/lumoracare/lumora/pkg/model/gemini"
	"github.com/lumoracare/lumora/pkg/model/openai"
)

// newModel builds the configured backend adapter. cfg must already be
// validated; a missing credential never gets this far.
func newModel(cfg *config.Config) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		opts := []gemini.Option{gemini.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, gemini.WithBaseURL(cfg.BaseURL))
		}
		return gemini.New(cfg.APIKey(), opts...)
	case config.ProviderAnthropic:
		return anthropic.NewSDKModelWithBaseURL(cfg.APIKey(), cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	case config.ProviderOpenAI:
		return openai.NewSDKModelWithBaseURL(cfg.APIKey(), cfg.Model, cfg.BaseURL, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// newStore opens the filesystem-backed memory store under cfg.MemoryDir.
func newStore(cfg *config.Config) (memory.Store, error) {
	backend, err := memory.NewFileBackend(cfg.MemoryDir)
	if err != nil {
		return nil, err
	}
	return memory.NewFileStore(backend, nil), nil
}

// sessionOptions collects per-session overrides the config carries, currently
// just a custom behavioral policy.
func sessionOptions(cfg *config.Config) ([]companion.Option, error) {
	policy, err := cfg.Policy()
	if err != nil {
		return nil, err
	}
	var opts []companion.Option
	if policy != "" {
		opts = append(opts, companion.WithPolicy(policy))
	}
	return opts, nil
}

// validatedConfig loads and validates the runtime config, the fatal-at-
// startup path shared by chat and serve.
func validatedConfig(path string) (*config.Config, error) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
