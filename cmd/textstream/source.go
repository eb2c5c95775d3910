package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/textstream"
	"github.com/fwojciec/textstream/anthropic"
	"github.com/fwojciec/textstream/gemini"
	"github.com/fwojciec/textstream/httpsource"
)

// sourceConfig holds the flag and environment values that select a
// source. Env vars are read in main() and passed in here.
type sourceConfig struct {
	provider        string
	url             string
	apiKey          string
	model           string
	urlEnv          string
	anthropicKeyEnv string
	geminiKeyEnv    string
}

// resolveSource selects and constructs the token source.
func resolveSource(ctx context.Context, cfg sourceConfig, logger *slog.Logger) (textstream.Source, error) {
	url := cfg.url
	if url == "" {
		url = cfg.urlEnv
	}

	provider := cfg.provider
	// Auto-detect from the endpoint and env vars if no flag.
	if provider == "" {
		var found []string
		if url != "" {
			found = append(found, "http")
		}
		if cfg.anthropicKeyEnv != "" {
			found = append(found, "anthropic")
		}
		if cfg.geminiKeyEnv != "" {
			found = append(found, "gemini")
		}
		switch len(found) {
		case 0:
			return nil, fmt.Errorf("no source configured: set TEXTSTREAM_URL, ANTHROPIC_API_KEY or GEMINI_API_KEY (or use -provider with -url or -api-key)")
		case 1:
			provider = found[0]
		default:
			return nil, fmt.Errorf("multiple sources configured (%s): use -provider flag to select", strings.Join(found, ", "))
		}
	}

	// Resolve API key: explicit flag overrides env var.
	key := cfg.apiKey
	switch provider {
	case "http":
		if url == "" {
			return nil, fmt.Errorf("TEXTSTREAM_URL not set (use -url flag or environment variable)")
		}
		return httpsource.New(url,
			httpsource.WithLogger(logger),
			httpsource.WithBreaker(httpsource.BreakerConfig{}),
		), nil
	case "anthropic":
		if key == "" {
			key = cfg.anthropicKeyEnv
		}
		if key == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY not set (use -api-key flag or environment variable)")
		}
		return anthropic.New(key, anthropic.WithModel(cfg.model)), nil
	case "gemini":
		if key == "" {
			key = cfg.geminiKeyEnv
		}
		if key == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY not set (use -api-key flag or environment variable)")
		}
		src, err := gemini.New(ctx, key, gemini.WithModel(cfg.model))
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown provider %q: must be \"http\", \"anthropic\" or \"gemini\"", provider)
	}
}
