package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/MrWong99/touchline/internal/config"
	"github.com/MrWong99/touchline/internal/detect"
	"github.com/MrWong99/touchline/internal/detect/llmdetect"
	"github.com/MrWong99/touchline/internal/learned"
	"github.com/MrWong99/touchline/internal/resilience"
)

// registerBuiltins wires the built-in learned cache backends and span
// detectors into reg.
func registerBuiltins(reg *config.Registry) {
	// ── Learned cache ─────────────────────────────────────────────────────────

	reg.RegisterBackend(config.BackendFile, func(_ context.Context, cfg config.LearnedConfig) (learned.Backend, error) {
		return learned.NewFileBackend(cfg.Path), nil
	})
	reg.RegisterBackend(config.BackendBadger, func(_ context.Context, cfg config.LearnedConfig) (learned.Backend, error) {
		return learned.OpenBadger(cfg.Dir)
	})
	reg.RegisterBackend(config.BackendPostgres, func(ctx context.Context, cfg config.LearnedConfig) (learned.Backend, error) {
		dsn := cfg.DSN
		if dsn == "" {
			dsn = os.Getenv(cfg.DSNEnv)
		}
		if dsn == "" {
			return nil, fmt.Errorf("postgres backend: no dsn configured and $%s is empty", cfg.DSNEnv)
		}
		return learned.NewPostgresBackend(ctx, dsn)
	})

	// ── Detectors ─────────────────────────────────────────────────────────────

	reg.RegisterDetector(config.DetectorHeuristic, func(context.Context, config.DetectorConfig) (detect.Detector, error) {
		return detect.Heuristic{}, nil
	})
	reg.RegisterDetector(config.DetectorLLM, newLLMDetector)
	reg.RegisterDetector(config.DetectorChain, func(ctx context.Context, cfg config.DetectorConfig) (detect.Detector, error) {
		primaryCfg, secondaryCfg := cfg, cfg
		primaryCfg.Name, secondaryCfg.Name = cfg.Primary, cfg.Secondary
		primary, err := reg.CreateDetector(ctx, primaryCfg)
		if err != nil {
			return nil, fmt.Errorf("chain primary: %w", err)
		}
		secondary, err := reg.CreateDetector(ctx, secondaryCfg)
		if err != nil {
			return nil, fmt.Errorf("chain secondary: %w", err)
		}
		return &detect.Chain{Primary: primary, Secondary: secondary, Tolerant: cfg.Tolerant}, nil
	})
}

// newLLMDetector builds one llm detector per configured model, each behind
// its own circuit breaker, tried in order.
func newLLMDetector(_ context.Context, cfg config.DetectorConfig) (detect.Detector, error) {
	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	var opts []llmdetect.OpenAIOption
	if cfg.BaseURL != "" {
		opts = append(opts, llmdetect.WithBaseURL(cfg.BaseURL))
		if key == "" {
			// Local OpenAI-compatible servers usually ignore the key.
			key = "unused"
		}
	}
	if cfg.Timeout > 0 {
		opts = append(opts, llmdetect.WithTimeout(cfg.Timeout))
	}
	var dopts []llmdetect.Option
	if cfg.Temperature > 0 {
		dopts = append(dopts, llmdetect.WithTemperature(cfg.Temperature))
	}
	if len(cfg.Labels) > 0 {
		dopts = append(dopts, llmdetect.WithLabels(cfg.Labels...))
	}

	breaker := resilience.BreakerConfig{
		MaxFailures: cfg.Breaker.MaxFailures,
		Cooldown:    cfg.Breaker.Cooldown,
	}
	var guarded *resilience.Detector
	for _, model := range append([]string{cfg.Model}, cfg.FallbackModels...) {
		client, err := llmdetect.NewOpenAI(key, model, opts...)
		if err != nil {
			return nil, fmt.Errorf("llm model %q: %w", model, err)
		}
		det := llmdetect.New(client, dopts...)
		name := "llm/" + model
		if guarded == nil {
			guarded = resilience.NewDetector(name, det, breaker)
			continue
		}
		guarded.AddFallback(name, det)
	}
	return guarded, nil
}

// closeBackend releases backends that hold resources.
func closeBackend(b learned.Backend) error {
	if c, ok := b.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
