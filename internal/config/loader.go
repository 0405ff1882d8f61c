package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"slices"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/touchline/internal/dedup"
	"github.com/MrWong99/touchline/internal/filter"
	"github.com/MrWong99/touchline/internal/transcript"
)

// Defaults for fields left empty in the YAML file.
const (
	DefaultOutputDir   = "cleaned_data"
	DefaultLearnedPath = "data/learned_corrections.json"
	DefaultLearnedDir  = "data/learned"
	DefaultDSNEnv      = "TOUCHLINE_POSTGRES_DSN"
	DefaultAPIKeyEnv   = "OPENAI_API_KEY"
	DefaultModel       = "gpt-4o-mini"
	DefaultServiceName = "touchline"
)

const (
	defaultConcurrency   = 4
	defaultAlphaRatioMin = 0.70
	defaultMinWords      = 2
	defaultLangMinWords  = 8
	defaultLangMinConf   = 0.5
	defaultCandidates    = 5
	defaultDetectTimeout = 30 * time.Second
	weightSumTolerance   = 0.01
	maxTemperature       = 2.0
	maxScore             = 100.0
)

// ValidNames lists the built-in names per registry kind. Used by [Validate]
// to warn about unrecognised names, which may still be registered by
// callers.
var ValidNames = map[string][]string{
	"learned":  {BackendFile, BackendBadger, BackendPostgres},
	"detector": {DetectorHeuristic, DetectorLLM, DetectorChain},
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills every zero-valued field of cfg with its default.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = LogInfo
	}

	if cfg.Dataset.OutputDir == "" {
		cfg.Dataset.OutputDir = DefaultOutputDir
	}
	if cfg.Dataset.LoadConcurrency == 0 {
		cfg.Dataset.LoadConcurrency = defaultConcurrency
	}

	if cfg.Filter.AlphaRatioMin == 0 {
		cfg.Filter.AlphaRatioMin = defaultAlphaRatioMin
	}
	if cfg.Filter.MinWords == 0 {
		cfg.Filter.MinWords = defaultMinWords
	}
	if cfg.Filter.Language.MinWords == 0 {
		cfg.Filter.Language.MinWords = defaultLangMinWords
	}
	if cfg.Filter.Language.MinConfidence == 0 {
		cfg.Filter.Language.MinConfidence = defaultLangMinConf
	}
	if len(cfg.Filter.Language.Allowed) == 0 {
		cfg.Filter.Language.Allowed = []string{"en", "sco", "cy"}
	}

	if cfg.Dedup.Threshold == 0 {
		cfg.Dedup.Threshold = dedup.DefaultThreshold
	}

	m := &cfg.Matcher
	if m.Preset == "" {
		m.Preset = PresetDefault
	}
	if m.Thresholds.Short == 0 {
		m.Thresholds.Short = transcript.DefaultThresholds.Short
	}
	if m.Thresholds.Medium == 0 {
		m.Thresholds.Medium = transcript.DefaultThresholds.Medium
	}
	if m.Thresholds.Long == 0 {
		m.Thresholds.Long = transcript.DefaultThresholds.Long
	}
	if m.Candidates == 0 {
		m.Candidates = defaultCandidates
	}
	if m.ContextWindow == nil {
		w := transcript.DefaultContextWindow
		m.ContextWindow = &w
	}

	l := &cfg.Learned
	if l.Backend == "" {
		l.Backend = BackendFile
	}
	if l.Path == "" {
		l.Path = DefaultLearnedPath
	}
	if l.Dir == "" {
		l.Dir = DefaultLearnedDir
	}
	if l.DSNEnv == "" {
		l.DSNEnv = DefaultDSNEnv
	}

	d := &cfg.Detector
	if d.Name == "" {
		d.Name = DetectorHeuristic
	}
	if d.Primary == "" {
		d.Primary = DetectorLLM
	}
	if d.Secondary == "" {
		d.Secondary = DetectorHeuristic
	}
	if d.Model == "" {
		d.Model = DefaultModel
	}
	if d.APIKeyEnv == "" {
		d.APIKeyEnv = DefaultAPIKeyEnv
	}
	if d.Timeout == 0 {
		d.Timeout = defaultDetectTimeout
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Log
	if cfg.Log.Level != "" && !cfg.Log.Level.IsValid() {
		errs = append(errs, fmt.Errorf("log.level %q is invalid; valid values: debug, info, warn, error", cfg.Log.Level))
	}

	// Dataset
	if cfg.Dataset.LoadConcurrency < 0 {
		errs = append(errs, fmt.Errorf("dataset.load_concurrency %d must not be negative", cfg.Dataset.LoadConcurrency))
	}

	// Filter
	if r := cfg.Filter.AlphaRatioMin; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("filter.alpha_ratio_min %.2f is out of range [0, 1]", r))
	}
	if cfg.Filter.MinWords < 0 {
		errs = append(errs, fmt.Errorf("filter.min_words %d must not be negative", cfg.Filter.MinWords))
	}
	if c := cfg.Filter.Language.MinConfidence; c < 0 || c > 1 {
		errs = append(errs, fmt.Errorf("filter.language.min_confidence %.2f is out of range [0, 1]", c))
	}
	for _, code := range cfg.Filter.Language.Candidates {
		if !slices.Contains(filter.SupportedLanguages(), code) {
			errs = append(errs, fmt.Errorf("filter.language.candidates: %q is not supported; valid values: %s",
				code, strings.Join(filter.SupportedLanguages(), ", ")))
		}
	}

	// Dedup
	if t := cfg.Dedup.Threshold; t < 0 || t > maxScore {
		errs = append(errs, fmt.Errorf("dedup.threshold %.1f is out of range [0, 100]", t))
	}

	// Matcher
	errs = append(errs, validateMatcher(&cfg.Matcher)...)

	// Learned
	validateName("learned", cfg.Learned.Backend)
	if cfg.Learned.Backend == BackendPostgres && cfg.Learned.DSN == "" && os.Getenv(cfg.Learned.DSNEnv) == "" {
		errs = append(errs, fmt.Errorf("learned.dsn is required for the postgres backend (or set $%s)", cfg.Learned.DSNEnv))
	}

	// Detector
	d := cfg.Detector
	validateName("detector", d.Name)
	if d.Name == DetectorChain {
		if d.Primary == DetectorChain || d.Secondary == DetectorChain {
			errs = append(errs, errors.New("detector.primary and detector.secondary must not be chain"))
		}
		if d.Primary == d.Secondary {
			slog.Warn("detector chain combines a detector with itself", "detector", d.Primary)
		}
	}
	if d.Temperature < 0 || d.Temperature > maxTemperature {
		errs = append(errs, fmt.Errorf("detector.temperature %.2f is out of range [0, 2]", d.Temperature))
	}
	if d.Timeout < 0 {
		errs = append(errs, fmt.Errorf("detector.timeout %s must not be negative", d.Timeout))
	}
	if d.Breaker.MaxFailures < 0 {
		errs = append(errs, fmt.Errorf("detector.breaker.max_failures %d must not be negative", d.Breaker.MaxFailures))
	}
	if d.Breaker.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("detector.breaker.cooldown %s must not be negative", d.Breaker.Cooldown))
	}
	if slices.Contains(d.FallbackModels, d.Model) {
		slog.Warn("detector.fallback_models repeats the primary model", "model", d.Model)
	}
	if usesLLM(d) && d.APIKey == "" && os.Getenv(d.APIKeyEnv) == "" && d.BaseURL == "" {
		slog.Warn("llm detector has no API key; requests will likely be rejected", "api_key_env", d.APIKeyEnv)
	}

	return errors.Join(errs...)
}

func validateMatcher(m *MatcherConfig) []error {
	var errs []error
	if m.Preset != "" && m.Preset != PresetDefault && m.Preset != PresetBalanced {
		errs = append(errs, fmt.Errorf("matcher.preset %q is invalid; valid values: default, balanced", m.Preset))
	}
	if m.FuzzyWeight < 0 || m.PhoneticWeight < 0 || m.ContextWeight < 0 {
		errs = append(errs, errors.New("matcher weights must not be negative"))
	}
	if m.HasWeights() {
		if m.Preset != "" && m.Preset != PresetDefault {
			slog.Warn("matcher weights override the preset", "preset", m.Preset)
		}
		sum := m.FuzzyWeight + m.PhoneticWeight + m.ContextWeight
		if math.Abs(sum-1) > weightSumTolerance {
			slog.Warn("matcher weights do not sum to 1; scores will not span 0–100", "sum", sum)
		}
	}
	for _, th := range []struct {
		name string
		v    float64
	}{
		{"short", m.Thresholds.Short},
		{"medium", m.Thresholds.Medium},
		{"long", m.Thresholds.Long},
	} {
		if th.v < 0 || th.v > maxScore {
			errs = append(errs, fmt.Errorf("matcher.thresholds.%s %.1f is out of range [0, 100]", th.name, th.v))
		}
	}
	if m.Candidates < 0 {
		errs = append(errs, fmt.Errorf("matcher.candidates %d must not be negative", m.Candidates))
	}
	if m.ContextWindow != nil && *m.ContextWindow < 0 {
		errs = append(errs, fmt.Errorf("matcher.context_window %d must not be negative", *m.ContextWindow))
	}
	return errs
}

func usesLLM(d DetectorConfig) bool {
	return d.Name == DetectorLLM ||
		(d.Name == DetectorChain && (d.Primary == DetectorLLM || d.Secondary == DetectorLLM))
}

// validateName logs a warning if name is non-empty and not found in the
// [ValidNames] list for the given kind.
func validateName(kind, name string) {
	if name == "" {
		return
	}
	if slices.Contains(ValidNames[kind], name) {
		return
	}
	slog.Warn("unknown name; may be a typo or a custom registration",
		"kind", kind,
		"name", name,
		"known", ValidNames[kind],
	)
}
