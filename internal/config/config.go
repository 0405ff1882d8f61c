// Package config provides the configuration schema, loader, and backend
// registry for touchline.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/touchline/internal/transcript"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level returns the slog level for l. Unknown levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Weight presets selectable with matcher.preset.
const (
	PresetDefault  = "default"
	PresetBalanced = "balanced"
)

// Built-in learned cache backends.
const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendPostgres = "postgres"
)

// Built-in span detectors.
const (
	DetectorHeuristic = "heuristic"
	DetectorLLM       = "llm"
	DetectorChain     = "chain"
)

// Config is the root configuration structure for touchline.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Log       LogConfig       `yaml:"log"`
	Dataset   DatasetConfig   `yaml:"dataset"`
	Filter    FilterConfig    `yaml:"filter"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Matcher   MatcherConfig   `yaml:"matcher"`
	Learned   LearnedConfig   `yaml:"learned"`
	Detector  DetectorConfig  `yaml:"detector"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level LogLevel `yaml:"level"`

	// File additionally receives JSON log lines when set.
	File string `yaml:"file"`
}

// DatasetConfig locates the input transcripts and the cleaned output.
type DatasetConfig struct {
	// Root is the dataset directory holding league/season/match folders.
	Root string `yaml:"root"`

	// OutputDir receives the cleaned transcripts, mirroring Root's layout.
	OutputDir string `yaml:"output_dir"`

	// LoadConcurrency bounds how many matches are parsed at once.
	LoadConcurrency int `yaml:"load_concurrency"`
}

// FilterConfig tunes the hallucination filter.
type FilterConfig struct {
	AlphaRatioMin float64        `yaml:"alpha_ratio_min"`
	MinWords      int            `yaml:"min_words"`
	Language      LanguageConfig `yaml:"language"`
}

// LanguageConfig enables the optional language rule of the filter.
type LanguageConfig struct {
	Enabled       bool     `yaml:"enabled"`
	MinWords      int      `yaml:"min_words"`
	MinConfidence float64  `yaml:"min_confidence"`
	Allowed       []string `yaml:"allowed"`

	// Candidates are the ISO 639-1 codes the identifier chooses between.
	// Empty keeps the built-in European set.
	Candidates []string `yaml:"candidates"`
}

// DedupConfig tunes the duplicate merger.
type DedupConfig struct {
	// Threshold is the similarity (0–100) at or above which consecutive
	// segments merge.
	Threshold float64 `yaml:"threshold"`
}

// MatcherConfig tunes the name corrector.
type MatcherConfig struct {
	// Preset selects a weight preset ("default" or "balanced"). Explicit
	// weights override it.
	Preset string `yaml:"preset"`

	FuzzyWeight    float64 `yaml:"fuzzy_weight"`
	PhoneticWeight float64 `yaml:"phonetic_weight"`
	ContextWeight  float64 `yaml:"context_weight"`

	Thresholds ThresholdConfig `yaml:"thresholds"`

	// Candidates is how many top-ranked directory keys are scored per span.
	Candidates int `yaml:"candidates"`

	// Exclude replaces the built-in exclusion list when non-empty.
	Exclude []string `yaml:"exclude"`

	// ExtraExclude is added to the exclusion list.
	ExtraExclude []string `yaml:"extra_exclude"`

	// ContextWindow is how many neighbouring segments on each side
	// contribute context names. Nil keeps the default of 1.
	ContextWindow *int `yaml:"context_window"`
}

// HasWeights reports whether any explicit weight was configured.
func (m MatcherConfig) HasWeights() bool {
	return m.FuzzyWeight != 0 || m.PhoneticWeight != 0 || m.ContextWeight != 0
}

// Weights resolves the corrector weights: explicit weights when any is set,
// otherwise the preset's.
func (m MatcherConfig) Weights() transcript.Weights {
	switch {
	case m.HasWeights():
		return transcript.Weights{Fuzzy: m.FuzzyWeight, Phonetic: m.PhoneticWeight, Context: m.ContextWeight}
	case m.Preset == PresetBalanced:
		return transcript.BalancedWeights
	default:
		return transcript.DefaultWeights
	}
}

// ThresholdConfig holds acceptance thresholds by name length.
type ThresholdConfig struct {
	Short  float64 `yaml:"short"`
	Medium float64 `yaml:"medium"`
	Long   float64 `yaml:"long"`
}

// Values converts t to corrector thresholds.
func (t ThresholdConfig) Values() transcript.Thresholds {
	return transcript.Thresholds{Short: t.Short, Medium: t.Medium, Long: t.Long}
}

// LearnedConfig selects and configures the learned correction cache.
type LearnedConfig struct {
	// Backend names a registered backend: file, badger, or postgres.
	Backend string `yaml:"backend"`

	// Path is the JSON file used by the file backend.
	Path string `yaml:"path"`

	// Dir is the database directory used by the badger backend.
	Dir string `yaml:"dir"`

	// DSN is the connection string used by the postgres backend. When empty
	// it is read from the environment variable named by DSNEnv.
	DSN    string `yaml:"dsn"`
	DSNEnv string `yaml:"dsn_env"`

	// IncludeInDirectory merges learned entries into each event's name
	// directory.
	IncludeInDirectory bool `yaml:"include_in_directory"`
}

// DetectorConfig selects and configures span detection.
type DetectorConfig struct {
	// Name names a registered detector: heuristic, llm, or chain.
	Name string `yaml:"name"`

	// Primary and Secondary name the detectors combined by chain.
	Primary   string `yaml:"primary"`
	Secondary string `yaml:"secondary"`

	// Tolerant makes chain fall back to the secondary detector alone when
	// the primary fails.
	Tolerant bool `yaml:"tolerant"`

	// Model, BaseURL and APIKey configure the llm detector. When APIKey is
	// empty it is read from the environment variable named by APIKeyEnv.
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`

	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`

	// Labels restricts which entity classes the llm detector keeps.
	Labels []string `yaml:"labels"`

	// FallbackModels are tried in order when Model fails or its circuit is
	// open.
	FallbackModels []string `yaml:"fallback_models"`

	// Breaker guards each llm model endpoint.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig tunes the circuit breaker in front of each llm model. Zero
// values keep the built-in defaults.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the
	// circuit.
	MaxFailures int `yaml:"max_failures"`

	// Cooldown is how long an open circuit rejects requests before probing.
	Cooldown time.Duration `yaml:"cooldown"`
}

// TelemetryConfig configures the metrics and health endpoint.
type TelemetryConfig struct {
	// ListenAddr serves /healthz, /readyz and /metrics when set.
	ListenAddr string `yaml:"listen_addr"`

	ServiceName string `yaml:"service_name"`
}
