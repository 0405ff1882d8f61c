package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrWong99/touchline/internal/config"
	"github.com/MrWong99/touchline/internal/detect"
	"github.com/MrWong99/touchline/internal/engine"
	"github.com/MrWong99/touchline/internal/event"
	"github.com/MrWong99/touchline/internal/filter"
	"github.com/MrWong99/touchline/internal/health"
	"github.com/MrWong99/touchline/internal/learned"
	"github.com/MrWong99/touchline/internal/observe"
	"github.com/MrWong99/touchline/internal/report"
	"github.com/MrWong99/touchline/internal/transcript"
)

const telemetryShutdownTimeout = 5 * time.Second

type runOptions struct {
	root       string
	output     string
	match      string
	dryRun     bool
	reportPath string
}

func newRunCmd(c *cli) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Clean every match under the dataset root",
		Long: `Run discovers every match below the dataset root, cleans both halves and
writes <output>/<league>/<season>/<match>/commentary_data/<half>_asr_cleaned.json.
A summary report is printed at the end.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runClean(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.root, "root", "", "dataset root (overrides dataset.root)")
	f.StringVar(&opts.output, "output", "", "cleaned output directory (overrides dataset.output_dir)")
	f.StringVarP(&opts.match, "match", "m", "", "only clean matches whose name contains this text")
	f.BoolVar(&opts.dryRun, "dry-run", false, "write no output and do not update the learned cache")
	f.StringVar(&opts.reportPath, "save-report", "", "also write the report to this file")
	return cmd
}

func (c *cli) runClean(ctx context.Context, opts runOptions) error {
	cfg := c.cfg
	root := cmp.Or(opts.root, cfg.Dataset.Root)
	if root == "" {
		return errors.New("no dataset root: set dataset.root or pass --root")
	}
	outDir := cmp.Or(opts.output, cfg.Dataset.OutputDir)

	ctx = observe.WithRunID(ctx, uuid.NewString())
	log := observe.Logger(ctx)

	// ── Telemetry ─────────────────────────────────────────────────────────────
	provider, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	})
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Learned cache and detector ────────────────────────────────────────────
	backend, err := c.reg.CreateBackend(ctx, cfg.Learned)
	if err != nil {
		return fmt.Errorf("open learned cache: %w", err)
	}
	defer func() {
		if err := closeBackend(backend); err != nil {
			log.Warn("closing learned cache failed", "err", err)
		}
	}()
	store := learned.NewStore(backend)

	detector, err := c.reg.CreateDetector(ctx, cfg.Detector)
	if err != nil {
		return fmt.Errorf("create detector: %w", err)
	}

	// ── Ops endpoint ──────────────────────────────────────────────────────────
	progress := &health.Progress{}
	if addr := cfg.Telemetry.ListenAddr; addr != "" {
		stopOps := serveOps(ctx, addr, progress, provider, metrics, backend)
		defer stopOps()
	}

	// ── Discover ──────────────────────────────────────────────────────────────
	matches, err := event.Discover(ctx, root,
		event.WithConcurrency(cfg.Dataset.LoadConcurrency),
		event.WithNameFilter(opts.match),
	)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		log.Error("no matches found", "root", root, "match", opts.match)
		return errNothingProcessed
	}
	progress.SetTotal(len(matches))

	eng, err := newEngine(cfg, store, detector, metrics, opts.dryRun)
	if err != nil {
		return err
	}
	log.Info("cleaning started",
		"matches", len(matches),
		"root", root,
		"output", outDir,
		"dry_run", opts.dryRun,
	)

	// ── Clean ─────────────────────────────────────────────────────────────────
	var results []*engine.Result
	failed := 0
	for _, m := range matches {
		res, err := cleanMatch(ctx, eng, m, outDir, opts.dryRun)
		progress.Finish(err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			failed++
			log.Error("match failed", "match", m.RelPath(), "err", err)
			continue
		}
		results = append(results, res)
	}
	if len(results) == 0 {
		return errNothingProcessed
	}

	// ── Report ────────────────────────────────────────────────────────────────
	if err := report.Write(c.out, results); err != nil {
		return err
	}
	if opts.reportPath != "" {
		if err := report.Save(opts.reportPath, results); err != nil {
			return err
		}
		log.Info("report saved", "path", opts.reportPath)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d matches failed", failed, len(matches))
	}
	return nil
}

// cleanMatch runs the engine on m and writes the cleaned halves unless
// dryRun is set.
func cleanMatch(ctx context.Context, eng *engine.Engine, m *event.Match, outDir string, dryRun bool) (*engine.Result, error) {
	res, err := eng.Run(ctx, m)
	if err != nil {
		return nil, err
	}
	if dryRun {
		return res, nil
	}
	paths, err := report.WriteCleaned(outDir, res)
	if err != nil {
		return nil, err
	}
	observe.Logger(ctx).Debug("cleaned output written", "match", m.RelPath(), "files", paths)
	return res, nil
}

// newEngine translates cfg into engine options.
func newEngine(cfg *config.Config, store *learned.Store, det detect.Detector, m *observe.Metrics, dryRun bool) (*engine.Engine, error) {
	fopts := []filter.Option{
		filter.WithAlphaRatioMin(cfg.Filter.AlphaRatioMin),
		filter.WithMinWords(cfg.Filter.MinWords),
	}
	if l := cfg.Filter.Language; l.Enabled {
		id, err := filter.NewLinguaIdentifier(l.Candidates...)
		if err != nil {
			return nil, fmt.Errorf("language identifier: %w", err)
		}
		fopts = append(fopts, filter.WithLanguageIdentifier(id, l.MinWords, l.MinConfidence, l.Allowed))
	}

	mc := cfg.Matcher
	var copts []transcript.Option
	if len(mc.Exclude) > 0 {
		copts = append(copts, transcript.WithExclusions(mc.Exclude))
	}
	copts = append(copts,
		transcript.WithExtraExclusions(mc.ExtraExclude),
		transcript.WithWeights(mc.Weights()),
		transcript.WithThresholds(mc.Thresholds.Values()),
		transcript.WithCandidates(mc.Candidates),
		transcript.WithLearned(store),
	)

	window := transcript.DefaultContextWindow
	if mc.ContextWindow != nil {
		window = *mc.ContextWindow
	}

	return engine.New(
		engine.WithFilter(filter.New(fopts...)),
		engine.WithDedupThreshold(cfg.Dedup.Threshold),
		engine.WithDetector(det),
		engine.WithCorrector(transcript.New(copts...)),
		engine.WithLearned(store, cfg.Learned.IncludeInDirectory),
		engine.WithContextWindow(window),
		engine.WithDryRun(dryRun),
		engine.WithMetrics(m),
	), nil
}

// serveOps starts the health and metrics endpoint and returns a function
// that stops it and waits for shutdown.
func serveOps(ctx context.Context, addr string, progress *health.Progress, provider *observe.Provider, m *observe.Metrics, backend learned.Backend) func() {
	ctx, cancel := context.WithCancel(ctx)
	mux := http.NewServeMux()
	health.New(progress, health.Checker{
		Name: "learned",
		Check: func(ctx context.Context) error {
			_, err := backend.Load(ctx)
			return err
		},
	}).Register(mux, provider.MetricsHandler())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := health.Serve(ctx, addr, observe.Middleware(m)(mux)); err != nil {
			observe.Logger(ctx).Error("ops endpoint failed", "addr", addr, "err", err)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
