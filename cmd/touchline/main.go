// Command touchline cleans soccer commentary transcripts: it drops
// hallucinated segments, merges duplicates and corrects misspelled player,
// team, referee and venue names, learning recurring corrections across runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/MrWong99/touchline/internal/config"
)

// version is set at build time.
var version = "dev"

// errNothingProcessed makes the process exit non-zero without printing an
// error; the reason has already been logged.
var errNothingProcessed = errors.New("no matches processed")

func main() {
	os.Exit(run())
}

func run() int {
	// Missing .env files are fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errNothingProcessed) {
			fmt.Fprintf(os.Stderr, "touchline: %v\n", err)
		}
		return 1
	}
	return 0
}

// cli carries state shared by all subcommands.
type cli struct {
	configPath string
	cfg        *config.Config
	reg        *config.Registry
	closeLog   func() error
	out        io.Writer
}

func newRootCmd() *cobra.Command {
	c := &cli{reg: config.NewRegistry()}
	registerBuiltins(c.reg)

	root := &cobra.Command{
		Use:           "touchline",
		Short:         "Clean soccer commentary transcripts and correct entity names",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if c.closeLog != nil {
				return c.closeLog()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "touchline.yaml", "path to the YAML configuration file")

	root.AddCommand(newRunCmd(c), newCacheCmd(c))
	return root
}

// setup loads the configuration and installs the process logger. A missing
// config file is only an error when --config was given explicitly.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	switch {
	case errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	case err != nil:
		return err
	}
	c.cfg = cfg
	c.out = cmd.OutOrStdout()

	logger, closeLog, err := config.NewLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	c.closeLog = closeLog

	slog.Debug("configuration loaded",
		"config", c.configPath,
		"learned_backend", cfg.Learned.Backend,
		"detector", cfg.Detector.Name,
	)
	return nil
}
