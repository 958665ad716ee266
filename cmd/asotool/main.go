package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lllllllleong/asodocumentflow/internal/config"
	"github.com/Lllllllleong/asodocumentflow/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
	backend string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "asotool",
		Short:         "Split, merge and rename PDFs, naming ASO certificates with Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
			return config.LoadDotEnv(opts.envFile)
		},
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional .env file with GOOGLE_API_KEY and friends")
	root.PersistentFlags().StringVar(&opts.backend, "backend", "", "extractor backend: gemini|vertex|off (default: from EXTRACTOR_BACKEND)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log progress to stderr")

	root.AddCommand(
		splitCmd(opts),
		renameCmd(opts),
		mergeCmd(opts),
		infoCmd(),
		thumbnailCmd(),
		serveCmd(opts),
	)
	return root
}

// loadConfig reads the environment, applying command-line overrides.
func (o *rootOptions) loadConfig() config.Config {
	cfg := config.Load()
	if o.backend != "" {
		cfg.Extract.Backend = o.backend
	}
	return cfg
}

func (o *rootOptions) pipeline(ctx context.Context) (*services.Pipeline, config.Config, error) {
	cfg := o.loadConfig()
	p, err := services.BuildPipeline(ctx, cfg.Extract, cfg.Pipeline)
	return p, cfg, err
}
