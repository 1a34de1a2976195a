package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"brandgen/internal/config"
	"brandgen/internal/pipeline"
	"brandgen/internal/pkg/logger"
	"brandgen/internal/progress"
)

func newGenerateCommand() *cobra.Command {
	var (
		batchSize   int
		concurrency int
		apiURL      string
		rendererURL string
		catalogFile string
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render every brand in the catalog and upload the cards",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadGenerator()
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("batch-size") {
				cfg.BatchSize = batchSize
			}
			if flags.Changed("concurrency") {
				cfg.RenderConcurrency = concurrency
			}
			if flags.Changed("api") {
				cfg.APIBaseURL = apiURL
			}
			if flags.Changed("renderer") {
				cfg.RendererBaseURL = rendererURL
			}
			if flags.Changed("catalog-file") {
				cfg.CatalogFile = catalogFile
			}

			return runGenerate(cmd, *cfg, verbose)
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Records per upload batch (1-200)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Renders in flight per batch, 0 for the whole batch")
	cmd.Flags().StringVar(&apiURL, "api", "", "Upload server base URL")
	cmd.Flags().StringVar(&rendererURL, "renderer", "", "Remote renderer base URL, empty to draw cards locally")
	cmd.Flags().StringVar(&catalogFile, "catalog-file", "", "Read brands from this JSON file instead of the server")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Write structured logs to stderr")

	return cmd
}

func runGenerate(cmd *cobra.Command, cfg config.Generator, verbose bool) error {
	out := cmd.OutOrStdout()

	log := logger.Discard()
	if verbose {
		lc := cfg.Log.Logger("brandgen")
		lc.Output = cmd.ErrOrStderr()
		log = logger.New(lc)
	}

	// Another process holding the lock means a run is already in progress;
	// starting is then a no-op.
	lock := flock.New(cfg.LockFile)
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock %s: %w", cfg.LockFile, err)
	}
	if !ok {
		fmt.Fprintln(out, "Generation already in progress")
		return nil
	}
	defer func() { _ = lock.Unlock() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reporter := progress.NewReporter(log, progress.NewConsole(out))
	p, err := pipeline.FromConfig(cfg, log, reporter)
	if err != nil {
		return err
	}

	sum, err := p.Run(ctx)
	printSummary(out, sum)
	return err
}

func printSummary(w io.Writer, sum pipeline.Summary) {
	if len(sum.Batches) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, progress.RenderTable(sum.Batches))
}
