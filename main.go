package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	flagConfigPath string
	flagWorkers    int
	flagMinChunk   int64
	flagMaxChunk   int64
	flagLogLevel   string
	flagNoProgress bool
	flagJSON       bool
)

var v = viper.New()

var rootCmd = &cobra.Command{
	Use:   "primehunter [path]",
	Short: "Count the primes in a large newline-delimited integer file",
	Long: `primehunter partitions a file into byte ranges, dispatches them to a
pool of workers matched to available cores, adapts chunk size from live
per-worker throughput, and recovers from worker failure — all to answer one
question: how many of the integers on this file's lines are prime.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHunt,
}

func init() {
	flags := rootCmd.Flags()
	flags.StringVar(&flagConfigPath, "config", "", "Optional YAML config file")
	flags.IntVar(&flagWorkers, "workers", 0, "Worker count (0 = NUM_CORES)")
	flags.Int64Var(&flagMinChunk, "min-chunk", 0, "Minimum adaptive chunk size in bytes (0 = default)")
	flags.Int64Var(&flagMaxChunk, "max-chunk", 0, "Maximum adaptive chunk size in bytes (0 = default)")
	flags.StringVar(&flagLogLevel, "log-level", "", "debug|info|warn|error (default info)")
	flags.BoolVar(&flagNoProgress, "no-progress", false, "Disable the live progress block")
	flags.BoolVar(&flagJSON, "json", false, "Emit the final report as JSON instead of styled text")

	v.BindPFlag("workers", flags.Lookup("workers"))
	v.BindPFlag("min_chunk_bytes", flags.Lookup("min-chunk"))
	v.BindPFlag("max_chunk_bytes", flags.Lookup("max-chunk"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("no_progress", flags.Lookup("no-progress"))
	v.BindPFlag("json", flags.Lookup("json"))

	v.SetEnvPrefix("PRIMEHUNTER")
	v.AutomaticEnv()
}

func runHunt(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(v, flagConfigPath, args)
	if err != nil {
		return err
	}

	MinChunk = cfg.MinChunkBytes
	MaxChunk = cfg.MaxChunkBytes

	logger := setupLogger(cfg.LogLevel)

	var progress *ProgressReporter
	if !cfg.NoProgress && !cfg.JSON {
		progress = NewProgressReporter(os.Stdout, true)
	}

	orch, err := NewOrchestrator(cfg.InputPath, cfg.Workers, logger, progress)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Warnf("received %v, shutting down", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	report, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("primehunter: run failed: %w", err)
	}

	if cfg.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	RenderReport(os.Stdout, report)
	return nil
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "primehunter: fatal (logic violation): %v\n", r)
			os.Exit(2)
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "primehunter: %v\n", err)
		os.Exit(1)
	}
}
