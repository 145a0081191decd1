package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/giygas/druginfo/batch"
	"github.com/giygas/druginfo/config"
	"github.com/giygas/druginfo/input"
	"github.com/giygas/druginfo/logging"
	"github.com/giygas/druginfo/metrics"
	"github.com/giygas/druginfo/openfda"
	"github.com/giygas/druginfo/output"
	"github.com/giygas/druginfo/seer"
	"github.com/giygas/druginfo/validation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

type cliOptions struct {
	input       string
	output      string
	format      string
	seerVersion string
	metricsFile string
	logLevel    string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	var opts cliOptions

	rootCmd := &cobra.Command{
		Use:   "druginfo",
		Short: "Look drug names up in openFDA and SEER*Rx",
		Long: `druginfo reads a list of drug names, one per line, looks each one up in the
openFDA NDC directory and in the SEER*Rx antineoplastic drug database, and
writes one file per service with a row for every input line.

Examples:
  druginfo -i drugs.txt -o results/drugs
  druginfo -i drugs.txt -o results/drugs --format xlsx`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("configuration error: %w", err)
			}
			if opts.seerVersion != "" {
				cfg.SeerRxVersion = opts.seerVersion
			}
			if opts.metricsFile != "" {
				cfg.MetricsFile = opts.metricsFile
			}
			if opts.logLevel != "" {
				cfg.LogLevel = opts.logLevel
			}

			logging.InitLogger(logging.Options{
				LogDir:         cfg.LogDir,
				RetentionWeeks: cfg.LogRetentionWeeks,
				MaxFileSize:    cfg.MaxLogFileSize,
				ConsoleLevel:   logging.GetConsoleLogLevel(cfg.Env, cfg.LogLevel, false),
				Console:        stdout,
			})
			defer func() {
				if err := logging.Close(); err != nil {
					fmt.Fprintf(stderr, "failed to close log file: %v\n", err)
				}
			}()

			paths, err := run(cmd.Context(), cfg, opts, stderr)
			if err != nil {
				logging.Error("Batch failed", "error", err)
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(stdout, p)
			}
			return nil
		},
	}

	rootCmd.Flags().StringVarP(&opts.input, "input", "i", "", "file with one drug name per line")
	rootCmd.Flags().StringVarP(&opts.output, "output", "o", "", "output prefix, _fda and _seer files are written next to it")
	rootCmd.Flags().StringVar(&opts.format, "format", output.FormatTSV, "output format: tsv or xlsx")
	rootCmd.Flags().StringVar(&opts.seerVersion, "seer-version", "", "SEER*Rx database version (overrides SEER_RX_VERSION)")
	rootCmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "write Prometheus metrics to this file after the batch")
	rootCmd.Flags().StringVar(&opts.logLevel, "log-level", "", "console log level (overrides LOG_LEVEL)")
	_ = rootCmd.MarkFlagRequired("input")
	_ = rootCmd.MarkFlagRequired("output")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(stdout, "druginfo %s\n", version)
		},
	})

	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd
}

// run executes one batch and returns the written file paths
func run(ctx context.Context, cfg *config.Config, opts cliOptions, diag io.Writer) ([]string, error) {
	writer, err := output.ForFormat(opts.format)
	if err != nil {
		return nil, err
	}

	entries, err := input.ReadEntries(opts.input)
	if err != nil {
		return nil, err
	}
	logging.Info("Input loaded", "path", opts.input, "entries", len(entries))

	validator := validation.NewValidator()
	for i, entry := range entries {
		if err := validator.ValidateEntry(entry); err != nil {
			logging.Warn("Suspicious entry, looking it up anyway", "line", i+1, "entry", entry, "reason", err)
		}
	}

	fdaSession, err := openfda.NewSession(cfg.FDABaseURL, cfg.FDAAPIKey, cfg.HTTPTimeout, cfg.FDARateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to create openFDA session: %w", err)
	}
	seerSession, err := seer.NewSession(cfg.SeerBaseURL, cfg.SeerAPIKey, cfg.HTTPTimeout, cfg.SeerRateLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to create SEER session: %w", err)
	}

	runner := batch.NewRunner(
		openfda.NewClient(fdaSession),
		seer.NewClient(seerSession, cfg.SeerRxVersion),
		diag,
	)

	start := time.Now()
	result, err := runner.Run(ctx, entries)
	if err != nil {
		return nil, err
	}

	if err := validator.ValidateResult(entries, result); err != nil {
		return nil, fmt.Errorf("inconsistent batch result: %w", err)
	}
	report := validator.ReportQuality(result)
	logging.Info("Batch quality",
		"entries", report.Entries,
		"fda_found", report.FDAFound,
		"seer_found", report.SeerFound,
		"found_in_both", report.FoundInBoth,
		"found_in_neither", report.FoundInNeither,
		"neither_sample", report.NeitherSample)

	paths, err := output.WriteBatch(writer, opts.output, result)
	if err != nil {
		return nil, err
	}
	logging.Info("Results written", "files", paths, "duration", time.Since(start).String())

	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			// The result files are already complete
			logging.Warn("Failed to write metrics", "error", err)
		}
	}

	return paths, nil
}

// loadDotEnv reads .env from the working directory when there is one
func loadDotEnv() error {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func main() {
	if err := loadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	if err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
