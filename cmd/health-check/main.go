package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"drive-health-check/internal/config"
	"drive-health-check/internal/diag"
	"drive-health-check/internal/metrics"
	"drive-health-check/internal/probe"
	"drive-health-check/internal/report"
	"drive-health-check/internal/utils"
)

// Build-time variables (set via -ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Exit codes. A produced report is success regardless of the drive's score;
// the score lives in the report, not the exit status.
const (
	exitOK       = 0
	exitUsage    = 1
	exitExcluded = 2
)

var errDeviceExcluded = errors.New("device excluded")

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		checkType string
		format    string
		timeout   time.Duration
		textfile  string
		excludes  []string
		verbose   bool
	)

	rootCmd := &cobra.Command{
		Use:   "health-check <device-path>",
		Short: "Assess the health of a storage drive before trusting it with data",
		Long: `health-check probes a drive with read-only mechanical tests (spin-up
timing, surface sampling, random and sustained reads, stiction cycles),
collects SMART telemetry through USB bridge passthrough, and condenses the
evidence into a 0-100 health score with a tier and recommendation.

The target may be a block device, a mount point, or a disk image file.
All probes are strictly read-only.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.New()
			if err != nil {
				return fmt.Errorf("loading configuration: %w", err)
			}
			logger := setupLogging(cfg.LogLevel, verbose)

			target := args[0]
			if isExcluded(target, excludes) {
				logger.Error().Str("device", target).Msg("target is on the exclusion list")
				return fmt.Errorf("%w: %s", errDeviceExcluded, target)
			}

			ct := probe.CheckType(checkType)
			if !probe.ValidCheckType(ct) {
				return fmt.Errorf("invalid check type %q (valid: quick, full, stiction, surface, performance)", checkType)
			}
			if format != "json" && format != "text" {
				return fmt.Errorf("invalid format %q (valid: json, text)", format)
			}

			if timeout == 0 {
				timeout = cfg.RunTimeout
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			for _, st := range utils.Preflight() {
				if st.Available {
					logger.Debug().Str("tool", st.Name).Str("version", st.Version).Msg("external tool available")
				} else {
					logger.Debug().Str("tool", st.Name).Str("purpose", st.Purpose).Msg("external tool missing; dependent probes will degrade")
				}
			}

			pipeline := diag.New(cfg, utils.ExecRunner{}, logger)
			rep, err := pipeline.Run(ctx, target, ct)
			if err != nil {
				return err
			}

			if textfile != "" {
				m := metrics.New()
				m.Record(rep)
				if err := m.WriteTextfile(textfile); err != nil {
					// Metrics are a side channel; a failed write must not
					// discard the report itself.
					logger.Error().Err(err).Str("path", textfile).Msg("writing metrics textfile failed")
				}
			}

			if format == "text" {
				return report.EmitText(os.Stdout, rep)
			}
			return report.EmitJSON(os.Stdout, rep)
		},
	}

	rootCmd.Flags().StringVarP(&checkType, "type", "t", string(probe.CheckFull),
		"check type: quick, full, stiction, surface or performance")
	rootCmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or text")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "overall run deadline (default from DRIVE_HEALTH_RUN_TIMEOUT)")
	rootCmd.Flags().StringVar(&textfile, "textfile", "", "also write Prometheus textfile-collector metrics to this path")
	rootCmd.Flags().StringArrayVar(&excludes, "exclude", nil, "device path to refuse to touch (repeatable)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("health-check %s (commit %s, built %s)\n", version, commit, buildTime)
		},
	})

	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errDeviceExcluded) {
			return exitExcluded
		}
		return exitUsage
	}
	return exitOK
}

// setupLogging directs all diagnostics to stderr so stdout stays reserved
// for the report payload.
func setupLogging(level string, verbose bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(lvl).
		With().Timestamp().Logger()
	zlog.Logger = logger
	return logger
}

// isExcluded compares the target against the exclusion list by cleaned path.
func isExcluded(target string, excludes []string) bool {
	clean := filepath.Clean(target)
	for _, ex := range excludes {
		if filepath.Clean(strings.TrimSpace(ex)) == clean {
			return true
		}
	}
	return false
}
