package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pulsenet/pulsenet/internal/config"
	"github.com/pulsenet/pulsenet/internal/engine"
	apperrors "github.com/pulsenet/pulsenet/internal/errors"
	"github.com/pulsenet/pulsenet/internal/logging"
	"github.com/pulsenet/pulsenet/internal/metrics"
	"github.com/pulsenet/pulsenet/internal/output"
	"github.com/pulsenet/pulsenet/internal/probe"
	"github.com/pulsenet/pulsenet/internal/report"
	"github.com/pulsenet/pulsenet/internal/target"
	"github.com/pulsenet/pulsenet/internal/ui"
)

const metricsShutdownTimeout = 2 * time.Second

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Probe addresses for reachable TCP ports",
	Long: `Probe a set of IPv4 addresses for reachable TCP ports and record
every hit.

By default addresses are generated at random from the public IPv4
space. Use --cidr to expand one or more CIDR blocks into host
addresses instead, or --file to read addresses from a newline
delimited file. Each address gets a fixed time budget split evenly
across the configured ports; the first port that completes a TCP
handshake counts as a hit.`,
	Example: `  pulsenet scan
  pulsenet scan --count 5000 --rate 1000 --workers 128
  pulsenet scan --cidr 203.0.113.0/24 --ports 22,80,443
  pulsenet scan --file targets.txt --json --output hits.jsonl
  pulsenet scan --simulate --count 200 --quiet`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntP("count", "n", 0, "Number of random addresses to probe")
	scanCmd.Flags().Int("timeout", 0, "Per-address probe budget in milliseconds")
	scanCmd.Flags().IntP("workers", "w", 0, "Maximum number of concurrent probes")
	scanCmd.Flags().IntP("rate", "r", 0, "Probe dispatch rate in addresses per second")
	scanCmd.Flags().StringP("ports", "p", "", "Ports to try on each address (e.g. '80,443,8000-8010')")
	scanCmd.Flags().StringSlice("cidr", nil, "CIDR blocks to expand instead of random generation")
	scanCmd.Flags().String("file", "", "File of addresses to probe instead of random generation")
	scanCmd.Flags().Bool("simulate", false, "Simulate probes without opening connections")
	scanCmd.Flags().Bool("json", false, "Write hits as JSON lines instead of plain log lines")
	scanCmd.Flags().BoolP("quiet", "q", false, "Suppress per-hit terminal output")
	scanCmd.Flags().StringP("output", "o", "", "Path of the hit log file")
	scanCmd.Flags().String("clean-output", "", "Path of the clean list file (bare addresses)")
	scanCmd.Flags().Bool("metrics", false, "Serve Prometheus metrics during the run")
	scanCmd.Flags().String("metrics-addr", "", "Listen address for the metrics endpoint")

	scanCmd.MarkFlagsMutuallyExclusive("cidr", "file")

	// Flags override the config file, which overrides defaults.
	bindings := map[string]string{
		"scan.count":          "count",
		"scan.timeout_ms":     "timeout",
		"scan.workers":        "workers",
		"scan.rate":           "rate",
		"scan.ports":          "ports",
		"scan.cidr":           "cidr",
		"scan.file":           "file",
		"scan.simulate":       "simulate",
		"output.json":         "json",
		"output.quiet":        "quiet",
		"output.log_path":     "output",
		"output.clean_path":   "clean-output",
		"metrics.enabled":     "metrics",
		"metrics.listen_addr": "metrics-addr",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, scanCmd.Flags().Lookup(flag)); err != nil {
			fmt.Fprintf(os.Stderr, "Error binding %s flag: %v\n", flag, err)
			os.Exit(1)
		}
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg, err := scanConfigFromViper()
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	logger := logging.Default().WithRunID(runID)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ports, err := probe.ParsePortSpec(cfg.Scan.Ports)
	if err != nil {
		return fmt.Errorf("invalid port specification %q: %w", cfg.Scan.Ports, err)
	}

	src := selectSource(cfg)
	term := ui.New(cfg.Output.Quiet)
	term.Banner(getVersion())

	logger.InfoEngine("run starting",
		"source", src.Name(),
		"ports", cfg.Scan.Ports,
		"workers", cfg.Scan.Workers,
		"rate", cfg.Scan.Rate,
		"simulate", cfg.Scan.Simulate)

	loadStart := time.Now()
	addrs, err := src.Addresses()
	if err != nil {
		metrics.RecordSourceError(src.Name(), string(apperrors.GetCode(err)))
		return fmt.Errorf("loading targets from %s source: %w", src.Name(), err)
	}
	metrics.RecordSourceLoad(src.Name(), len(addrs), time.Since(loadStart))

	term.ShowConfig(configRows(cfg, src.Name(), len(addrs)))

	sinks, cleanup, err := openSinks(cfg)
	if err != nil {
		return err
	}
	defer cleanup(logger)

	var stopMetrics func()
	if cfg.Metrics.Enabled {
		stopMetrics, err = serveMetrics(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	prober := probe.New(probe.Config{
		Ports:    ports,
		Timeout:  cfg.Timeout(),
		Simulate: cfg.Scan.Simulate,
	})
	eng := engine.New(prober, engine.Config{
		Workers: cfg.Scan.Workers,
		Rate:    cfg.Scan.Rate,
	})

	term.StartProgress(len(addrs))

	start := time.Now()
	results := eng.Run(ctx, addrs)

	// Tick the progress bar per completed probe, hit or miss, and
	// pass everything through to the aggregator untouched.
	progressed := make(chan probe.Outcome, cap(results))
	go func() {
		defer close(progressed)
		for outcome := range results {
			term.Tick()
			progressed <- outcome
		}
	}()

	agg := report.NewAggregator(term, sinks...)
	stats := agg.Consume(progressed)
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		logger.InfoEngine("run interrupted", "probed", stats.Total, "elapsed", elapsed)
	}

	term.Summary(stats, elapsed)

	logger.InfoEngine("run finished",
		"total", stats.Total,
		"hits", stats.Hits,
		"timeouts", stats.Timeouts,
		"refused", stats.Refused,
		"unreachable", stats.Unreachable,
		"elapsed", elapsed)

	return nil
}

// scanConfigFromViper builds the effective configuration from viper's
// merged view of defaults, config file, environment, and flags.
func scanConfigFromViper() (*config.Config, error) {
	cfg := config.Default()

	cfg.Scan.Count = viper.GetInt("scan.count")
	cfg.Scan.TimeoutMS = viper.GetInt("scan.timeout_ms")
	cfg.Scan.Workers = viper.GetInt("scan.workers")
	cfg.Scan.Rate = viper.GetInt("scan.rate")
	cfg.Scan.Ports = viper.GetString("scan.ports")
	cfg.Scan.CIDR = viper.GetStringSlice("scan.cidr")
	cfg.Scan.File = viper.GetString("scan.file")
	cfg.Scan.Simulate = viper.GetBool("scan.simulate")

	cfg.Output.JSON = viper.GetBool("output.json")
	cfg.Output.Quiet = viper.GetBool("output.quiet")
	cfg.Output.LogPath = viper.GetString("output.log_path")
	cfg.Output.CleanPath = viper.GetString("output.clean_path")

	cfg.Metrics.Enabled = viper.GetBool("metrics.enabled")
	cfg.Metrics.ListenAddr = viper.GetString("metrics.listen_addr")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// selectSource picks the address source in priority order: file,
// then CIDR blocks, then random generation.
func selectSource(cfg *config.Config) target.Source {
	switch {
	case cfg.Scan.File != "":
		return target.NewFileSource(cfg.Scan.File)
	case len(cfg.Scan.CIDR) > 0:
		return target.NewCIDRSource(cfg.Scan.CIDR)
	default:
		return target.NewRandomSource(cfg.Scan.Count)
	}
}

func configRows(cfg *config.Config, source string, addrCount int) []ui.ConfigRow {
	mode := "probe"
	if cfg.Scan.Simulate {
		mode = "simulate"
	}
	return []ui.ConfigRow{
		{Setting: "Source", Value: source},
		{Setting: "Addresses", Value: fmt.Sprintf("%d", addrCount)},
		{Setting: "Ports", Value: cfg.Scan.Ports},
		{Setting: "Timeout", Value: cfg.Timeout().String()},
		{Setting: "Workers", Value: fmt.Sprintf("%d", cfg.Scan.Workers)},
		{Setting: "Rate", Value: fmt.Sprintf("%d/s", cfg.Scan.Rate)},
		{Setting: "Mode", Value: mode},
	}
}

// openSinks opens the configured result files. Simulated runs write no
// files; their hits are fabricated and would only pollute real result
// logs.
func openSinks(cfg *config.Config) ([]report.Sink, func(*logging.Logger), error) {
	if cfg.Scan.Simulate {
		return nil, func(*logging.Logger) {}, nil
	}

	var sinks []report.Sink
	closeAll := func(logger *logging.Logger) {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				logger.ErrorSink("failed to close result sink", err)
			}
		}
	}

	var hitSink report.Sink
	var err error
	if cfg.Output.JSON {
		hitSink, err = output.NewJSONSink(cfg.Output.LogPath)
	} else {
		hitSink, err = output.NewPlainSink(cfg.Output.LogPath)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("opening hit log: %w", err)
	}
	sinks = append(sinks, hitSink)

	if cfg.Output.CleanPath != "" {
		cleanSink, err := output.NewCleanListSink(cfg.Output.CleanPath)
		if err != nil {
			closeAll(logging.Default())
			return nil, nil, fmt.Errorf("opening clean list: %w", err)
		}
		sinks = append(sinks, cleanSink)
	}

	return sinks, closeAll, nil
}

// serveMetrics starts the Prometheus endpoint for the duration of the
// run and returns a function that shuts it down.
func serveMetrics(ctx context.Context, cfg *config.Config, logger *logging.Logger) (func(), error) {
	pm := metrics.GetGlobalMetrics()
	pm.StartPeriodicUpdates(ctx, cfg.Metrics.UpdateInterval)

	mux := http.NewServeMux()
	mux.Handle("/metrics", pm.Handler())
	server := &http.Server{
		Addr:              cfg.Metrics.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Give an unusable listen address a moment to surface before
	// the run starts.
	select {
	case err := <-errCh:
		return nil, fmt.Errorf("starting metrics server on %s: %w", cfg.Metrics.ListenAddr, err)
	case <-time.After(100 * time.Millisecond):
	}

	logger.InfoEngine("metrics endpoint listening", "addr", cfg.Metrics.ListenAddr)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}, nil
}
