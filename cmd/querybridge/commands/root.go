package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ncobase/querybridge/config"
	"github.com/ncobase/querybridge/data/metrics"
	"github.com/ncobase/querybridge/data/search/bridge"
	"github.com/ncobase/querybridge/logging/logger"
	"github.com/ncobase/querybridge/logging/observes"
	"github.com/ncobase/querybridge/version"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app carries what every command shares: the loaded configuration and a
// lazily created bridge
type app struct {
	confPath string
	index    string
	pretty   bool
	metrics  bool

	cfg         *config.Config
	bridge      *bridge.Bridge
	closeBridge func() error
	registry  *prometheus.Registry
	collector metrics.Collector
	cleanups  []func()
}

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "querybridge",
		Short:         "Run query descriptors against Elasticsearch or OpenSearch",
		Version:       version.GetVersionInfo().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
	}
	// finalizers also run when a command fails
	cobra.OnFinalize(a.teardown)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.confPath, "conf", "", "config file, e.g. ./config.yaml")
	flags.StringVar(&a.index, "index", "", "index to use instead of the configured one")
	flags.BoolVar(&a.pretty, "pretty", false, "indent the JSON output")
	flags.BoolVar(&a.metrics, "metrics", false, "print collected metrics to stderr on exit")

	rootCmd.AddCommand(
		newFindCommand(a),
		newSearchCommand(a),
		newGetCommand(a),
		newCountCommand(a),
		newDistinctCommand(a),
		newAggregateCommand(a),
		newDeleteCommand(a),
		newIncrementCommand(a),
		newIndexCommand(a),
		newPitCommand(a),
		newHealthCommand(a),
		newVersionCommand(),
	)

	return rootCmd
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.LoadConfig(a.confPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	info := version.GetVersionInfo()
	logger.SetVersion(info.Version)
	closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	a.cleanups = append(a.cleanups, closeLog)
	// stdout carries the result envelope
	if cfg.Logger == nil || cfg.Logger.Output == "" || cfg.Logger.Output == "stdout" {
		logger.StdLogger().SetOutput(os.Stderr)
	}

	if tc := cfg.Observes.Tracer; tc != nil && tc.ServiceVersion == "" {
		tc.ServiceVersion = info.Version
	}
	shutdown, err := observes.NewTracer(cfg.Observes.Tracer)
	if err != nil {
		logger.Warnf(ctx, "tracer disabled: %v", err)
	} else {
		a.cleanups = append(a.cleanups, func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(sctx)
		})
	}

	if enabled, err := observes.NewSentry(cfg.Observes.Sentry, cfg.AppName); err != nil {
		logger.Warnf(ctx, "sentry disabled: %v", err)
	} else if enabled {
		a.cleanups = append(a.cleanups, func() { observes.FlushSentry(2 * time.Second) })
	}

	a.registry = prometheus.NewRegistry()
	collector, err := metrics.NewPrometheusCollector("querybridge", a.registry)
	if err != nil {
		return err
	}
	a.collector = collector
	a.cleanups = append(a.cleanups, a.resetBridge)
	return nil
}

func (a *app) teardown() {
	if a.metrics && a.registry != nil {
		if err := writeMetrics(os.Stderr, a.registry); err != nil {
			logger.Warnf(context.Background(), "failed to write metrics: %v", err)
		}
	}
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		a.cleanups[i]()
	}
	a.cleanups = nil
}

// getBridge creates the bridge on first use
func (a *app) getBridge() (*bridge.Bridge, error) {
	if a.bridge != nil {
		return a.bridge, nil
	}
	if a.cfg == nil || a.cfg.Search == nil {
		return nil, fmt.Errorf("search configuration missing")
	}
	sc := *a.cfg.Search
	if a.index != "" {
		sc.Index, sc.IndexPrefix = a.index, ""
	}

	opts := []bridge.Option{
		bridge.WithLogger(logger.StdLogger()),
		bridge.WithCollector(a.collector),
	}
	if a.cfg.Observes != nil && a.cfg.Observes.Sentry != nil && a.cfg.Observes.Sentry.Endpoint != "" {
		opts = append(opts, bridge.WithErrorReporter(observes.NewSentryReporter(nil)))
	}

	b, closeFn, err := bridge.NewFromConfig(&sc, opts...)
	if err != nil {
		return nil, err
	}
	a.bridge, a.closeBridge = b, closeFn
	return b, nil
}

// resetBridge closes the current bridge, the next getBridge builds a new one
func (a *app) resetBridge() {
	if a.closeBridge != nil {
		_ = a.closeBridge()
	}
	a.bridge, a.closeBridge = nil, nil
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Args:  cobra.NoArgs,
		Short: "Print build information",
		// no configuration needed
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := version.GetVersionInfo().JSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
}
