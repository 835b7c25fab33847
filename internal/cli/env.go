package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/adrianmcphee/launchbase"
)

// env is what every command needs: configuration, a logger and metrics.
type env struct {
	cfg      launchbase.Config
	logger   *launchbase.ZapLogger
	metrics  *launchbase.PrometheusMetrics
	registry *prometheus.Registry
	out      *OutputFormatter

	// profiler is set in verbose mode only.
	profiler *launchbase.QueryProfiler
}

func newEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	out := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := launchbase.LoadConfig(opts.EnvFile...)
	if err != nil {
		return nil, out.Error(WrapExitError(ExitCommandError, "load configuration", err))
	}
	if opts.Verbose {
		cfg.Log.Level = "debug"
	}

	logger, err := launchbase.NewLogger(cfg.Log)
	if err != nil {
		return nil, out.Error(WrapExitError(ExitCommandError, "build logger", err))
	}

	registry := prometheus.NewRegistry()
	e := &env{
		cfg:      cfg,
		logger:   logger.Named("launchbase"),
		metrics:  launchbase.NewPrometheusMetrics(registry),
		registry: registry,
		out:      out,
	}
	if opts.Verbose {
		e.profiler = launchbase.NewQueryProfiler()
	}
	return e, nil
}

func (e *env) selector(opts ...launchbase.SelectorOption) *launchbase.Selector {
	base := []launchbase.SelectorOption{
		launchbase.WithSelectorLogger(e.logger),
		launchbase.WithSelectorMetrics(e.metrics),
	}
	if e.profiler != nil {
		base = append(base, launchbase.WithSelectorProfiler(e.profiler))
	}
	return launchbase.NewSelector(e.cfg, append(base, opts...)...)
}

// reportQueries writes the durable query summary to the diagnostic stream.
// It prints nothing when no query was profiled.
func (e *env) reportQueries() {
	if e.profiler == nil || e.profiler.GetSummary().TotalQueries == 0 {
		return
	}
	e.profiler.WriteSummary(e.out.errWriter())
}

func (e *env) close() {
	_ = e.logger.Sync()
}
