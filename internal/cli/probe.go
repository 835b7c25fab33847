package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrianmcphee/launchbase"
)

// ProbeResult reports which backend the selector chose.
type ProbeResult struct {
	Backend  string `json:"backend"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
	Probes   int64  `json:"probes"`
	Healthy  bool   `json:"healthy"`
	Elapsed  string `json:"elapsed"`
}

func (r ProbeResult) String() string {
	s := fmt.Sprintf("backend: %s\nhealthy: %t\nprobes:  %d\nelapsed: %s", r.Backend, r.Healthy, r.Probes, r.Elapsed)
	if r.Region != "" {
		s += "\nregion:  " + r.Region
	}
	if r.Endpoint != "" {
		s += "\nendpoint: " + r.Endpoint
	}
	return s
}

// NewProbeCommand creates the probe command.
func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "Resolve the storage backend and report which one is active",
		Long: `Resolve storage the same way the application does and report the result.

Without AWS credentials the memory backend is chosen. With credentials the
durable backend is probed and memory is used only if the probe fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProbe(rootOpts, cmd)
		},
	}
}

func runProbe(opts *RootOptions, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	start := time.Now()
	selector := e.selector()
	storage := selector.Resolve(ctx)
	defer selector.Close()

	result := ProbeResult{
		Backend: string(storage.Kind()),
		Probes:  selector.Probes(),
		Healthy: storage.Ping(ctx) == nil,
		Elapsed: time.Since(start).Round(time.Millisecond).String(),
	}
	if storage.Kind() != launchbase.KindMemory {
		result.Region = e.cfg.AWS.Region
		result.Endpoint = e.cfg.AWS.DynamoEndpoint
	}
	e.out.VerboseLog("table prefix %q, id source %s", e.cfg.Tables.Prefix, e.cfg.IDSource)
	return e.out.Success(result)
}
