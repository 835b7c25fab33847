package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adrianmcphee/launchbase"
)

// SeedResult reports how many demo records were written.
type SeedResult struct {
	Backend  string         `json:"backend"`
	Counts   map[string]int `json:"counts"`
	Total    int            `json:"total"`
	Snapshot string         `json:"snapshot,omitempty"`
}

func (r SeedResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "seeded %d records into %s\n", r.Total, r.Backend)
	writeCounts(&b, r.Counts)
	if r.Snapshot != "" {
		fmt.Fprintf(&b, "snapshot: %s\n", r.Snapshot)
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var saveTo string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write the demonstration dataset into the active backend",
		Long: `Write the demonstration dataset through the storage contract.

Against DynamoDB this creates real records. The memory backend is started
empty for this command, so seeding it is only useful together with --save-to,
which writes the result as a snapshot for LAUNCHBASE_SEED_SNAPSHOT.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(rootOpts, saveTo, cmd)
		},
	}

	cmd.Flags().StringVar(&saveTo, "save-to", "", "blob location to save a snapshot to after seeding")
	return cmd
}

func runSeed(opts *RootOptions, saveTo string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	e.cfg.SeedSnapshot = ""
	ctx := cmd.Context()
	selector := e.selector(launchbase.WithMemoryOptions(launchbase.WithoutSeed()))
	storage := selector.Resolve(ctx)
	defer selector.Close()

	report, err := launchbase.SeedDemoData(ctx, storage)
	if err != nil {
		return e.out.Error(WrapExitError(ExitFailure, "seed", err))
	}

	result := SeedResult{
		Backend: string(storage.Kind()),
		Counts:  familyCounts(report),
		Total:   report.Total(),
	}

	if saveTo != "" {
		key, err := saveSnapshot(cmd, e, storage, saveTo)
		if err != nil {
			return e.out.Error(WrapExitError(ExitFailure, "save snapshot", err))
		}
		result.Snapshot = key
	}
	return e.out.Success(result)
}
