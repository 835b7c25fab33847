package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adrianmcphee/launchbase"
)

// ProvisionResult lists what provisioning did to each table.
type ProvisionResult struct {
	Prefix   string            `json:"prefix"`
	Created  []string          `json:"created"`
	Existing []string          `json:"existing"`
	Raced    []string          `json:"raced,omitempty"`
	Failed   map[string]string `json:"failed,omitempty"`

	// SyncedIDs holds the floor each Redis id counter was advanced to.
	SyncedIDs map[string]int64 `json:"syncedIds,omitempty"`
}

func (r ProvisionResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "created:  %d\n", len(r.Created))
	for _, t := range r.Created {
		fmt.Fprintf(&b, "  + %s\n", t)
	}
	fmt.Fprintf(&b, "existing: %d\n", len(r.Existing))
	for _, t := range r.Raced {
		fmt.Fprintf(&b, "  ~ %s (created concurrently)\n", t)
	}
	failed := make([]string, 0, len(r.Failed))
	for t := range r.Failed {
		failed = append(failed, t)
	}
	sort.Strings(failed)
	for _, t := range failed {
		fmt.Fprintf(&b, "  ! %s: %s\n", t, r.Failed[t])
	}
	if len(r.SyncedIDs) > 0 {
		fmt.Fprintf(&b, "redis id counters advanced:\n")
		for _, f := range launchbase.Families {
			if n, ok := r.SyncedIDs[string(f)]; ok {
				fmt.Fprintf(&b, "  %-13s %d\n", f, n)
			}
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// NewProvisionCommand creates the provision command.
func NewProvisionCommand(rootOpts *RootOptions) *cobra.Command {
	var syncIDs bool

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Create any missing DynamoDB tables and indexes",
		Long: `Create every table the durable backend needs, with its secondary indexes.

Tables that already exist are left alone. Provisioning normally happens on the
first storage call; this command runs it ahead of time, for example in a
deploy step. It requires AWS credentials.

With --sync-ids, the Redis id counters are advanced past the highest id stored
in each table. Run it once before switching LAUNCHBASE_ID_SOURCE to redis.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(rootOpts, syncIDs, cmd)
		},
	}

	cmd.Flags().BoolVar(&syncIDs, "sync-ids", false, "advance Redis id counters past existing records")
	return cmd
}

func runProvision(opts *RootOptions, syncIDs bool, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if !e.cfg.AWS.HasCredentials() {
		return e.out.Error(WrapExitError(ExitCommandError, "provision",
			launchbase.WithContext(launchbase.ErrInvalidConfig, map[string]interface{}{
				"field":  "AWS_ACCESS_KEY_ID",
				"reason": "durable credentials are required to provision tables",
			})))
	}

	ctx := cmd.Context()
	backend, err := launchbase.NewDynamoBackendFromConfig(ctx, e.cfg, e.logger, e.metrics)
	if err != nil {
		return e.out.Error(WrapExitError(ExitFailure, "connect", err))
	}
	defer backend.Close()

	if err := backend.Ping(ctx); err != nil {
		return e.out.Error(WrapExitError(ExitFailure, "probe", err))
	}

	report := backend.Provision(ctx)
	result := ProvisionResult{
		Prefix:   e.cfg.Tables.Prefix,
		Created:  report.Created,
		Existing: report.Existing,
		Raced:    report.Raced,
		Failed:   report.Failed,
	}
	if syncIDs && len(report.Failed) == 0 {
		floors, err := syncRedisIDs(cmd, e, backend)
		if err != nil {
			return e.out.Error(WrapExitError(ExitFailure, "sync ids", err))
		}
		result.SyncedIDs = floors
	}

	if len(report.Failed) > 0 {
		_ = e.out.Success(result)
		return NewExitError(ExitFailure, fmt.Sprintf("%d table(s) could not be created", len(report.Failed)))
	}
	return e.out.Success(result)
}

// syncRedisIDs advances the Redis sequence to the highest stored id of every
// family.
func syncRedisIDs(cmd *cobra.Command, e *env, backend *launchbase.DynamoBackend) (map[string]int64, error) {
	ctx := cmd.Context()
	snap, err := launchbase.TakeSnapshot(ctx, backend)
	if err != nil {
		return nil, err
	}

	client, err := launchbase.NewRedisClient(ctx, e.cfg.Redis)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	floors := snap.MaxIDs()
	seq := launchbase.NewRedisSequence(client, "", e.logger, e.metrics)
	if err := seq.AdvanceAll(ctx, floors); err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(floors))
	for f, n := range floors {
		out[string(f)] = n
	}
	return out, nil
}
