package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/adrianmcphee/launchbase"
)

// SnapshotResult describes one stored snapshot.
type SnapshotResult struct {
	ID      string         `json:"id"`
	Key     string         `json:"key,omitempty"`
	TakenAt time.Time      `json:"takenAt"`
	Source  string         `json:"source"`
	Counts  map[string]int `json:"counts"`
}

func (r SnapshotResult) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "snapshot %s\n", r.ID)
	if r.Key != "" {
		fmt.Fprintf(&b, "key:      %s\n", r.Key)
	}
	fmt.Fprintf(&b, "taken at: %s\n", r.TakenAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "source:   %s\n", r.Source)
	writeCounts(&b, r.Counts)
	return strings.TrimRight(b.String(), "\n")
}

// SnapshotList is the output of snapshot list.
type SnapshotList struct {
	Location string   `json:"location"`
	IDs      []string `json:"ids"`
}

func (l SnapshotList) String() string {
	if len(l.IDs) == 0 {
		return "no snapshots in " + l.Location
	}
	return strings.Join(l.IDs, "\n")
}

// NewSnapshotCommand creates the snapshot command group.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save and inspect storage snapshots",
		Long: `Snapshots copy every record out of the active backend into a JSON document.

Locations are a directory path, file:///dir, s3://bucket/prefix or
gs://bucket/prefix. Set LAUNCHBASE_SNAPSHOT_KEY to encrypt snapshots.
With --verbose, save also prints a summary of the DynamoDB queries it ran.`,
	}

	cmd.AddCommand(newSnapshotSaveCommand(rootOpts))
	cmd.AddCommand(newSnapshotShowCommand(rootOpts))
	cmd.AddCommand(newSnapshotListCommand(rootOpts))
	return cmd
}

func newSnapshotSaveCommand(rootOpts *RootOptions) *cobra.Command {
	var to string
	cmd := &cobra.Command{
		Use:   "save",
		Short: "Snapshot the active backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			selector := e.selector()
			storage := selector.Resolve(cmd.Context())
			defer selector.Close()

			snap, err := launchbase.TakeSnapshot(cmd.Context(), storage)
			e.reportQueries()
			if err != nil {
				return e.out.Error(WrapExitError(ExitFailure, "take snapshot", err))
			}
			key, err := storeSnapshot(cmd, e, to, snap)
			if err != nil {
				return e.out.Error(WrapExitError(ExitFailure, "save snapshot", err))
			}
			return e.out.Success(snapshotResult(snap, key))
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "blob location to write to")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}

func newSnapshotShowCommand(rootOpts *RootOptions) *cobra.Command {
	var from, id string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a stored snapshot (the newest unless --id is given)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := launchbase.OpenSnapshotStore(cmd.Context(), from, e.cfg, e.logger, e.metrics)
			if err != nil {
				return e.out.Error(WrapExitError(ExitCommandError, "open snapshot store", err))
			}
			defer store.Close()

			var snap *launchbase.Snapshot
			if id == "" {
				snap, err = store.Latest(cmd.Context())
			} else {
				snap, err = store.Load(cmd.Context(), id)
			}
			if err != nil {
				return e.out.Error(WrapExitError(ExitFailure, "load snapshot", err))
			}
			return e.out.Success(snapshotResult(snap, ""))
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "blob location to read from")
	cmd.Flags().StringVar(&id, "id", "", "snapshot id (default newest)")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newSnapshotListCommand(rootOpts *RootOptions) *cobra.Command {
	var from string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshot ids, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer e.close()

			store, err := launchbase.OpenSnapshotStore(cmd.Context(), from, e.cfg, e.logger, e.metrics)
			if err != nil {
				return e.out.Error(WrapExitError(ExitCommandError, "open snapshot store", err))
			}
			defer store.Close()

			ids, err := store.IDs(cmd.Context())
			if err != nil {
				return e.out.Error(WrapExitError(ExitFailure, "list snapshots", err))
			}
			return e.out.Success(SnapshotList{Location: from, IDs: ids})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "blob location to read from")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func saveSnapshot(cmd *cobra.Command, e *env, storage launchbase.Storage, to string) (string, error) {
	snap, err := launchbase.TakeSnapshot(cmd.Context(), storage)
	if err != nil {
		return "", err
	}
	return storeSnapshot(cmd, e, to, snap)
}

func storeSnapshot(cmd *cobra.Command, e *env, to string, snap *launchbase.Snapshot) (string, error) {
	store, err := launchbase.OpenSnapshotStore(cmd.Context(), to, e.cfg, e.logger, e.metrics)
	if err != nil {
		return "", err
	}
	defer store.Close()
	return store.Save(cmd.Context(), snap)
}

func snapshotResult(snap *launchbase.Snapshot, key string) SnapshotResult {
	return SnapshotResult{
		ID:      snap.ID,
		Key:     key,
		TakenAt: snap.TakenAt,
		Source:  string(snap.Source),
		Counts:  familyCounts(snap.Counts()),
	}
}

func familyCounts(counts map[launchbase.Family]int) map[string]int {
	out := make(map[string]int, len(counts))
	for f, n := range counts {
		out[string(f)] = n
	}
	return out
}

// writeCounts prints counts in family order.
func writeCounts(w io.Writer, counts map[string]int) {
	for _, f := range launchbase.Families {
		if n, ok := counts[string(f)]; ok {
			fmt.Fprintf(w, "  %-13s %d\n", f, n)
		}
	}
}
