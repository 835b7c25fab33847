// launchbase operates the LaunchBase persistence layer: probe the active
// backend, provision DynamoDB tables, seed demo data, manage snapshots and
// serve health checks.
package main

import (
	"fmt"
	"os"

	"github.com/adrianmcphee/launchbase/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.Reported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}
