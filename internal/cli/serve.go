package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/adrianmcphee/launchbase/internal/server"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve health and metrics endpoints for the resolved backend",
		Long: `Resolve storage and serve /health, /healthz and /metrics until interrupted.

/healthz answers 503 when the backend does not respond to a ping.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(rootOpts, addr, cmd)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")
	return cmd
}

func runServe(opts *RootOptions, addr string, cmd *cobra.Command) error {
	e, err := newEnv(opts, cmd)
	if err != nil {
		return err
	}
	defer e.close()

	if e.cfg.Log.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	selector := e.selector()
	storage := selector.Resolve(ctx)
	defer selector.Close()

	srv := server.New(storage,
		server.WithLogger(e.logger.Named("http")),
		server.WithRegistry(e.registry),
		server.WithVersion("launchbase", Version),
	)
	err = srv.Run(ctx, addr)
	e.reportQueries()
	if err != nil {
		return e.out.Error(WrapExitError(ExitFailure, "serve", err))
	}
	return nil
}
