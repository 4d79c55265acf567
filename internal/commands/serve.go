package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/subscout-dev/subscout/internal/credstore"
	"github.com/subscout-dev/subscout/internal/detect"
	"github.com/subscout-dev/subscout/internal/server"
)

func newServeCommand(g *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, g, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func runServe(cmd *cobra.Command, g *globalOptions, addr string) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	// Fail fast on a missing allow list rather than on the first request.
	if _, err := g.loadAllowList(cfg); err != nil {
		return err
	}

	client, err := newPlaidClient(cfg, g)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := credstore.Open(ctx, cfg.Store, g.log)
	if err != nil {
		return err
	}
	defer repo.Close()

	srv := server.New(server.Options{
		Aggregator:  client,
		Credentials: repo,
		AllowList:   func() (detect.AllowList, error) { return g.loadAllowList(cfg) },
		WindowDays:  cfg.Detection.WindowDays,
		PageSize:    cfg.Detection.PageSize,
		Logger:      g.log,
	})

	return srv.ListenAndServe(ctx, addr)
}
