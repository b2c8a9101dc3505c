package main

import (
	"context"
	"os"
	"time"

	"risk_desk/internal/mcpserver"
	"risk_desk/internal/server"
	"risk_desk/internal/session"

	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the risk tools over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			s := mcpserver.New(a.registry(), a.version, a.log)
			a.log.Info().Str("version", a.version).Msg("MCP stdio server starting")
			return s.Serve(cmd.Context(), os.Stdin, os.Stdout)
		},
	}
}

func newHTTPCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "http",
		Short: "Serve the risk tools over HTTP with per-client sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Server.Addr()
			}

			store := session.NewStore(a.cfg.Session.GetIdleTTL(), nil, a.log)
			if err := store.StartEviction(a.cfg.Session.SweepSchedule); err != nil {
				return err
			}
			defer store.Stop()

			srv := server.New(server.Config{
				Addr:         addr,
				Version:      a.version,
				Registry:     a.registry(),
				Sessions:     store,
				Log:          a.log,
				Volatility:   a.cfg.Risk.DefaultVolatility,
				RiskFreeRate: a.cfg.Risk.RiskFreeRate,
			})

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				return err
			case <-cmd.Context().Done():
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}
