package main

import (
	"fmt"
	"path/filepath"
	"time"

	"risk_desk/internal/session"
	"risk_desk/internal/storage"
	"risk_desk/internal/tools"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		out     string
		refresh bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load holdings, gather the watched indicators and write a session snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg := a.registry()
			sess := session.New(nil)

			steps := []toolStep{{tool: "import_holdings", args: tools.Args{"source": "file"}}}
			if refresh && hasHoldings(a.cfg.Storage.HoldingsPath) {
				steps = append(steps, toolStep{tool: "refresh_prices", args: tools.Args{}})
			}
			for _, code := range a.cfg.Watch.Indicators {
				steps = append(steps, toolStep{tool: "get_economic_indicator", args: tools.Args{"indicator": code}})
			}
			for _, ticker := range a.cfg.Watch.Companies {
				steps = append(steps, toolStep{tool: "get_company_exposure", args: tools.Args{"company": ticker}})
			}

			for _, s := range steps {
				if res := reg.Call(ctx, sess, s.tool, s.args); !res.OK {
					return fmt.Errorf("%s: %s", s.tool, res.Error)
				}
			}

			now := time.Now()
			if out == "" {
				out = filepath.Join(a.cfg.Storage.ExportDir, fmt.Sprintf("snapshot-%s.json", now.UTC().Format("20060102-150405")))
			}

			sess.Lock()
			snap := storage.NewSnapshot(sess.ID, sess.Portfolio, sess.Economy, a.cfg.Risk.RiskFreeRate, a.cfg.Risk.DefaultVolatility, now)
			sess.Unlock()

			if err := storage.SaveSnapshot(out, snap); err != nil {
				return fmt.Errorf("save snapshot: %w", err)
			}
			a.log.Info().
				Str("path", out).
				Int("positions", snap.Portfolio.PositionCount).
				Str("systemic_level", string(snap.Systemic.SystemicLevel)).
				Msg("Snapshot exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "snapshot path (default <export_dir>/snapshot-<time>.json)")
	cmd.Flags().BoolVar(&refresh, "refresh", true, "refresh prices from the configured price source")
	return cmd
}

func hasHoldings(path string) bool {
	hf, err := storage.LoadHoldings(path)
	return err == nil && len(hf.Holdings) > 0
}
