package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"risk_desk/internal/config"
	"risk_desk/internal/economy"
	"risk_desk/internal/logger"
	"risk_desk/internal/market"
	"risk_desk/internal/market/alpaca"
	"risk_desk/internal/market/fred"
	"risk_desk/internal/tools"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const VersionFile = "version.latest"

// app carries what every subcommand needs once config is loaded.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	version string
	reg     *tools.Registry

	// withNotify is set for commands annotated with notifyAnnotation.
	withNotify bool
}

// notifyAnnotation marks commands that need the Telegram secrets.
const notifyAnnotation = "notify"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("risk_desk failed")
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{version: readVersion()}
	var configPaths []string

	root := &cobra.Command{
		Use:           "risk_desk",
		Short:         "Portfolio and systemic economic risk tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd, configPaths)
		},
	}
	root.PersistentFlags().StringSliceVarP(&configPaths, "config", "c", []string{"risk_desk.toml"}, "TOML config files, later files override earlier")

	root.AddCommand(
		newServeCmd(a),
		newHTTPCmd(a),
		newCallCmd(a),
		newReplCmd(a),
		newDemoCmd(a),
		newWatchCmd(a),
		newExportCmd(a),
		newVersionCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command, paths []string) error {
	cfg, err := config.Load(paths...)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.withNotify = cmd.Annotations[notifyAnnotation] == "true"
	format := cfg.Logging.Format
	if cfg.IsProduction() {
		format = "json"
	}
	a.log = logger.Setup(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     format,
		FilePath:   cfg.Logging.FilePath,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})

	if err := cfg.CheckCredentials(a.withNotify); err != nil {
		var missing *config.MissingCredentialsError
		if errors.As(err, &missing) {
			a.log.Fatal().Strs("missing", missing.Missing).Msg("Required credentials are not set")
		}
		return err
	}

	a.log.Debug().
		Str("command", cmd.Name()).
		Str("env", cfg.Environment).
		Interface("secrets", cfg.MaskedSecrets(a.withNotify)).
		Msg("Configuration loaded")
	return nil
}

// economyProvider returns the mock dataset, or FRED with the mock behind it.
func (a *app) economyProvider() *economy.Provider {
	mock := economy.NewMockSource()
	if a.cfg.Economy.Source != "fred" {
		return economy.NewProvider(mock, mock)
	}

	client := fred.NewClient(fred.Options{
		APIKey:    a.cfg.Credentials.FREDAPIKey,
		BaseURL:   a.cfg.Economy.FRED.BaseURL,
		RateLimit: a.cfg.Economy.FRED.RateLimit,
		Timeout:   a.cfg.Economy.FRED.GetTimeout(),
	}, a.log)

	indicators := &economy.FallbackSource{
		Primary:  client,
		Fallback: mock,
		OnFallback: func(code string, err error) {
			a.log.Warn().Err(err).Str("indicator", code).Msg("FRED unavailable, using built-in data")
		},
	}
	return economy.NewProvider(indicators, mock)
}

// marketProviders returns the price source and, for alpaca, the broker
// holdings source.
func (a *app) marketProviders() (market.PriceProvider, market.HoldingsProvider) {
	if a.cfg.Market.PriceSource == "alpaca" {
		p := alpaca.NewProvider(alpaca.Options{
			APIKey:    a.cfg.Credentials.AlpacaKeyID,
			APISecret: a.cfg.Credentials.AlpacaSecretKey,
			BaseURL:   a.cfg.Credentials.AlpacaBaseURL,
		}, a.log)
		return p, p
	}
	return market.NewStaticProvider(market.DefaultPrices()), nil
}

// registry builds the default tool set once, with metrics on the default
// prometheus registerer.
func (a *app) registry() *tools.Registry {
	if a.reg != nil {
		return a.reg
	}
	prices, holdings := a.marketProviders()
	a.reg = tools.NewDefaultRegistry(tools.Deps{
		Economy:      a.economyProvider(),
		Prices:       prices,
		Holdings:     holdings,
		Volatility:   a.cfg.Risk.DefaultVolatility,
		RiskFreeRate: a.cfg.Risk.RiskFreeRate,
		HoldingsPath: a.cfg.Storage.HoldingsPath,
	}, tools.NewMetrics(prometheus.DefaultRegisterer))
	return a.reg
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), a.version)
			return nil
		},
	}
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(version))
}
