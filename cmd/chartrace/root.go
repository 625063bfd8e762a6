package main

import (
	"log/slog"
	"time"

	"chartrace/internal/marketdata"
	"chartrace/internal/platform/config"
	"chartrace/internal/platform/logger"

	"github.com/spf13/cobra"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	provider  string
	proxyURL  string
	logLevel  string
	logFormat string
	timeout   time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "chartrace",
		Short: "Animate stock prices as a chart race and export it as video",
		Long: `chartrace fetches daily closing prices for a set of symbols, animates them
over a date range and records the animation frame by frame.

Prices come from the chartrace proxy server by default, or directly from
Yahoo Finance, Finnhub or Polygon.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.provider, "provider", config.GetEnv("CHARTRACE_PROVIDER", "proxy"),
		"market data source: proxy, yahoo, finnhub or polygon")
	root.PersistentFlags().StringVar(&g.proxyURL, "proxy-url", config.GetEnv("CHARTRACE_PROXY_URL", "http://localhost:8080"),
		"base URL of the chartrace proxy server")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", config.GetEnv("CHARTRACE_LOG_LEVEL", "info"),
		"log level: debug, info, warn or error")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", config.GetEnv("CHARTRACE_LOG_FORMAT", "text"),
		"log format: text or json")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", config.GetEnvDuration("CHARTRACE_TIMEOUT", 30*time.Second),
		"timeout for each market data request")

	root.AddCommand(newSearchCmd(g), newRecordCmd(g), newPreviewCmd(g))
	return root
}

func (g *globalOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logger.New(g.logLevel, g.logFormat, cmd.ErrOrStderr())
}

func (g *globalOptions) marketData(obs marketdata.Observer) (marketdata.Provider, error) {
	p, err := marketdata.NewProvider(marketdata.ProviderConfig{
		Name:          g.provider,
		FinnhubAPIKey: config.GetEnv("FINNHUB_API_KEY", ""),
		PolygonAPIKey: config.GetEnv("POLYGON_API_KEY", ""),
		YahooBaseURL:  config.GetEnv("YAHOO_BASE_URL", ""),
		ProxyURL:      g.proxyURL,
		Timeout:       g.timeout,
	})
	if err != nil {
		return nil, err
	}
	if obs == nil {
		return p, nil
	}
	return marketdata.Instrument(p, obs), nil
}
