package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"stockticker/src/chart"
	"stockticker/src/common"
	"stockticker/src/exchange/binance"
	"stockticker/src/exchange/okx"
	"stockticker/src/history"
	"stockticker/src/quote"
	"stockticker/src/quote/yahoo"
	"stockticker/src/sampler"
	"stockticker/src/web"

	"github.com/spf13/cobra"
)

var (
	configPath string
	addr       string
	source     string
	production bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ticker [symbols...]",
		Short: "Sample live prices and chart the last few seconds",
		RunE:  run,
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "TOML config file (default: built-in defaults)")
	rootCmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides web.addr")
	rootCmd.Flags().StringVar(&source, "source", "", "Quote source: yahoo, binance, okx")
	rootCmd.Flags().BoolVar(&production, "production", false, "Log JSON to the rotated log file")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Web.Addr = addr
	}
	if source != "" {
		cfg.Quote.Source = source
	}
	if production {
		cfg.Log.Production = true
	}
	cfg.Tickers = append(cfg.Tickers, args...)
	if err = cfg.Validate(); err != nil {
		return err
	}

	common.InitLogger(!cfg.Log.Production)
	defer common.Logger.Sync()
	common.Logger.Sugar().Infof("Starting ticker with source %s", cfg.Quote.Source)

	src, clean, err := newSource(cfg.Quote)
	if err != nil {
		return err
	}
	defer clean()

	page := chart.NewCanvas("text/html; charset=utf-8")
	image := chart.NewCanvas("image/png")
	live := chart.NewLive(cfg.Chart.Title,
		chart.NewHTMLPainter(page, cfg.Chart.HTMLPath, cfg.Chart.Width, cfg.Chart.Height),
		chart.NewPNGPainter(image, cfg.Chart.PNGPath, cfg.Chart.Width, cfg.Chart.Height),
	)

	var opts []sampler.Option
	if cfg.History.Enabled {
		rec := history.NewRecorder(cfg.History.Dir, cfg.History.MaxAge.Duration)
		defer rec.Sync()
		opts = append(opts, sampler.WithRecorder(rec))
	}
	smp := sampler.New(sampler.Config{
		Capacity:         cfg.Sampler.Capacity,
		Period:           cfg.Sampler.Period.Duration,
		Interval:         cfg.Sampler.Interval,
		Lookback:         cfg.Sampler.Lookback.Duration,
		FetchConcurrency: cfg.Sampler.FetchConcurrency,
		FetchTimeout:     cfg.Quote.Timeout.Duration,
	}, src, live, opts...)
	srv := web.NewServer(cfg.Web.Addr, cfg.Chart.Title, smp, page, image)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	common.Go(func() {
		for _, name := range cfg.Tickers {
			if err := smp.Track(ctx, name); err != nil {
				common.Logger.Sugar().Warnf("Track %s error: %v", name, err)
			}
		}
	})

	err = common.RunComponents(ctx, smp, srv)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	common.Logger.Sugar().Info("Ticker stopped")
	return nil
}

func newSource(cfg common.QuoteConfig) (quote.Source, func(), error) {
	switch cfg.Source {
	case "yahoo":
		return yahoo.NewClient(cfg.Timeout.Duration), func() {}, nil
	case "binance":
		c := binance.NewClient(cfg.BinanceURL, cfg.Timeout.Duration)
		return c, c.Clean, nil
	case "okx":
		c := okx.NewClient(cfg.OKXURL, cfg.Timeout.Duration)
		return c, c.Clean, nil
	}
	return nil, nil, fmt.Errorf("unknown quote source: %s", cfg.Source)
}
