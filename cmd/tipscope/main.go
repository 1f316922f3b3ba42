package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tipscope/internal/chain"
	"tipscope/internal/config"
	"tipscope/internal/fetch"
	"tipscope/internal/metrics"
	"tipscope/internal/model"
	"tipscope/internal/pipeline"
	"tipscope/internal/profile"
	"tipscope/internal/server"
)

func main() {
	root := &cobra.Command{
		Use:          "tipscope",
		Short:        "Tipping analytics ingestion and aggregation pipeline",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline and dashboard API",
		RunE:  runServe,
	}

	serveCmd.Flags().StringSlice("endpoint", nil, "RPC endpoint URLs in priority order (comma-separated)")
	serveCmd.Flags().StringSlice("asset", nil, "token contracts as 0xADDRESS=SYMBOL (comma-separated)")
	serveCmd.Flags().String("topic0", fetch.TransferTopic, "topic0 signature to filter logs")
	serveCmd.Flags().String("period", "day", "initial period (day, week, month, all)")
	serveCmd.Flags().Uint64("window-size", 5000, "heights per get-logs window")
	serveCmd.Flags().Duration("window-delay", 30*time.Millisecond, "delay between windows")
	serveCmd.Flags().Int("resolve-batch", 10, "concurrent block-time lookups per batch")
	serveCmd.Flags().Duration("resolve-delay", 50*time.Millisecond, "delay between lookup batches")
	serveCmd.Flags().Duration("refresh-interval", 30*time.Second, "delta fetch interval")
	serveCmd.Flags().Uint64("lookback-day", 50_000, "height lookback for the day period")
	serveCmd.Flags().Uint64("lookback-week", 350_000, "height lookback for the week period")
	serveCmd.Flags().Uint64("lookback-month", 1_500_000, "height lookback for the month period (also caps all)")
	serveCmd.Flags().Int("top-n", 15, "leaderboard size")
	serveCmd.Flags().Bool("fill-empty", true, "fill empty time series buckets")
	serveCmd.Flags().Uint8("asset-decimals", 18, "token decimals used for display formatting")
	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("profile-endpoint", "", "profile lookup endpoint URL")
	serveCmd.Flags().Int("profile-max-batch", 64, "maximum senders per profile lookup")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Endpoints) == 0 {
		return fmt.Errorf("at least one endpoint is required")
	}

	assets, err := model.ParseAssetMap(cfg.Assets)
	if err != nil {
		return err
	}
	if len(assets) == 0 {
		return fmt.Errorf("asset list is required")
	}

	topic, err := fetch.ParseTopic(cfg.Topic0)
	if err != nil {
		return err
	}

	period, err := model.ParsePeriod(cfg.Period)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	pipelineMetrics, err := metrics.New(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	client, err := chain.Dial(ctx, cfg.Endpoints, pipelineMetrics, logger)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	resolver := chain.NewResolver(client, cfg.ResolveBatch, cfg.ResolveDelay, logger)

	fetcher := fetch.NewFetcher(fetch.Config{
		WindowSize:  cfg.WindowSize,
		WindowDelay: cfg.WindowDelay,
	}, client, pipelineMetrics, logger)

	addresses := make([]common.Address, 0, len(assets))
	for addr := range assets {
		addresses = append(addresses, addr)
	}
	sort.Slice(addresses, func(i, j int) bool {
		return addresses[i].Hex() < addresses[j].Hex()
	})

	controller := pipeline.NewController(pipeline.Config{
		Addresses: addresses,
		Topics:    [][]common.Hash{{topic}},
		Assets:    assets,
		Lookbacks: map[model.Period]uint64{
			model.PeriodDay:   cfg.LookbackDay,
			model.PeriodWeek:  cfg.LookbackWeek,
			model.PeriodMonth: cfg.LookbackMonth,
			model.PeriodAll:   cfg.LookbackMonth,
		},
		RefreshInterval: cfg.RefreshInterval,
	}, client, fetcher, resolver, pipelineMetrics, logger)

	profiles := profile.NewClient(cfg.ProfileEndpoint, cfg.ProfileMaxBatch, logger)

	logger.Info("tipscope start",
		zap.Strings("endpoints", cfg.Endpoints),
		zap.Int("assets", len(assets)),
		zap.String("period", string(period)),
		zap.Uint64("window_size", cfg.WindowSize),
		zap.Duration("refresh_interval", cfg.RefreshInterval),
		zap.String("listen", cfg.ListenAddr),
	)

	controller.SetPeriod(ctx, period)
	go controller.Run(ctx)

	srv := server.NewServer(server.Config{
		DefaultFillEmpty: cfg.FillEmpty,
		TopN:             cfg.TopN,
		AssetDecimals:    cfg.AssetDecimals,
	}, controller, profiles, registry, logger)

	return srv.Start(ctx, cfg.ListenAddr)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
