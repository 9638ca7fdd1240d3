package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"coinproxy/internal/api"
	"coinproxy/internal/bot"
	"coinproxy/internal/coingecko"
	"coinproxy/internal/config"
	"coinproxy/internal/market"
)

var envFile string

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Serve the coin lookup API",
		RunE:  runServe,
	}

	root := &cobra.Command{
		Use:          "coinproxy",
		Short:        "Caching proxy for CoinGecko coin lookups",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Optional .env file to load")
	root.AddCommand(serve, &cobra.Command{
		Use:   "warm",
		Short: "Fill the local index and popular caches once and report their size",
		RunE:  runWarm,
	})
	return root
}

type app struct {
	cfg   config.Config
	log   *slog.Logger
	coins *market.Service
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(envFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	client := coingecko.NewClient(
		coingecko.WithBaseURL(cfg.CoinGeckoURL),
		coingecko.WithAPIKey(cfg.CoinGeckoAPIKey),
		coingecko.WithTimeout(cfg.HTTPTimeout),
	)

	return &app{
		cfg:   cfg,
		log:   logger,
		coins: market.NewService(client, cfg.Market, nil, logger),
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	if a.cfg.WarmOnStart {
		a.coins.Warm(ctx)
	}

	if a.cfg.TelegramToken != "" {
		b, err := bot.New(a.cfg.TelegramToken, a.coins, a.log.With(slog.String("component", "bot")))
		if err != nil {
			a.log.Error("telegram bot disabled", slog.Any("err", err))
		} else {
			go b.Start(ctx)
		}
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           api.NewRouter(a.coins, a.cfg.CORSOrigins, a.log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("listening", slog.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runWarm(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}

	a.coins.Warm(cmd.Context())

	keys, count := a.coins.IndexStats()
	popular := a.coins.PopularCoins(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "index keys=%v coins=%d popular=%d\n", keys, count, len(popular))
	return nil
}
