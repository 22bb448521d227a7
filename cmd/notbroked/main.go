package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/Issafulldev/notbroke/config"
	"github.com/Issafulldev/notbroke/ratelimit"
	"github.com/Issafulldev/notbroke/server"
	"github.com/Issafulldev/notbroke/store"
)

var (
	envFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:          "notbroked",
	Short:        "Expense tracker backend with caching and rate limiting",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

func run(ctx context.Context) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	for _, warning := range cfg.Warnings {
		log.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.DatabasePath,
		store.WithCacheTTL(cfg.CacheTTL),
		store.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	limiter := ratelimit.New(ratelimit.WithWindow(cfg.RateWindow))

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.New(cfg, st, limiter, log).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening",
			zap.String("addr", cfg.ListenAddr),
			zap.String("environment", cfg.Environment),
			zap.String("database", cfg.DatabasePath),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func main() {
	rootCmd.Flags().StringVar(&envFile, "env-file", ".env", "path to an optional env file")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
