package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/natindo/poolmini/internal/api"
	"github.com/natindo/poolmini/internal/bot"
	"github.com/natindo/poolmini/internal/cache"
	"github.com/natindo/poolmini/internal/services"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the Telegram bot and the reminder notifier",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "HTTP listen address (default :3318)")
	_ = settings.BindPFlag("http_addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("database ready", zap.String("type", cfg.DatabaseType))

	var snapshots services.SnapshotCache
	if cfg.CacheEnabled() {
		srv, err := cache.StartEmbedded(cfg.CacheDir, logger)
		if err != nil {
			return err
		}
		defer srv.Shutdown()

		kv, err := cache.NewKVCache(ctx, srv.Conn(), cfg.CacheTTL)
		if err != nil {
			return err
		}
		snapshots = kv
	}

	svc := services.NewPoolService(store, snapshots, logger)
	sessions := api.NewSessions(cfg.SessionTTL)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(svc, sessions, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var b *bot.Bot
	if cfg.BotEnabled() {
		if b, err = bot.NewBot(cfg.TelegramToken, svc, logger); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		sweepSessions(gctx, sessions, cfg.SessionTTL, logger)
		return nil
	})

	if b != nil {
		notifier := services.NewNotifier(store, b, cfg.NotifyInterval, cfg.NotifyLead, logger)
		g.Go(func() error { return b.Run(gctx) })
		g.Go(func() error {
			notifier.Run(gctx)
			return nil
		})
	}

	err = g.Wait()
	logger.Info("shutting down")
	return err
}

// sweepSessions drops idle web wizard sessions until ctx is done.
func sweepSessions(ctx context.Context, sessions *api.Sessions, ttl time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := sessions.Sweep(); n > 0 {
				logger.Debug("expired wizard sessions dropped", zap.Int("count", n))
			}
		}
	}
}
