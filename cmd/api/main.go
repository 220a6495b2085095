package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"vintique.shop/internal/api"
	"vintique.shop/internal/catalog"
	"vintique.shop/internal/config"
	"vintique.shop/internal/idempotency"
	"vintique.shop/internal/imagestore"
	"vintique.shop/internal/store"
	"vintique.shop/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger)
	stop()
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// run serves until ctx is cancelled. Every failure returns through the
// deferred cleanups.
func run(ctx context.Context, cfg config.Config, logger *log.Logger) error {
	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry error: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Printf("telemetry shutdown: %v", err)
		}
	}()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db config error: %w", err)
	}
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	defer pool.Close()

	st := store.New(pool, store.WithCheckoutDebit(cfg.CheckoutDebit))
	migrateCtx, cancelMigrate := context.WithTimeout(ctx, 30*time.Second)
	err = st.Migrate(migrateCtx)
	cancelMigrate()
	if err != nil {
		return fmt.Errorf("migrate error: %w", err)
	}

	var images catalog.ImageStore
	if cfg.Cloudinary.Enabled() {
		images = imagestore.New(imagestore.Config{
			CloudName: cfg.Cloudinary.CloudName,
			APIKey:    cfg.Cloudinary.APIKey,
			APISecret: cfg.Cloudinary.APISecret,
			Folder:    cfg.Cloudinary.Folder,
		})
	} else {
		logger.Printf("cloudinary credentials not set; product images disabled")
	}

	opts := []api.Option{
		api.WithBcryptCost(cfg.BcryptCost),
		api.WithServiceName(cfg.ServiceName),
	}
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis error: %w", err)
		}
		opts = append(opts, api.WithIdempotencyGuard(idempotency.New(rdb, cfg.IdempotencyTTL)))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := api.NewServer(st, catalog.New(st, images, logger), cfg.AuthToken, logger, opts...)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctxShutdown)
}
