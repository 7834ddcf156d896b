// Command relay runs the voice relay: it authenticates WebSocket clients,
// acquires pooled upstream Realtime sessions, and bridges events between the
// two until either side closes.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/redis/go-redis/v9"

	"github.com/rapidaai/relay/internal/accountant"
	"github.com/rapidaai/relay/internal/auth"
	"github.com/rapidaai/relay/internal/config"
	"github.com/rapidaai/relay/internal/frontend"
	"github.com/rapidaai/relay/internal/logging"
	"github.com/rapidaai/relay/internal/minter"
	"github.com/rapidaai/relay/internal/pool"
	"github.com/rapidaai/relay/internal/tools"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("relay: %v", err)
	}
}

func run() error {
	v, err := config.InitConfig()
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	cfg, err := config.GetApplicationConfig(v)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Production: true,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync()

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.DBName, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.SSLMode)

	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelSetup()

	var db *gorm.DB
	var redisClient *redis.Client

	// The credential store's migration and the Redis mirror's reachability
	// check are independent; run them concurrently instead of serially.
	g, gctx := errgroup.WithContext(setupCtx)
	g.Go(func() error {
		if err := auth.Migrate(dsn); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		opened, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		db = opened
		return nil
	})
	if cfg.Redis.Enabled {
		g.Go(func() error {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.Redis.Addr,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			})
			if err := client.Ping(gctx).Err(); err != nil {
				return fmt.Errorf("ping redis: %w", err)
			}
			redisClient = client
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	store := auth.NewPostgresStore(db, cfg.JWTSecret)

	var mirror accountant.Mirror
	if redisClient != nil {
		mirror = accountant.NewRedisMirror(redisClient)
	}
	acct := accountant.New(logger, accountant.Config{
		Capacity:     cfg.RateLimit.Capacity,
		RefillPerMin: cfg.RateLimit.RefillPerMin,
		Shards:       cfg.RateLimit.Shards,
	}, mirror)

	mint := minter.New(cfg.Upstream.BaseURL, cfg.Upstream.APIKey, cfg.Upstream.ProtocolVersion)
	sessionPool := pool.New(logger, mint, cfg.Upstream.WebSocketURL, cfg.Upstream.ProtocolVersion, cfg.Pool.Capacity)

	var registry tools.Registry
	if cfg.ToolRegistry.Enabled {
		mcp, err := tools.NewMCPRegistry(setupCtx, cfg.ToolRegistry.MCPAddress)
		if err != nil {
			return fmt.Errorf("connect tool registry: %w", err)
		}
		defer mcp.Close()
		registry = mcp
	}

	server := frontend.New(logger, store, sessionPool, acct, registry)

	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: server.Engine(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Infow("relay listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-sigCtx.Done():
		logger.Infow("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-serveErr
}
