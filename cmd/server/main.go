package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pantrypal/api/internal/auth"
	"github.com/pantrypal/api/internal/client"
	"github.com/pantrypal/api/internal/config"
	"github.com/pantrypal/api/internal/logger"
	"github.com/pantrypal/api/internal/server"
	"github.com/pantrypal/api/internal/store"
	ws "github.com/pantrypal/api/internal/websocket"
)

// @title          PantryPal API
// @version        1.0
// @description    Pantry tracking, receipt scanning and recipe suggestions backed by remote AI pipelines.
// @host           localhost:5001
// @BasePath       /
// @schemes        http https
// @securityDefinitions.apikey BearerAuth
// @in             header
// @name           Authorization
// @description    Enter your bearer token in the format **Bearer &lt;token&gt;**
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(&cfg.Logging)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	redisErr := redisClient.Ping(pingCtx).Err()
	cancel()

	var st store.Store
	limiterRedis := redisClient
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		if redisErr != nil {
			log.Error("redis store selected but redis is not available", "addr", cfg.Redis.Addr, "error", redisErr)
			os.Exit(1)
		}
		st = store.NewRedisStore(redisClient)
	default:
		st = store.NewMemoryStore()
		if redisErr != nil {
			log.Warn("redis not available, rate limiting disabled", "addr", cfg.Redis.Addr, "error", redisErr)
			limiterRedis = nil
		}
	}
	log.Info("store initialized", "backend", cfg.Store.Backend)

	hub := ws.NewHub()
	go hub.Run()
	defer hub.Close()

	pipelineClient := client.NewPipelineClient(&cfg.Pipeline)
	if !pipelineClient.IsConfigured() {
		log.Info("pipeline API key not set, serving mock results")
	}

	// Receipt archive is optional
	var archive client.ReceiptArchive
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2, err := client.NewR2Archive(&cfg.R2)
		if err != nil {
			log.Warn("receipt archive not initialized", "error", err)
		} else {
			archive = r2
		}
	} else {
		log.Info("R2 storage not configured, receipts are not archived")
	}

	// JWKS verifier is optional; HMAC tokens remain accepted
	var verifier auth.TokenVerifier
	if cfg.OIDC.Issuer != "" {
		jwks, err := auth.NewJWKSVerifier(ctx, &cfg.OIDC)
		if err != nil {
			log.Warn("JWKS verifier not initialized", "issuer", cfg.OIDC.Issuer, "error", err)
		} else {
			defer jwks.Close()
			verifier = jwks
		}
	}

	app := server.New(server.Deps{
		Config:   cfg,
		Store:    st,
		Pipeline: pipelineClient,
		Archive:  archive,
		Verifier: verifier,
		Redis:    limiterRedis,
		Hub:      hub,
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down server")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("server shutdown error", "error", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Info("server starting", "addr", addr, "env", cfg.Server.Env)
	if err := app.Listen(addr); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
