package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/redmonkez12/account-service/internal/auth"
	"github.com/redmonkez12/account-service/internal/config"
	"github.com/redmonkez12/account-service/internal/database"
	"github.com/redmonkez12/account-service/internal/email"
	httpServer "github.com/redmonkez12/account-service/internal/http"
	"github.com/redmonkez12/account-service/internal/logging"
	"github.com/redmonkez12/account-service/internal/profile"
	"github.com/redmonkez12/account-service/internal/user"
)

// @title           Account Service
// @version         1.0
// @description     User-account backend: signup, login, email verification, session tokens, and profile storage.

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	db, err := database.Connect(cfg.Database.ConnectionString())
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	// Credential store
	userRepo := user.NewRepository(db)

	// Revocation ledger. Redis entries carry a TTL and expire on their own;
	// the Postgres ledger needs periodic pruning instead.
	var ledger auth.Ledger
	switch cfg.Auth.LedgerBackend {
	case "redis":
		redisClient, err := initRedis(cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to initialize Redis: %w", err)
		}
		defer redisClient.Close()
		ledger = auth.NewRedisLedger(redisClient)
	case "postgres":
		repo := auth.NewRepository(db)
		ledger = repo
		go pruneLedger(repo, logger)
	}

	// Token codec: per-user signing keys derived from the stored password
	// hash and the server secret
	codec := auth.NewCodec(userRepo, cfg.Auth.SecretKey)

	// Notification gateway
	mailer := email.NewService(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPassword,
		cfg.Email.FrontendURL,
	)

	// Session manager
	authService := auth.NewService(
		userRepo,
		ledger,
		codec,
		mailer,
		logger,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.RefreshTokenTTL,
	)

	authHandler := auth.NewHandler(authService, logger)
	profileHandler := profile.NewHandler(userRepo)
	guard := auth.NewGuard(codec, ledger)

	router := httpServer.NewRouter(cfg, authHandler, profileHandler, guard, logger)

	server := httpServer.NewServer(
		":"+cfg.Server.Port,
		router,
		logger,
		cfg.Server.ReadTimeout,
		cfg.Server.WriteTimeout,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		logger.Info("received signal", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// pruneLedger removes expired entries from the SQL revocation ledger once an
// hour for the lifetime of the process.
func pruneLedger(repo *auth.Repository, logger *logging.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		if err := repo.PruneExpired(context.Background()); err != nil {
			logger.Error("failed to prune revocation ledger", "error", err.Error())
		}
	}
}

// initRedis initializes the Redis connection and returns a Redis client
func initRedis(cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
