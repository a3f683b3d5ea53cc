package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"medcard-bot/internal/account"
	"medcard-bot/internal/appointment"
	"medcard-bot/internal/config"
	"medcard-bot/internal/examination"
	"medcard-bot/internal/labs"
	"medcard-bot/internal/menu"
	"medcard-bot/internal/nutrition"
	"medcard-bot/internal/platform/logger"
	"medcard-bot/internal/platform/postgres"
	"medcard-bot/internal/platform/telegram"
	"medcard-bot/internal/profile"
	"medcard-bot/internal/recommendation"
	"medcard-bot/internal/report"
	"medcard-bot/internal/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medcard-bot",
		Short: "Telegram health card assistant",
	}
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the bot (long polling or webhook, see BOT_MODE)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, log); err != nil {
				log.Error("bot stopped with error", zap.Error(err))
				return err
			}
			log.Info("bot stopped")
			return nil
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			return postgres.MigrateUp(cfg.MigrationsPath, cfg.DatabaseURL, log)
		},
	})

	downCmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, _ := cmd.Flags().GetInt("steps")
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			return postgres.MigrateDown(cfg.MigrationsPath, cfg.DatabaseURL, steps, log)
		},
	}
	downCmd.Flags().Int("steps", 1, "Number of migrations to roll back")
	cmd.AddCommand(downCmd)

	return cmd
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	// 1. Infrastructure
	db, err := postgres.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := postgres.MigrateUp(cfg.MigrationsPath, cfg.DatabaseURL, log); err != nil {
		return err
	}

	checks := map[string]telegram.HealthCheck{"postgres": db.PingContext}
	sessions, closeSessions, err := newSessionStore(cfg, checks)
	if err != nil {
		return err
	}
	defer closeSessions()

	files, err := newFileStore(ctx, cfg)
	if err != nil {
		return err
	}

	client, err := telegram.NewClient(cfg.TelegramToken, log)
	if err != nil {
		return err
	}

	// 2. Services
	router := telegram.NewRouter(client, sessions, log)
	registerFlows(router, db, files, report.NewRenderer(cfg.PDFFontPath), log)

	// 3. Transport
	var updates <-chan telegram.Update
	var srv *http.Server
	switch cfg.Mode {
	case config.ModeWebhook:
		wh := telegram.NewWebhook(cfg.WebhookSecret, checks, log)
		srv = &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           wh.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("http server starting", zap.String("port", cfg.Port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("http server failed", zap.Error(err))
			}
		}()
		if err := client.SetWebhook(strings.TrimRight(cfg.WebhookURL, "/") + wh.Path()); err != nil {
			return err
		}
		updates = wh.Updates()
	default:
		updates = client.Poll(ctx)
	}

	log.Info("bot started", zap.String("mode", cfg.Mode), zap.Int("workers", cfg.Workers))
	telegram.Serve(ctx, updates, cfg.Workers, router.Dispatch)

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http server shutdown failed", zap.Error(err))
		}
	}
	return nil
}

// registerFlows builds every domain service and wires its routes. The
// recommendation advisor listens to profile and lab changes.
func registerFlows(router *telegram.Router, db *sql.DB, files examination.FileStore, renderer labs.Renderer, log *zap.Logger) {
	recRepo := recommendation.NewRepository(db)
	advisor := recommendation.NewAdvisor(recRepo, log)

	profileSvc := profile.NewService(profile.NewRepository(db), log, advisor)
	labsSvc := labs.NewService(labs.NewRepository(db), renderer, log, advisor)
	apptSvc := appointment.NewService(appointment.NewRepository(db), log)
	examSvc := examination.NewService(examination.NewRepository(db), files, log)
	accountSvc := account.NewService(account.NewRepository(db), files, log)

	menu.RegisterRoutes(router)
	profile.RegisterRoutes(router, profile.NewHandler(profileSvc))
	nutrition.RegisterRoutes(router, nutrition.NewHandler(profileSvc))
	labs.RegisterRoutes(router, labs.NewHandler(labsSvc, time.Now))
	appointment.RegisterRoutes(router, appointment.NewHandler(apptSvc))
	examination.RegisterRoutes(router, examination.NewHandler(examSvc))
	recommendation.RegisterRoutes(router, recommendation.NewHandler(recRepo))
	account.RegisterRoutes(router, account.NewHandler(accountSvc))
}

// newSessionStore uses Redis when REDIS_URL is set and registers its health
// check; otherwise sessions live in memory.
func newSessionStore(cfg *config.Config, checks map[string]telegram.HealthCheck) (session.Store, func(), error) {
	if cfg.RedisURL == "" {
		return session.NewMemoryStore(), func() {}, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	checks["redis"] = func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
	return session.NewRedisStore(client, "medcard:session:", cfg.SessionTTL), func() { client.Close() }, nil
}

func newFileStore(ctx context.Context, cfg *config.Config) (examination.FileStore, error) {
	if cfg.StorageBackend != config.StorageMinio {
		store, err := examination.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}
	store, err := examination.NewMinioStore(ctx, client, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	return store, nil
}
