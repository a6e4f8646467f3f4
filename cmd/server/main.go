package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/laundrypro/server/internal/api"
	"github.com/laundrypro/server/internal/app"
	"github.com/laundrypro/server/internal/cache"
	"github.com/laundrypro/server/internal/database"
	"github.com/laundrypro/server/internal/handlers"
	"github.com/laundrypro/server/internal/middleware"
	"github.com/laundrypro/server/internal/models"
	"github.com/laundrypro/server/internal/queue"
	"github.com/laundrypro/server/internal/scheduler"
	"github.com/laundrypro/server/internal/services"
	"github.com/laundrypro/server/internal/whatsapp"
	"github.com/laundrypro/server/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("laundrypro-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	var configPath string
	fs.StringVar(&configPath, "config", "", "Path to configuration directory or file")

	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadApplicationConfig(configPath)
	if err != nil {
		return err
	}

	if err := app.ConfigureLogging(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("configure logging: %w", err)
	}
	defer logger.Sync() // best effort

	log := logger.WithModule("bootstrap")

	db, err := initialiseDatabase(cfg)
	if err != nil {
		return err
	}
	defer closeDatabase(db, log)

	dbStore := cache.NewDatabaseStore(db)

	var redisClient cache.Store
	if cfg.Cache.Redis.Enabled {
		client, redisErr := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
		if redisErr != nil {
			log.Warn("redis unavailable; falling back to database-backed operations", zap.Error(redisErr))
		} else {
			redisClient = client
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
		}
	}

	defer func() {
		if rc, ok := redisClient.(*cache.RedisClient); ok && rc != nil {
			_ = rc.Close()
		}
	}()

	channel := whatsapp.NewClient(cfg.WhatsApp.ChannelClientConfig())
	if !channel.Enabled() {
		log.Warn("whatsapp channel disabled; sends will be recorded as failed")
	}

	notificationSvc, err := services.NewNotificationService(db, channel,
		services.WithBulkDelay(cfg.Notifications.BulkDelay))
	if err != nil {
		return fmt.Errorf("initialise notification service: %w", err)
	}
	webhookSvc, err := services.NewWebhookService(db)
	if err != nil {
		return fmt.Errorf("initialise webhook service: %w", err)
	}

	tasks := queue.NewMemory(queueHandlers(notificationSvc),
		queue.WithWorkers(cfg.Queue.Workers),
		queue.WithBuffer(cfg.Queue.Buffer))
	defer func() {
		if err := tasks.Close(); err != nil {
			log.Warn("queue shutdown failed", zap.Error(err))
		}
	}()

	runner := scheduler.New(notificationSvc, webhookSvc,
		scheduler.WithMaxRetries(cfg.Notifications.MaxRetries),
		scheduler.WithRetentionDays(cfg.Notifications.RetentionDays),
		scheduler.WithWebhookRetentionDays(cfg.Notifications.WebhookRetentionDays),
		scheduler.WithDispatchSchedule(cfg.Notifications.DispatchSchedule),
		scheduler.WithRetrySchedule(cfg.Notifications.RetrySchedule),
		scheduler.WithCleanupSchedule(cfg.Notifications.CleanupSchedule))
	if err := runner.Start(); err != nil {
		return fmt.Errorf("start background jobs: %w", err)
	}
	defer runner.Stop()

	var rateStore middleware.RateStore
	switch {
	case redisClient != nil:
		rateStore = middleware.NewCacheRateStore(redisClient)
	case dbStore != nil:
		rateStore = middleware.NewCacheRateStore(dbStore)
	}

	router, _, err := api.NewRouter(db, channel, channel, tasks, rateStore)
	if err != nil {
		return fmt.Errorf("build api router: %w", err)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// queueHandlers maps task operations onto notification service calls for
// asynchronous submissions.
func queueHandlers(svc *services.NotificationService) map[string]queue.Handler {
	return map[string]queue.Handler{
		handlers.OpSendBulk: func(ctx context.Context, payload json.RawMessage) error {
			var req handlers.BulkRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("decode bulk task: %w", err)
			}
			_, err := svc.SendBulk(ctx, services.BulkNotificationInput{
				CustomerIDs:        req.CustomerIDs,
				Type:               models.NotificationType(req.NotificationType),
				TemplateName:       req.TemplateName,
				TemplateParameters: req.TemplateParameters,
				CustomMessage:      req.CustomMessage,
			})
			return err
		},
		handlers.OpOrderTrigger: func(ctx context.Context, payload json.RawMessage) error {
			var req handlers.OrderTriggerRequest
			if err := json.Unmarshal(payload, &req); err != nil {
				return fmt.Errorf("decode order trigger task: %w", err)
			}
			_, err := svc.SendOrderNotification(ctx, req.OrderID, services.OrderEvent(req.Event))
			return err
		},
	}
}

func loadApplicationConfig(path string) (*app.Config, error) {
	switch {
	case strings.TrimSpace(path) == "":
		return app.LoadConfig()
	default:
		info, err := os.Stat(path)
		if err == nil {
			if info.IsDir() {
				return app.LoadConfig(path)
			}
			return app.LoadConfig(filepath.Dir(path))
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config path %q does not exist", path)
		}
		return nil, fmt.Errorf("stat config path: %w", err)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.DatabaseConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("database handle unavailable on shutdown", zap.Error(err))
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("database close failed", zap.Error(err))
	}
}
