package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"elearning-backend/internal/client"
	"elearning-backend/internal/config"
	"elearning-backend/internal/logger"
	"elearning-backend/internal/model"
	"elearning-backend/internal/repository"
	"elearning-backend/internal/server"
	"elearning-backend/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	db, err := client.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}

	cache, err := client.NewCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer cache.Close()

	var gateway client.PaymentGateway
	switch cfg.Payment.Provider {
	case "paypal":
		gateway = client.NewPaypalGateway(&cfg.Paypal)
	default:
		gateway = client.NewStripeGateway(&cfg.Stripe, nil)
	}

	var mailer client.Mailer = client.NopMailer{}
	if cfg.SMTP.Host != "" {
		mailer, err = client.NewMailer(&cfg.SMTP)
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}
	} else {
		log.Warn("SMTP_HOST not set, confirmation emails are disabled")
	}

	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	webhookEventRepo := repository.NewWebhookEventRepository(db)

	if cfg.Environment.IsDevelopment() {
		if err := seedDevelopmentData(context.Background(), userRepo, courseRepo); err != nil {
			log.Warn("seed development data", zap.Error(err))
		}
	}

	notificationService := service.NewNotificationService(
		notificationRepo,
		mailer,
		log.With(zap.String("component", "notification")),
	)
	userService := service.NewUserService(
		userRepo,
		cache,
		cfg.Redis.TTL,
		log.With(zap.String("component", "user")),
	)
	orderService := service.NewOrderService(
		db,
		gateway,
		cache,
		orderRepo,
		userRepo,
		courseRepo,
		webhookEventRepo,
		notificationService,
		service.OrderSettings{
			Currency:       cfg.Payment.Currency,
			PublishableKey: cfg.Stripe.PublishableKey,
			CacheTTL:       cfg.Redis.TTL,
		},
		log.With(zap.String("component", "order")),
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(
		orderService,
		userService,
		notificationService,
		cfg.Auth.AccessTokenSecret,
		log.With(zap.String("component", "http")),
	)

	errCh := make(chan error, 1)
	log.Info("starting HTTP server",
		zap.String("addr", serverAddr),
		zap.String("payment_provider", cfg.Payment.Provider),
		zap.String("database", cfg.Database.Driver))
	go func() {
		if err := srv.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigChan:
		log.Info("signal received, starting graceful shutdown", zap.String("signal", sig.String()))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}

	// let queued confirmation emails go out before exiting
	notificationService.Wait()

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return nil
}

// Fixed ids so local tokens can be minted against a fresh database.
const (
	demoUserID   = "00000000-0000-4000-8000-000000000001"
	demoAdminID  = "00000000-0000-4000-8000-000000000002"
	demoCourseID = "00000000-0000-4000-8000-000000000101"
)

func seedDevelopmentData(ctx context.Context, userRepo repository.UserRepository, courseRepo repository.CourseRepository) error {
	users := []*model.User{
		{ID: demoUserID, Name: "Demo Student", Email: "student@example.com", Role: model.RoleUser, IsVerified: true},
		{ID: demoAdminID, Name: "Demo Admin", Email: "admin@example.com", Role: model.RoleAdmin, IsVerified: true},
	}
	if err := userRepo.Seed(ctx, users); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	courses := []*model.Course{
		{
			ID:             demoCourseID,
			Name:           "Go Concurrency in Practice",
			Description:    "Goroutines, channels and the patterns that hold them together.",
			Price:          decimal.RequireFromString("1499.00"),
			EstimatedPrice: decimal.RequireFromString("2999.00"),
		},
	}
	if err := courseRepo.Seed(ctx, courses); err != nil {
		return fmt.Errorf("seed courses: %w", err)
	}
	return nil
}
