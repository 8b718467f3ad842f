package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bookingdesk-backend/billing"
	"bookingdesk-backend/config"
	"bookingdesk-backend/controllers"
	"bookingdesk-backend/middleware"
	"bookingdesk-backend/models"
	"bookingdesk-backend/notify"
	"bookingdesk-backend/repository"
	"bookingdesk-backend/routes"
	"bookingdesk-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	readyChecks := map[string]func(context.Context) error{}

	plans := models.DefaultPlans()
	for i := range plans {
		plans[i].StripePriceID = cfg.StripePriceFor(plans[i].Code)
	}

	var store *repository.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store; data is lost on restart")
		store = repository.NewMemoryStore()
		if err := store.Billing.SeedPlans(ctx, plans); err != nil {
			logger.Fatal("failed to seed plans", zap.Error(err))
		}
	default:
		db, err := config.ConnectDB(cfg.DBURL, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		if err := repository.Migrate(ctx, db, plans); err != nil {
			logger.Fatal("failed to migrate database", zap.Error(err))
		}
		store = repository.NewPostgresStore(db)
		readyChecks["database"] = config.PingDB(db)
	}

	var email notify.EmailSender
	if cfg.SMTPHost != "" {
		email = notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom)
	}
	var sms notify.SMSSender
	if cfg.TwilioAccountSID != "" {
		sms = notify.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	}
	notifier := notify.New(email, sms, store.Notifications, logger, cfg.PublicBaseURL)

	var billingClient billing.Client = billing.Disabled{}
	if cfg.StripeSecretKey != "" {
		billingClient = billing.NewStripeClient(cfg.StripeSecretKey, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)
	} else {
		logger.Info("stripe secret key not set; checkout disabled")
	}
	webhooks := billing.NewWebhookProcessor(store.Billing, cfg.StripeWebhookSecret, cfg.StripeWebhookTolerance, logger)

	var limiter middleware.Limiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		limiter = middleware.NewRedisRateLimiter(rdb, cfg.PublicRateLimit, time.Minute, "bookingdesk:ratelimit")
		readyChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	} else {
		limiter = middleware.NewLocalRateLimiter(cfg.PublicRateLimit)
	}

	reminders := services.NewReminderService(store.Appointments, notifier, time.Duration(cfg.ReminderLeadHours)*time.Hour, logger)
	if err := reminders.StartScheduler(cfg.ReminderCron); err != nil {
		logger.Fatal("invalid REMINDER_CRON", zap.String("spec", cfg.ReminderCron), zap.Error(err))
	}
	defer reminders.Stop()

	deps := &controllers.Deps{
		Store:        store,
		Entitlements: services.NewEntitlements(store),
		Notifier:     notifier,
		Billing:      billingClient,
		Webhooks:     webhooks,
		Logger:       logger,
		JWTSecret:    cfg.JWTSecret,
		JWTExpiry:    cfg.JWTExpiry(),
		SecureCookie: os.Getenv("GIN_MODE") == gin.ReleaseMode,
		ReadyChecks:  readyChecks,
	}

	r := routes.SetupRouter(deps, limiter, cfg.CORSOrigins, cfg.TrustedProxies, logger)
	printRoutes(r, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func printRoutes(r *gin.Engine, logger *zap.Logger) {
	for _, route := range r.Routes() {
		logger.Debug("route", zap.String("method", route.Method), zap.String("path", route.Path))
	}
}
