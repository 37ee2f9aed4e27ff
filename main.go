package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/scrapify/scrapify-backend/database"
	"github.com/scrapify/scrapify-backend/internal/config"
	"github.com/scrapify/scrapify-backend/internal/eventbus"
	"github.com/scrapify/scrapify-backend/internal/handlers"
	"github.com/scrapify/scrapify-backend/internal/jobs"
	"github.com/scrapify/scrapify-backend/internal/logging"
	"github.com/scrapify/scrapify-backend/internal/routes"
	"github.com/scrapify/scrapify-backend/internal/services"
	"github.com/scrapify/scrapify-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	loaded := config.LoadDotEnv()
	cfg, warnings := config.Load()

	bus := eventbus.New(cfg.Debug.LogCapacity)
	defer bus.Close()

	log, err := logging.New(cfg.LogLevel, !cfg.IsProduction() && cfg.Environment == "development", bus)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if len(loaded) == 0 && !cfg.IsProduction() {
		log.Warn("no .env file found - using environment variables")
	}
	for _, key := range warnings {
		log.Warn("invalid config value, using default", zap.String("key", key))
	}

	if err := run(cfg, log, bus); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, bus *eventbus.Bus) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, err := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return fmt.Errorf("JWT_SECRET is required: %w", err)
	}

	// Initialize storage
	var store storage.Store
	if cfg.UseMemoryStore {
		log.Warn("using in-memory storage (not for production!)")
		store = storage.NewMemoryStore()
	} else {
		db, err := database.Connect(cfg.Database, log)
		if err != nil {
			return err
		}
		log.Info("running database migrations")
		if err := database.Migrate(db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
		store = storage.NewDatabaseStore(db, log.Named("storage"))
	}

	mediaStore, err := services.NewMediaStore(ctx, cfg.Media)
	if err != nil {
		return fmt.Errorf("failed to initialize media storage: %w", err)
	}
	media := services.NewMediaIntake(mediaStore, cfg.Media.MaxImages, log.Named("media"))

	var mailer services.Mailer
	if cfg.Mail.Configured() {
		smtp, err := services.NewSMTPMailer(cfg.Mail)
		if err != nil {
			return err
		}
		mailer = smtp
	} else {
		log.Warn("SMTP not configured - emails will only be logged")
		mailer = services.NewLogMailer(log.Named("mail"))
	}

	var sms services.SMSSender
	if cfg.Twilio.Configured() {
		twilioService, err := services.NewTwilioService(cfg.Twilio)
		if err != nil {
			return err
		}
		sms = twilioService
	} else {
		log.Warn("Twilio credentials not found - SMS notifications disabled")
	}

	worker := jobs.NewOutboxWorker(jobs.WorkerDeps{
		Store:        store,
		PollInterval: cfg.Outbox.PollInterval,
		MaxAttempts:  cfg.Outbox.MaxAttempts,
		BatchSize:    cfg.Outbox.BatchSize,
		Logger:       log.Named("outbox"),
	})

	addresses := services.NewAddressService(store, log.Named("address"))
	bookings := services.NewBookingService(services.BookingServiceDeps{
		Store:     store,
		Addresses: addresses,
		Media:     media,
		Kicker:    worker,
		Logger:    log.Named("booking"),
	})
	notifier := services.NewNotifier(services.NotifierDeps{
		Store:       store,
		Media:       media,
		Mailer:      mailer,
		SMS:         sms,
		OpsEmail:    cfg.Mail.OpsEmail,
		LinkBaseURL: cfg.PublicBaseURL + cfg.APIPrefix,
		LinkSecret:  cfg.AdminLinkSecret,
		Logger:      log.Named("notify"),
	})
	machine := services.NewStatusMachine(services.StatusMachineDeps{
		Store:      store,
		Kicker:     worker,
		SMSEnabled: notifier.SMSEnabled(),
		Logger:     log.Named("status"),
	})
	auth := services.NewAuthService(store, tokens, addresses, log.Named("auth"))
	otps := services.NewOTPService(store, mailer, cfg.Auth.OTPTTL, log.Named("otp"))

	if cfg.AdminLinkSecret == "" {
		log.Warn("ADMIN_LINK_SECRET is empty - admin action links are unsigned")
	}

	jobs.RegisterBookingHandlers(worker, bookings, notifier)

	app := fiber.New(fiber.Config{
		AppName:      "Scrapify Backend v" + version,
		BodyLimit:    (cfg.Media.MaxImages + 1) * 10 * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(log),
	})

	// Middleware
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	var debug *handlers.DebugHandler
	if cfg.Debug.Endpoints {
		debug = handlers.NewDebugHandler(bus)
	}

	routes.SetupRoutes(app, routes.Handlers{
		Auth:    handlers.NewAuthHandler(auth, otps, log),
		Profile: handlers.NewProfileHandler(auth, media, log),
		Address: handlers.NewAddressHandler(addresses, log),
		Booking: handlers.NewBookingHandler(bookings, log),
		Admin:   handlers.NewAdminHandler(machine, log),
		Uploads: handlers.NewUploadsHandler(media, log),
		Health: handlers.NewHealthHandler(version, store, map[string]bool{
			"email": cfg.Mail.Configured(),
			"sms":   sms != nil,
		}),
		Debug:      debug,
		Tokens:     tokens,
		Prefix:     cfg.APIPrefix,
		LinkSecret: cfg.AdminLinkSecret,
		Version:    version,
	})

	worker.Start(ctx)

	log.Info("Scrapify backend starting",
		zap.String("port", cfg.Port),
		zap.String("environment", cfg.Environment),
		zap.Bool("memory_store", cfg.UseMemoryStore),
		zap.String("media", cfg.Media.Driver),
		zap.String("api_prefix", cfg.APIPrefix))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("gracefully shutting down")
		worker.Stop()
		return app.ShutdownWithTimeout(10 * time.Second)
	})
	return g.Wait()
}
