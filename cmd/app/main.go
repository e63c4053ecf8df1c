package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"innata/internal/balance"
	"innata/internal/booking"
	"innata/internal/calendar"
	"innata/internal/capacity"
	"innata/internal/classes"
	"innata/internal/config"
	"innata/internal/db"
	"innata/internal/email"
	"innata/internal/entitlement"
	"innata/internal/logger"
	"innata/internal/packages"
	"innata/internal/reservation"
	"innata/internal/server"
	"innata/internal/settings"
	"innata/internal/user"
	"innata/internal/waitlist"

	"github.com/redis/go-redis/v9"
)

func main() {
	logger.Init()
	logger.Info("Starting Innata reservations")

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()
	logger.Info("Database connected")

	if err := db.RunMigrations(database, cfg.MigrationsPath); err != nil {
		logger.Fatalf("Failed to run migrations: %v", err)
	}
	logger.Info("Migrations completed")

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	emailService := email.New(email.Config{
		From:     cfg.EmailFrom,
		FromName: cfg.EmailFromName,
		SMTPHost: cfg.SMTPHost,
		SMTPPort: cfg.SMTPPort,
		SMTPUser: cfg.SMTPUser,
		SMTPPass: cfg.SMTPPass,
	}, rdb)
	defer emailService.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go emailService.Start(ctx)

	clock := calendar.SystemClock{}
	txManager := db.NewTxManager(database)

	classRepo := classes.NewRepository(database)
	packageRepo := packages.NewRepository(database)
	reservationRepo := reservation.NewRepository(database)
	ledgerRepo := balance.NewRepository(database)
	settingsRepo := settings.NewRepository(database)
	provider := settings.NewProvider(settingsRepo, cfg.SettingsCacheTTL)

	validator := entitlement.NewValidator(classRepo, packageRepo, reservationRepo, provider, clock)
	coordinator := booking.NewCoordinator(booking.Dependencies{
		Classes:      classRepo,
		Reservations: reservationRepo,
		Packages:     packageRepo,
		Ledger:       ledgerRepo,
		Users:        user.NewRepository(database),
		Capacity:     capacity.NewLedger(classRepo, reservationRepo),
		Waitlist:     waitlist.NewManager(waitlist.NewRepository(database)),
		Resolver:     entitlement.NewResolver(validator, packageRepo, reservationRepo, clock),
		Validator:    validator,
		Settings:     provider,
		Tx:           txManager,
		Notifier:     emailService,
		Clock:        clock,
	})

	srv := server.New(cfg, server.Handlers{
		Booking:  booking.NewHandler(coordinator),
		Packages: packages.NewHandler(packages.NewService(packageRepo, ledgerRepo, txManager, clock)),
		Balance:  balance.NewHandler(ledgerRepo),
		Settings: settings.NewHandler(provider, settingsRepo),
	}, database)

	go reportQueueLength(ctx, emailService)

	serverErrChan := make(chan error, 1)
	go func() {
		logger.Infof("Server starting on port %s", cfg.Port)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal: %v", sig)
	case err := <-serverErrChan:
		logger.Errorf("Server error: %v", err)
	}

	logger.Info("Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error during server shutdown: %v", err)
	}
	cancel()

	logger.Info("Server stopped")
}

func reportQueueLength(ctx context.Context, svc *email.Service) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			svc.QueueLength(ctx)
		}
	}
}
