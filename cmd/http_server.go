package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kalungi/estate-management/internal"
	"github.com/kalungi/estate-management/internal/auth"
	authpostgres "github.com/kalungi/estate-management/internal/auth/postgres"
	"github.com/kalungi/estate-management/internal/core/events"
	"github.com/kalungi/estate-management/internal/gateway"
	"github.com/kalungi/estate-management/internal/listing"
	listingpostgres "github.com/kalungi/estate-management/internal/listing/postgres"
	"github.com/kalungi/estate-management/internal/notification"
	notificationpostgres "github.com/kalungi/estate-management/internal/notification/postgres"
	"github.com/kalungi/estate-management/internal/payment"
	paymentpostgres "github.com/kalungi/estate-management/internal/payment/postgres"
	"github.com/kalungi/estate-management/internal/reservation"
	reservationpostgres "github.com/kalungi/estate-management/internal/reservation/postgres"
	"github.com/kalungi/estate-management/internal/transport"
	"github.com/kalungi/estate-management/internal/transport/rest"
	"github.com/kalungi/estate-management/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config     *internal.Config
	DB         *sqlx.DB
	Router     *chi.Mux
	Dispatcher *notification.Dispatcher
	Logger     *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           deps.Router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.Logger.Error("server shutdown error", "error", err)
		}
		deps.Dispatcher.Shutdown()
		if err := deps.DB.Close(); err != nil {
			deps.Logger.Error("database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.Logger.Info("server stopped")
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"), config.Observability.Logging.Level)
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	eventBus := events.NewEventBus(log)

	// repositories
	authRepo := authpostgres.NewAuthRepository(gormDB)
	listingRepo := listingpostgres.NewListingRepository(gormDB)
	reservationRepo := reservationpostgres.NewReservationRepository(gormDB)
	paymentRepo := paymentpostgres.NewPaymentRepository(gormDB)
	notificationRepo := notificationpostgres.NewNotificationRepository(gormDB)

	// gateways
	flutterwave := gateway.NewFlutterwaveClient(config.Gateways.Flutterwave, config.Gateways.InitTimeout, log)
	paypal := gateway.NewPayPalClient(config.Gateways.PayPal, config.Gateways.InitTimeout, log)
	registry := gateway.NewRegistry(flutterwave, paypal)

	// email fan-out for payment events
	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		MaxWorkers:   config.Notifier.MaxWorkers,
		JobQueueSize: config.Notifier.JobQueueSize,
	}, &notification.LogEmailSender{Logger: log}, authRepo, log)
	dispatcher.RegisterHandlers(eventBus)

	// services
	tokenGen := auth.NewJWTTokenGenerator(
		config.Security.SessionSecret,
		config.Security.AccessTokenDuration,
		config.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(authRepo, tokenGen, config.Security.BCryptCost)
	listingService := listing.NewService(listingRepo, log)
	feePolicy := reservation.NewFeePolicy(config.Fees)
	reservationService := reservation.NewService(reservationRepo, listingRepo, feePolicy, eventBus, log)
	paymentService := payment.NewService(
		paymentRepo,
		paymentRepo,
		reservationRepo,
		authRepo,
		registry,
		eventBus,
		config.Gateways.InitTimeout,
		log,
	)
	notificationService := notification.NewService(notificationRepo, log)

	// handlers
	baseHandler := transport.NewBaseHandler(log)
	authHandler := auth.NewHandler(baseHandler, authService, log)
	listingHandler := listing.NewHandler(baseHandler, listingService, log)
	reservationHandler := reservation.NewHandler(baseHandler, reservationService, log)
	paymentHandler := payment.NewHandler(baseHandler, paymentService, log)
	webhookHandler := payment.NewWebhookHandler(baseHandler, paymentService, log)
	notificationHandler := notification.NewHandler(baseHandler, notificationService, log)

	router := chi.NewRouter()
	rest.RegisterAllRoutes(
		router,
		db.DB,
		config.Server.AllowedOrigins,
		authHandler,
		listingHandler,
		reservationHandler,
		paymentHandler,
		webhookHandler,
		notificationHandler,
		log,
	)

	return &Dependencies{
		Config:     config,
		Logger:     log,
		DB:         db,
		Router:     router,
		Dispatcher: dispatcher,
	}, nil
}

// initDB opens the pgx-backed connection pool
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
