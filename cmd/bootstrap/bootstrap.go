package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-clinic-queue/config"
	deliveryHttp "go-clinic-queue/internal/delivery/http"
	"go-clinic-queue/internal/delivery/http/handler"
	"go-clinic-queue/internal/delivery/http/middleware"
	"go-clinic-queue/internal/infrastructure/cache"
	"go-clinic-queue/internal/infrastructure/database"
	"go-clinic-queue/internal/infrastructure/metrics"
	"go-clinic-queue/internal/repository"
	"go-clinic-queue/internal/service"
	"go-clinic-queue/internal/usecase"
	"go-clinic-queue/pkg/jwt"
	"go-clinic-queue/pkg/validator"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config      *config.Config
	DB          *gorm.DB
	RedisClient *redis.Client
	Locker      *service.KeyedLocker
	Server      *http.Server
}

// New creates a new App instance with all dependencies initialized
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	// Initialize database
	db, err := database.NewConnection(cfg.DB, cfg.App)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Infof("Database connected successfully (%s)", cfg.DB.Driver)

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	app.initializeServer()

	return app, nil
}

// SetupLogger configures the logrus logger
func SetupLogger(cfg config.AppConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// Migrate creates or updates the schema for every entity
func Migrate(cfg *config.Config) error {
	db, err := database.NewConnection(cfg.DB, cfg.App)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}()

	if err := database.AutoMigrate(db); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	logrus.Info("Database migrated successfully")
	return nil
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer() {
	cfg := app.Config
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize metrics
	appMetrics := metrics.New()

	// Initialize repositories
	appointmentRepo := repository.NewAppointmentRepository()
	queueEntryRepo := repository.NewQueueEntryRepository()
	doctorRepo := repository.NewDoctorRepository()
	patientRepo := repository.NewPatientRepository()
	staffRepo := repository.NewStaffRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	locker := service.NewKeyedLocker(cfg.Queue.LockTimeout, log)
	locker.OnWait(appMetrics.ObserveLockWait)
	app.Locker = locker

	var sequence service.SequenceAllocator
	switch cfg.Queue.SequenceBackend {
	case config.SequenceBackendDatabase:
		sequence = service.NewDatabaseSequence(appointmentRepo)
	default:
		sequence = service.NewRedisSequence(app.RedisClient, appointmentRepo, log)
	}
	auditService := service.NewAuditService(log, auditLogRepo)

	// Initialize usecases
	deps := usecase.Dependencies{
		DB:              app.DB,
		Log:             log,
		Locker:          locker,
		Sequence:        sequence,
		Audit:           auditService,
		Metrics:         appMetrics,
		AppointmentRepo: appointmentRepo,
		QueueEntryRepo:  queueEntryRepo,
		DoctorRepo:      doctorRepo,
		PatientRepo:     patientRepo,
		StaffRepo:       staffRepo,
		Settings: usecase.Settings{
			AvgConsultationMinutes: cfg.Queue.AvgConsultationMinutes,
			OperationTimeout:       cfg.DB.OperationTimeout,
			Location:               cfg.App.Location(),
		},
	}
	appointmentUsecase := usecase.NewAppointmentUsecase(deps)
	queueUsecase := usecase.NewQueueUsecase(deps)

	// Initialize handlers
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase, customValidator)
	queueHandler := handler.NewQueueHandler(queueUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, app.RedisClient, log)
	corsMiddleware := middleware.NewCORSMiddleware()

	// Initialize router
	router := deliveryHttp.NewRouter(appointmentHandler, queueHandler, authMiddleware, corsMiddleware, appMetrics)
	httpRouter := router.Setup()

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() error {
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logrus.Infof("Server starting on port %s", app.Config.App.Port)
		logrus.Infof("Environment: %s", app.Config.App.Env)
		if err := app.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or a listener failure
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errChan:
		app.Close()
		return fmt.Errorf("failed to start server: %w", err)
	}

	logrus.Info("Shutting down server...")

	// Create shutdown context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown HTTP server gracefully
	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Close connections
	app.Close()

	logrus.Info("Server shutdown complete")
	return nil
}

// Close stops background workers and closes all connections (database, redis)
func (app *App) Close() {
	if app.Locker != nil {
		app.Locker.Stop()
	}

	// Close database connection
	if app.DB != nil {
		sqlDB, err := app.DB.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	// Close Redis connection
	if app.RedisClient != nil {
		app.RedisClient.Close()
	}
}
