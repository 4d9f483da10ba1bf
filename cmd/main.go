package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/academyhq/backend/internal/auth"
	"github.com/academyhq/backend/internal/config"
	"github.com/academyhq/backend/internal/handlers"
	"github.com/academyhq/backend/internal/logger"
	"github.com/academyhq/backend/internal/middleware"
	"github.com/academyhq/backend/internal/repositories"
	"github.com/academyhq/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"
)

// @title AcademyHQ Content Access API
// @version 1.0
// @description API for course content access, progress tracking, lesson comments and moderation

// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	logger.Logger.Info("Starting AcademyHQ backend")

	// Connect to database
	db, err := connectDB(cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	if err := runMigrations(db); err != nil {
		logger.Logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize JWT token generator (for auth middleware)
	tokenGenerator := auth.NewTokenGenerator(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)

	// Initialize repositories
	courseRepo := repositories.NewCoursesRepository(db, logger.Logger)
	lessonRepo := repositories.NewLessonsRepository(db, logger.Logger)
	progressRepo := repositories.NewCourseProgressRepository(db, logger.Logger)
	tickRepo := repositories.NewLessonProgressRepository(db, logger.Logger)
	commentRepo := repositories.NewLessonCommentsRepository(db, logger.Logger)
	replyRepo := repositories.NewLessonCommentRepliesRepository(db, logger.Logger)
	ratingRepo := repositories.NewLessonRatingsRepository(db, logger.Logger)
	userRepo := repositories.NewUsersRepository(db, logger.Logger)

	// Initialize services
	progressService := services.NewProgressService(courseRepo, lessonRepo, progressRepo, tickRepo, logger.Logger, time.Now)
	commentService := services.NewCommentService(courseRepo, lessonRepo, progressRepo, commentRepo, replyRepo, logger.Logger, time.Now)
	moderationService := services.NewModerationService(commentRepo, replyRepo, lessonRepo, courseRepo, userRepo, logger.Logger)
	ratingService := services.NewRatingService(courseRepo, lessonRepo, progressRepo, ratingRepo, time.Now)

	// Initialize middleware
	authMw := auth.Middleware(tokenGenerator)
	modMw := auth.RoleMiddleware(tokenGenerator, auth.RoleModerator)

	// Initialize handlers
	progressHandler := handlers.NewProgressHandler(progressService, logger.Logger, authMw)
	commentHandler := handlers.NewCommentHandler(commentService, logger.Logger, authMw, modMw)
	moderationHandler := handlers.NewModerationHandler(moderationService, logger.Logger, modMw, cfg.Moderation.PageSize)
	ratingHandler := handlers.NewRatingHandler(ratingService, logger.Logger, authMw)

	// Setup router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.LoggerMiddleware(logger.Logger))
	r.Use(middleware.RecoveryMiddleware(logger.Logger))
	r.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	r.Use(httprate.LimitByIP(100, time.Minute))
	r.Use(middleware.RequestSizeLimitMiddleware)

	// Swagger UI; the spec is generated with swag init before release builds
	r.Get("/swagger/*", httpSwagger.Handler())

	// Scope API routes to /api/v1
	r.Route("/api/v1", func(r chi.Router) {
		progressHandler.RegisterRoutes(r)
		commentHandler.RegisterRoutes(r)
		moderationHandler.RegisterRoutes(r)
		ratingHandler.RegisterRoutes(r)
	})

	// Start server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Logger.Info("Server starting", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Logger.Info("Server exited")
}

// connectDB connects to the database
func connectDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// runMigrations runs database migrations
func runMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Get the working directory or use migrations folder relative to the binary
	migrationPath := "file://migrations"
	if _, err := os.Stat("migrations"); os.IsNotExist(err) {
		// Try parent directory if running from cmd
		if _, err := os.Stat("../migrations"); err == nil {
			migrationPath = "file://../migrations"
		}
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
