package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/caresync/caresync/internal/config"
	"github.com/caresync/caresync/internal/domain/booking"
	"github.com/caresync/caresync/internal/domain/identity"
	"github.com/caresync/caresync/internal/domain/notification"
	"github.com/caresync/caresync/internal/domain/ordering"
	"github.com/caresync/caresync/internal/domain/pharmacy"
	"github.com/caresync/caresync/internal/domain/records"
	"github.com/caresync/caresync/internal/domain/reminders"
	"github.com/caresync/caresync/internal/platform/assistant"
	"github.com/caresync/caresync/internal/platform/auth"
	"github.com/caresync/caresync/internal/platform/blobstore"
	"github.com/caresync/caresync/internal/platform/db"
	"github.com/caresync/caresync/internal/platform/middleware"
	"github.com/caresync/caresync/internal/platform/speech"
	"github.com/caresync/caresync/internal/platform/telemetry"
	"github.com/caresync/caresync/internal/platform/ws"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "caresync-server",
		Short: "CareSync care coordination API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the CareSync API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			count, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	metrics := telemetry.NewMetrics()
	e.Use(metrics.Middleware())
	e.GET("/metrics", metrics.Handler)

	// API groups. public carries no auth; api requires a valid token.
	tokens := auth.NewTokenManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLMinutes)*time.Minute)
	public := e.Group("/api")
	api := e.Group("/api")
	api.Use(auth.Middleware(tokens))
	api.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	// Websocket hub feeds in-app notifications to connected clients.
	hub := ws.NewHub()
	ws.NewHandler(hub).RegisterRoutes(api)

	// Identity
	identitySvc := identity.NewService(identity.NewRepoPG(pool), tokens)
	identity.NewHandler(identitySvc).RegisterRoutes(public, api)

	// Notifications
	notifySvc := notification.NewService(notification.NewRepoPG(pool), hub)
	notification.NewHandler(notifySvc).RegisterRoutes(api)

	// Pharmacy inventory
	medicineRepo := pharmacy.NewRepoPG(pool)
	pharmacySvc := pharmacy.NewService(medicineRepo)
	pharmacy.NewHandler(pharmacySvc).RegisterRoutes(api)

	// Ordering
	orderingSvc := ordering.NewService(ordering.NewRepoPG(pool), medicineRepo, ordering.NewMemoryCartStore(), pool, notifySvc)
	ordering.NewHandler(orderingSvc).RegisterRoutes(api)

	// Appointments
	bookingSvc := booking.NewService(booking.NewRepoPG(pool), pool, notifySvc)
	booking.NewHandler(bookingSvc).RegisterRoutes(api)

	// Medical records. Doctors gain read access through appointment history.
	recordsSvc := records.NewService(records.NewRepoPG(pool), blobstore.NewMemoryStore(), bookingSvc)
	records.NewHandler(recordsSvc).RegisterRoutes(api)

	// Medication reminders
	remindersSvc := reminders.NewService(reminders.NewRepoPG(pool))
	reminders.NewHandler(remindersSvc).RegisterRoutes(api)

	// Assistant, enabled only when an API key is configured.
	if cfg.AssistantEnabled() {
		registry := assistant.NewRegistry()
		if err := assistant.RegisterDefaultTools(registry, assistant.Deps{
			Appointments: bookingSvc,
			Medicines:    pharmacySvc,
			Orders:       orderingSvc,
			Reminders:    remindersSvc,
		}); err != nil {
			logger.Fatal().Err(err).Msg("failed to register assistant tools")
		}
		model := assistant.NewHTTPClient(cfg.AIEndpoint, cfg.AIModel, cfg.AIAPIKey)
		assistant.NewHandler(assistant.NewService(model, registry)).RegisterRoutes(api)
		logger.Info().Str("model", cfg.AIModel).Msg("assistant enabled")
	} else {
		logger.Info().Msg("assistant disabled: AI_API_KEY not set")
	}

	// Speech, same gating as the assistant.
	if cfg.SpeechAPIKey != "" {
		client := speech.NewHTTPClient(cfg.SpeechTranscribeURL, cfg.SpeechSynthesizeURL, cfg.SpeechAPIKey)
		speech.NewHandler(client).RegisterRoutes(api)
		logger.Info().Msg("speech enabled")
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
