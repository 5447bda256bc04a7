package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camden-git/pathclassifier/cache"
	"github.com/camden-git/pathclassifier/classifier"
	"github.com/camden-git/pathclassifier/config"
	"github.com/camden-git/pathclassifier/database"
	"github.com/camden-git/pathclassifier/handlers"
	"github.com/camden-git/pathclassifier/media"
	"github.com/camden-git/pathclassifier/metrics"
	"github.com/camden-git/pathclassifier/realtime"
	"github.com/camden-git/pathclassifier/repository"
	"github.com/camden-git/pathclassifier/services"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Info: No .env file found or error loading: %v", err)
	}

	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	var cfg config.Config

	rootCmd := &cobra.Command{
		Use:   "pathclassifier",
		Short: "Zero-shot tissue patch classification backend",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			cfg = loaded
			return nil
		},
		SilenceUsage: true,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDatabase(cfg)
			if err != nil {
				return err
			}
			return database.Close(db)
		},
	}

	rootCmd.AddCommand(serveCmd, migrateCmd, userCommand(&cfg))
	// running the binary without a subcommand starts the server
	rootCmd.RunE = serveCmd.RunE
	return rootCmd
}

// openDatabase connects and migrates so every command sees the current schema.
func openDatabase(cfg config.Config) (*gorm.DB, error) {
	db, err := database.InitGormDB(database.OptionsFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	if err := database.AutoMigrateModels(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return db, nil
}

// newPredictionCache picks redis when configured, otherwise an in-process cache. A zero TTL
// disables caching.
func newPredictionCache(ctx context.Context, cfg config.Config) (cache.PredictionCache, func(), error) {
	if cfg.PredictionCacheTTL <= 0 {
		log.Printf("Prediction cache disabled")
		return cache.Noop{}, func() {}, nil
	}
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis(ctx, cfg.RedisURL, cfg.PredictionCacheTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Prediction cache: redis (TTL %s)", cfg.PredictionCacheTTL)
		return rc, func() { _ = rc.Close() }, nil
	}
	log.Printf("Prediction cache: in-memory (TTL %s)", cfg.PredictionCacheTTL)
	return cache.NewMemory(cfg.PredictionCacheTTL), func() {}, nil
}

func serve(parent context.Context, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close(db)

	clf := classifier.NewRemoteClassifier(cfg.ClassifierURL, nil, cfg.ClassifierTimeout)
	if cfg.ClassifierEagerLoad {
		if err := clf.Load(ctx); err != nil {
			log.Fatalf("FATAL: Failed to load classification model from %s: %v", cfg.ClassifierURL, err)
		}
		info := clf.Info()
		log.Printf("Classification model %s loaded on %s", info.ModelID, info.Device)
	}

	predictionCache, closeCache, err := newPredictionCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize prediction cache: %w", err)
	}
	defer closeCache()

	m, err := metrics.New(prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("failed to register metrics: %w", err)
	}

	hub := realtime.NewHub()
	go hub.Run(ctx)

	thumbnailer := media.NewThumbnailer(cfg.ThumbnailMaxSize, cfg.ThumbnailJPEGQuality)
	submissionService := services.NewSubmissionService(db, clf, thumbnailer)
	submissionService.Cache = predictionCache
	submissionService.Metrics = m
	submissionService.Events = hub

	searchService := services.NewSearchService(db, cfg.PageSize)
	searchService.Metrics = m

	router := handlers.NewRouter(handlers.RouterDeps{
		Users:          repository.NewGormUserRepository(db),
		Images:         repository.NewImageRepository(db),
		Labels:         repository.NewLabelRepository(db),
		Submissions:    submissionService,
		Search:         searchService,
		Hub:            hub,
		JWTKey:         cfg.JWTSecret,
		JWTExpiration:  cfg.JWTExpiration,
		MaxUploadBytes: cfg.MaxUploadBytes,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RequestTimeout: cfg.ClassifierTimeout + 30*time.Second,
	})

	log.Printf("Using %s database", cfg.DatabaseDriver)
	log.Printf("Inference service: %s", cfg.ClassifierURL)
	log.Printf("Thumbnail max size (longest side): %dpx", cfg.ThumbnailMaxSize)

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.ClassifierTimeout + 60*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server listening on %s", serverAddr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Printf("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
