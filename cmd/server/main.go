package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/rpattn/iblockql/internal/api"
	"github.com/rpattn/iblockql/internal/auth"
	"github.com/rpattn/iblockql/internal/config"
	"github.com/rpattn/iblockql/internal/db"
	"github.com/rpattn/iblockql/internal/elements"
	"github.com/rpattn/iblockql/internal/logging"
	"github.com/rpattn/iblockql/internal/middleware"
	"github.com/rpattn/iblockql/internal/repository"
)

func main() {
	configPath := flag.String("config", ".", "directory containing config.yaml")
	scriptsDir := flag.String("scripts", "", "directory of .sql scripts to run before serving (mysql and sqlite only)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup database connection
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}
	defer conn.Close()

	if *scriptsDir != "" {
		if conn.SQL == nil {
			logger.Fatal("scripts are only supported for mysql and sqlite", zap.String("driver", conn.Driver))
		}
		if err := db.RunScripts(ctx, conn.SQL, os.DirFS(*scriptsDir), "."); err != nil {
			logger.Fatal("failed to run scripts", zap.Error(err))
		}
		logger.Info("scripts executed", zap.String("dir", *scriptsDir))
	}

	schema, err := repository.SchemaByName(cfg.Database.Schema)
	if err != nil {
		logger.Fatal("invalid store schema", zap.Error(err))
	}

	var store repository.ElementStore
	if conn.Pool != nil {
		store = repository.NewPostgresStore(conn.Pool, schema)
	} else {
		store = repository.NewSQLStore(conn.SQL, schema)
	}

	service := elements.NewStoreService(store, logger.Named("elements"), elements.Options{
		TranslateMultiEnums: cfg.Elements.TranslateMultiEnums,
		FieldPolicy:         elements.DefaultFieldPolicy(),
	})

	handler := api.NewHTTPHandler(service, store, logger.Named("api"), cfg.Server.LoaderWait)

	// Setup CORS
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
	})

	root := middleware.LoggingMiddleware(logger.Named("http"))(
		auth.ScopeMiddleware(
			middleware.DataLoaderMiddleware(service, cfg.Server.LoaderWait)(handler),
		),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      corsHandler.Handler(root),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("starting element server",
			zap.String("addr", cfg.Server.Addr),
			zap.String("driver", conn.Driver),
			zap.String("schema", cfg.Database.Schema),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
