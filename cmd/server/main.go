package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"drawing-qa-backend/internal/cache"
	"drawing-qa-backend/internal/config"
	"drawing-qa-backend/internal/database"
	"drawing-qa-backend/internal/handlers"
	"drawing-qa-backend/internal/inference"
	"drawing-qa-backend/internal/pipeline"
	"drawing-qa-backend/internal/store"
	"drawing-qa-backend/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Run migrations before opening the store; sqlite manages its own schema.
	if cfg.DatabaseDriver == "postgres" {
		migrator, err := database.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize migrator: %v", err)
		}
		if err := migrator.Run(); err != nil {
			migrator.Close()
			log.Fatalf("Migration failed: %v", err)
		}
		migrator.Close()
	}

	imageStore, err := store.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer imageStore.Close()

	inferenceClient := inference.NewClient(cfg.InferenceBaseURL, cfg.InferenceAPIKey, cfg.InferenceModel)

	var answerCache *cache.AnswerCache
	if cfg.RedisAddr != "" {
		answerCache = cache.New(cfg.RedisAddr, cfg.CacheTTL)
		defer answerCache.Close()
		slog.Info("answer cache enabled", "addr", cfg.RedisAddr, "ttl", cfg.CacheTTL)
	}

	answerPipeline := pipeline.New(imageStore, inferenceClient, answerCache)

	imagesHandler := handlers.NewImagesHandler(imageStore)
	askHandler := handlers.NewAskHandler(imageStore, answerPipeline)

	router := gin.New()
	router.Use(gin.Recovery())
	router.SetHTMLTemplate(web.Templates())

	router.GET("/health", handlers.HealthHandler)

	router.GET("/", imagesHandler.Index)
	router.POST("/", imagesHandler.Upload)
	router.GET("/image/:id", imagesHandler.Serve)
	router.GET("/ask/:id", askHandler.Show)
	router.POST("/ask/:id", askHandler.Submit)
	router.POST("/delete/:id", imagesHandler.Delete)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "driver", cfg.DatabaseDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	slog.Info("shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	// Let in-flight answer generation finish before the store closes.
	answerPipeline.Wait()
}
