package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexivanou/citybrowser/internal/api"
	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/database"
	"github.com/alexivanou/citybrowser/internal/events"
	"github.com/alexivanou/citybrowser/internal/ingest"
	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/alexivanou/citybrowser/internal/repository"
	"github.com/alexivanou/citybrowser/internal/service"
	"github.com/alexivanou/citybrowser/internal/stats"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}
	logger.Info("Connected to database", zap.String("type", string(cfg.DB.Type)))

	if err := database.Migrate(db, cfg.DB); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repo := repository.NewCityRepository(db, cfg.DB.Type)
	svc := service.NewService(repo, logger)

	broker := events.NewBroker()
	pipeline := ingest.NewPipeline(repo, ingest.NewSource(cfg.Ingest), cfg.Ingest, logger, broker)
	go logProgress(ctx, broker, logger)

	// The server answers while the first load runs; searches see the
	// chunks committed so far and POST /api/v1/ingestion retries a failure.
	pipeline.Start(ctx)

	statsCollector := stats.NewCollector(db, cfg.DB)
	router := api.NewRouter(svc, pipeline, statsCollector, cfg.Search, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited")
}

func logProgress(ctx context.Context, broker *events.Broker, logger *zap.Logger) {
	sub := broker.Subscribe(ingest.TopicProgress)
	defer broker.Unsubscribe(ingest.TopicProgress, sub)

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-sub:
			if p, ok := ev.Data.(model.Progress); ok {
				logger.Info("Ingestion progress",
					zap.String("state", string(p.State)),
					zap.String("description", p.Description()),
				)
			}
		}
	}
}
