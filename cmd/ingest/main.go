package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/database"
	"github.com/alexivanou/citybrowser/internal/ingest"
	"github.com/alexivanou/citybrowser/internal/model"
	"github.com/alexivanou/citybrowser/internal/repository"
	"go.uber.org/zap"
)

func main() {
	var (
		force  = flag.Bool("force", false, "Clear the store and load the dataset again")
		source = flag.String("source", "", "Dataset URL or .json/.zip path (overrides INGEST_SOURCE)")
	)
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}
	if *source != "" {
		cfg.Ingest.Source = *source
	}

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
	pipeline := ingest.NewPipeline(repo, ingest.NewSource(cfg.Ingest), cfg.Ingest, logger, nil)

	report := func(p model.Progress) {
		fmt.Fprintf(os.Stderr, "\r%-60s", p.Description())
		if p.IsTerminal() {
			fmt.Fprintln(os.Stderr)
		}
	}

	logger.Info("Starting data import...", zap.String("source", cfg.Ingest.Source), zap.Bool("force", *force))
	if *force {
		err = pipeline.Reload(ctx, report)
	} else {
		err = pipeline.Prepare(ctx, report)
	}
	if err != nil {
		logger.Fatal("Failed to import data", zap.Error(err))
	}

	count, err := repo.TotalCount(ctx)
	if err != nil {
		logger.Fatal("Failed to count cities", zap.Error(err))
	}
	logger.Info("Data import completed successfully!", zap.Int("cities", count))
}
