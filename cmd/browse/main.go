package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/alexivanou/citybrowser/internal/config"
	"github.com/alexivanou/citybrowser/internal/controller"
	"github.com/alexivanou/citybrowser/internal/database"
	"github.com/alexivanou/citybrowser/internal/ingest"
	"github.com/alexivanou/citybrowser/internal/repository"
	"github.com/alexivanou/citybrowser/internal/service"
	"go.uber.org/zap"
)

const usage = `Type to filter by "name, country" prefix. Commands:
  /fav       toggle favorites-only
  /more      load the next page
  /star ID   toggle a city's favorite flag
  /retry     retry a failed data load
  /quit      exit`

func main() {
	logger, err := zap.NewDevelopment(zap.IncreaseLevel(zap.WarnLevel))
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(ctx, cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := database.Migrate(db, cfg.DB); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	repo := repository.NewCityRepository(db, cfg.DB.Type)
	svc := service.NewService(repo, logger)
	pipeline := ingest.NewPipeline(repo, ingest.NewSource(cfg.Ingest), cfg.Ingest, logger, nil)

	ctrl := controller.NewController(svc, pipeline, cfg.Search, logger, nil)
	defer ctrl.Close()

	sub := ctrl.Subscribe()
	defer ctrl.Unsubscribe(sub)
	go func() {
		for ev := range sub {
			if state, ok := ev.Data.(controller.State); ok {
				render(os.Stdout, state)
			}
		}
	}()

	fmt.Println(usage)
	if err := ctrl.LoadInitialDataIfNeeded(ctx); err != nil {
		fmt.Println("Data load failed, type /retry to try again.")
	}

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if !handle(ctx, ctrl, line) {
				return
			}
		}
	}
}

// handle applies one input line and reports whether to keep running.
func handle(ctx context.Context, ctrl *controller.Controller, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	switch cmd {
	case "/quit", "/q":
		return false
	case "/fav":
		ctrl.SetOnlyFavorites(!ctrl.State().OnlyFavorites)
	case "/more":
		ctrl.LoadNextPage(ctx)
	case "/star":
		id, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			fmt.Println("usage: /star ID")
			return true
		}
		// Failures are reported through the state.
		_ = ctrl.ToggleFavorite(ctx, id)
	case "/retry":
		_ = ctrl.LoadInitialDataIfNeeded(ctx)
	case "/help":
		fmt.Println(usage)
	default:
		ctrl.SetSearchText(line)
	}
	return true
}

func render(w io.Writer, s controller.State) {
	if s.DataProgress.IsActive() {
		fmt.Fprintf(w, "%s (%.0f%%)\n", s.DataProgress.Description(), s.DataProgress.Fraction()*100)
		return
	}
	if s.IsLoading {
		return
	}

	filter := "all"
	if s.OnlyFavorites {
		filter = "favorites"
	}
	fmt.Fprintf(w, "\n-- %q [%s] %d shown --\n", s.SearchText, filter, len(s.Items))
	for _, c := range s.Items {
		star := " "
		if c.IsFavorite {
			star = "*"
		}
		fmt.Fprintf(w, "%s %8d  %-40s %s\n", star, c.ID, c.DisplayName(), c.CoordinatesString())
	}
	if s.HasMorePages && len(s.Items) > 0 {
		fmt.Fprintln(w, "   ... /more for next page")
	}
	if s.ErrorMessage != "" {
		fmt.Fprintf(w, "error: %s\n", s.ErrorMessage)
	}
}
