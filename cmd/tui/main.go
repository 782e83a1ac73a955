package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"moviefind/internal/config"
	"moviefind/internal/controller"
	"moviefind/internal/detail"
	"moviefind/internal/model"
	"moviefind/internal/service"
	"moviefind/internal/tui"
	"moviefind/pkg/httpclient"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	if !cfg.HasTMDB() {
		fmt.Fprintln(os.Stderr, "TMDB_API_KEY is not set; every request will fail")
	}

	// The terminal belongs to the UI, so logs go to a file.
	logPath := filepath.Join(os.TempDir(), "moviefind-tui.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Logger = zerolog.Nop()
	} else {
		defer logFile.Close()
		log.Logger = zerolog.New(logFile).With().Timestamp().Logger()
	}

	httpClient := httpclient.NewClient(
		httpclient.WithTimeout(cfg.TMDB.Timeout),
		httpclient.WithLimiter(rate.NewLimiter(rate.Every(cfg.TMDB.RateInterval), cfg.TMDB.RateBurst)),
	)
	tmdbService := service.NewTMDBService(httpClient, cfg.TMDB.APIKeys, cfg.TMDB.BaseURL, cfg.TMDB.ImageBase)

	genres := service.NewGenreCatalog(tmdbService, nil, cfg.GenreCacheTTL)
	if tmdbService.IsConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = genres.Refresh(ctx)
		cancel()
	}

	var program *tea.Program
	ctrl := controller.New(tmdbService,
		controller.WithDebounce(cfg.Search.Debounce),
		controller.WithMaxPage(cfg.Search.MaxPage),
		controller.WithLogger(log.Logger),
		controller.WithOnChange(func(st model.QueryState) {
			program.Send(tui.StateMsg(st))
		}),
	)
	defer ctrl.Close()

	app := tui.New(ctrl, detail.NewLoader(tmdbService), tmdbService.ImageBase(), genres)
	program = tea.NewProgram(app, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "error running program:", err)
		os.Exit(1)
	}
}
