package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"moviefind/internal/config"
	"moviefind/internal/controller"
	"moviefind/internal/detail"
	"moviefind/internal/handler"
	"moviefind/internal/middleware"
	"moviefind/internal/repository"
	"moviefind/internal/service"
	"moviefind/internal/session"
	"moviefind/pkg/httpclient"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

func main() {
	// Setup logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	log.Info().
		Str("port", cfg.Port).
		Str("mode", cfg.GinMode).
		Dur("debounce", cfg.Search.Debounce).
		Msg("🚀 Starting moviefind")

	gin.SetMode(cfg.GinMode)

	// HTTP client shared by every TMDB request
	httpClient := httpclient.NewClient(
		httpclient.WithTimeout(cfg.TMDB.Timeout),
		httpclient.WithLimiter(rate.NewLimiter(rate.Every(cfg.TMDB.RateInterval), cfg.TMDB.RateBurst)),
	)

	tmdbService := service.NewTMDBService(httpClient, cfg.TMDB.APIKeys, cfg.TMDB.BaseURL, cfg.TMDB.ImageBase)
	if tmdbService.IsConfigured() {
		log.Info().Int("keys", tmdbService.KeyCount()).Msg("🎬 TMDB service enabled (轮询模式)")
	} else {
		log.Warn().Msg("⚠️  TMDB_API_KEY 未配置，所有列表请求将失败")
	}

	// Redis is optional: genre cache and metrics
	var (
		genreCache service.Cache
		metrics    *repository.Metrics
	)
	if cfg.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		client, err := repository.Connect(ctx, cfg.RedisURL)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer client.Close()

		genreCache = repository.NewCache(client, "moviefind:cache:", cfg.GenreCacheTTL)
		metrics = repository.NewMetrics(client)
		metrics.RecordServerStart(context.Background())
		tmdbService.SetRecorder(metrics)
		log.Info().Msg("📊 Metrics enabled")
	} else {
		log.Info().Msg("REDIS_URL 未配置，缓存与统计已关闭")
	}

	genres := service.NewGenreCatalog(tmdbService, genreCache, cfg.GenreCacheTTL)
	if tmdbService.IsConfigured() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.TMDB.Timeout)
		_ = genres.Refresh(ctx)
		cancel()
	}

	// One query controller per browser session
	store := session.NewStore(func() *controller.Controller {
		return controller.New(tmdbService,
			controller.WithDebounce(cfg.Search.Debounce),
			controller.WithMaxPage(cfg.Search.MaxPage),
			controller.WithLogger(log.Logger),
		)
	}, cfg.Session.IdleTTL, cfg.Session.Max)
	if err := store.StartSweeper(cfg.Session.Sweep); err != nil {
		log.Fatal().Err(err).Str("spec", cfg.Session.Sweep).Msg("Invalid SESSION_SWEEP")
	}
	defer store.Close()

	sessionHandler := handler.NewSessionHandler(store, tmdbService.ImageBase(), genres)
	detailHandler := handler.NewDetailHandler(detail.NewLoader(tmdbService), tmdbService.ImageBase())
	genreHandler := handler.NewGenreHandler(genres)
	adminHandler := handler.NewAdminHandler(tmdbService, store, metrics)

	// Setup router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging())
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	api := r.Group("/api/v1")
	{
		api.GET("/status", adminHandler.GetStatus)
		api.GET("/genres", genreHandler.GetGenres)
		api.GET("/movies/:id", detailHandler.GetDetail)

		api.POST("/sessions", sessionHandler.Create)
		api.GET("/sessions/:id", sessionHandler.Get)
		api.PUT("/sessions/:id/search", sessionHandler.SetSearch)
		api.POST("/sessions/:id/page", sessionHandler.Paginate)
		api.POST("/sessions/:id/refresh", sessionHandler.Refresh)
		api.DELETE("/sessions/:id", sessionHandler.Delete)
	}

	// Admin routes - 需要认证（如果配置了 ADMIN_API_KEY）
	admin := r.Group("/api/v1")
	admin.Use(middleware.AdminAuth(cfg.AdminAPIKey))
	{
		admin.GET("/analytics", adminHandler.GetAnalytics)
		admin.GET("/analytics/endpoint", adminHandler.GetEndpointStats)
		admin.DELETE("/analytics", adminHandler.ResetAnalytics)
		admin.POST("/genres/refresh", genreHandler.RefreshGenres)
	}

	if cfg.AdminAPIKey != "" {
		log.Info().Msg("🔐 Admin API 认证已启用")
	} else {
		log.Warn().Msg("⚠️  Admin API 未配置认证，管理接口对外开放")
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("🌐 Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("👋 Server exited")
}
