package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"cinedex/api"
	"cinedex/config"
	"cinedex/handlers"
	"cinedex/internal/database"
	"cinedex/internal/transport"
	"cinedex/services/artwork"
	"cinedex/services/catalog"
	"cinedex/services/imdb"
	"cinedex/services/rescache"
	"cinedex/services/trakt"
	"cinedex/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging)

	db, err := database.NewDB(database.Config{DatabasePath: cfg.Database.Path})
	if err != nil {
		slog.Error("failed to open database", "path", cfg.Database.Path, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	httpc := transport.NewClient(30 * time.Second)
	engine := catalog.NewService(
		trakt.NewClient(cfg.Trakt.ClientID, cfg.Trakt.AccessToken, httpc),
		artwork.NewResolver(cfg.Fanart.APIKey, cfg.Fanart.ClientKey, cfg.TMDB.APIKey, httpc),
		imdb.NewScraper(cfg.IMDB.UserID, httpc),
		database.NewMetacacheRepository(db.Connection()),
		rescache.New(database.NewRescacheRepository(db.Connection())),
		cfg.Catalog.Language,
		cfg.UserKey(),
	)

	router := utils.NewRouter()
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.RateLimitMiddleware(api.NewIPRateLimiter(rate.Every(100*time.Millisecond), 30)))
	handlers.NewCatalogHandler(engine, database.NewSearchRepository(db.Connection())).Register(apiRouter)

	srv := &http.Server{
		Addr:              cfg.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("listening", "addr", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown failed", "error", err)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
		})
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
