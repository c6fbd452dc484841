package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flatshare/backend/internal/api/handler"
	"flatshare/backend/internal/config"
	"flatshare/backend/internal/conversation"
	"flatshare/backend/internal/storage"
	"flatshare/backend/internal/storage/memory"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// setupStorage connects the configured backend and runs migrations.
func setupStorage(cfg *config.Config) (storage.Storage, func()) {
	if cfg.StorageDriver == config.DriverMemory {
		log.Warn().Msg("Using in-memory storage, data will not survive a restart")
		return memory.New(), func() {}
	}

	db, err := storage.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect PostgreSQL")
	}
	if err := storage.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		// The cache is optional; enrichment falls back to PostgreSQL.
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("Redis unavailable, user summaries will not be cached")
		_ = rdb.Close()
		rdb = nil
	}

	s := storage.NewStorageService(db, rdb)
	s.UserCacheTTL = cfg.UserCacheTTL

	log.Info().Msg("Database connection established, migrations complete")
	return s, func() {
		if rdb != nil {
			_ = rdb.Close()
		}
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Warn().Str("level", cfg.LogLevel).Msg("Unknown LOG_LEVEL, using info")
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.JWTSecret == "" {
		log.Fatal().Msg("JWT_SECRET is not set")
	}

	log.Info().Str("storage", cfg.StorageDriver).Msg("Starting flat-share messaging backend")

	s, closeStorage := setupStorage(cfg)
	defer closeStorage()

	r := gin.Default()
	h := handler.NewHandler(conversation.NewService(s))
	handler.RegisterRoutes(r, h, []byte(cfg.JWTSecret))

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Content-Length"},
		MaxAge:           300,
		AllowCredentials: true,
	})

	server := &http.Server{
		Addr:           cfg.HTTPAddr,
		Handler:        c.Handler(r),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Graceful shutdown failed")
	}
	log.Info().Msg("Server stopped")
}
