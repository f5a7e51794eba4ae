package main

import (
	"github.com/gin-gonic/gin"

	"urlalias/pkg/urlalias/auth"
	"urlalias/pkg/urlalias/config"
	"urlalias/pkg/urlalias/database"
	"urlalias/pkg/urlalias/logger"
	"urlalias/pkg/urlalias/models"
	"urlalias/pkg/urlalias/redirect"
	"urlalias/pkg/urlalias/stats"
	"urlalias/pkg/urlalias/sweeper"
	"urlalias/pkg/urlalias/urls"
)

func main() {
	cfg := config.Load()
	log := logger.New()

	db, err := database.Connect(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if err := models.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	log.Info().Msg("database migrations completed")

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenExpireMinutes, cfg.RefreshTokenExpireMinutes)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logger.Middleware(log), gin.Recovery())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API routes
	api := r.Group("/api/v1")
	{
		// Auth and user routes (register/token public, rest protected inside)
		authHandler := auth.NewHandler(db, tokens)
		authHandler.RegisterRoutes(api)

		authRequired := auth.Middleware(db, tokens)
		protected := api.Group("", authRequired)

		// Stats route first: it shares the /urls prefix
		statsHandler := stats.NewHandler(db)
		statsHandler.RegisterRoutes(protected)

		urlsHandler := urls.NewHandler(db, cfg.DefaultAliasExpireMinutes, log)
		urlsHandler.RegisterRoutes(protected)
	}

	// Retention sweeper, stopped on exit
	sw := sweeper.New(db, cfg.SweepInterval, log)
	sw.Start()
	defer sw.Stop()

	// Redirect routes (public, must be registered LAST to avoid conflicts)
	redirectHandler := redirect.NewHandler(db, log)
	redirectHandler.RegisterRoutes(r)

	log.Info().Str("port", cfg.Port).Msg("starting urlalias server")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}
