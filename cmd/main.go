package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"webstarter-backend/internal/config"
	"webstarter-backend/internal/handler"
	"webstarter-backend/internal/middleware"
	"webstarter-backend/internal/model"
	"webstarter-backend/internal/service"
	"webstarter-backend/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

type handlers struct {
	ai       *handler.AIHandler
	email    *handler.EmailHandler
	unsplash *handler.UnsplashHandler
}

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./configs/config.yaml", "path to the config file")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	chatModel, err := model.NewChatModel(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("Failed to create chat model: %v", err)
	}

	h := handlers{
		ai:       handler.NewAIHandler(service.NewChatService(chatModel)),
		email:    handler.NewEmailHandler(service.NewEmailService(cfg.Email, cfg.App)),
		unsplash: handler.NewUnsplashHandler(service.NewPhotoService(cfg.Unsplash)),
	}

	gin.SetMode(gin.ReleaseMode)
	router := setupRouter(cfg, h)

	server := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		logger.Infof("Server listening on port %d (provider %s)", cfg.Server.Port, cfg.Upstream.Provider)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Graceful shutdown failed: %v", err)
		_ = server.Close()
	}
	logger.Info("Server stopped")
}

func setupRouter(cfg *config.Config, h handlers) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	if cfg.Metrics.Enabled {
		router.Use(middleware.Metrics())
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    cfg.CORS.ExposedHeaders,
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           time.Duration(cfg.CORS.MaxAge) * time.Second,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})
	if cfg.Metrics.Enabled {
		router.GET(cfg.Metrics.Path, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst))
	}
	{
		ai := api.Group("/ai")
		if cfg.Auth.Enabled {
			ai.Use(middleware.Auth(cfg.Auth.JWTSecret))
		}
		ai.POST("", h.ai.Chat)
		ai.GET("/models", h.ai.ListModels)
		ai.GET("/models/*id", h.ai.GetModel)

		api.POST("/email", h.email.Send)
		api.GET("/unsplash", h.unsplash.Photos)
	}

	return router
}
