package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sitescope/sitescope/internal/backend"
	"github.com/sitescope/sitescope/internal/collab"
	"github.com/sitescope/sitescope/internal/config"
	"github.com/sitescope/sitescope/internal/handlers"
	"github.com/sitescope/sitescope/internal/logger"
	"github.com/sitescope/sitescope/internal/middleware"
	"github.com/sitescope/sitescope/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.Server.Env)
	log.Info("Starting SiteScope engine", map[string]interface{}{
		"version":     "0.1.0",
		"environment": cfg.Server.Env,
		"port":        cfg.Server.Port,
		"backend":     cfg.Backend.URL,
	})

	// Client for the project API that owns all persisted state
	client := backend.NewClient(cfg.Backend.URL, cfg.Backend.APIKey, log.WithComponent("backend"))

	// Setup Gin router
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware in order: RequestID -> Logger -> Recovery -> CORS
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS(cfg.CORS.Origins))

	// Register health check routes
	healthHandler := handlers.NewHealthHandler(client, cfg.Server.Env)
	router.GET("/health", healthHandler.Health)
	router.GET("/health/ready", healthHandler.Ready)
	router.GET("/api/v1/info", healthHandler.Info)

	// Session service owns the live scenes and their frame loops
	sessionService := services.NewSessionService(client, services.SessionTuning{
		FrameInterval: time.Duration(cfg.Scene.FrameIntervalMS) * time.Millisecond,
		ContextRadius: cfg.Scene.ContextRadiusMeters,
		CollabURL:     cfg.Collab.WSURL,
	}, log.WithComponent("session"))
	defer sessionService.Shutdown()

	// Collaboration hub for the per-project websocket rooms
	hub := collab.NewHub(log.WithComponent("collab"))

	// Initialize handlers
	sessionHandler := handlers.NewSessionHandler(sessionService)
	collabHandler := handlers.NewCollabHandler(hub)

	// Register API v1 routes
	v1 := router.Group("/api/v1")
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Create)
			sessions.GET("/:id", sessionHandler.Get)
			sessions.GET("/:id/scene", sessionHandler.Scene)
			sessions.GET("/:id/stream", sessionHandler.Stream)
			sessions.DELETE("/:id", sessionHandler.Delete)
			sessions.POST("/:id/camera", sessionHandler.Camera)
			sessions.POST("/:id/input", sessionHandler.Input)
			sessions.POST("/:id/phase", sessionHandler.Phase)
			sessions.POST("/:id/compare", sessionHandler.Compare)
			sessions.POST("/:id/compare/phase", sessionHandler.ComparePhase)
			sessions.POST("/:id/map", sessionHandler.MapSync)
			sessions.POST("/:id/measure", sessionHandler.Measure)
			sessions.POST("/:id/planner", sessionHandler.Planner)
			sessions.POST("/:id/select", sessionHandler.Select)
			sessions.POST("/:id/hover", sessionHandler.Hover)
			sessions.POST("/:id/annotations", sessionHandler.CreateAnnotation)
			sessions.POST("/:id/directives", sessionHandler.Directive)
			sessions.GET("/:id/buildings/:buildingID/model", sessionHandler.Model)
		}

		projects := v1.Group("/projects")
		{
			projects.GET("/:projectID/ws", collabHandler.Join)
			projects.GET("/:projectID/participants", collabHandler.Participants)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server listening", map[string]interface{}{
			"port": cfg.Server.Port,
			"addr": srv.Addr,
		})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", err, nil)
		}
	}()

	// Wait for interrupt signal (SIGINT or SIGTERM)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	// Graceful shutdown
	log.Info("Shutting down server...", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", err, map[string]interface{}{
			"timeout": shutdownTimeout.String(),
		})
	}

	log.Info("Server exited", nil)
}
