package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"novascp/config"
	"novascp/handlers"
	"novascp/middleware"
	"novascp/services"
	"novascp/store"
	"novascp/websocket"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// App holds the services behind the HTTP API
type App struct {
	Config    *config.Config
	Hub       websocket.Hub
	Engine    services.TransferEngine
	Registry  services.ServerRegistry
	Session   *services.Session
	Files     services.FileService
	Assistant services.AssistantGateway
	Metrics   *prometheus.Registry

	store   store.Store
	sweeper *services.RetentionSweeper
}

// NewApp initializes every service from cfg
func NewApp(cfg *config.Config) (*App, error) {
	st, err := store.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	reg := prometheus.NewRegistry()

	hub := websocket.NewHub()
	go hub.Run()

	engine := services.NewTransferEngine(services.EngineConfig{
		TickInterval: cfg.Transfer.TickInterval,
		Source:       services.NewRandomProgressSource(cfg.Transfer.FailureRate, 0),
		Hub:          hub,
		Metrics:      services.NewTransferMetrics(reg),
	})

	registry := services.NewServerRegistry(st)

	app := &App{
		Config:   cfg,
		Hub:      hub,
		Engine:   engine,
		Registry: registry,
		Session:  services.NewSession(registry, cfg.Session.ConnectDelay),
		Files:    services.NewFileService(),
		Assistant: services.NewAssistantGateway(services.AssistantConfig{
			Endpoint: cfg.Assistant.Endpoint,
			Model:    cfg.Assistant.Model,
			APIKey:   cfg.Assistant.APIKey,
			RetryMax: cfg.Assistant.RetryMax,
			Timeout:  cfg.Assistant.Timeout,
		}),
		Metrics: reg,
		store:   st,
	}

	if cfg.Transfer.Retention > 0 {
		sweeper, err := services.NewRetentionSweeper(engine, cfg.Transfer.Retention, cfg.Transfer.SweepInterval)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to schedule retention sweep: %w", err)
		}
		sweeper.Start()
		app.sweeper = sweeper
	}

	return app, nil
}

// Close stops background work and releases storage
func (a *App) Close() {
	if a.sweeper != nil {
		a.sweeper.Stop()
	}
	a.Engine.Close()
	a.Session.Close()
	a.Hub.Stop()
	if err := a.store.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close storage")
	}
}

// StartWebServer starts the web server and blocks until it is interrupted
func StartWebServer(cfg *config.Config) error {
	gin.SetMode(cfg.GinMode)

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Port),
		Handler: SetupRouter(app),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logrus.WithField("port", cfg.Port).Info("NovaSCP web server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logrus.Info("Shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// SetupRouter builds the router with all middleware and routes
func SetupRouter(app *App) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.CORS(app.Config.CORSOriginList()))
	r.Use(middleware.Logging())
	r.Use(middleware.Security())

	transferHandler := handlers.NewTransferHandler(app.Engine, app.Files, app.Hub)
	fileHandler := handlers.NewFileHandler(app.Files)
	serverHandler := handlers.NewServerHandler(app.Registry, app.Session)
	assistantHandler := handlers.NewAssistantHandler(app.Assistant)
	healthHandler := handlers.NewHealthHandler(app.Engine, app.Hub)

	setupRoutes(r, app, transferHandler, fileHandler, serverHandler, assistantHandler, healthHandler)
	return r
}

// setupRoutes configures all the HTTP routes
func setupRoutes(r *gin.Engine, app *App, transferHandler *handlers.TransferHandler, fileHandler *handlers.FileHandler, serverHandler *handlers.ServerHandler, assistantHandler *handlers.AssistantHandler, healthHandler *handlers.HealthHandler) {
	r.GET("/health", healthHandler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Metrics, promhttp.HandlerOpts{})))

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/status", healthHandler.APIStatus)

		transfersGroup := apiGroup.Group("/transfers")
		{
			transfersGroup.POST("", transferHandler.StartTransfer)
			transfersGroup.GET("", transferHandler.GetAllJobs)
			transfersGroup.DELETE("", transferHandler.ClearFinished)
			transfersGroup.GET("/:jobId", transferHandler.GetJob)
			transfersGroup.DELETE("/:jobId", transferHandler.CancelJob)
		}

		// WebSocket endpoints for real-time progress
		wsGroup := apiGroup.Group("/ws")
		{
			wsGroup.GET("/transfers/:jobId", transferHandler.HandleWebSocketConnection)
			wsGroup.GET("/transfers", transferHandler.HandleWebSocketAllConnection)
		}

		apiGroup.GET("/files", fileHandler.ListFiles)
		apiGroup.GET("/files/:id", fileHandler.GetFile)

		serversGroup := apiGroup.Group("/servers")
		{
			serversGroup.GET("", serverHandler.ListServers)
			serversGroup.POST("", serverHandler.AddServer)
			serversGroup.GET("/:id", serverHandler.GetServer)
			serversGroup.PUT("/:id", serverHandler.UpdateServer)
			serversGroup.DELETE("/:id", serverHandler.DeleteServer)
		}

		apiGroup.GET("/session", serverHandler.GetSession)
		apiGroup.POST("/session", serverHandler.SelectServer)

		assistantGroup := apiGroup.Group("/assistant")
		{
			assistantGroup.POST("/ask", assistantHandler.Ask)
			assistantGroup.GET("/messages", assistantHandler.GetMessages)
			assistantGroup.POST("/messages", assistantHandler.SendMessage)
			assistantGroup.POST("/scp-command", assistantHandler.GenerateSCPCommand)
		}
	}
}
