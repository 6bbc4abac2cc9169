// internal/web/server.go
package web

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"ampel/internal/config"
	"ampel/internal/monitoring"
	"ampel/internal/store"
)

type Server struct {
	config *config.Config
	store  store.Store
	engine *monitoring.Engine
	router *gin.Engine
	server *http.Server

	wsMu      sync.Mutex
	wsClients map[*WSClient]bool
}

func NewServer(cfg *config.Config, st store.Store, engine *monitoring.Engine) *Server {
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	server := &Server{
		config:    cfg,
		store:     st,
		engine:    engine,
		router:    router,
		wsClients: make(map[*WSClient]bool),
	}

	// Completed runs flow straight to WebSocket subscribers.
	engine.SetRunHook(func(run *store.CheckRun) {
		server.broadcast(WSMessage{Type: "run", Data: run})
	})

	server.setupRoutes()
	return server
}

func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Web.Listen,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	logrus.WithField("listen", s.config.Web.Listen).Info("Starting web server")

	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("Failed to start server")
		}
	}()

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/checks", s.getChecks)
		api.GET("/checks/:name", s.getCheck)
		api.POST("/checks/:name/run", s.runCheck)
		api.GET("/history", s.getHistory)
		api.GET("/stats", s.getStats)
		api.GET("/health", s.healthCheck)
	}

	s.router.GET("/ws", s.handleWebSocket)

	if s.config.Web.Metrics {
		s.router.GET(s.config.Web.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
