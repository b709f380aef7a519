package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/smukkama/envdash-server/internal/metrics"
	"github.com/smukkama/envdash-server/internal/protocol"
	"github.com/smukkama/envdash-server/internal/visibility"
	"github.com/smukkama/envdash-server/pkg/config"
)

// Dashboard is the controller surface the HTTP layer drives
type Dashboard interface {
	Toggle(dataset string, visible bool) error
	VisibilityStates() map[string]bool
	Indicators() []protocol.Indicator
	Layer(dataset string) (*protocol.LayerGroup, error)
	SnapshotMessage() *protocol.SnapshotMessage
	InitialMessages() [][]byte
	Counts() map[string]int
	RefreshAll()
}

// Server hosts the dashboard REST API and the subscriber socket
type Server struct {
	config     *config.HTTPServerConfig
	registry   *Registry
	dashboard  Dashboard
	engine     *gin.Engine
	httpServer *http.Server
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.HTTPServerConfig, registry *Registry, dashboard Dashboard) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		config:    cfg,
		registry:  registry,
		dashboard: dashboard,
		engine:    engine,
	}
	s.routes()

	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/snapshot", s.handleSnapshot)
		api.GET("/layers/:dataset", s.handleLayer)
		api.GET("/indicators", s.handleIndicators)
		api.GET("/visibility", s.handleVisibility)
		api.POST("/visibility/:dataset", s.handleToggle)
		api.POST("/refresh", s.handleRefresh)
	}

	s.engine.GET("/ws", s.handleWS)
	s.engine.GET("/metrics", gin.WrapH(metrics.Handler()))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	s.httpServer = &http.Server{Handler: s.engine}
	fmt.Printf("HTTP server listening on %s\n", addr)

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Stop stops the HTTP server gracefully
func (s *Server) Stop(ctx context.Context) error {
	// Close subscriber queues first so write loops send close frames
	s.registry.CloseAll()

	err := s.httpServer.Shutdown(ctx)
	fmt.Println("HTTP server stopped")
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"subscribers": s.registry.Count(),
		"datasets":    s.dashboard.Counts(),
	})
}

func (s *Server) handleSnapshot(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.SnapshotMessage())
}

func (s *Server) handleLayer(c *gin.Context) {
	dataset := c.Param("dataset")

	group, err := s.dashboard.Layer(dataset)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, group)
}

func (s *Server) handleIndicators(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"indicators": s.dashboard.Indicators()})
}

func (s *Server) handleVisibility(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"visibility": s.dashboard.VisibilityStates()})
}

func (s *Server) handleToggle(c *gin.Context) {
	dataset := c.Param("dataset")

	var body struct {
		Visible *bool `json:"visible"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Visible == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "visible field required"})
		return
	}

	if err := s.dashboard.Toggle(dataset, *body.Visible); err != nil {
		if err == visibility.ErrUnknownDataset {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"dataset": dataset, "visible": *body.Visible})
}

func (s *Server) handleRefresh(c *gin.Context) {
	go s.dashboard.RefreshAll()
	c.JSON(http.StatusAccepted, gin.H{"status": "refresh started"})
}
