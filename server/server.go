package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/gateway"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/queue"
)

// Options configures the Server.
type Options struct {
	// Addr is the listen address. Defaults to ":8080".
	Addr string
	// Gateway serves the /api/ws streaming endpoint. Optional.
	Gateway *gateway.Gateway
	// Artifacts serves the per-task artifact listing and download endpoints.
	// Optional; the routes are only registered when set.
	Artifacts core.ArtifactStore
	// EnableCORS attaches a permissive CORS policy. On by default.
	EnableCORS bool
	// ReadTimeout and WriteTimeout bound HTTP request handling. The write
	// timeout does not apply to the WebSocket endpoint, which hijacks the
	// connection.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// Logger receives structured server logs.
	Logger logging.Logger
}

// Server is the HTTP front of the task substrate.
type Server struct {
	store     core.Store
	queue     *queue.Queue
	gateway   *gateway.Gateway
	artifacts core.ArtifactStore
	engine    *gin.Engine
	http      *http.Server
	logger    logging.Logger
	startTime time.Time
}

// New creates a Server over the given store and queue.
func New(store core.Store, q *queue.Queue, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:        ":8080",
		EnableCORS:  true,
		ReadTimeout: 15 * time.Second,
		Logger:      logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	if opts.EnableCORS {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
		corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
		corsConfig.AllowWebSockets = true
		engine.Use(cors.New(corsConfig))
	}

	s := &Server{
		store:     store,
		queue:     q,
		gateway:   opts.Gateway,
		artifacts: opts.Artifacts,
		engine:    engine,
		logger:    opts.Logger,
		http: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		startTime: time.Now(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.engine.Group("/api")

	api.GET("/health", s.handleHealth)

	tasks := api.Group("/tasks")
	{
		tasks.POST("", s.handleCreateTask)
		tasks.GET("", s.handleListTasks)
		tasks.GET("/:id", s.handleGetTask)
		tasks.POST("/:id/pause", s.lifecycle(s.queue.Pause))
		tasks.POST("/:id/resume", s.lifecycle(s.queue.Resume))
		tasks.POST("/:id/cancel", s.lifecycle(s.queue.Cancel))
		tasks.GET("/:id/steps", s.handleGetSteps)
		tasks.GET("/:id/events", s.handleGetEvents)
		if s.artifacts != nil {
			tasks.GET("/:id/artifacts", s.handleListArtifacts)
			tasks.GET("/:id/artifacts/:artifact_id", s.handleGetArtifact)
		}
	}

	if s.gateway != nil {
		api.GET("/ws", func(c *gin.Context) {
			s.gateway.HandleWS(c.Writer, c.Request)
		})
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("http server listening", "addr", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.http.Shutdown(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data: HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Uptime:      time.Since(s.startTime).String(),
			QueueLength: s.queue.Length(c.Request.Context()),
		},
	})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "invalid request body"})
		return
	}

	id, err := s.queue.Enqueue(c.Request.Context(), req.OwnerID, req.Goal, req.Config, req.Priority)
	if err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: verr.Error()})
			return
		}
		s.logger.Error("create task failed", "error", err)
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: "task could not be created"})
		return
	}

	c.JSON(http.StatusCreated, APIResponse{Success: true, Data: CreateTaskResponse{TaskID: id}})
}

func (s *Server) handleGetTask(c *gin.Context) {
	task, err := s.queue.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: task})
}

func (s *Server) handleListTasks(c *gin.Context) {
	ownerID := c.Query("owner_id")
	if ownerID == "" {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "owner_id query parameter is required"})
		return
	}
	tasks, err := s.queue.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: tasks})
}

// lifecycle adapts a queue transition into a handler.
func (s *Server) lifecycle(op func(ctx context.Context, taskID string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := op(c.Request.Context(), c.Param("id")); err != nil {
			s.respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, APIResponse{Success: true})
	}
}

func (s *Server) handleGetSteps(c *gin.Context) {
	taskID := c.Param("id")
	if _, err := s.store.GetTask(c.Request.Context(), taskID); err != nil {
		s.respondError(c, err)
		return
	}
	steps, err := s.store.ListSteps(c.Request.Context(), taskID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: steps})
}

func (s *Server) handleGetEvents(c *gin.Context) {
	taskID := c.Param("id")
	if _, err := s.store.GetTask(c.Request.Context(), taskID); err != nil {
		s.respondError(c, err)
		return
	}
	var after int64
	if v := c.Query("after"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &after); err != nil {
			c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: "after must be an integer"})
			return
		}
	}
	events, err := s.store.ListEventsSince(c.Request.Context(), taskID, after)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: events})
}

func (s *Server) handleListArtifacts(c *gin.Context) {
	taskID := c.Param("id")
	if _, err := s.store.GetTask(c.Request.Context(), taskID); err != nil {
		s.respondError(c, err)
		return
	}
	ids, err := s.artifacts.List(taskID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: ids})
}

// handleGetArtifact streams the raw artifact bytes. Artifacts carry no stored
// media type, so the download is served as an opaque octet stream.
func (s *Server) handleGetArtifact(c *gin.Context) {
	taskID := c.Param("id")
	if _, err := s.store.GetTask(c.Request.Context(), taskID); err != nil {
		s.respondError(c, err)
		return
	}
	data, err := s.artifacts.Get(taskID, c.Param("artifact_id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: "artifact not found"})
			return
		}
		s.respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// respondError maps domain errors onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		c.JSON(http.StatusNotFound, APIResponse{Success: false, Error: "task not found"})
	case errors.Is(err, core.ErrInvalidTransition):
		c.JSON(http.StatusConflict, APIResponse{Success: false, Error: err.Error()})
	default:
		s.logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, APIResponse{Success: false, Error: "internal error"})
	}
}
