// Package server exposes the engine over HTTP: a synchronous chat endpoint,
// thread CRUD and a websocket stream of run events.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agentwerk/teamrouter"
	"github.com/agentwerk/teamrouter/logging"
)

// Options configure the HTTP server.
type Options struct {
	// AllowOrigins is the CORS allowlist; "*" allows any origin.
	AllowOrigins []string
	// Logger receives request-level diagnostics.
	Logger logging.Logger
}

// Server wraps the gin router around an engine.
type Server struct {
	engine *teamrouter.Engine
	router *gin.Engine
	logger logging.Logger
	http   *http.Server
}

// New builds the server and its routes.
func New(engine *teamrouter.Engine, optFns ...func(o *Options)) *Server {
	opts := Options{
		AllowOrigins: []string{"*"},
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	if len(opts.AllowOrigins) == 1 && opts.AllowOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = opts.AllowOrigins
	}
	corsCfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsCfg))

	s := &Server{engine: engine, router: router, logger: opts.Logger}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.POST("/chat", s.handleChat)
	s.router.GET("/threads", s.handleListThreads)
	s.router.GET("/threads/:id", s.handleGetThread)
	s.router.DELETE("/threads/:id", s.handleDeleteThread)
	s.router.GET("/ws/:thread_id", s.handleWebsocket)
}

// Handler exposes the router for tests and custom servers.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe starts serving until the context is canceled, then shuts
// down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.http = &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listening", "addr", addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}

type chatRequest struct {
	ThreadID string `json:"thread_id"`
	Message  string `json:"message" binding:"required"`
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.engine.Chat(c.Request.Context(), req.ThreadID, req.Message)
	if err != nil {
		if errors.Is(err, teamrouter.ErrThreadBusy) {
			c.JSON(http.StatusConflict, gin.H{"error": "thread has a run in flight"})
			return
		}
		s.logger.Error("server.chat.failed", "thread_id", req.ThreadID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleListThreads(c *gin.Context) {
	infos, err := s.engine.Threads().ListThreads(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"threads": infos})
}

func (s *Server) handleGetThread(c *gin.Context) {
	th, err := s.engine.Threads().GetThread(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, th)
}

func (s *Server) handleDeleteThread(c *gin.Context) {
	if err := s.engine.Threads().DeleteThread(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
