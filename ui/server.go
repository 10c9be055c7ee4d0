package ui

import (
	"context"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"casedesk/internal/config"
	"casedesk/ports"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// IndexPath is the chat page inside the static file system
const IndexPath = "ui/static/index.html"

// Server is the chat web front-end: it serves the page and relays socket
// messages to the agent
type Server struct {
	router   *gin.Engine
	files    fs.FS
	threadID string
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu    sync.RWMutex
	agent ports.Agent
}

// NewServer creates the web server. files must contain IndexPath. threadID pins every
// connection to one conversation thread; when empty each connection gets its own.
func NewServer(files fs.FS, cfg config.ServerConfig, threadID string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	s := &Server{
		router:   gin.New(),
		files:    files,
		threadID: threadID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: logger.Named("ui"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// SetAgent makes the agent available to new connections
func (s *Server) SetAgent(agent ports.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agent = agent
}

func (s *Server) currentAgent() ports.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agent
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is done, then shuts down gracefully within timeout
func (s *Server) Run(ctx context.Context, addr string, timeout time.Duration) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("chat server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/ws", s.handleWebSocket)
	s.router.GET("/healthz", s.handleHealth)
}

func (s *Server) handleIndex(c *gin.Context) {
	content, err := fs.ReadFile(s.files, IndexPath)
	if err != nil {
		s.logger.Error("index page missing", zap.Error(err))
		c.String(http.StatusNotFound, "index page not found")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", content)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"agent_ready": s.currentAgent() != nil,
	})
}
