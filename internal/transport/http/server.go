// Package apihttp exposes the read-only query surface of the position book:
// account snapshots, ledger state, and the event journal. All writes go
// through the feed, never through HTTP.
package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"posbook/internal/account"
	"posbook/internal/logger"
	"posbook/internal/store/journal"

	"github.com/gin-gonic/gin"
)

// Server serves the query API for registered accounts.
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig describes the server dependencies. Journal may be nil when
// journaling is disabled; the journal endpoint then reports unavailable.
type ServerConfig struct {
	Addr     string
	Accounts *account.Manager
	Journal  *journal.Store
}

// NewServer builds the query HTTP server.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Accounts == nil {
		return nil, errors.New("api http server requires an account manager")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	apiRouter := NewRouter(cfg.Accounts, cfg.Journal)
	apiRouter.Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// requestLogger traces query calls so manual refreshes stay visible in logs.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		client := c.ClientIP()
		c.Next()
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s",
			method, path, c.Writer.Status(), client, time.Since(start))
	}
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Handler returns the underlying handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is cancelled or it fails.
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
