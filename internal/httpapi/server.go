// Package httpapi implements C9: the thin HTTP surface — routing,
// authentication, request shaping (spec §4.9, §6.1). No policy logic lives
// here; every decision is delegated to C7/C8.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ragaccess/internal/auth"
	"ragaccess/internal/rbac"
	"ragaccess/internal/retrieval"
)

// Server wraps the gin router and the components C9 delegates to.
type Server struct {
	router        *gin.Engine
	logger        *zap.Logger
	auth          *auth.Service
	orchestrator  *retrieval.Orchestrator
	rbacConfig    *rbac.Config
	deadlineQuery time.Duration
	deadlineLogin time.Duration
}

// NewServer builds the router with the middleware chain: recovery,
// request-id injection, back-pressure semaphore, then route-specific auth
// (spec §4.9, §5 back-pressure, §6.1 routes).
func NewServer(logger *zap.Logger, authSvc *auth.Service, orchestrator *retrieval.Orchestrator,
	rbacConfig *rbac.Config, maxConcurrent int, deadlineQuery, deadlineLogin time.Duration) *Server {

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(loggerInjectMiddleware(logger))
	router.Use(backPressureMiddleware(maxConcurrent))

	s := &Server{
		router:        router,
		logger:        logger,
		auth:          authSvc,
		orchestrator:  orchestrator,
		rbacConfig:    rbacConfig,
		deadlineQuery: deadlineQuery,
		deadlineLogin: deadlineLogin,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.POST("/auth/login", s.deadlineMiddleware(s.deadlineLogin), s.handleLogin)
	s.router.POST("/auth/refresh", s.deadlineMiddleware(s.deadlineLogin), s.handleRefresh)
	s.router.GET("/user/profile", s.authMiddleware(), s.handleProfile)
	s.router.POST("/query", s.authMiddleware(), s.deadlineMiddleware(s.deadlineQuery), s.handleQuery)
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
// (spec §5, grounded on the teacher's web/server.go Start/shutdown shape).
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.router}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
