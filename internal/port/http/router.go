package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/cart-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

const healthCheckTimeout = 2 * time.Second

type HealthChecker interface {
	Check(ctx context.Context) error
}

type RouterDeps struct {
	Cart     *CartHandler
	Health   HealthChecker
	Metrics  *metrics.Manager
	Identity IdentityConfig
	Log      logger.Logger
}

func NewRouter(deps RouterDeps) chi.Router {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(RequestLogger(deps.Log))
	router.Use(chimiddleware.Recoverer)
	router.Use(Metrics(deps.Metrics))

	router.Get("/healthz", healthHandler(deps.Health))
	if deps.Metrics != nil {
		router.Handle("/metrics", deps.Metrics.Handler())
	}

	router.Group(func(r chi.Router) {
		r.Use(IdentityMiddleware(deps.Identity, deps.Log))
		deps.Cart.RegisterRoutes(r)
	})
	return router
}

func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.Check(ctx); err != nil {
				respondWithJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

type Server struct {
	httpServer *http.Server
	log        logger.Logger
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

func NewServer(cfg ServerConfig, handler http.Handler, log logger.Logger) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Infof("HTTP server is starting on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed to serve: %w", err)
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("HTTP server is stopping gracefully")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP server shutdown failed: %w", err)
	}
	s.log.Info("HTTP server stopped gracefully")
	return nil
}
