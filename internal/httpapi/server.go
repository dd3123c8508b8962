// Package httpapi exposes the meal planning service as a JSON API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"ai-meal-coach/internal/app"
	"ai-meal-coach/internal/config"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports whether the database is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server is the HTTP front end of app.Service.
type Server struct {
	cfg     *config.Config
	svc     *app.Service
	db      Pinger
	dataDir string
	logger  *zap.Logger
	limiter *UserRateLimiter
	router  chi.Router
	server  *http.Server
}

// NewServer wires routes for svc. dataDir is reported on by /health.
func NewServer(cfg *config.Config, svc *app.Service, db Pinger, dataDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:     cfg,
		svc:     svc,
		db:      db,
		dataDir: dataDir,
		logger:  logger,
		limiter: NewUserRateLimiter(cfg.RateLimitAIPerMinute),
	}
	s.router = s.routes()
	s.server = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.health)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate([]byte(s.cfg.JWTSecret)))

		// Generation routes wait on the model and get the longer deadline.
		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(timeoutOr(s.cfg.AI.RequestTimeout, 90*time.Second)))
			r.Use(s.limiter.Middleware)
			r.Post("/meal-plans", s.generate)
			r.Post("/meal-plans/sessions/{id}/regenerate-meal", s.regenerateMeal)
			r.Post("/meal-plans/sessions/{id}/regenerate", s.regeneratePlan)
		})

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(timeoutOr(s.cfg.HTTP.RequestTimeout, 15*time.Second)))

			r.Get("/meal-plans", s.listMealPlans)
			r.Get("/meal-plans/calendar", s.calendar)
			r.Get("/meal-plans/sessions/{id}", s.getSession)
			r.Delete("/meal-plans/sessions/{id}", s.deleteSession)
			r.Post("/meal-plans/sessions/{id}/confirm", s.confirm)
			r.Post("/meal-plans/sessions/{id}/constraints", s.addConstraint)
			r.Get("/meal-plans/{id}", s.getMealPlan)
			r.Delete("/meal-plans/{id}", s.deleteMealPlan)
			r.Get("/meal-plans/{id}/shopping-list", s.shoppingList)

			r.Post("/users/me", s.register)
			r.Get("/users/me", s.getUser)
			r.Put("/users/me/profile", s.updateProfile)
			r.Put("/users/me/restrictions", s.updateRestrictions)
			r.Put("/users/me/preferences", s.updatePreferences)
		})
	})
	return r
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting api server", zap.String("address", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down api server")
	return s.server.Shutdown(ctx)
}
