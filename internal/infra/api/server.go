package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"subscription-commerce/internal/config"
	"subscription-commerce/internal/usecase"
)

// Server is the HTTP surface: gateway webhook, checkout, admin API and
// operational endpoints.
type Server struct {
	cfg      *config.Config
	webhook  *WebhookHandler
	auth     *AuthManager
	checkout usecase.CheckoutUseCase
	plans    *usecase.PlanUseCase
	stats    usecase.StatsUseCase
	log      *zerolog.Logger

	server *http.Server
}

func NewServer(
	cfg *config.Config,
	webhook *WebhookHandler,
	auth *AuthManager,
	checkout usecase.CheckoutUseCase,
	plans *usecase.PlanUseCase,
	stats usecase.StatsUseCase,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		cfg:      cfg,
		webhook:  webhook,
		auth:     auth,
		checkout: checkout,
		plans:    plans,
		stats:    stats,
		log:      logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(TraceID())
	r.Use(Recover(s.log))
	r.Use(RequestLog(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// The gateway handler owns its 405 response, so the route binds all
	// methods. Reconciliation holds a user lock; cap how long one
	// delivery may pin it.
	webhook := Chain(s.webhook, Timeout(30*time.Second))
	r.Handle("/webhook/payments", webhook)
	r.Handle("/webhook/payments/*", webhook)

	r.Route("/api", func(r chi.Router) {
		r.Post("/checkout", checkoutHandler(s.checkout))
		r.Get("/plans", plansListHandler(s.plans))

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", loginHandler(s.auth))
			r.Group(func(r chi.Router) {
				r.Use(s.auth.RequireAdmin)
				r.Get("/stats", statsHandler(s.stats))
				r.Get("/plans", plansListHandler(s.plans))
				r.Post("/plans", plansCreateHandler(s.plans))
				r.Put("/plans/{id}", plansUpdateHandler(s.plans))
				r.Delete("/plans/{id}", plansDeleteHandler(s.plans))
			})
		})
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
