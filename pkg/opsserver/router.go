package opsserver

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/persistfsm/pkg/logger"
)

const (
	statusReady    = "READY"
	statusNotReady = "NOT_READY"
)

type readiness struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler returns the router serving /healthz, /readyz and, when a gatherer
// is configured, /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ALIVE"))
	})
	r.Get("/readyz", s.readyz)

	if s.cfg.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.gatherer, promhttp.HandlerOpts{
			ErrorLog: promLogger{s.cfg.logger},
		}))
	}
	return r
}

// readyz runs every check and reports each result. Any failure turns the
// response into 503.
func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	res := readiness{Status: statusReady}
	if len(s.cfg.checks) > 0 {
		res.Checks = make(map[string]string, len(s.cfg.checks))
	}

	for _, c := range s.cfg.checks {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.checkTimeout)
		err := c.fn(ctx)
		cancel()
		if err != nil {
			s.cfg.logger.ErrorContext(r.Context(), "readiness check failed",
				logger.Component(c.name),
				logger.Error(err),
			)
			res.Status = statusNotReady
			res.Checks[c.name] = err.Error()
			continue
		}
		res.Checks[c.name] = "ok"
	}

	code := http.StatusOK
	if res.Status != statusReady {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(res)
}
