package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DJ-RINO/freee-auto-bookkeeping/internal/http/approval"
)

func New(approvalV1 *approval.Handler) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	router.Route("/webhooks", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		approvalV1.Routes(r)
	})

	return router
}
