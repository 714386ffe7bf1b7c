// Package api exposes the deal store and the scrape pipeline over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"car-deal-finder/services"
	"car-deal-finder/utils"
)

// Options configures NewRouter.
type Options struct {
	Query          *services.DealQuery
	Scrape         *services.ScrapeService
	Defaults       Defaults
	AllowedOrigins []string
	RequestTimeout time.Duration
	Logger         *utils.Logger
}

// NewRouter creates the API router with all routes configured.
func NewRouter(opts Options) http.Handler {
	h := &Handler{
		query:    opts.Query,
		scrape:   opts.Scrape,
		defaults: opts.Defaults,
		logger:   opts.Logger,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(opts.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors(opts.AllowedOrigins))
	if opts.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", h.Health)

	r.Route("/deals", func(r chi.Router) {
		r.Get("/", h.ListDeals)
		r.Get("/{id}", h.GetDeal)
	})

	r.Post("/scrape/craigslist", h.Scrape)

	return r
}
