package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"car-deal-finder/models"
	"car-deal-finder/scraper"
	"car-deal-finder/services"
	"car-deal-finder/storage"
	"car-deal-finder/utils"
)

// Handler serves the deal endpoints.
type Handler struct {
	query    *services.DealQuery
	scrape   *services.ScrapeService
	defaults Defaults
	logger   *utils.Logger
}

// Defaults fill in query parameters a caller leaves out.
type Defaults struct {
	City                 string
	Query                string
	MaxResults           int
	MinUndervaluePercent float64
}

type scrapeResponse struct {
	Inserted   int               `json:"inserted"`
	Duplicates int               `json:"duplicates"`
	Skipped    int               `json:"skipped"`
	Failed     int               `json:"failed"`
	City       string            `json:"city"`
	Query      string            `json:"query"`
	Source     string            `json:"source"`
	Deals      []*models.Listing `json:"deals"`
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "car-deal-finder-api"})
}

// ListDeals handles GET /deals.
func (h *Handler) ListDeals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f := models.DealFilter{
		MinUndervaluePercent: h.defaults.MinUndervaluePercent,
		Make:                 strings.TrimSpace(q.Get("make")),
		Model:                strings.TrimSpace(q.Get("model")),
		Location:             strings.TrimSpace(q.Get("location")),
	}
	if raw := q.Get("min_undervalue_percent"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(v) {
			writeError(w, http.StatusBadRequest, "min_undervalue_percent must be a number")
			return
		}
		f.MinUndervaluePercent = v
	}

	deals, err := h.query.Find(r.Context(), f)
	if err != nil {
		h.logger.Error("[api] list deals: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to load deals")
		return
	}
	writeJSON(w, http.StatusOK, deals)
}

// GetDeal handles GET /deals/{id}.
func (h *Handler) GetDeal(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	deal, err := h.query.GetByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Deal not found")
		return
	}
	if err != nil {
		h.logger.Error("[api] get deal %s: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Failed to load deal")
		return
	}
	writeJSON(w, http.StatusOK, deal)
}

// Scrape handles POST /scrape/craigslist.
func (h *Handler) Scrape(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	p := scraper.SearchParams{
		City:       h.defaults.City,
		Query:      h.defaults.Query,
		MaxResults: h.defaults.MaxResults,
	}
	if v := strings.TrimSpace(q.Get("city")); v != "" {
		p.City = v
	}
	if v := strings.TrimSpace(q.Get("query")); v != "" {
		p.Query = v
	}
	if raw := q.Get("max_results"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "max_results must be a positive integer")
			return
		}
		p.MaxResults = n
	}

	res, err := h.scrape.Run(r.Context(), p)
	if err != nil {
		h.logger.Error("[api] scrape %s: %v", p.City, err)
		writeError(w, http.StatusBadGateway, "Scrape failed")
		return
	}

	writeJSON(w, http.StatusOK, scrapeResponse{
		Inserted:   len(res.Inserted),
		Duplicates: res.Duplicates,
		Skipped:    res.Skipped,
		Failed:     len(res.Failures),
		City:       res.City,
		Query:      res.Query,
		Source:     res.Source,
		Deals:      res.Inserted,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
