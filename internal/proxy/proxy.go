// Package proxy implements the flight feed pass-through endpoint. The
// upstream provider rejects direct browser requests, so clients call
// GET /api/flights here and the proxy forwards the query with the headers
// the provider expects.
package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/labstack/gommon/log"

	"github.com/kappaborg/flightmap/pkg/config"
)

// DefaultUpstreamTimeout bounds a single upstream fetch.
const DefaultUpstreamTimeout = 15 * time.Second

// Handler proxies flight feed requests to the upstream provider.
type Handler struct {
	upstreamURL  string
	origin       string
	referer      string
	cacheSeconds int
	httpClient   *http.Client
}

// NewHandler creates a proxy handler from the feed configuration.
func NewHandler(cfg config.FeedConfig, client *http.Client) *Handler {
	if client == nil {
		client = &http.Client{Timeout: DefaultUpstreamTimeout}
	}
	return &Handler{
		upstreamURL:  cfg.UpstreamURL,
		origin:       cfg.Origin,
		referer:      cfg.Referer,
		cacheSeconds: cfg.CacheSeconds,
		httpClient:   client,
	}
}

// Router builds the chi router with the standard middleware stack.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Compress(5))

	// CORS: the map page is served from a different origin in development.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/api/flights", h.handleFlights)
	r.Get("/api/health", h.handleHealth)

	return r
}

// handleFlights forwards the feed request upstream and streams the response
// body back verbatim. Decoding is the client's job; the proxy only adds the
// headers the provider requires and a short cache lifetime.
func (h *Handler) handleFlights(w http.ResponseWriter, r *http.Request) {
	bounds := r.URL.Query().Get("bounds")
	if bounds == "" {
		respondError(w, http.StatusBadRequest, "Bounds parameter is required")
		return
	}

	upstream, err := http.NewRequestWithContext(r.Context(), http.MethodGet,
		fmt.Sprintf("%s?%s", h.upstreamURL, r.URL.RawQuery), nil)
	if err != nil {
		log.Errorf("proxy: build upstream request: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch flight data")
		return
	}
	upstream.Header.Set("Accept", "application/json")
	upstream.Header.Set("Origin", h.origin)
	upstream.Header.Set("Referer", h.referer)

	resp, err := h.httpClient.Do(upstream)
	if err != nil {
		log.Errorf("proxy: upstream fetch failed: %v", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch flight data")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Errorf("proxy: upstream returned status %d", resp.StatusCode)
		respondError(w, http.StatusInternalServerError, "Failed to fetch flight data")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.cacheSeconds))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, resp.Body); err != nil {
		log.Warnf("proxy: client write failed: %v", err)
	}
}

// handleHealth reports liveness for deploy checks.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
