package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"agentdrop/internal/ports"
	"agentdrop/internal/usecase/pipeline"
)

// Handler is the container for API dependencies.
type Handler struct {
	svc    *pipeline.Service
	logger *slog.Logger
}

// NewRouter creates and configures a chi router with all API routes. The API
// is read-only: writes happen through the CLI and the daemon.
func NewRouter(svc *pipeline.Service, logger *slog.Logger) http.Handler {
	h := &Handler{
		svc:    svc,
		logger: logger,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", h.healthCheck)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/prospects", h.listProspects)
		r.Get("/prospects/{username}", h.getProspect)
		r.Get("/stats", h.getStats)
		r.Get("/activity", h.getActivity)
	})

	return r
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listProspects handles GET /v1/prospects?tier=&outreach_status=&payout_status=&limit=&offset=
func (h *Handler) listProspects(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil || limit <= 0 || limit > 500 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 500.")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'offset' parameter.")
		return
	}

	items, err := h.svc.ListProspects(r.Context(), pipeline.ListProspectsInput{
		Tier:           r.URL.Query().Get("tier"),
		OutreachStatus: r.URL.Query().Get("outreach_status"),
		PayoutStatus:   r.URL.Query().Get("payout_status"),
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		h.logger.Error("Failed to list prospects", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"prospects": prospectListPayload(items)})
}

// getProspect handles GET /v1/prospects/{username}
func (h *Handler) getProspect(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	detail, err := h.svc.GetProspectDetail(r.Context(), username)
	if err != nil {
		if errors.Is(err, ports.ErrProspectNotFound) {
			respondWithError(w, http.StatusNotFound, "Prospect not found")
			return
		}
		h.logger.Error("Failed to get prospect", "username", username, "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, prospectDetailPayload(detail))
}

// getStats handles GET /v1/stats
func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to compute stats", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"total":       stats.Total,
		"by_tier":     stats.ByTier,
		"by_outreach": stats.ByOutreach,
		"by_payout":   stats.ByPayout,
		"today": map[string]any{
			"date":          stats.Today,
			"prs_opened":    stats.PRsToday,
			"payouts_sent":  stats.PayoutsToday,
			"max_daily_prs": stats.MaxDailyPRs,
			"max_payouts":   stats.MaxPayouts,
		},
	})
}

// getActivity handles GET /v1/activity?limit=N
func (h *Handler) getActivity(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil || limit <= 0 || limit > 500 {
		respondWithError(w, http.StatusBadRequest, "Invalid 'limit' parameter. Must be an integer between 1 and 500.")
		return
	}

	entries, err := h.svc.RecentActivity(r.Context(), limit)
	if err != nil {
		h.logger.Error("Failed to list activity", "error", err)
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"activity": activityPayload(entries)})
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
