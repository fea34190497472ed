// Package rest is the thin HTTP surface over the core pipeline. Its main
// job is translating the error taxonomy: "needs re-authentication" becomes
// a 401 the caller must not blindly retry, while a degraded-but-successful
// generation returns best-effort results with no error at all.
package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/soundslike-labs/moodqueue/internal/core/domain"
	"github.com/soundslike-labs/moodqueue/internal/core/services"
)

// Handler manages the HTTP interface for the application.
type Handler struct {
	svc    *services.Orchestrator
	router *http.ServeMux
	logger *slog.Logger
}

// NewHandler initializes the HTTP adapter and sets up routes.
func NewHandler(svc *services.Orchestrator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		svc:    svc,
		router: http.NewServeMux(),
		logger: logger,
	}
	h.routes()
	return h
}

// ServeHTTP satisfies the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	h.router.HandleFunc("GET /health", h.HealthCheck)
	h.router.HandleFunc("POST /mixes", h.GenerateMix)
}

// HealthCheck is a simple endpoint to verify the API is running.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateMixRequest struct {
	VibeText string `json:"vibe_text"`
	Desired  int    `json:"desired"`
}

type trackResponse struct {
	ID               string  `json:"id"`
	Title            string  `json:"title"`
	Artists          string  `json:"artists"`
	Genre            string  `json:"genre,omitempty"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Danceability     float64 `json:"danceability,omitempty"`
	Acousticness     float64 `json:"acousticness,omitempty"`
	Instrumentalness float64 `json:"instrumentalness,omitempty"`
	Tempo            float64 `json:"tempo,omitempty"`
	DurationMs       int     `json:"duration_ms"`
	AlbumArt         string  `json:"album_art,omitempty"`
}

type mixResponse struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Emoji       string          `json:"emoji"`
	RankSource  string          `json:"rank_source"`
	Tracks      []trackResponse `json:"tracks"`
}

// GenerateMix drives one full pipeline run.
func (h *Handler) GenerateMix(w http.ResponseWriter, r *http.Request) {
	var req generateMixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	mix, err := h.svc.GenerateMix(r.Context(), req.VibeText, req.Desired)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReauthRequired), errors.Is(err, domain.ErrCredentialMissing):
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "reauthentication required"})
		case errors.Is(err, domain.ErrNoSourceMaterial):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no source material"})
		default:
			h.logger.Error("rest: mix generation failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "mix generation failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, toMixResponse(mix))
}

func toMixResponse(mix domain.Mix) mixResponse {
	resp := mixResponse{
		ID:          mix.ID,
		Title:       mix.Title,
		Description: mix.Description,
		Emoji:       mix.Emoji,
		RankSource:  mix.RankSource,
		Tracks:      make([]trackResponse, 0, len(mix.Tracks)),
	}
	for _, t := range mix.Tracks {
		resp.Tracks = append(resp.Tracks, trackResponse{
			ID:               t.ID,
			Title:            t.Title,
			Artists:          t.Artist,
			Genre:            t.Genre,
			Energy:           t.Features.Energy,
			Valence:          t.Features.Valence,
			Danceability:     t.Features.Danceability,
			Acousticness:     t.Features.Acousticness,
			Instrumentalness: t.Features.Instrumentalness,
			Tempo:            t.Features.Tempo,
			DurationMs:       t.DurationMs,
			AlbumArt:         t.CoverURL,
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
