package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"tubelink/internal/flood"
	"tubelink/internal/i18n"
	"tubelink/internal/resolver"
	"tubelink/pkg/musiclink"
)

const (
	// maxRequestBodyBytes caps the /convert payload; a track link is far smaller.
	maxRequestBodyBytes = 16 << 10
	// OutcomeHeader carries the resolver outcome so callers can tell timeouts from misses.
	OutcomeHeader = "X-Lookup-Outcome"
)

// Converter resolves source URLs under the configured time budget.
type Converter interface {
	ResolveWithBudget(ctx context.Context, sourceURL string) resolver.Result
	CheckTool() error
}

// ConvertRequest is the body of POST /convert.
type ConvertRequest struct {
	SpotifyURL string `json:"spotify_url"`
}

// ConvertResponse is returned with status 200. YouTubeURL is null when nothing was found.
type ConvertResponse struct {
	Error      string  `json:"error,omitempty"`
	YouTubeURL *string `json:"youtube_url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type handlers struct {
	converter Converter
	localizer *i18n.Localizer
	metrics   *Metrics
	gate      *flood.Floodgate
	logger    *zap.Logger
}

// healthResponse is the body of GET /healthz. Flood is omitted when rate limiting is off.
type healthResponse struct {
	Status  string       `json:"status"`
	Service string       `json:"service"`
	Flood   *flood.Stats `json:"flood,omitempty"`
}

func (h *handlers) convert(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)

	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Invalid convert request body", zap.Error(err))
		h.fail(w, http.StatusBadRequest, "error.invalid_body")
		return
	}

	if strings.TrimSpace(req.SpotifyURL) == "" {
		h.fail(w, http.StatusBadRequest, "error.missing_url")
		return
	}

	track, err := musiclink.ParseSpotifyTrack(req.SpotifyURL)
	if err != nil {
		h.logger.Info("Rejected source URL",
			zap.String("spotify_url", req.SpotifyURL),
			zap.Error(err))
		h.fail(w, http.StatusBadRequest, "error.invalid_url")
		return
	}

	h.logger.Info("Converting track",
		zap.String("request_id", requestIDFrom(r.Context())),
		zap.String("spotify_url", track.URL),
		zap.String("track_uri", string(track.URI)))

	result := h.converter.ResolveWithBudget(r.Context(), track.URL)
	w.Header().Set(OutcomeHeader, result.Outcome.String())

	if !result.Found() {
		w.Header().Set("Content-Language", h.localizer.Language())
		writeJSON(w, http.StatusOK, ConvertResponse{Error: h.localizer.T("error.not_found")})
		return
	}

	youtubeURL := result.URL
	writeJSON(w, http.StatusOK, ConvertResponse{YouTubeURL: &youtubeURL})
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Service: serviceName}
	if h.gate != nil {
		stats := h.gate.Stats()
		resp.Flood = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) readyz(w http.ResponseWriter, _ *http.Request) {
	if err := h.converter.CheckTool(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status":  "not ready",
			"service": serviceName,
			"error":   err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "service": serviceName})
}

func homeHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(homePage))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fail writes a localized error message for key.
func (h *handlers) fail(w http.ResponseWriter, status int, key string) {
	w.Header().Set("Content-Language", h.localizer.Language())
	writeError(w, status, h.localizer.T(key))
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>tubelink</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .header { color: #333; }
        .endpoint { margin: 10px 0; }
        code { background: #f4f4f4; padding: 2px 4px; }
    </style>
</head>
<body>
    <h1 class="header">tubelink</h1>
    <p>Spotify track link to YouTube link conversion</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><code>POST /convert</code> - body <code>{"spotify_url": "https://open.spotify.com/track/..."}</code></div>
    <div class="endpoint"><a href="/metrics">/metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">/healthz</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">/readyz</a> - Readiness check</div>
</body>
</html>`
