package relay

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"media-relay/internal/platform/logger"
)

const (
	msgURLRequired       = "URL is required"
	msgStreamURLRequired = "URL Required"
	msgNoPlayableMedia   = "Could not find a valid streamable URL for this media."
	msgInvalidBody       = "Invalid request body"
	defaultTitle         = "Video"
)

// Handler exposes the relay HTTP endpoints.
type Handler struct {
	svc *Service
	log *slog.Logger
}

// NewHandler returns a Handler that uses the given Service and Logger.
// Metrics are recorded by the Service and the router middleware.
func NewHandler(svc *Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

type resolveResponse struct {
	Status      string `json:"status"`
	Title       string `json:"title"`
	StreamURL   string `json:"streamUrl"`
	DownloadURL string `json:"download_url,omitempty"`
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Resolve handles POST /resolve.
// Body: { "url": "https://youtu.be/abc" }.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, false)
}

// Download handles POST /download, the older name of /resolve. The response
// also carries the stream URL as download_url.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, true)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, legacy bool) {
	var req MediaRequest
	// An empty body is treated like a body without a url.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Debug("invalid resolve body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: msgInvalidBody})
		return
	}

	_, d, err := h.svc.Resolve(r.Context(), req.URL)
	if err != nil {
		if errors.Is(err, ErrInput) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Status: "error", Message: msgURLRequired})
			return
		}
		h.log.Warn("resolve failed", slog.String("url", req.URL), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Status: "error", Message: err.Error()})
		return
	}

	title := d.Title
	if title == "" {
		title = defaultTitle
	}
	resp := resolveResponse{
		Status:    "success",
		Title:     title,
		StreamURL: StreamPath(d.SourceURL),
	}
	if legacy {
		resp.DownloadURL = resp.StreamURL
	}
	writeJSON(w, http.StatusOK, resp)
}

// StreamPath returns the /stream URL that relays rawURL.
func StreamPath(rawURL string) string {
	return "/stream?url=" + url.QueryEscape(rawURL)
}

// Stream handles GET /stream?url=...
func (h *Handler) Stream(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")

	_, err := h.svc.Stream(r.Context(), w, rawURL)
	if err == nil {
		return
	}

	var (
		resolution  *ResolutionError
		upstream    *UpstreamFetchError
		interrupted *RelayInterruptedError
	)
	switch {
	case errors.As(err, &interrupted):
		// Headers are out; the connection just ends.
	case errors.Is(err, ErrInput):
		writeText(w, http.StatusBadRequest, msgStreamURLRequired)
	case errors.Is(err, ErrNoPlayableMedia):
		h.log.Info("no playable media", slog.String("url", rawURL))
		writeText(w, http.StatusNotFound, msgNoPlayableMedia)
	case errors.As(err, &resolution), errors.As(err, &upstream):
		h.log.Warn("stream failed",
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("url", rawURL),
			slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "Streaming Error: "+err.Error())
	default:
		h.log.Error("stream failed",
			slog.String("request_id", logger.RequestID(r.Context())),
			slog.String("url", rawURL),
			slog.String("error", err.Error()))
		writeText(w, http.StatusInternalServerError, "Streaming Error: "+err.Error())
	}
}

// Sessions handles GET /sessions.
func (h *Handler) Sessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sessions())
}

// Healthz handles GET /healthz.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeText(w, http.StatusOK, "ok")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeText(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}
