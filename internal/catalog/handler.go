package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/getsentry/sentry-go"
)

type Handler struct {
	client *Client
}

func NewHandler(client *Client) *Handler {
	return &Handler{client: client}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}

	movies, err := h.client.Search(r.Context(), query, pageParam(r))
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusBadGateway, "catalog lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]Movie{"results": movies})
}

func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	movies, err := h.client.Discover(r.Context(), pageParam(r))
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusBadGateway, "catalog lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]Movie{"results": movies})
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
