package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"

	"cinevault/internal/auth"
	"cinevault/internal/catalog"
)

const maxJSONBodyBytes = 1 << 20

// OfferLookup is the streaming-price collaborator used by the wishlist
// pricing view.
type OfferLookup interface {
	OffersForMovie(ctx context.Context, movieID int64) ([]catalog.Offer, error)
}

type Handler struct {
	repo   *Repository
	prices OfferLookup
}

func NewHandler(repo *Repository, prices OfferLookup) *Handler {
	return &Handler{repo: repo, prices: prices}
}

func (h *Handler) ListCollection(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, ListCollection)
}

func (h *Handler) ListWishlist(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, ListWishlist)
}

func (h *Handler) AddToCollection(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, ListCollection)
}

func (h *Handler) AddToWishlist(w http.ResponseWriter, r *http.Request) {
	h.add(w, r, ListWishlist)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, list string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	items, err := h.repo.List(r.Context(), claims.UserID, list)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	writeJSON(w, http.StatusOK, map[string][]Item{"items": items})
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request, list string) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	input, ok := parseInput(w, r)
	if !ok {
		return
	}

	item, err := h.repo.Add(r.Context(), claims.UserID, list, input)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to save item")
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	if err := h.repo.Delete(r.Context(), claims.UserID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "item not found")
			return
		}
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to delete item")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type pricedItem struct {
	Item
	Offers []catalog.Offer `json:"offers"`
}

// WishlistPricing joins the caller's wishlist with streaming offers. A failed
// lookup for one movie yields an empty offer list for it rather than failing
// the whole response.
func (h *Handler) WishlistPricing(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "missing authorization token")
		return
	}

	items, err := h.repo.List(r.Context(), claims.UserID, ListWishlist)
	if err != nil {
		sentry.CaptureException(err)
		writeError(w, http.StatusInternalServerError, "failed to list wishlist")
		return
	}

	priced := make([]pricedItem, 0, len(items))
	for _, item := range items {
		offers, err := h.prices.OffersForMovie(r.Context(), item.MovieID)
		if err != nil {
			offers = []catalog.Offer{}
		}
		priced = append(priced, pricedItem{Item: item, Offers: offers})
	}

	writeJSON(w, http.StatusOK, map[string][]pricedItem{"items": priced})
}

func parseInput(w http.ResponseWriter, r *http.Request) (ItemInput, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)

	var input ItemInput
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return ItemInput{}, false
	}

	input.Title = strings.TrimSpace(input.Title)
	input.PosterPath = strings.TrimSpace(input.PosterPath)

	if input.MovieID <= 0 {
		writeError(w, http.StatusBadRequest, "movieId is required")
		return ItemInput{}, false
	}
	if input.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return ItemInput{}, false
	}
	if !utf8.ValidString(input.Title) || len(input.Title) > 300 {
		writeError(w, http.StatusBadRequest, "title is invalid")
		return ItemInput{}, false
	}
	if len(input.PosterPath) > 500 {
		writeError(w, http.StatusBadRequest, "posterPath is too long")
		return ItemInput{}, false
	}

	return input, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
