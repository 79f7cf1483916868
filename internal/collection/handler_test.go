package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinevault/internal/auth"
	"cinevault/internal/catalog"
)

type fakeOffers struct {
	offers []catalog.Offer
	err    error
}

func (f *fakeOffers) OffersForMovie(context.Context, int64) ([]catalog.Offer, error) {
	return f.offers, f.err
}

func newHandlerWithMock(t *testing.T, prices OfferLookup) (*Handler, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewHandler(NewRepository(db), prices), mock, db
}

func authedRequest(method, path, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	claims := &auth.AccessClaims{UserID: "u1", Email: "user@example.com"}
	return req.WithContext(auth.ContextWithClaims(req.Context(), claims))
}

func TestListWishlistRequiresAuth(t *testing.T) {
	handler, _, db := newHandlerWithMock(t, &fakeOffers{})
	defer db.Close()

	rec := httptest.NewRecorder()
	handler.ListWishlist(rec, httptest.NewRequest(http.MethodGet, "/wishlist", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListWishlist(t *testing.T) {
	handler, mock, db := newHandlerWithMock(t, &fakeOffers{})
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s+movie_id,\s+title,\s+poster_path,\s+list,\s+added_at\s+FROM\s+collection_items`).
		WithArgs("u1", ListWishlist).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "title", "poster_path", "list", "added_at"}).
			AddRow("i1", int64(438631), "Dune", "/dune.jpg", ListWishlist, time.Now().UTC()))

	rec := httptest.NewRecorder()
	handler.ListWishlist(rec, authedRequest(http.MethodGet, "/wishlist", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []Item `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Dune", body.Items[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddToCollectionValidation(t *testing.T) {
	handler, _, db := newHandlerWithMock(t, &fakeOffers{})
	defer db.Close()

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing movie id", `{"title":"Dune"}`},
		{"missing title", `{"movieId":438631}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.AddToCollection(rec, authedRequest(http.MethodPost, "/collection", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAddToCollection(t *testing.T) {
	handler, mock, db := newHandlerWithMock(t, &fakeOffers{})
	defer db.Close()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+collection_items`).
		WithArgs(sqlmock.AnyArg(), "u1", int64(438631), "Dune", "/dune.jpg", ListCollection, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rec := httptest.NewRecorder()
	handler.AddToCollection(rec, authedRequest(http.MethodPost, "/collection",
		`{"movieId":438631,"title":"Dune","posterPath":"/dune.jpg"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteMissingItem(t *testing.T) {
	handler, mock, db := newHandlerWithMock(t, &fakeOffers{})
	defer db.Close()

	mock.ExpectExec(`(?s)DELETE\s+FROM\s+collection_items`).
		WithArgs("0198c5f0-0000-7000-8000-000000000001", "u1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := authedRequest(http.MethodDelete, "/collection/0198c5f0-0000-7000-8000-000000000001", "")
	req.SetPathValue("id", "0198c5f0-0000-7000-8000-000000000001")

	rec := httptest.NewRecorder()
	handler.Delete(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWishlistPricingSwallowsLookupFailures(t *testing.T) {
	handler, mock, db := newHandlerWithMock(t, &fakeOffers{err: errors.New("pricing down")})
	defer db.Close()

	mock.ExpectQuery(`(?s)SELECT\s+id,\s+movie_id,\s+title,\s+poster_path,\s+list,\s+added_at\s+FROM\s+collection_items`).
		WithArgs("u1", ListWishlist).
		WillReturnRows(sqlmock.NewRows([]string{"id", "movie_id", "title", "poster_path", "list", "added_at"}).
			AddRow("i1", int64(438631), "Dune", "/dune.jpg", ListWishlist, time.Now().UTC()))

	rec := httptest.NewRecorder()
	handler.WishlistPricing(rec, authedRequest(http.MethodGet, "/wishlist/pricing", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Items []struct {
			Item
			Offers []catalog.Offer `json:"offers"`
		} `json:"items"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Items, 1)
	assert.Empty(t, body.Items[0].Offers)
}
