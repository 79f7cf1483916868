package maintenance

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cinevault/internal/observability"
)

type fakeCleaner struct {
	deleted int64
	err     error
	calls   int
}

func (f *fakeCleaner) DeleteExpiredRefreshTokens(context.Context, int) (int64, error) {
	f.calls++
	return f.deleted, f.err
}

func newTestHandler(cleaner *fakeCleaner, secret string) *CleanupHandler {
	return NewCleanupHandler(cleaner, observability.NewLoggerTo(io.Discard), secret, 500)
}

func TestCleanupWithoutConfiguredSecret(t *testing.T) {
	cleaner := &fakeCleaner{}
	handler := newTestHandler(cleaner, "")

	rec := httptest.NewRecorder()
	handler.Handle(rec, httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, cleaner.calls)
}

func TestCleanupRejectsBadSecret(t *testing.T) {
	cleaner := &fakeCleaner{}
	handler := newTestHandler(cleaner, "cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, cleaner.calls)
}

func TestCleanupRuns(t *testing.T) {
	cleaner := &fakeCleaner{deleted: 17}
	handler := newTestHandler(cleaner, "cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, cleaner.calls)
	assert.Contains(t, rec.Body.String(), "17")
}

func TestCleanupReportsFailure(t *testing.T) {
	cleaner := &fakeCleaner{err: errors.New("db down")}
	handler := newTestHandler(cleaner, "cron-secret")

	req := httptest.NewRequest(http.MethodPost, "/internal/maintenance/cleanup", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	handler.Handle(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
