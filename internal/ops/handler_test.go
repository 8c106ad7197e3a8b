package ops

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *mux.Router {
	router := mux.NewRouter()
	handler := NewHandler(NewSyncer(nil, "./data/snapshots"), nil)
	handler.RegisterRoutes(router)
	return router
}

func TestHealthEndpoint(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestSyncPeriodRejectsBadPayload(t *testing.T) {
	router := newTestRouter()

	for _, body := range []string{"", "{}", `{"year":2026,"month":13}`, "not json"} {
		req := httptest.NewRequest(http.MethodPost, "/api/ops/sync", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestSyncPeriodWithoutStorage(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/ops/sync", strings.NewReader(`{"year":2026,"month":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "not configured")
}
