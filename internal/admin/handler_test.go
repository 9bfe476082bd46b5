// AngelaMos | 2026
// handler_test.go

package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/bloodlink/internal/donation"
	"github.com/carterperez-dev/bloodlink/internal/middleware"
	"github.com/carterperez-dev/bloodlink/internal/model"
	"github.com/carterperez-dev/bloodlink/internal/store"
)

const adminKey = "s3cret-admin-key"

type fakePurger struct {
	n   int64
	err error
}

func (f fakePurger) PurgeExpiredSessions(context.Context) (int64, error) {
	return f.n, f.err
}

func newRouter(t *testing.T, cfg HandlerConfig) http.Handler {
	t.Helper()
	st := store.NewMemory()
	ctx := context.Background()

	donor := model.NewDonor(model.Account{ID: "d1", Email: "d1@example.com", Name: "A"}, model.OPos, nil)
	idle := model.NewDonor(model.Account{ID: "d2", Email: "d2@example.com", Name: "B"}, model.ANeg, nil)
	idle.Available = false
	hospital := model.NewHospital(model.Account{ID: "h1", Email: "h1@example.com", Name: "C"}, "City", "")
	for _, u := range []model.User{donor, idle, hospital} {
		require.NoError(t, st.UpsertUser(ctx, u))
	}

	donations := donation.NewService(st, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d, err := donations.Create(ctx, "d1", "h1")
	require.NoError(t, err)
	_, err = donations.Verify(ctx, d.ID)
	require.NoError(t, err)
	_, err = donations.Create(ctx, "d2", "h1")
	require.NoError(t, err)

	cfg.Store = st
	cfg.Donations = donations

	r := chi.NewRouter()
	NewHandler(cfg).RegisterRoutes(r, middleware.RequireAPIKey(adminKey))
	return r
}

func request(h http.Handler, method, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if key != "" {
		req.Header.Set(middleware.AdminKeyHeader, key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestStatsRequireAdminKey(t *testing.T) {
	h := newRouter(t, HandlerConfig{})

	assert.Equal(t, http.StatusForbidden, request(h, http.MethodGet, "/admin/stats", "").Code)
	assert.Equal(t, http.StatusForbidden, request(h, http.MethodGet, "/admin/stats", "wrong").Code)
	assert.Equal(t, http.StatusOK, request(h, http.MethodGet, "/admin/stats", adminKey).Code)
}

func TestSystemStats(t *testing.T) {
	h := newRouter(t, HandlerConfig{
		DBPing: func(context.Context) error { return errors.New("down") },
	})

	rec := request(h, http.MethodGet, "/admin/stats", adminKey)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data SystemStatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, DomainStats{
		Donors:          2,
		AvailableDonors: 1,
		Hospitals:       1,
		Donations:       donation.Stats{Pending: 1, Verified: 1},
	}, body.Data.Domain)
	require.NotNil(t, body.Data.Database)
	assert.False(t, body.Data.Database.Healthy)
	assert.Nil(t, body.Data.Redis, "redis section omitted when not configured")
	assert.NotEmpty(t, body.Data.Runtime.GoVersion)
}

func TestPurgeSessions(t *testing.T) {
	h := newRouter(t, HandlerConfig{Purger: fakePurger{n: 3}})
	rec := request(h, http.MethodPost, "/admin/sessions/purge", adminKey)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"purged":3}}`, rec.Body.String())

	h = newRouter(t, HandlerConfig{})
	rec = request(h, http.MethodPost, "/admin/sessions/purge", adminKey)
	require.Equal(t, http.StatusOK, rec.Code)

	h = newRouter(t, HandlerConfig{Purger: fakePurger{err: errors.New("boom")}})
	rec = request(h, http.MethodPost, "/admin/sessions/purge", adminKey)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
