// AngelaMos | 2026
// handler_test.go

package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

func get(t *testing.T, h *Handler, path string) (int, ReadinessResponse) {
	t.Helper()
	r := chi.NewRouter()
	h.RegisterRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body ReadinessResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestReadinessWithoutChecks(t *testing.T) {
	h := NewHandler()

	code, body := get(t, h, "/readyz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
	assert.Empty(t, body.Checks)
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	h := NewHandler(
		Check{Name: "redis", Checker: redisPinger{client}},
		Check{Name: "database", Checker: pingFunc(func(context.Context) error {
			return errors.New("connection refused")
		})},
	)

	code, body := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
	require.Len(t, body.Checks, 2)
	assert.True(t, body.Checks[0].Healthy)
	assert.False(t, body.Checks[1].Healthy)
	assert.Equal(t, "ping failed", body.Checks[1].Message)

	code, _ = get(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code, "liveness ignores dependencies")
}

func TestShutdownFailsProbes(t *testing.T) {
	h := NewHandler()
	h.SetShutdown(true)

	for _, path := range []string{"/healthz", "/livez", "/readyz"} {
		code, body := get(t, h, path)
		assert.Equal(t, http.StatusServiceUnavailable, code, path)
		assert.Equal(t, "shutting_down", body.Status, path)
	}
}

func TestNotReady(t *testing.T) {
	h := NewHandler()
	h.SetReady(false)

	code, body := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "not_ready", body.Status)
}
