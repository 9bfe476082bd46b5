// AngelaMos | 2026
// server_test.go

package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/bloodlink/internal/config"
	"github.com/carterperez-dev/bloodlink/internal/health"
)

func newTestServer() (*Server, *health.Handler) {
	hh := health.NewHandler()
	srv := New(Config{
		ServerConfig: config.ServerConfig{
			Host:            "127.0.0.1",
			Port:            0,
			ReadTimeout:     time.Second,
			WriteTimeout:    time.Second,
			ShutdownTimeout: time.Second,
		},
		HealthHandler: hh,
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	hh.RegisterRoutes(srv.Router())
	return srv, hh
}

func TestRecovererTurnsPanicInto500(t *testing.T) {
	srv, _ := newTestServer()
	srv.Router().Get("/boom", func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShutdownFlipsHealth(t *testing.T) {
	srv, _ := newTestServer()

	probe := func() int {
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
		return rec.Code
	}
	require.Equal(t, http.StatusOK, probe())

	require.NoError(t, srv.Shutdown(context.Background(), 0))
	assert.Equal(t, http.StatusServiceUnavailable, probe())
}

func TestShutdownHonoursContextDuringDrain(t *testing.T) {
	srv, _ := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := srv.Shutdown(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStartReturnsNilAfterShutdown(t *testing.T) {
	srv, _ := newTestServer()

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	require.Eventually(t, func() bool {
		return srv.Shutdown(context.Background(), 0) == nil
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
