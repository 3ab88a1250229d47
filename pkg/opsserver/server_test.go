package opsserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/persistfsm/pkg/fsmmetrics"
	"github.com/dmitrymomot/persistfsm/pkg/opsserver"
	"github.com/dmitrymomot/persistfsm/pkg/statemachine"
)

func startServer(t *testing.T, opts ...opsserver.Option) (*opsserver.Server, <-chan error, context.CancelFunc) {
	t.Helper()
	srv := opsserver.New(append([]opsserver.Option{
		opsserver.WithAddr("127.0.0.1:0"),
		opsserver.WithShutdownTimeout(100 * time.Millisecond),
	}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-done:
		cancel()
		require.FailNow(t, "server did not start", "%v", err)
	case <-time.After(time.Second):
		cancel()
		require.FailNow(t, "server did not start in time")
	}
	return srv, done, cancel
}

func waitDone(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err, "run")
	case <-time.After(time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()
	srv, done, cancel := startServer(t)
	defer cancel()

	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ALIVE", string(body))

	cancel()
	waitDone(t, done)
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestManualShutdown(t *testing.T) {
	t.Parallel()
	srv, done, cancel := startServer(t)
	defer cancel()

	require.NoError(t, srv.Shutdown(context.Background()), "first shutdown")
	require.NoError(t, srv.Shutdown(context.Background()), "second shutdown")
	waitDone(t, done)
}

func TestShutdownBeforeRun(t *testing.T) {
	t.Parallel()
	srv := opsserver.New()
	assert.NoError(t, srv.Shutdown(context.Background()))
	assert.Empty(t, srv.Addr())
}

func TestStartError(t *testing.T) {
	t.Parallel()
	srv := opsserver.New(opsserver.WithAddr(":invalid"))
	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, opsserver.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()
	srv, done, cancel := startServer(t)

	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, opsserver.ErrStart)

	cancel()
	waitDone(t, done)
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	t.Run("all checks pass", func(t *testing.T) {
		t.Parallel()
		srv := opsserver.New(
			opsserver.WithCheck("memory", func(context.Context) error { return nil }),
		)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "READY", body["status"])
		assert.Equal(t, map[string]any{"memory": "ok"}, body["checks"])
	})

	t.Run("failing check", func(t *testing.T) {
		t.Parallel()
		srv := opsserver.New(
			opsserver.WithCheck("memory", func(context.Context) error { return nil }),
			opsserver.WithCheck("postgres", func(context.Context) error { return errors.New("connection refused") }),
		)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "NOT_READY", body["status"])
		assert.Equal(t, map[string]any{"memory": "ok", "postgres": "connection refused"}, body["checks"])
	})

	t.Run("check sees a deadline", func(t *testing.T) {
		t.Parallel()
		var hasDeadline bool
		srv := opsserver.New(
			opsserver.WithCheckTimeout(time.Second),
			opsserver.WithCheck("slow", func(ctx context.Context) error {
				_, hasDeadline = ctx.Deadline()
				return nil
			}),
		)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, hasDeadline)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("not mounted without a gatherer", func(t *testing.T) {
		t.Parallel()
		rec := httptest.NewRecorder()
		opsserver.New().Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("exposes transition metrics", func(t *testing.T) {
		t.Parallel()
		reg := prometheus.NewRegistry()
		collector := fsmmetrics.MustNew(fsmmetrics.WithRegisterer(reg))
		collector.TransitionCompleted("approve", statemachine.State("submitted"), statemachine.State("approved"))

		rec := httptest.NewRecorder()
		opsserver.New(opsserver.WithGatherer(reg)).Handler().
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `fsm_transitions_total{from="submitted",to="approved",trigger="approve"} 1`)
	})
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()
	srv := opsserver.NewFromConfig(opsserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()
	<-srv.Ready()
	assert.NotEqual(t, "127.0.0.1:0", srv.Addr())
	cancel()
	waitDone(t, done)
}
