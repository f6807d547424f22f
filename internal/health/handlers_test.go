package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartcanteen/backend-canteen/internal/health"
)

type stubChecker struct {
	dbErr    error
	redisErr error
}

func (s stubChecker) PingDB(context.Context, time.Duration) error    { return s.dbErr }
func (s stubChecker) PingRedis(context.Context, time.Duration) error { return s.redisErr }

func TestLive(t *testing.T) {
	recorder := httptest.NewRecorder()
	health.Handler{}.Live(recorder, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.Equal(t, "ok", recorder.Body.String())
}

func TestReadyAllHealthy(t *testing.T) {
	h := health.Handler{Checker: stubChecker{}}
	recorder := httptest.NewRecorder()
	h.Ready(recorder, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, recorder.Code)
	require.JSONEq(t, `{"db":"ok","redis":"ok"}`, recorder.Body.String())
}

func TestReadyDegraded(t *testing.T) {
	h := health.Handler{Checker: stubChecker{redisErr: errors.New("connection refused")}}
	recorder := httptest.NewRecorder()
	h.Ready(recorder, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
	require.Contains(t, recorder.Body.String(), "connection refused")
}

func TestReadyWithoutChecker(t *testing.T) {
	recorder := httptest.NewRecorder()
	health.Handler{}.Ready(recorder, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, recorder.Code)
}
