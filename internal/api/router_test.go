package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akylbek/payment-system/cod-verifier/internal/models"
)

type stubService struct{}

func (stubService) Dispatch(models.Intent) error { return nil }

func (stubService) Snapshot(context.Context) (models.SessionSnapshot, error) {
	return models.SessionSnapshot{Session: models.VerificationSession{ID: "sess-1"}}, nil
}

func (stubService) Transitions(context.Context) ([]models.TransitionEvent, error) {
	return nil, nil
}

func TestRouter_Routes(t *testing.T) {
	r := NewRouter(stubService{}, nil, nil)

	cases := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/session", http.StatusOK},
		{http.MethodGet, "/session/transitions", http.StatusOK},
		{http.MethodGet, "/session/qr.png", http.StatusNotFound},
		{http.MethodGet, "/payments/1/state", http.StatusNotFound},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, nil))
		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}

func TestRouter_HealthNamesService(t *testing.T) {
	r := NewRouter(stubService{}, nil, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.JSONEq(t, `{"status":"ok","service":"cod-verifier"}`, w.Body.String())
}
