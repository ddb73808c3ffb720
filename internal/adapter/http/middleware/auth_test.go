package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ride-hail-client/internal/domain/models"
	"github.com/Temutjin2k/ride-hail-client/internal/domain/types"
	"github.com/Temutjin2k/ride-hail-client/pkg/logger"
)

type stubAuth map[string]models.Actor

func (s stubAuth) Resolve(_ context.Context, token string) (models.Actor, error) {
	a, ok := s[token]
	if !ok {
		return models.Actor{}, errors.New("unknown token")
	}
	return a, nil
}

func TestAuth_RequireRoles(t *testing.T) {
	driver := models.Actor{ID: uuid.New(), Role: types.RoleDriver}
	passenger := models.Actor{ID: uuid.New(), Role: types.RolePassenger}
	m := NewMiddleware(stubAuth{"d": driver, "p": passenger}, logger.Nop())

	var got models.Actor
	inner := func(w http.ResponseWriter, r *http.Request) {
		got = models.ActorFromContext(r.Context())
		if TokenFromContext(r.Context()) == "" {
			t.Errorf("token missing from context")
		}
		w.WriteHeader(http.StatusNoContent)
	}
	h := m.Auth(m.RequireRoles(inner, types.RoleDriver))

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"anonymous", "", http.StatusUnauthorized},
		{"malformed header", "Token d", http.StatusUnauthorized},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer p", http.StatusForbidden},
		{"driver", "Bearer d", http.StatusNoContent},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rides/view", nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != c.want {
				t.Fatalf("status = %d, want %d", rec.Code, c.want)
			}
		})
	}

	if got != driver {
		t.Fatalf("actor in context = %+v", got)
	}
}

func TestAuth_WebsocketQueryToken(t *testing.T) {
	passenger := models.Actor{ID: uuid.New(), Role: types.RolePassenger}
	m := NewMiddleware(stubAuth{"p": passenger}, logger.Nop())

	h := m.Auth(m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws/rides?access_token=p", nil)
	req.Header.Set("Upgrade", "websocket")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("upgrade with query token: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/rides/view?access_token=p", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("query token outside upgrade must be ignored, status = %d", rec.Code)
	}
}

func TestRequestID(t *testing.T) {
	m := NewMiddleware(stubAuth{}, logger.Nop())
	h := m.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Fatalf("request id not set")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get(RequestIDHeader) != "abc" {
		t.Fatalf("caller request id not reused")
	}
}

func TestRecover(t *testing.T) {
	m := NewMiddleware(stubAuth{}, logger.Nop())
	h := m.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestErrorResponse_CarriesRequestID(t *testing.T) {
	m := NewMiddleware(stubAuth{}, logger.Nop())
	h := m.RequestID(m.Auth(m.RequireRoles(func(w http.ResponseWriter, r *http.Request) {})))

	req := httptest.NewRequest(http.MethodGet, "/rides/view", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("WWW-Authenticate") == "" {
		t.Fatalf("WWW-Authenticate not set")
	}

	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.RequestID != "req-1" || body.Error != "authorization required" {
		t.Fatalf("body = %+v", body)
	}
}
