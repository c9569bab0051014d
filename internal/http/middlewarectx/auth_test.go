package middlewarectx_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/middlewarectx"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/jwt"
)

type ValidatorMock struct {
	mock.Mock
}

func (m *ValidatorMock) ValidateToken(token string) (*jwt.Claims, error) {
	args := m.Called(token)
	claims, _ := args.Get(0).(*jwt.Claims)
	return claims, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestJWTMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		authHeader string
		token      string
		claims     *jwt.Claims
		mockErr    error
		wantStatus int
		wantCalled bool
	}{
		{name: "missing header", path: "/api/v1/me", wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/api/v1/me", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "invalid token", path: "/api/v1/me", authHeader: "Bearer bad", token: "bad", mockErr: errors.New("expired"), wantStatus: http.StatusUnauthorized},
		{name: "valid token", path: "/api/v1/me", authHeader: "Bearer good", token: "good", claims: &jwt.Claims{AccountID: "acc-1", Role: "user"}, wantStatus: http.StatusOK, wantCalled: true},
		{name: "query token on ws", path: "/api/v1/ws?token=good", token: "good", claims: &jwt.Claims{AccountID: "acc-1", Role: "user"}, wantStatus: http.StatusOK, wantCalled: true},
		{name: "query token ignored elsewhere", path: "/api/v1/me?token=good", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := new(ValidatorMock)
			if tt.token != "" {
				v.On("ValidateToken", tt.token).Return(tt.claims, tt.mockErr)
			}
			called := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				id, ok := middlewarectx.AccountIDFrom(r.Context())
				assert.True(t, ok)
				assert.Equal(t, "acc-1", id)
				assert.Equal(t, "user", r.Context().Value(middlewarectx.Role))
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			w := httptest.NewRecorder()
			middlewarectx.JWTMiddleware(v, newNoopLogger())(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCalled, called)
			v.AssertExpectations(t)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		role       string
		wantStatus int
	}{
		{"admin", http.StatusOK},
		{"user", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run("role "+tt.role, func(t *testing.T) {
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
			req := httptest.NewRequest(http.MethodPost, "/api/v1/plans", nil)
			req = req.WithContext(middlewarectx.WithAccount(req.Context(), "acc-1", tt.role))
			w := httptest.NewRecorder()

			middlewarectx.RequireAdmin(newNoopLogger())(next).ServeHTTP(w, req)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
