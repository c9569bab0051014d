package entitlements

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/middlewarectx"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) RefreshEntitlements(ctx context.Context, accountID string) (models.Snapshot, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(models.Snapshot), args.Error(1)
}

func (m *ServiceMock) ConsumeAttempt(ctx context.Context, accountID string, score int) (models.AttemptResult, error) {
	args := m.Called(ctx, accountID, score)
	return args.Get(0).(models.AttemptResult), args.Error(1)
}

func (m *ServiceMock) ListAttempts(ctx context.Context, accountID string, limit, offset int) ([]models.ExamAttempt, error) {
	args := m.Called(ctx, accountID, limit, offset)
	a, _ := args.Get(0).([]models.ExamAttempt)
	return a, args.Error(1)
}

func (m *ServiceMock) Stats(ctx context.Context, accountID string) (models.ExamStats, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(models.ExamStats), args.Error(1)
}

func (m *ServiceMock) ListInstances(ctx context.Context, accountID string) ([]models.Instance, error) {
	args := m.Called(ctx, accountID)
	i, _ := args.Get(0).([]models.Instance)
	return i, args.Error(1)
}

func (m *ServiceMock) SwitchActive(ctx context.Context, accountID string, instanceID int64) (models.Snapshot, error) {
	args := m.Called(ctx, accountID, instanceID)
	return args.Get(0).(models.Snapshot), args.Error(1)
}

func (m *ServiceMock) CheckGazette(ctx context.Context, accountID string) (bool, error) {
	args := m.Called(ctx, accountID)
	return args.Bool(0), args.Error(1)
}

func (m *ServiceMock) DisableGazette(ctx context.Context, accountID string) error {
	return m.Called(ctx, accountID).Error(0)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func authed(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, bytes.NewBufferString(body))
	return r.WithContext(middlewarectx.WithAccount(r.Context(), "acc-1", models.RoleUser))
}

func TestMe(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("RefreshEntitlements", mock.Anything, "acc-1").
		Return(models.Snapshot{AccountID: "acc-1", Subscribed: true, Subscriptions: []models.Instance{}}, nil)

	w := httptest.NewRecorder()
	New(newNoopLogger(), svc).Me(w, authed(http.MethodGet, "/me", ""))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data models.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Data.Subscribed)
}

func TestMe_Unauthenticated(t *testing.T) {
	svc := new(ServiceMock)
	w := httptest.NewRecorder()
	New(newNoopLogger(), svc).Me(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "RefreshEntitlements", mock.Anything, mock.Anything)
}

func TestConsumeAttempt(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		score      int
		mockErr    error
		callSvc    bool
		wantStatus int
	}{
		{"consumed", `{"score":15}`, 15, nil, true, http.StatusCreated},
		{"zero score is valid", `{"score":0}`, 0, nil, true, http.StatusCreated},
		{"quota exhausted", `{"score":12}`, 12, fmt.Errorf("x: %w", apperr.ErrQuotaExhausted), true, http.StatusPaymentRequired},
		{"score above scale", `{"score":21}`, 0, nil, false, http.StatusUnprocessableEntity},
		{"missing score", `{}`, 0, nil, false, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callSvc {
				svc.On("ConsumeAttempt", mock.Anything, "acc-1", tt.score).Return(models.AttemptResult{}, tt.mockErr)
			}
			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ConsumeAttempt(w, authed(http.MethodPost, "/attempts", tt.body))
			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestListAttempts_Pagination(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("ListAttempts", mock.Anything, "acc-1", 100, 40).Return(nil, nil)

	w := httptest.NewRecorder()
	New(newNoopLogger(), svc).ListAttempts(w, authed(http.MethodGet, "/attempts?limit=500&offset=40", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
	svc.AssertExpectations(t)
}

func TestStatsAndSubscriptions(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Stats", mock.Anything, "acc-1").Return(models.ExamStats{TotalAttempts: 3, MaxScore: 18}, nil)
	svc.On("ListInstances", mock.Anything, "acc-1").Return([]models.Instance{{ID: 4}}, nil)
	h := New(newNoopLogger(), svc)

	w := httptest.NewRecorder()
	h.Stats(w, authed(http.MethodGet, "/attempts/stats", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"max_score":18`)

	w = httptest.NewRecorder()
	h.ListSubscriptions(w, authed(http.MethodGet, "/subscriptions", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestSwitchActive(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("SwitchActive", mock.Anything, "acc-1", int64(5)).Return(models.Snapshot{}, nil)
	svc.On("SwitchActive", mock.Anything, "acc-1", int64(6)).Return(models.Snapshot{}, fmt.Errorf("x: %w", apperr.ErrExpired))
	h := New(newNoopLogger(), svc)

	for body, want := range map[string]int{
		`{"subscription_id":5}`: http.StatusOK,
		`{"subscription_id":6}`: http.StatusGone,
		`{"subscription_id":0}`: http.StatusUnprocessableEntity,
	} {
		w := httptest.NewRecorder()
		h.SwitchActive(w, authed(http.MethodPut, "/subscriptions/active", body))
		assert.Equal(t, want, w.Code, body)
	}
}

func TestGazette(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("CheckGazette", mock.Anything, "acc-1").Return(true, nil)
	svc.On("DisableGazette", mock.Anything, "acc-1").Return(nil)
	h := New(newNoopLogger(), svc)

	w := httptest.NewRecorder()
	h.CheckGazette(w, authed(http.MethodGet, "/gazette", ""))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"gazette_access":true`)

	w = httptest.NewRecorder()
	h.DisableGazette(w, authed(http.MethodDelete, "/gazette", ""))
	assert.Equal(t, http.StatusNoContent, w.Code)
	svc.AssertExpectations(t)
}
