package plans

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Create(ctx context.Context, in models.DummyPlan) (int64, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(int64), args.Error(1)
}

func (m *ServiceMock) Get(ctx context.Context, id int64) (*models.Plan, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*models.Plan)
	return p, args.Error(1)
}

func (m *ServiceMock) Update(ctx context.Context, id int64, in models.DummyPlan) (*models.Plan, error) {
	args := m.Called(ctx, id, in)
	p, _ := args.Get(0).(*models.Plan)
	return p, args.Error(1)
}

func (m *ServiceMock) Remove(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *ServiceMock) List(ctx context.Context, filter models.PlanFilter) ([]models.Plan, error) {
	args := m.Called(ctx, filter)
	p, _ := args.Get(0).([]models.Plan)
	return p, args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func withID(r *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestCreate(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		mockID     int64
		mockErr    error
		callSvc    bool
		wantStatus int
	}{
		{"valid", `{"name":"Gold","price":5000,"validity_days":30}`, 7, nil, true, http.StatusCreated},
		{"zero price", `{"name":"Gold","price":0,"validity_days":30}`, 0, nil, false, http.StatusUnprocessableEntity},
		{"broken json", `{"name":`, 0, nil, false, http.StatusBadRequest},
		{"storage failure", `{"name":"Gold","price":5000,"validity_days":30}`, 0, fmt.Errorf("boom"), true, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callSvc {
				svc.On("Create", mock.Anything, mock.AnythingOfType("models.DummyPlan")).Return(tt.mockID, tt.mockErr)
			}
			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).Create(w, httptest.NewRequest(http.MethodPost, "/plans", bytes.NewBufferString(tt.body)))
			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}

func TestRead(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Get", mock.Anything, int64(3)).Return(&models.Plan{ID: 3, Name: "Silver"}, nil)
	svc.On("Get", mock.Anything, int64(4)).Return(nil, fmt.Errorf("x: %w", apperr.ErrNotFound))
	h := New(newNoopLogger(), svc)

	for id, want := range map[string]int{"3": http.StatusOK, "4": http.StatusNotFound, "abc": http.StatusBadRequest, "-1": http.StatusBadRequest} {
		w := httptest.NewRecorder()
		h.Read(w, withID(httptest.NewRequest(http.MethodGet, "/plans/"+id, nil), id))
		assert.Equal(t, want, w.Code, "id %s", id)
	}
}

func TestList_Filter(t *testing.T) {
	minPrice, maxPrice := int64(1000), int64(9000)
	svc := new(ServiceMock)
	svc.On("List", mock.Anything, models.PlanFilter{MinPrice: &minPrice, MaxPrice: &maxPrice}).Return([]models.Plan{{ID: 1}}, nil)
	svc.On("List", mock.Anything, models.PlanFilter{}).Return(nil, nil)
	h := New(newNoopLogger(), svc)

	w := httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/plans?min_price=1000&max_price=9000", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/plans", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	w = httptest.NewRecorder()
	h.List(w, httptest.NewRequest(http.MethodGet, "/plans?validity_days=x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertExpectations(t)
}

func TestUpdateAndRemove(t *testing.T) {
	svc := new(ServiceMock)
	svc.On("Update", mock.Anything, int64(2), models.DummyPlan{Name: "Gold", Price: 6000, ValidityDays: 30}).
		Return(&models.Plan{ID: 2, Name: "Gold", Price: 6000}, nil)
	svc.On("Remove", mock.Anything, int64(2)).Return(nil)
	svc.On("Remove", mock.Anything, int64(9)).Return(fmt.Errorf("x: %w", apperr.ErrNotFound))
	h := New(newNoopLogger(), svc)

	w := httptest.NewRecorder()
	h.Update(w, withID(httptest.NewRequest(http.MethodPut, "/plans/2", bytes.NewBufferString(`{"name":"Gold","price":6000,"validity_days":30}`)), "2"))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.Remove(w, withID(httptest.NewRequest(http.MethodDelete, "/plans/2", nil), "2"))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	h.Remove(w, withID(httptest.NewRequest(http.MethodDelete, "/plans/9", nil), "9"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	svc.AssertExpectations(t)
}
