package register

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

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

type ServiceMock struct{ mock.Mock }

func (m *ServiceMock) Register(ctx context.Context, in models.DummyAccount) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandler_ServeHTTP(t *testing.T) {
	valid := models.DummyAccount{Names: "Aline", Email: "aline@example.com", PhoneNumber: "250788000000", Password: "secret123"}

	tests := []struct {
		name       string
		body       any
		mockErr    error
		callSvc    bool
		wantStatus int
	}{
		{name: "created", body: valid, callSvc: true, wantStatus: http.StatusCreated},
		{name: "duplicate email", body: valid, callSvc: true, mockErr: fmt.Errorf("storage: %w", apperr.ErrConflict), wantStatus: http.StatusConflict},
		{name: "invalid email", body: models.DummyAccount{Names: "A", Email: "x", PhoneNumber: "1", Password: "secret123"}, wantStatus: http.StatusUnprocessableEntity},
		{name: "malformed json", body: "{", wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			if tt.callSvc {
				svc.On("Register", mock.Anything, valid).Return("acc-1", tt.mockErr)
			}
			var body []byte
			if s, ok := tt.body.(string); ok {
				body = []byte(s)
			} else {
				body, _ = json.Marshal(tt.body)
			}

			w := httptest.NewRecorder()
			New(newNoopLogger(), svc).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/register", bytes.NewReader(body)))

			assert.Equal(t, tt.wantStatus, w.Code)
			svc.AssertExpectations(t)
		})
	}
}
