package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
)

func TestFail(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"quota", fmt.Errorf("lifecycle.ConsumeAttempt: %w", apperr.ErrQuotaExhausted), http.StatusPaymentRequired, "attempt quota exhausted"},
		{"not found", apperr.ErrNotFound, http.StatusNotFound, "not found"},
		{"internal detail hidden", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Fail(w, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, StatusError, body.Status)
			assert.Equal(t, tt.wantMsg, body.Error)
		})
	}
}

func TestInvalid(t *testing.T) {
	type req struct {
		Email string `validate:"required,email"`
		Code  string `validate:"len=6"`
		Kind  string `validate:"oneof=sub gaz"`
	}
	err := validator.New().Struct(req{Email: "nope", Code: "1", Kind: "x"})
	require.Error(t, err)

	w := httptest.NewRecorder()
	Invalid(w, httptest.NewRequest(http.MethodPost, "/", nil), err)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body.Error, "field Email must be a valid email")
	assert.Contains(t, body.Error, "field Code must have length 6")
	assert.Contains(t, body.Error, "field Kind must be one of [sub gaz]")
}
