package contact

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

type DispatcherMock struct{ mock.Mock }

func (m *DispatcherMock) Dispatch(ctx context.Context, notices ...models.Notice) {
	m.Called(ctx, notices)
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSend(t *testing.T) {
	admin := models.Contact{Name: "Umuhanda", Email: "support@example.com", Phone: "250788000000"}
	sender := models.Contact{Name: "Jean", Email: "jean@example.com", Phone: "250788111111"}
	msg := models.DummyContact{Names: " Jean ", PhoneNumber: "250788111111", Email: "jean@example.com", Message: " Ndashaka ubufasha "}

	tests := []struct {
		name  string
		admin models.Contact
		want  []models.Notice
	}{
		{
			name:  "acknowledged and relayed",
			admin: admin,
			want: []models.Notice{
				{Kind: models.NoticeContactReceived, Contact: sender},
				{Kind: models.NoticeContactRelayed, Contact: admin, Sender: &sender, Message: "Ndashaka ubufasha"},
			},
		},
		{
			name:  "admin phone only",
			admin: models.Contact{Name: "Umuhanda", Phone: "250788000000"},
			want: []models.Notice{
				{Kind: models.NoticeContactReceived, Contact: sender},
				{Kind: models.NoticeContactRelayed, Contact: models.Contact{Name: "Umuhanda", Phone: "250788000000"}, Sender: &sender, Message: "Ndashaka ubufasha"},
			},
		},
		{
			name:  "no admin contact",
			admin: models.Contact{},
			want:  []models.Notice{{Kind: models.NoticeContactReceived, Contact: sender}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := new(DispatcherMock)
			d.On("Dispatch", mock.Anything, tt.want).Once()

			err := New(d, tt.admin, newNoopLogger()).Send(context.Background(), msg)
			assert.NoError(t, err)
			d.AssertExpectations(t)
		})
	}
}

func TestSend_BlankMessage(t *testing.T) {
	d := new(DispatcherMock)
	err := New(d, models.Contact{Email: "support@example.com"}, newNoopLogger()).
		Send(context.Background(), models.DummyContact{Names: "Jean", PhoneNumber: "250788111111", Message: "   "})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	d.AssertNotCalled(t, "Dispatch", mock.Anything, mock.Anything)
}
