// Package profile содержит обработчики чтения и изменения профиля.
package profile

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/request"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/response"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// Service описывает операции профиля.
type Service interface {
	Profile(ctx context.Context, accountID string) (*models.Account, error)
	UpdateProfile(ctx context.Context, accountID string, p models.DummyProfile) (*models.Account, error)
}

// View — публичное представление аккаунта.
type View struct {
	ID                   string `json:"id"`
	Names                string `json:"names"`
	Email                string `json:"email"`
	PhoneNumber          string `json:"phone_number"`
	Language             string `json:"language"`
	Country              string `json:"country"`
	Role                 string `json:"role"`
	Subscribed           bool   `json:"subscribed"`
	HasFreeTrial         bool   `json:"has_free_trial"`
	GazetteAccess        bool   `json:"gazette_access"`
	ActiveSubscriptionID *int64 `json:"active_subscription_id"`
}

func toView(a *models.Account) View {
	return View{
		ID:                   a.ID,
		Names:                a.Names,
		Email:                a.Email,
		PhoneNumber:          a.PhoneNumber,
		Language:             a.Language,
		Country:              a.Country,
		Role:                 a.Role,
		Subscribed:           a.Subscribed,
		HasFreeTrial:         a.HasFreeTrial,
		GazetteAccess:        a.GazetteAccess,
		ActiveSubscriptionID: a.ActiveSubscriptionID,
	}
}

// Handler обрабатывает GET и PUT /profile.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Профиль аккаунта
// @Tags Account
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /profile [get]
// @Router /profile [put]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.profile"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := request.Account(w, r, log)
	if !ok {
		return
	}

	var (
		account *models.Account
		err     error
	)
	switch r.Method {
	case http.MethodPut:
		var req models.DummyProfile
		if !request.DecodeJSON(w, r, log, &req) {
			return
		}
		account, err = h.service.UpdateProfile(r.Context(), accountID, req)
	default:
		account, err = h.service.Profile(r.Context(), accountID)
	}
	if err != nil {
		log.Error("profile operation failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(toView(account)))
}
