// Package login реализует HTTP-обработчик входа по email и паролю.
package login

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

// Service описывает вход.
type Service interface {
	Login(ctx context.Context, email, password string) (string, *models.Account, error)
}

// Handler обрабатывает POST /login.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Вход
// @Description Возвращает JWT с идентификатором аккаунта и ролью.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.DummyLogin true "Учётные данные"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверные учётные данные"
// @Router /login [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.login"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyLogin
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}

	token, account, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		log.Warn("login failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("login success", slog.String("account_id", account.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"token":      token,
		"account_id": account.ID,
		"role":       account.Role,
		"subscribed": account.Subscribed,
	}))
}
