// Package register реализует HTTP-обработчик регистрации аккаунта.
package register

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

// Service описывает регистрацию.
type Service interface {
	Register(ctx context.Context, in models.DummyAccount) (string, error)
}

// Handler обрабатывает POST /register.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Регистрация аккаунта
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.DummyAccount true "Данные аккаунта"
// @Success 201 {object} response.Response
// @Failure 409 {object} response.ErrorResponse "Email уже занят"
// @Failure 422 {object} response.ErrorResponse "Ошибка валидации"
// @Router /register [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.register"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyAccount
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}

	id, err := h.service.Register(r.Context(), req)
	if err != nil {
		log.Error("failed to register account", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("account registered", slog.String("account_id", id))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"account_id": id}))
}
