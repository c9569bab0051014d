// Package password содержит обработчики сброса и смены пароля.
package password

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

// Service описывает операции с паролем.
type Service interface {
	RequestReset(ctx context.Context, email string) error
	ConfirmReset(ctx context.Context, email, code, newPassword string) error
	ChangePassword(ctx context.Context, accountID, oldPassword, newPassword string) error
}

func logger(log *slog.Logger, op string, r *http.Request) *slog.Logger {
	return log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// ResetHandler обрабатывает POST /password/reset.
type ResetHandler struct {
	log     *slog.Logger
	service Service
}

// NewReset создаёт ResetHandler.
func NewReset(log *slog.Logger, service Service) *ResetHandler {
	return &ResetHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Запрос кода сброса пароля
// @Tags Auth
// @Accept json
// @Param request body models.DummyResetRequest true "Email"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Аккаунт не найден"
// @Router /password/reset [post]
func (h *ResetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger(h.log, "handlers.auth.password.reset", r)

	var req models.DummyResetRequest
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	if err := h.service.RequestReset(r.Context(), req.Email); err != nil {
		log.Warn("failed to request password reset", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"message": "reset code sent"}))
}

// ConfirmHandler обрабатывает POST /password/reset/confirm.
type ConfirmHandler struct {
	log     *slog.Logger
	service Service
}

// NewConfirm создаёт ConfirmHandler.
func NewConfirm(log *slog.Logger, service Service) *ConfirmHandler {
	return &ConfirmHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Подтверждение сброса пароля
// @Tags Auth
// @Accept json
// @Param request body models.DummyResetConfirm true "Код и новый пароль"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Неверный или истёкший код"
// @Router /password/reset/confirm [post]
func (h *ConfirmHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger(h.log, "handlers.auth.password.confirm", r)

	var req models.DummyResetConfirm
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	if err := h.service.ConfirmReset(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		log.Warn("failed to confirm password reset", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"message": "password updated"}))
}

// ChangeHandler обрабатывает PUT /password.
type ChangeHandler struct {
	log     *slog.Logger
	service Service
}

// NewChange создаёт ChangeHandler.
func NewChange(log *slog.Logger, service Service) *ChangeHandler {
	return &ChangeHandler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Смена пароля
// @Tags Auth
// @Security BearerAuth
// @Accept json
// @Param request body models.DummyPasswordChange true "Текущий и новый пароль"
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверный текущий пароль"
// @Router /password [put]
func (h *ChangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger(h.log, "handlers.auth.password.change", r)

	accountID, ok := request.Account(w, r, log)
	if !ok {
		return
	}
	var req models.DummyPasswordChange
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	if err := h.service.ChangePassword(r.Context(), accountID, req.OldPassword, req.NewPassword); err != nil {
		log.Warn("failed to change password", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"message": "password updated"}))
}
