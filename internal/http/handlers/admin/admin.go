// Package admin содержит административные обработчики: принудительную
// сверку, ручную выдачу плана, продление экземпляра и список попыток.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/request"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/response"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/lifecycle"
)

// Service — административные операции жизненного цикла.
type Service interface {
	RunSweep(ctx context.Context) (lifecycle.SweepResult, error)
	ActivateSubscription(ctx context.Context, accountID string, planID int64, language string) (models.Snapshot, error)
	ExtendInstance(ctx context.Context, instanceID int64, endDate time.Time) (*models.Instance, error)
	ListAllAttempts(ctx context.Context, limit, offset int) ([]models.AttemptWithOwner, error)
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logger(op string, r *http.Request) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Sweep godoc
// @Summary Принудительная сверка всех аккаунтов
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /admin/sweep [post]
func (h *Handler) Sweep(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.admin.Sweep", r)

	result, err := h.service.RunSweep(r.Context())
	if err != nil {
		log.Error("sweep failed", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("sweep finished",
		slog.Int("accounts", result.Accounts),
		slog.Int("purged", result.Purged),
		slog.Int("failed", result.Failed),
	)
	render.JSON(w, r, response.StatusOKWithData(result))
}

// Grant godoc
// @Summary Ручная выдача плана аккаунту
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ID аккаунта"
// @Param request body models.DummyGrant true "План и язык"
// @Success 201 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Аккаунт или план не найден"
// @Router /admin/accounts/{id}/subscriptions [post]
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.admin.Grant", r)

	accountID := chi.URLParam(r, "id")
	if err := uuid.Validate(accountID); err != nil {
		log.Warn("invalid account id", slog.String("id", accountID))
		response.BadRequest(w, r, "invalid id")
		return
	}
	var req models.DummyGrant
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	snap, err := h.service.ActivateSubscription(r.Context(), accountID, req.PlanID, req.Language)
	if err != nil {
		log.Error("failed to grant subscription", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("subscription granted", slog.String("account_id", accountID), slog.Int64("plan_id", req.PlanID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(snap))
}

// Extend godoc
// @Summary Продление экземпляра подписки
// @Tags Admin
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID экземпляра"
// @Param request body models.DummyExtend true "Новая дата окончания"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.ErrorResponse "Дата в прошлом"
// @Router /admin/subscriptions/{id} [put]
func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.admin.Extend", r)

	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}
	var req models.DummyExtend
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	inst, err := h.service.ExtendInstance(r.Context(), id, req.EndDate)
	if err != nil {
		log.Warn("failed to extend instance", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(inst))
}

// Attempts godoc
// @Summary Попытки экзамена всех пользователей
// @Tags Admin
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Router /admin/attempts [get]
func (h *Handler) Attempts(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.admin.Attempts", r)

	limit, offset := request.Pagination(r)
	attempts, err := h.service.ListAllAttempts(r.Context(), limit, offset)
	if err != nil {
		log.Error("failed to list attempts", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	if attempts == nil {
		attempts = []models.AttemptWithOwner{}
	}
	render.JSON(w, r, response.StatusOKWithData(attempts))
}
