// Package entitlements содержит обработчики прав доступа пользователя:
// снимок прав, попытки экзамена, экземпляры подписок и газету.
package entitlements

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

// Service — операции жизненного цикла, доступные пользователю.
type Service interface {
	RefreshEntitlements(ctx context.Context, accountID string) (models.Snapshot, error)
	ConsumeAttempt(ctx context.Context, accountID string, score int) (models.AttemptResult, error)
	ListAttempts(ctx context.Context, accountID string, limit, offset int) ([]models.ExamAttempt, error)
	Stats(ctx context.Context, accountID string) (models.ExamStats, error)
	ListInstances(ctx context.Context, accountID string) ([]models.Instance, error)
	SwitchActive(ctx context.Context, accountID string, instanceID int64) (models.Snapshot, error)
	CheckGazette(ctx context.Context, accountID string) (bool, error)
	DisableGazette(ctx context.Context, accountID string) error
}

// Handler объединяет пользовательские обработчики прав доступа.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// begin обогащает логгер и достаёт аккаунт из контекста.
func (h *Handler) begin(op string, w http.ResponseWriter, r *http.Request) (*slog.Logger, string, bool) {
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	accountID, ok := request.Account(w, r, log)
	return log, accountID, ok
}

// Me godoc
// @Summary Текущие права доступа
// @Description Сверяет экземпляры подписок и возвращает актуальный снимок прав
// @Tags Entitlements
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /me [get]
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.Me", w, r)
	if !ok {
		return
	}
	snap, err := h.service.RefreshEntitlements(r.Context(), accountID)
	if err != nil {
		log.Error("failed to refresh entitlements", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(snap))
}

// ConsumeAttempt godoc
// @Summary Списание попытки экзамена
// @Tags Attempts
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummyAttempt true "Оценка 0-20"
// @Success 201 {object} response.Response
// @Failure 402 {object} response.ErrorResponse "Нет доступных попыток"
// @Router /attempts [post]
func (h *Handler) ConsumeAttempt(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.ConsumeAttempt", w, r)
	if !ok {
		return
	}
	var req models.DummyAttempt
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	result, err := h.service.ConsumeAttempt(r.Context(), accountID, *req.Score)
	if err != nil {
		log.Warn("attempt rejected", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(result))
}

// ListAttempts godoc
// @Summary История попыток
// @Tags Attempts
// @Security BearerAuth
// @Produce json
// @Param limit query int false "Размер страницы"
// @Param offset query int false "Смещение"
// @Success 200 {object} response.Response
// @Router /attempts [get]
func (h *Handler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.ListAttempts", w, r)
	if !ok {
		return
	}
	limit, offset := request.Pagination(r)
	attempts, err := h.service.ListAttempts(r.Context(), accountID, limit, offset)
	if err != nil {
		log.Error("failed to list attempts", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	if attempts == nil {
		attempts = []models.ExamAttempt{}
	}
	render.JSON(w, r, response.StatusOKWithData(attempts))
}

// Stats godoc
// @Summary Статистика попыток
// @Tags Attempts
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /attempts/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.Stats", w, r)
	if !ok {
		return
	}
	stats, err := h.service.Stats(r.Context(), accountID)
	if err != nil {
		log.Error("failed to get attempt stats", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(stats))
}

// ListSubscriptions godoc
// @Summary Действующие подписки
// @Tags Subscriptions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /subscriptions [get]
func (h *Handler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.ListSubscriptions", w, r)
	if !ok {
		return
	}
	instances, err := h.service.ListInstances(r.Context(), accountID)
	if err != nil {
		log.Error("failed to list subscriptions", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(instances))
}

// SwitchActive godoc
// @Summary Смена активной подписки
// @Tags Subscriptions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummySwitch true "Экземпляр подписки"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "Экземпляр не найден"
// @Failure 410 {object} response.ErrorResponse "Экземпляр истёк"
// @Router /subscriptions/active [put]
func (h *Handler) SwitchActive(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.SwitchActive", w, r)
	if !ok {
		return
	}
	var req models.DummySwitch
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	snap, err := h.service.SwitchActive(r.Context(), accountID, req.InstanceID)
	if err != nil {
		log.Warn("failed to switch active subscription", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(snap))
}

// CheckGazette godoc
// @Summary Доступ к газете
// @Tags Gazette
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response.Response
// @Router /gazette [get]
func (h *Handler) CheckGazette(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.CheckGazette", w, r)
	if !ok {
		return
	}
	allowed, err := h.service.CheckGazette(r.Context(), accountID)
	if err != nil {
		log.Error("failed to check gazette access", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"gazette_access": allowed}))
}

// DisableGazette godoc
// @Summary Отключение доступа к газете после скачивания
// @Tags Gazette
// @Security BearerAuth
// @Success 204
// @Router /gazette [delete]
func (h *Handler) DisableGazette(w http.ResponseWriter, r *http.Request) {
	log, accountID, ok := h.begin("handlers.entitlements.DisableGazette", w, r)
	if !ok {
		return
	}
	if err := h.service.DisableGazette(r.Context(), accountID); err != nil {
		log.Error("failed to disable gazette access", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
