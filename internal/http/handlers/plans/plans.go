// Package plans содержит HTTP-обработчики каталога тарифов.
package plans

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/request"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/response"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// Service описывает операции каталога.
type Service interface {
	Create(ctx context.Context, in models.DummyPlan) (int64, error)
	Get(ctx context.Context, id int64) (*models.Plan, error)
	Update(ctx context.Context, id int64, in models.DummyPlan) (*models.Plan, error)
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context, filter models.PlanFilter) ([]models.Plan, error)
}

// Handler объединяет обработчики каталога. Каждый метод монтируется на
// свой маршрут.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) logger(op string, r *http.Request) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// Create godoc
// @Summary Создание плана
// @Tags Plans
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummyPlan true "Данные плана"
// @Success 201 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Недостаточно прав"
// @Router /plans [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.plans.Create", r)

	var req models.DummyPlan
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	id, err := h.service.Create(r.Context(), req)
	if err != nil {
		log.Error("failed to create plan", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("plan created", slog.Int64("plan_id", id))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"plan_id": id}))
}

// Read godoc
// @Summary Получение плана
// @Tags Plans
// @Produce json
// @Param id path int true "ID плана"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Router /plans/{id} [get]
func (h *Handler) Read(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.plans.Read", r)

	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}
	plan, err := h.service.Get(r.Context(), id)
	if err != nil {
		log.Warn("failed to get plan", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(plan))
}

// List godoc
// @Summary Список планов
// @Tags Plans
// @Produce json
// @Param min_price query int false "Минимальная цена"
// @Param max_price query int false "Максимальная цена"
// @Param validity_days query int false "Срок действия в днях"
// @Success 200 {object} response.Response
// @Router /plans [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.plans.List", r)

	filter, err := parseFilter(r)
	if err != nil {
		log.Warn("invalid plan filter", sl.Err(err))
		response.BadRequest(w, r, "invalid filter")
		return
	}
	plans, err := h.service.List(r.Context(), filter)
	if err != nil {
		log.Error("failed to list plans", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	render.JSON(w, r, response.StatusOKWithData(plans))
}

// Update godoc
// @Summary Обновление плана
// @Tags Plans
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path int true "ID плана"
// @Param request body models.DummyPlan true "Новые данные плана"
// @Success 200 {object} response.Response
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Router /plans/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.plans.Update", r)

	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}
	var req models.DummyPlan
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	plan, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		log.Error("failed to update plan", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	render.JSON(w, r, response.StatusOKWithData(plan))
}

// Remove godoc
// @Summary Удаление плана
// @Tags Plans
// @Security BearerAuth
// @Param id path int true "ID плана"
// @Success 204
// @Failure 404 {object} response.ErrorResponse "План не найден"
// @Router /plans/{id} [delete]
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	log := h.logger("handlers.plans.Remove", r)

	id, ok := request.IDParam(w, r, log, "id")
	if !ok {
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		log.Error("failed to remove plan", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("plan removed", slog.Int64("plan_id", id))
	w.WriteHeader(http.StatusNoContent)
}

func parseFilter(r *http.Request) (models.PlanFilter, error) {
	q := r.URL.Query()
	var f models.PlanFilter
	for _, p := range []struct {
		key string
		dst **int64
	}{{"min_price", &f.MinPrice}, {"max_price", &f.MaxPrice}} {
		raw := q.Get(p.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return models.PlanFilter{}, err
		}
		*p.dst = &v
	}
	if raw := q.Get("validity_days"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return models.PlanFilter{}, err
		}
		f.ValidityDays = &v
	}
	return f, nil
}
