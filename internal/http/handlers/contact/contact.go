// Package contact содержит обработчик формы обратной связи.
package contact

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

type Service interface {
	Send(ctx context.Context, msg models.DummyContact) error
}

type Handler struct {
	log     *slog.Logger
	service Service
}

func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// ServeHTTP godoc
// @Summary Сообщение в поддержку
// @Tags Contact
// @Accept json
// @Produce json
// @Param request body models.DummyContact true "Сообщение"
// @Success 201 {object} response.Response
// @Failure 422 {object} response.ErrorResponse "Не заполнены обязательные поля"
// @Router /contact [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.contact.ServeHTTP"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req models.DummyContact
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	if err := h.service.Send(r.Context(), req); err != nil {
		log.Warn("failed to send contact message", sl.Err(err))
		response.Fail(w, r, err)
		return
	}

	log.Info("contact message accepted")
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{"message": "Message was sent successfully!"}))
}
