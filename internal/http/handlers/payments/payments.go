// Package payments содержит обработчики создания счёта и webhook
// платёжного провайдера.
package payments

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/request"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/response"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/paymentprovider"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/payment"
)

const maxCallbackBody = 1 << 20

// Service описывает платёжные операции.
type Service interface {
	Initiate(ctx context.Context, accountID string, req models.DummyPayment) (models.PaymentLink, error)
	HandleCallback(ctx context.Context, signature string, body []byte) (payment.CallbackResult, error)
}

// Handler обрабатывает /payments.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

// Create godoc
// @Summary Создание счёта на оплату
// @Description Для transaction_type=sub нужен subscription_id, для gaz сумма берётся из настроек
// @Tags Payments
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param request body models.DummyPayment true "Параметры оплаты"
// @Success 201 {object} response.Response
// @Failure 502 {object} response.ErrorResponse "Платёжный провайдер недоступен"
// @Router /payments [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.Create"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := request.Account(w, r, log)
	if !ok {
		return
	}
	var req models.DummyPayment
	if !request.DecodeJSON(w, r, log, &req) {
		return
	}
	link, err := h.service.Initiate(r.Context(), accountID, req)
	if err != nil {
		log.Error("failed to initiate payment", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("invoice created", slog.String("transaction_id", link.TransactionID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, response.StatusOKWithData(link))
}

// Callback godoc
// @Summary Webhook платёжного провайдера
// @Tags Payments
// @Accept json
// @Produce json
// @Param irembopay-signature header string true "Подпись t=...,s=..."
// @Success 200 {object} response.Response
// @Failure 401 {object} response.ErrorResponse "Неверная подпись"
// @Router /payments/callback [post]
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.payments.Callback"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxCallbackBody))
	if err != nil {
		log.Warn("failed to read callback body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return
	}
	result, err := h.service.HandleCallback(r.Context(), r.Header.Get(paymentprovider.SignatureHeader), body)
	if err != nil {
		log.Error("failed to handle payment callback", sl.Err(err))
		response.Fail(w, r, err)
		return
	}
	log.Info("payment callback handled",
		slog.String("transaction_id", result.TransactionID),
		slog.Bool("paid", result.Paid),
		slog.Bool("applied", result.Applied),
	)
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"transaction_id": result.TransactionID,
		"paid":           result.Paid,
		"applied":        result.Applied,
	}))
}
