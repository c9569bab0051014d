// Package ws подключает клиента к потоку событий реального времени.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/request"
)

// Upgrader переводит соединение аккаунта на websocket.
type Upgrader interface {
	ServeWS(w http.ResponseWriter, r *http.Request, accountID string)
}

type Handler struct {
	log *slog.Logger
	hub Upgrader
}

func New(log *slog.Logger, hub Upgrader) *Handler {
	return &Handler{log: log, hub: hub}
}

// ServeHTTP godoc
// @Summary Поток событий подписки и газеты
// @Description Токен передаётся в заголовке Authorization или в параметре token
// @Tags Realtime
// @Param token query string false "JWT"
// @Success 101
// @Router /ws [get]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := h.log.With(
		slog.String("op", "handlers.ws"),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)
	accountID, ok := request.Account(w, r, log)
	if !ok {
		return
	}
	h.hub.ServeWS(w, r, accountID)
}
