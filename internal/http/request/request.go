// Package request содержит общие шаги разбора HTTP-запросов: JSON с
// валидацией, параметры пути, пагинацию и аккаунт из контекста.
package request

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/middlewarectx"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/response"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

var validate = validator.New()

// DecodeJSON читает тело запроса в dst и валидирует его. При ошибке пишет
// ответ и возвращает false.
func DecodeJSON(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Warn("failed to decode request body", sl.Err(err))
		response.BadRequest(w, r, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		log.Warn("validation failed", sl.Err(err))
		response.Invalid(w, r, err)
		return false
	}
	return true
}

// IDParam разбирает положительный целочисленный параметр пути.
func IDParam(w http.ResponseWriter, r *http.Request, log *slog.Logger, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		log.Warn("invalid path parameter", slog.String("param", name), slog.String("value", chi.URLParam(r, name)))
		response.BadRequest(w, r, "invalid "+name)
		return 0, false
	}
	return id, true
}

// Account возвращает аккаунт из контекста или пишет 401.
func Account(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, bool) {
	id, ok := middlewarectx.AccountIDFrom(r.Context())
	if !ok {
		log.Error("account not found in context")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, response.Error("unauthorized"))
		return "", false
	}
	return id, true
}

// Pagination читает limit и offset из query. Некорректные значения
// заменяются значениями по умолчанию.
func Pagination(r *http.Request) (limit, offset int) {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset, err = strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
