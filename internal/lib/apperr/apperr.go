// Package apperr содержит типизированные ошибки доменного уровня.
//
// Операции жизненного цикла возвращают обёрнутые sentinel-ошибки, чтобы
// вызывающая сторона могла отличить «закончились попытки» от «что-то сломалось»
// через errors.Is.
package apperr

import (
	"errors"
	"net/http"
)

var (
	// ErrNotFound — аккаунт, план или экземпляр подписки не найден.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized — отсутствует или невалиден контекст аутентификации.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrQuotaExhausted — лимит попыток отслеживается и достиг нуля.
	ErrQuotaExhausted = errors.New("attempt quota exhausted")
	// ErrExpired — срок действия экземпляра подписки истёк.
	ErrExpired = errors.New("subscription expired")
	// ErrConflict — конкурентное изменение на границе транзакции, операцию можно повторить.
	ErrConflict = errors.New("concurrent modification")
	// ErrUpstreamUnavailable — внешний сервис недоступен после собственных повторов.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrInvalidInput — некорректные входные данные.
	ErrInvalidInput = errors.New("invalid input")
)

// HTTPStatus возвращает HTTP-статус для доменной ошибки.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrQuotaExhausted):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUpstreamUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message возвращает безопасный для клиента текст ошибки.
func Message(err error) string {
	for _, known := range []error{
		ErrNotFound, ErrUnauthorized, ErrQuotaExhausted, ErrExpired,
		ErrConflict, ErrUpstreamUnavailable, ErrInvalidInput,
	} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "internal error"
}
