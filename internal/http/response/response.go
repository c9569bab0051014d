// Package response формирует единые JSON-ответы HTTP-обработчиков.
package response

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
)

// Response описывает стандартную структуру JSON-ответа сервера.
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — структура ошибки для Swagger-документации.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с данными.
func StatusOKWithData(data any) Response {
	return Response{Status: StatusOK, Data: data}
}

// Error возвращает ответ с сообщением об ошибке.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Status: StatusError, Error: msg}
}

// Fail пишет ответ с HTTP-статусом, соответствующим доменной ошибке.
// Внутренние детали ошибки клиенту не отдаются.
func Fail(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, apperr.HTTPStatus(err))
	render.JSON(w, r, Error(apperr.Message(err)))
}

// BadRequest пишет 400 с сообщением msg.
func BadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, Error(msg))
}

// Invalid пишет 422 с описанием ошибок валидации.
func Invalid(w http.ResponseWriter, r *http.Request, err error) {
	render.Status(r, http.StatusUnprocessableEntity)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		render.JSON(w, r, ValidationError(verrs))
		return
	}
	render.JSON(w, r, Error("validation failed"))
}

// ValidationError переводит нарушения валидации в человекочитаемый текст.
func ValidationError(errs validator.ValidationErrors) Response {
	msgs := make([]string, 0, len(errs))
	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "numeric":
			msgs = append(msgs, fmt.Sprintf("field %s can contain only numbers", err.Field()))
		case "alpha":
			msgs = append(msgs, fmt.Sprintf("field %s can contain only letters", err.Field()))
		case "min", "gt", "gte":
			msgs = append(msgs, fmt.Sprintf("field %s is too small", err.Field()))
		case "max", "lt", "lte":
			msgs = append(msgs, fmt.Sprintf("field %s is too large", err.Field()))
		case "len":
			msgs = append(msgs, fmt.Sprintf("field %s must have length %s", err.Field(), err.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("field %s must be one of [%s]", err.Field(), err.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is not valid", err.Field()))
		}
	}
	return Response{Status: StatusError, Error: strings.Join(msgs, ", ")}
}
