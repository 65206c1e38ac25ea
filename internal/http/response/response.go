// Package response формирует единый JSON-ответ об ошибке
// {statusCode, message, timestamp, path} и сообщения валидации.
package response

import (
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// MsgInternal общее сообщение для ответов 5xx, подробности только в логах.
const MsgInternal = "Internal server error"

// ErrorResponse тело любого ответа с ошибкой.
type ErrorResponse struct {
	StatusCode int    `json:"statusCode" example:"401"`
	Message    string `json:"message" example:"Invalid username or password"`
	Timestamp  string `json:"timestamp" example:"2025-01-01T00:00:00.000Z"`
	Path       string `json:"path" example:"/api/auth/login"`
}

// Error возвращает тело ошибки для запроса r.
func Error(r *http.Request, status int, msg string) ErrorResponse {
	return ErrorResponse{
		StatusCode: status,
		Message:    msg,
		Timestamp:  time.Now().UTC().Format(timestampLayout),
		Path:       r.URL.Path,
	}
}

// WriteError пишет статус и тело ошибки.
func WriteError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, Error(r, status, msg))
}

// NewValidator создаёт валидатор, который называет поля по json-тегам.
// Тег maxbytes=N ограничивает длину строки в байтах, а не в символах.
func NewValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("maxbytes", maxBytes); err != nil {
		panic(err)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

// ValidationMessage собирает человекочитаемый текст из ошибок валидации.
func ValidationMessage(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid request body"
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		case "maxbytes":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s bytes", e.Field(), e.Param()))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid URL", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is not valid", e.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}

// ValidationError отвечает 400 с сообщением о нарушенных правилах.
func ValidationError(w http.ResponseWriter, r *http.Request, err error) {
	WriteError(w, r, http.StatusBadRequest, ValidationMessage(err))
}
