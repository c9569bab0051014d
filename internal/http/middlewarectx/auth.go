// Package middlewarectx содержит HTTP middleware: проверку JWT, проверку
// роли администратора, ограничение частоты запросов и метрики.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/response"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/jwt"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	// AccountID — ключ идентификатора аккаунта в контексте.
	AccountID Key = "account_id"
	// Role — ключ роли в контексте.
	Role Key = "role"
)

// TokenValidator разбирает токен доступа.
type TokenValidator interface {
	ValidateToken(token string) (*jwt.Claims, error)
}

// AccountIDFrom возвращает идентификатор аккаунта из контекста запроса.
func AccountIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountID).(string)
	return id, ok && id != ""
}

// WithAccount кладёт аккаунт и роль в контекст.
func WithAccount(ctx context.Context, accountID, role string) context.Context {
	ctx = context.WithValue(ctx, AccountID, accountID)
	return context.WithValue(ctx, Role, role)
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	// для /ws токен допускается в query-параметре
	if r.URL.Path == "/ws" || strings.HasSuffix(r.URL.Path, "/ws") {
		return r.URL.Query().Get("token")
	}
	return ""
}

// JWTMiddleware проверяет токен из заголовка Authorization и кладёт
// аккаунт и роль в контекст. Без валидного токена отвечает 401.
func JWTMiddleware(validator TokenValidator, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"
			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			token := bearerToken(r)
			if token == "" {
				log.Warn("missing or invalid authorization header")
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("missing or invalid authorization header"))
				return
			}
			claims, err := validator.ValidateToken(token)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, response.Error("invalid or expired token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccount(r.Context(), claims.AccountID, claims.Role)))
		})
	}
}

// RequireAdmin пропускает только запросы с ролью admin.
func RequireAdmin(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, _ := r.Context().Value(Role).(string)
			if role != models.RoleAdmin {
				log.Warn("admin route denied",
					slog.String("role", role),
					slog.String("path", r.URL.Path),
					slog.String("request_id", middleware.GetReqID(r.Context())))
				render.Status(r, http.StatusForbidden)
				render.JSON(w, r, response.Error("admin role required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
