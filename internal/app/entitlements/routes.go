package entitlements

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/admin"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/auth/password"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/auth/profile"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/auth/register"
	contacthandler "github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/contact"
	enthandlers "github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/entitlements"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/health"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/payments"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/plans"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/handlers/ws"
	"github.com/magabrotheeeer/exam-subscriptions/internal/http/middlewarectx"
	"github.com/magabrotheeeer/exam-subscriptions/internal/metrics"
	"github.com/magabrotheeeer/exam-subscriptions/internal/push"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/auth"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/catalog"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/contact"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/lifecycle"
	"github.com/magabrotheeeer/exam-subscriptions/internal/services/payment"
)

// Services — зависимости маршрутов.
type Services struct {
	Auth      *auth.Service
	Catalog   *catalog.Service
	Lifecycle *lifecycle.Service
	Payment   *payment.Service
	Contact   *contact.Service
	Hub       *push.Hub
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	Limiter   *middlewarectx.RateLimiter
	Checks    map[string]health.Checker
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middlewarectx.Metrics(s.Metrics),
	)

	planHandler := plans.New(logger, s.Catalog)
	entHandler := enthandlers.New(logger, s.Lifecycle)
	payHandler := payments.New(logger, s.Payment)
	adminHandler := admin.New(logger, s.Lifecycle)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.RateLimitMiddleware(logger, s.Limiter))
			r.Post("/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/login", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/password/reset", password.NewReset(logger, s.Auth).ServeHTTP)
			r.Post("/password/reset/confirm", password.NewConfirm(logger, s.Auth).ServeHTTP)
			r.Get("/plans", planHandler.List)
			r.Get("/plans/{id}", planHandler.Read)
			r.Post("/contact", contacthandler.New(logger, s.Contact).ServeHTTP)
		})

		// Webhook платёжного провайдера, подпись проверяется в сервисе
		r.Post("/payments/callback", payHandler.Callback)

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Auth, logger))
			r.Get("/ws", ws.New(logger, s.Hub).ServeHTTP)

			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RateLimitMiddleware(logger, s.Limiter))
				profileHandler := profile.New(logger, s.Auth)
				r.Get("/profile", profileHandler.ServeHTTP)
				r.Put("/profile", profileHandler.ServeHTTP)
				r.Put("/password", password.NewChange(logger, s.Auth).ServeHTTP)

				r.Get("/me", entHandler.Me)
				r.Post("/attempts", entHandler.ConsumeAttempt)
				r.Get("/attempts", entHandler.ListAttempts)
				r.Get("/attempts/stats", entHandler.Stats)
				r.Get("/subscriptions", entHandler.ListSubscriptions)
				r.Put("/subscriptions/active", entHandler.SwitchActive)
				r.Get("/gazette", entHandler.CheckGazette)
				r.Delete("/gazette", entHandler.DisableGazette)
				r.Post("/payments", payHandler.Create)
			})

			// Администрирование каталога и подписок
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.RequireAdmin(logger))
				r.Post("/plans", planHandler.Create)
				r.Put("/plans/{id}", planHandler.Update)
				r.Delete("/plans/{id}", planHandler.Remove)
				r.Post("/admin/sweep", adminHandler.Sweep)
				r.Post("/admin/accounts/{id}/subscriptions", adminHandler.Grant)
				r.Put("/admin/subscriptions/{id}", adminHandler.Extend)
				r.Get("/admin/attempts", adminHandler.Attempts)
			})
		})
	})

	r.Handle("/metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/health", health.New(logger, s.Checks).ServeHTTP)
	r.Get("/docs/*", httpSwagger.WrapHandler)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	})
}
