// Package lifecycle реализует операции жизненного цикла подписок:
// списание попыток, обновление прав при чтении, периодическую сверку,
// активацию после оплаты и ручное переключение активной подписки.
//
// Каждая операция выполняется в транзакции одного аккаунта. Уведомления и
// события реального времени отправляются только после фиксации транзакции.
package lifecycle

import (
	"context"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/metrics"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

// Store — часть хранилища, которой пользуется жизненный цикл.
type Store interface {
	WithinAccount(ctx context.Context, accountID string, fn storage.TxFunc) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	AccountsWithExpiredInstances(ctx context.Context, now time.Time) ([]string, error)
	ExpiringInstances(ctx context.Context, from, to time.Time) ([]models.ExpiringInstance, error)
	GetPlan(ctx context.Context, id int64) (*models.Plan, error)
	GetInstance(ctx context.Context, id int64) (*models.Instance, error)
	ExtendInstance(ctx context.Context, id int64, endDate time.Time) error
	ListAttempts(ctx context.Context, accountID string, limit, offset int) ([]models.ExamAttempt, error)
	AttemptStats(ctx context.Context, accountID string) (models.ExamStats, error)
	ListAllAttempts(ctx context.Context, limit, offset int) ([]models.AttemptWithOwner, error)
}

// Dispatcher ставит уведомления в фоновую доставку и не блокирует вызывающего.
type Dispatcher interface {
	Dispatch(ctx context.Context, notices ...models.Notice)
}

// Pusher доставляет события реального времени подключённым клиентам.
type Pusher interface {
	Emit(accountID string, event models.Event)
}

// Service — операции жизненного цикла подписок.
type Service struct {
	store         Store
	dispatcher    Dispatcher
	pusher        Pusher
	metrics       *metrics.Metrics
	warningWindow time.Duration
	now           func() time.Time
	log           *slog.Logger
}

// Option настраивает Service.
type Option func(*Service)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithWarningWindow задаёт окно предупреждений о скором окончании подписки.
func WithWarningWindow(d time.Duration) Option {
	return func(s *Service) { s.warningWindow = d }
}

// NewService создаёт сервис жизненного цикла.
func NewService(store Store, dispatcher Dispatcher, pusher Pusher, m *metrics.Metrics, log *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:         store,
		dispatcher:    dispatcher,
		pusher:        pusher,
		metrics:       m,
		warningWindow: 24 * time.Hour,
		now:           time.Now,
		log:           log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
