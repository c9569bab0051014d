package notifier

import (
	"context"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/goroutine"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const defaultQueueBuffer = 256

// Queue публикует уведомления в RabbitMQ; доставку выполняет notification-sender.
//
// Dispatch только кладёт уведомления в буфер. Публикует одна фоновая
// горутина, поэтому канал AMQP используется последовательно. При
// переполненном буфере уведомление отбрасывается с записью в лог.
type Queue struct {
	ch      rabbitmq.Channel
	log     *slog.Logger
	pending chan models.Notice
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewQueue создаёт диспетчер поверх канала AMQP и запускает публикацию.
func NewQueue(ch rabbitmq.Channel, buffer int, log *slog.Logger) *Queue {
	if buffer <= 0 {
		buffer = defaultQueueBuffer
	}
	q := &Queue{
		ch:      ch,
		log:     log,
		pending: make(chan models.Notice, buffer),
		done:    make(chan struct{}),
	}
	goroutine.SafeGo(log, "notifier.publish", q.run)
	return q
}

// RoutingKey выбирает очередь по виду уведомления.
func RoutingKey(kind models.NoticeKind) string {
	switch kind {
	case models.NoticeExpired, models.NoticeExpiring, models.NoticeAttemptRecorded:
		return rabbitmq.RoutingSubscription
	case models.NoticePaymentSucceeded, models.NoticePaymentFailed:
		return rabbitmq.RoutingPayment
	default:
		return rabbitmq.RoutingAccount
	}
}

// Dispatch ставит уведомления в очередь на публикацию и сразу возвращает
// управление.
func (q *Queue) Dispatch(_ context.Context, notices ...models.Notice) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	for _, n := range notices {
		if q.closed {
			q.dropped(n, "dispatcher closed")
			continue
		}
		select {
		case q.pending <- n:
		default:
			q.dropped(n, "publish buffer full")
		}
	}
}

// Close прекращает приём уведомлений и ждёт публикации уже принятых
// или отмены ctx.
func (q *Queue) Close(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.pending)
	}
	q.mu.Unlock()

	select {
	case <-q.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run() {
	defer close(q.done)
	for n := range q.pending {
		q.publish(n)
	}
}

func (q *Queue) publish(n models.Notice) {
	defer func() {
		if r := recover(); r != nil {
			q.log.Error("notification publish panicked",
				slog.String("kind", string(n.Kind)),
				slog.Any("panic", r))
		}
	}()
	if err := rabbitmq.PublishMessage(q.ch, rabbitmq.Exchange, RoutingKey(n.Kind), string(n.Kind), n); err != nil {
		q.log.Error("failed to publish notification",
			slog.String("kind", string(n.Kind)),
			slog.String("account_id", n.Contact.AccountID),
			sl.Err(err))
	}
}

func (q *Queue) dropped(n models.Notice, reason string) {
	q.log.Warn("notification dropped",
		slog.String("kind", string(n.Kind)),
		slog.String("account_id", n.Contact.AccountID),
		slog.String("reason", reason))
}
