// Package retry содержит ограниченные стратегии повторов для внешних
// сервисов доставки поверх cenkalti/backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Linear увеличивает задержку линейно: step, 2*step, 3*step.
type Linear struct {
	Step    time.Duration
	attempt int64
}

// NextBackOff реализует backoff.BackOff.
func (l *Linear) NextBackOff() time.Duration {
	l.attempt++
	return time.Duration(l.attempt) * l.Step
}

// Reset реализует backoff.BackOff.
func (l *Linear) Reset() {
	l.attempt = 0
}

// Policy описывает ограниченный повтор: maxRetries повторов после первой попытки.
type Policy struct {
	MaxRetries uint64
	Step       time.Duration
}

// DefaultPolicy — 3 повтора с шагом в одну секунду.
var DefaultPolicy = Policy{MaxRetries: 3, Step: time.Second}

// Do выполняет op с повторами согласно политике. notify вызывается перед
// каждым повтором и может быть nil.
func (p Policy) Do(ctx context.Context, op func() error, notify func(err error, wait time.Duration)) error {
	b := backoff.WithContext(backoff.WithMaxRetries(&Linear{Step: p.Step}, p.MaxRetries), ctx)
	if notify == nil {
		return backoff.Retry(op, b)
	}
	return backoff.RetryNotify(op, b, notify)
}

// Permanent помечает ошибку как неповторяемую.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
