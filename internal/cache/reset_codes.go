package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const (
	resetCodePrefix    = "reset_code:"
	defaultMaxAttempts = 5
	maxWatchRetries    = 3
)

// ResetCodes хранит коды сброса пароля. Запись живёт ttl в Redis,
// а срок действия дополнительно сверяется по ExpiresAt при проверке.
// После maxAttempts неверных попыток код удаляется.
type ResetCodes struct {
	cache       *Cache
	ttl         time.Duration
	maxAttempts int
	now         func() time.Time
	afterRead   func()
}

// NewResetCodes создаёт хранилище кодов сброса.
func NewResetCodes(cache *Cache, ttl time.Duration, maxAttempts int) *ResetCodes {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	return &ResetCodes{cache: cache, ttl: ttl, maxAttempts: maxAttempts, now: time.Now}
}

// Save сохраняет код для аккаунта, заменяя предыдущий вместе со счётчиком
// неверных попыток.
func (r *ResetCodes) Save(ctx context.Context, accountID, code string) (models.ResetCode, error) {
	const op = "cache.ResetCodes.Save"
	rc := models.ResetCode{Code: code, ExpiresAt: r.now().Add(r.ttl)}
	if err := r.cache.Set(ctx, resetCodePrefix+accountID, rc, r.ttl); err != nil {
		return models.ResetCode{}, fmt.Errorf("%s: %w", op, err)
	}
	return rc, nil
}

// Consume проверяет код и удаляет его при совпадении. Код одноразовый.
//
// Чтение и запись выполняются под WATCH: если запись заменили между
// проверкой и удалением, проверка повторяется по новой записи.
func (r *ResetCodes) Consume(ctx context.Context, accountID, code string) (bool, error) {
	const op = "cache.ResetCodes.Consume"
	key := resetCodePrefix + accountID

	for range maxWatchRetries {
		var ok bool
		err := r.cache.Db.Watch(ctx, func(tx *redis.Tx) error {
			var err error
			ok, err = r.check(ctx, tx, key, code)
			return err
		}, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("%s: %w", op, err)
		}
		return ok, nil
	}
	return false, fmt.Errorf("%s: %w", op, apperr.ErrConflict)
}

func (r *ResetCodes) check(ctx context.Context, tx *redis.Tx, key, code string) (bool, error) {
	raw, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var rc models.ResetCode
	if err := json.Unmarshal(raw, &rc); err != nil {
		return false, err
	}
	if r.afterRead != nil {
		r.afterRead()
	}

	now := r.now()
	if rc.Valid(code, now) {
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return err == nil, err
	}

	rc.Failures++
	if !now.Before(rc.ExpiresAt) || rc.Failures >= r.maxAttempts {
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Del(ctx, key)
			return nil
		})
		return false, err
	}

	data, err := json.Marshal(rc)
	if err != nil {
		return false, err
	}
	_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, key, data, rc.ExpiresAt.Sub(now))
		return nil
	})
	return false, err
}
