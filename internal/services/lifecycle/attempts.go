package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

const (
	minScore = 0
	maxScore = 20
)

// ConsumeAttempt записывает попытку экзамена и списывает её с активной
// подписки. Без активной подписки попытка засчитывается только пока
// доступна бесплатная пробная попытка.
//
// Перед списанием права сверяются в той же транзакции, поэтому истёкший
// экземпляр никогда не расходуется. Отказ по лимиту не откатывает сверку.
// После фиксации владельцу уходит квитанция с оценкой.
func (s *Service) ConsumeAttempt(ctx context.Context, accountID string, score int) (models.AttemptResult, error) {
	const op = "lifecycle.ConsumeAttempt"

	if score < minScore || score > maxScore {
		return models.AttemptResult{}, fmt.Errorf("%s: score %d out of range: %w", op, score, apperr.ErrInvalidInput)
	}

	var (
		result   models.AttemptResult
		contact  models.Contact
		rejected bool
	)
	err := s.store.WithinAccount(ctx, accountID, func(ctx context.Context, tx storage.AccountTx) error {
		now := s.now()
		snap, _, err := s.reconcile(ctx, tx, now)
		if err != nil {
			return err
		}

		active := snap.ActiveSubscription
		switch {
		case active == nil && !snap.HasFreeTrial:
			rejected = true
			return nil
		case active != nil && active.Depleted():
			rejected = true
			return nil
		}

		attempt := models.ExamAttempt{AccountID: accountID, AttemptDate: now, Score: score}
		attempt.ID, err = tx.CreateAttempt(ctx, attempt)
		if err != nil {
			return err
		}

		if active != nil && active.AttemptsLeft != nil {
			left, err := tx.DecrementAttempts(ctx, active.ID)
			if err != nil {
				return err
			}
			setAttemptsLeft(&snap, active.ID, left)
		}

		if snap.HasFreeTrial {
			if err := tx.ClearFreeTrial(ctx); err != nil {
				return err
			}
			snap.HasFreeTrial = false
		}

		result = models.AttemptResult{Attempt: attempt, Snapshot: snap}
		contact = tx.Account().Contact()
		return nil
	})
	if err != nil {
		if errors.Is(err, apperr.ErrQuotaExhausted) {
			s.metrics.QuotaRejections.Inc()
		}
		return models.AttemptResult{}, fmt.Errorf("%s: %w", op, err)
	}
	if rejected {
		s.metrics.QuotaRejections.Inc()
		s.log.Info("attempt rejected", slog.String("account_id", accountID))
		return models.AttemptResult{}, fmt.Errorf("%s: %w", op, apperr.ErrQuotaExhausted)
	}

	s.metrics.AttemptsConsumed.Inc()
	s.dispatcher.Dispatch(ctx, models.Notice{
		Kind:    models.NoticeAttemptRecorded,
		Contact: contact,
		Score:   score,
	})
	return result, nil
}

func setAttemptsLeft(snap *models.Snapshot, instanceID int64, left int) {
	for i := range snap.Subscriptions {
		if snap.Subscriptions[i].ID == instanceID {
			v := left
			snap.Subscriptions[i].AttemptsLeft = &v
		}
	}
	if snap.ActiveSubscription != nil && snap.ActiveSubscription.ID == instanceID {
		v := left
		snap.ActiveSubscription.AttemptsLeft = &v
	}
}

// ListAttempts возвращает попытки аккаунта, новые первыми.
func (s *Service) ListAttempts(ctx context.Context, accountID string, limit, offset int) ([]models.ExamAttempt, error) {
	const op = "lifecycle.ListAttempts"
	attempts, err := s.store.ListAttempts(ctx, accountID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attempts, nil
}

// ListAllAttempts возвращает попытки всех аккаунтов для администратора.
func (s *Service) ListAllAttempts(ctx context.Context, limit, offset int) ([]models.AttemptWithOwner, error) {
	const op = "lifecycle.ListAllAttempts"
	attempts, err := s.store.ListAllAttempts(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return attempts, nil
}

// Stats возвращает количество попыток и лучший результат аккаунта.
func (s *Service) Stats(ctx context.Context, accountID string) (models.ExamStats, error) {
	const op = "lifecycle.Stats"
	stats, err := s.store.AttemptStats(ctx, accountID)
	if err != nil {
		return models.ExamStats{}, fmt.Errorf("%s: %w", op, err)
	}
	return stats, nil
}
