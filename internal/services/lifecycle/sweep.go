package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/sl"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

// SweepResult — итог одного прохода периодической сверки.
type SweepResult struct {
	Accounts int `json:"accounts"`
	Purged   int `json:"purged"`
	Failed   int `json:"failed"`
	Warned   int `json:"warned"`
}

// RunSweep находит аккаунты с истёкшими экземплярами и сверяет каждый в
// отдельной транзакции. Ошибка одного аккаунта логируется, проход
// продолжается. После фиксации отправляются уведомления об истечении, затем
// предупреждения для экземпляров, истекающих в ближайшее окно.
//
// Отмена ctx прекращает проход между аккаунтами: начатая транзакция
// завершается.
func (s *Service) RunSweep(ctx context.Context) (SweepResult, error) {
	const op = "lifecycle.RunSweep"
	log := s.log.With(sl.Op(op))

	started := time.Now()
	now := s.now()
	var result SweepResult

	accountIDs, err := s.store.AccountsWithExpiredInstances(ctx, now)
	if err != nil {
		return result, fmt.Errorf("%s: %w", op, err)
	}

	var (
		notices []models.Notice
		stopped error
	)
	for _, accountID := range accountIDs {
		if err := ctx.Err(); err != nil {
			stopped = err
			break
		}
		result.Accounts++

		var (
			expired []models.Instance
			contact models.Contact
		)
		err := s.store.WithinAccount(ctx, accountID, func(ctx context.Context, tx storage.AccountTx) error {
			var err error
			_, expired, err = s.reconcile(ctx, tx, now)
			contact = tx.Account().Contact()
			return err
		})
		if err != nil {
			result.Failed++
			s.metrics.FailedGroups.Inc()
			log.Error("failed to reconcile account", slog.String("account_id", accountID), sl.Err(err))
			continue
		}

		result.Purged += len(expired)
		for _, inst := range expired {
			notices = append(notices, models.Notice{
				Kind:             models.NoticeExpired,
				Contact:          contact,
				SubscriptionName: inst.PlanName,
				ExpiresAt:        inst.EndDate,
			})
		}
	}
	s.metrics.PurgedInstances.Add(float64(result.Purged))

	if len(notices) > 0 {
		s.dispatcher.Dispatch(ctx, notices...)
	}

	if stopped == nil {
		warned, err := s.warnExpiring(ctx, now)
		if err != nil {
			stopped = err
		}
		result.Warned = warned
	}

	s.metrics.SweepRuns.Inc()
	s.metrics.SweepDuration.Observe(time.Since(started).Seconds())
	log.Info("sweep finished",
		slog.Int("accounts", result.Accounts),
		slog.Int("purged", result.Purged),
		slog.Int("failed", result.Failed),
		slog.Int("warned", result.Warned),
	)

	if stopped != nil {
		return result, fmt.Errorf("%s: %w", op, stopped)
	}
	return result, nil
}

func (s *Service) warnExpiring(ctx context.Context, now time.Time) (int, error) {
	expiring, err := s.store.ExpiringInstances(ctx, now, now.Add(s.warningWindow))
	if err != nil {
		return 0, fmt.Errorf("expiring instances: %w", err)
	}
	if len(expiring) == 0 {
		return 0, nil
	}

	notices := make([]models.Notice, 0, len(expiring))
	for _, inst := range expiring {
		notices = append(notices, models.Notice{
			Kind:             models.NoticeExpiring,
			Contact:          inst.Contact,
			SubscriptionName: inst.PlanName,
			ExpiresAt:        inst.EndDate,
		})
	}
	s.dispatcher.Dispatch(ctx, notices...)
	return len(notices), nil
}

// IsCanceled сообщает, что проход был прерван остановкой планировщика.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
