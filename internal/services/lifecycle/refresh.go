package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/reconciler"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

// RefreshEntitlements сверяет экземпляры аккаунта, удаляет истёкшие и
// возвращает актуальное состояние прав.
func (s *Service) RefreshEntitlements(ctx context.Context, accountID string) (models.Snapshot, error) {
	const op = "lifecycle.RefreshEntitlements"

	var snap models.Snapshot
	err := s.store.WithinAccount(ctx, accountID, func(ctx context.Context, tx storage.AccountTx) error {
		var err error
		snap, _, err = s.reconcile(ctx, tx, s.now())
		return err
	})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

// reconcile применяет решение сверки внутри транзакции и возвращает
// состояние после записи вместе с удалёнными экземплярами.
//
// Активный указатель переписывается до удаления экземпляров: внешний ключ
// не позволяет удалить экземпляр, на который ещё ссылается аккаунт.
func (s *Service) reconcile(ctx context.Context, tx storage.AccountTx, now time.Time) (models.Snapshot, []models.Instance, error) {
	instances, err := tx.Instances(ctx)
	if err != nil {
		return models.Snapshot{}, nil, err
	}

	account := tx.Account()
	decision := reconciler.Reconcile(now, instances, account.ActiveSubscriptionID)
	if decision.Changed(account.ActiveSubscriptionID, account.Subscribed) {
		if err := tx.SetActive(ctx, decision.NewActiveID(), decision.Subscribed); err != nil {
			return models.Snapshot{}, nil, err
		}
		if err := tx.DeleteInstances(ctx, decision.ExpiredIDs()); err != nil {
			return models.Snapshot{}, nil, err
		}
		s.log.Debug("entitlements reconciled",
			slog.String("account_id", account.ID),
			slog.Int("expired", len(decision.Expire)),
			slog.Bool("subscribed", decision.Subscribed),
		)
	}

	return models.NewSnapshot(tx.Account(), decision.Keep), decision.Expire, nil
}
