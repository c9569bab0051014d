package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

const (
	sourceGrant   = "grant"
	sourcePayment = "payment"
)

// Invoice идентифицирует оплаченный счёт для идемпотентной обработки webhook.
type Invoice struct {
	Number        string
	TransactionID string
}

// ActivateSubscription выдаёт аккаунту новый экземпляр плана и делает его
// активным независимо от цены текущей подписки.
func (s *Service) ActivateSubscription(ctx context.Context, accountID string, planID int64, language string) (models.Snapshot, error) {
	const op = "lifecycle.ActivateSubscription"

	snap, _, err := s.activate(ctx, accountID, planID, language, nil, sourceGrant)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

// ActivateForInvoice активирует план по оплаченному счёту. Повторная
// доставка того же счёта ничего не меняет и возвращает applied == false.
func (s *Service) ActivateForInvoice(ctx context.Context, accountID string, planID int64, language string, invoice Invoice) (models.Snapshot, bool, error) {
	const op = "lifecycle.ActivateForInvoice"

	snap, applied, err := s.activate(ctx, accountID, planID, language, &invoice, sourcePayment)
	if err != nil {
		return models.Snapshot{}, false, fmt.Errorf("%s: %w", op, err)
	}
	return snap, applied, nil
}

func (s *Service) activate(ctx context.Context, accountID string, planID int64, language string, invoice *Invoice, source string) (models.Snapshot, bool, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return models.Snapshot{}, false, err
	}

	var (
		snap       models.Snapshot
		instanceID int64
		applied    bool
	)
	err = s.store.WithinAccount(ctx, accountID, func(ctx context.Context, tx storage.AccountTx) error {
		if invoice != nil {
			fresh, err := tx.MarkInvoiceProcessed(ctx, invoice.Number, invoice.TransactionID)
			if err != nil {
				return err
			}
			if !fresh {
				return nil
			}
		}

		now := s.now()
		id, err := tx.CreateInstance(ctx, models.Instance{
			AccountID:    accountID,
			PlanID:       plan.ID,
			StartDate:    now,
			EndDate:      now.Add(time.Duration(plan.ValidityDays) * 24 * time.Hour),
			Language:     language,
			AttemptsLeft: copyInt(plan.ExamAttemptsLimit),
		})
		if err != nil {
			return err
		}
		instanceID = id
		if err = tx.SetActive(ctx, &instanceID, true); err != nil {
			return err
		}
		snap, _, err = s.reconcile(ctx, tx, now)
		if err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return models.Snapshot{}, false, err
	}
	if !applied {
		s.log.Info("invoice already processed",
			slog.String("account_id", accountID),
			slog.String("invoice", invoice.Number),
		)
		return models.Snapshot{}, false, nil
	}

	s.metrics.Activations.WithLabelValues(source).Inc()
	s.log.Info("subscription activated",
		slog.String("account_id", accountID),
		slog.Int64("plan_id", plan.ID),
		slog.Int64("instance_id", instanceID),
		slog.String("source", source),
	)
	s.pusher.Emit(accountID, models.Event{
		Type: models.EventSubscription,
		Data: map[string]any{"subscriptionId": instanceID},
	})
	return snap, true, nil
}

// GrantGazetteForInvoice открывает доступ к газете по оплаченному счёту.
func (s *Service) GrantGazetteForInvoice(ctx context.Context, accountID string, invoice Invoice) (bool, error) {
	const op = "lifecycle.GrantGazetteForInvoice"

	var applied bool
	err := s.store.WithinAccount(ctx, accountID, func(ctx context.Context, tx storage.AccountTx) error {
		fresh, err := tx.MarkInvoiceProcessed(ctx, invoice.Number, invoice.TransactionID)
		if err != nil || !fresh {
			return err
		}
		if err := tx.SetGazetteAccess(ctx, true); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	if applied {
		s.log.Info("gazette access granted", slog.String("account_id", accountID))
		s.pusher.Emit(accountID, models.Event{
			Type: models.EventGazette,
			Data: map[string]any{"canDownload": true},
		})
	}
	return applied, nil
}

// SwitchActive делает экземпляр instanceID активным. Экземпляр должен
// принадлежать аккаунту и не быть истёкшим.
func (s *Service) SwitchActive(ctx context.Context, accountID string, instanceID int64) (models.Snapshot, error) {
	const op = "lifecycle.SwitchActive"

	var snap models.Snapshot
	err := s.store.WithinAccount(ctx, accountID, func(ctx context.Context, tx storage.AccountTx) error {
		instances, err := tx.Instances(ctx)
		if err != nil {
			return err
		}

		now := s.now()
		target := findInstance(instances, instanceID)
		if target == nil {
			return fmt.Errorf("instance %d: %w", instanceID, apperr.ErrNotFound)
		}
		if target.Expired(now) {
			return fmt.Errorf("instance %d ended %s: %w", instanceID, target.EndDate.Format(time.RFC3339), apperr.ErrExpired)
		}

		if err := tx.SetActive(ctx, &target.ID, true); err != nil {
			return err
		}
		snap, _, err = s.reconcile(ctx, tx, now)
		return err
	})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("%s: %w", op, err)
	}
	return snap, nil
}

// ListInstances возвращает действующие экземпляры аккаунта после сверки.
func (s *Service) ListInstances(ctx context.Context, accountID string) ([]models.Instance, error) {
	const op = "lifecycle.ListInstances"
	snap, err := s.RefreshEntitlements(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return snap.Subscriptions, nil
}

// ExtendInstance переносит дату окончания экземпляра. Новая дата должна
// быть в будущем и позже даты начала.
func (s *Service) ExtendInstance(ctx context.Context, instanceID int64, endDate time.Time) (*models.Instance, error) {
	const op = "lifecycle.ExtendInstance"

	inst, err := s.store.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !endDate.After(s.now()) || !endDate.After(inst.StartDate) {
		return nil, fmt.Errorf("%s: end date %s: %w", op, endDate.Format(time.RFC3339), apperr.ErrInvalidInput)
	}
	if err := s.store.ExtendInstance(ctx, instanceID, endDate); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	inst.EndDate = endDate
	s.log.Info("instance extended",
		slog.Int64("instance_id", instanceID),
		slog.Time("end_date", endDate),
	)
	return inst, nil
}

// CheckGazette сообщает, может ли аккаунт скачать газету.
func (s *Service) CheckGazette(ctx context.Context, accountID string) (bool, error) {
	const op = "lifecycle.CheckGazette"
	account, err := s.store.GetAccount(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return account.GazetteAccess, nil
}

// DisableGazette отзывает доступ к газете после скачивания.
func (s *Service) DisableGazette(ctx context.Context, accountID string) error {
	const op = "lifecycle.DisableGazette"
	err := s.store.WithinAccount(ctx, accountID, func(ctx context.Context, tx storage.AccountTx) error {
		return tx.SetGazetteAccess(ctx, false)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func findInstance(instances []models.Instance, id int64) *models.Instance {
	for i := range instances {
		if instances[i].ID == id {
			return &instances[i]
		}
	}
	return nil
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
