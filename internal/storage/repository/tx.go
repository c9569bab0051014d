package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/exam-subscriptions/internal/lib/apperr"
	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
	"github.com/magabrotheeeer/exam-subscriptions/internal/storage"
)

// AccountTx — транзакция с заблокированной строкой аккаунта.
type AccountTx struct {
	tx      *sql.Tx
	account models.Account
}

var _ storage.AccountTx = (*AccountTx)(nil)

// WithinAccount выполняет fn в транзакции READ COMMITTED, удерживая
// SELECT ... FOR UPDATE на строке аккаунта. Любая ошибка fn откатывает
// все записи транзакции.
func (s *Storage) WithinAccount(ctx context.Context, accountID string, fn storage.TxFunc) (err error) {
	const op = "storage.WithinAccount"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	tx, err := s.DB.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("%s: rollback: %w", op, rbErr))
			}
		}
	}()

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	account, err := scanAccount(tx.QueryRowContext(ctx, query, accountID))
	if err != nil {
		return fmt.Errorf("%s: lock account %s: %w", op, accountID, mapError(err))
	}

	if err = fn(ctx, &AccountTx{tx: tx, account: *account}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, mapError(err))
	}
	return nil
}

// Account возвращает строку аккаунта, прочитанную под блокировкой.
func (t *AccountTx) Account() models.Account {
	return t.account
}

func (t *AccountTx) Instances(ctx context.Context) ([]models.Instance, error) {
	const op = "storage.AccountTx.Instances"
	rows, err := t.tx.QueryContext(ctx, instanceSelect+` WHERE i.account_id = $1 ORDER BY i.start_date, i.id`, t.account.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	result, err := scanInstances(rows)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}

func (t *AccountTx) DeleteInstances(ctx context.Context, ids []int64) error {
	const op = "storage.AccountTx.DeleteInstances"
	if len(ids) == 0 {
		return nil
	}
	_, err := t.tx.ExecContext(ctx,
		`DELETE FROM subscription_instances WHERE account_id = $1 AND id = ANY($2)`,
		t.account.ID, ids)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return nil
}

func (t *AccountTx) SetActive(ctx context.Context, active *int64, subscribed bool) error {
	const op = "storage.AccountTx.SetActive"
	_, err := t.tx.ExecContext(ctx,
		`UPDATE accounts SET active_subscription_id = $2, subscribed = $3 WHERE id = $1`,
		t.account.ID, nullableInt64(active), subscribed)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	t.account.ActiveSubscriptionID = active
	t.account.Subscribed = subscribed
	return nil
}

func (t *AccountTx) CreateInstance(ctx context.Context, inst models.Instance) (int64, error) {
	const op = "storage.AccountTx.CreateInstance"
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO subscription_instances (account_id, plan_id, start_date, end_date, language, attempts_left)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		t.account.ID, inst.PlanID, inst.StartDate, inst.EndDate, inst.Language, nullableInt(inst.AttemptsLeft)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

func (t *AccountTx) CreateAttempt(ctx context.Context, attempt models.ExamAttempt) (int64, error) {
	const op = "storage.AccountTx.CreateAttempt"
	var id int64
	err := t.tx.QueryRowContext(ctx,
		`INSERT INTO exam_attempts (account_id, attempt_date, score) VALUES ($1, $2, $3) RETURNING id`,
		t.account.ID, attempt.AttemptDate, attempt.Score).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

// DecrementAttempts уменьшает attempts_left только если он больше нуля.
func (t *AccountTx) DecrementAttempts(ctx context.Context, instanceID int64) (int, error) {
	const op = "storage.AccountTx.DecrementAttempts"
	var left int
	err := t.tx.QueryRowContext(ctx,
		`UPDATE subscription_instances SET attempts_left = attempts_left - 1
		 WHERE id = $1 AND account_id = $2 AND attempts_left > 0
		 RETURNING attempts_left`,
		instanceID, t.account.ID).Scan(&left)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s: %w", op, apperr.ErrQuotaExhausted)
	}
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return left, nil
}

func (t *AccountTx) ClearFreeTrial(ctx context.Context) error {
	const op = "storage.AccountTx.ClearFreeTrial"
	if _, err := t.tx.ExecContext(ctx, `UPDATE accounts SET has_free_trial = false WHERE id = $1`, t.account.ID); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	t.account.HasFreeTrial = false
	return nil
}

func (t *AccountTx) SetGazetteAccess(ctx context.Context, allowed bool) error {
	const op = "storage.AccountTx.SetGazetteAccess"
	if _, err := t.tx.ExecContext(ctx, `UPDATE accounts SET gazette_access = $2 WHERE id = $1`, t.account.ID, allowed); err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	t.account.GazetteAccess = allowed
	return nil
}

func (t *AccountTx) MarkInvoiceProcessed(ctx context.Context, invoiceNumber, transactionID string) (bool, error) {
	const op = "storage.AccountTx.MarkInvoiceProcessed"
	res, err := t.tx.ExecContext(ctx,
		`INSERT INTO processed_invoices (invoice_number, transaction_id, account_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (invoice_number) DO NOTHING`,
		invoiceNumber, transactionID, t.account.ID)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, mapError(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return n == 1, nil
}
