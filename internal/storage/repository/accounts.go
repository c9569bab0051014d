package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/exam-subscriptions/internal/models"
)

const accountColumns = `id, names, email, phone_number, language, country, password_hash, role,
	subscribed, has_free_trial, gazette_access, active_subscription_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*models.Account, error) {
	var (
		a      models.Account
		active sql.NullInt64
	)
	if err := row.Scan(&a.ID, &a.Names, &a.Email, &a.PhoneNumber, &a.Language, &a.Country,
		&a.PasswordHash, &a.Role, &a.Subscribed, &a.HasFreeTrial, &a.GazetteAccess,
		&active, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.ActiveSubscriptionID = int64Ptr(active)
	return &a, nil
}

// CreateAccount сохраняет новый аккаунт и возвращает его UUID. Пустой
// account.ID заменяется новым UUID v4.
func (s *Storage) CreateAccount(ctx context.Context, account models.Account) (string, error) {
	const op = "storage.CreateAccount"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	query := `INSERT INTO accounts (id, names, email, phone_number, language, country, password_hash, role, has_free_trial)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	var id string
	err := s.DB.QueryRowContext(ctx, query,
		account.ID, account.Names, account.Email, account.PhoneNumber, account.Language, account.Country,
		account.PasswordHash, account.Role, account.HasFreeTrial).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, mapError(err))
	}
	return id, nil
}

// GetAccount возвращает аккаунт по идентификатору.
func (s *Storage) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	const op = "storage.GetAccount"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	account, err := scanAccount(s.DB.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return account, nil
}

// GetAccountByEmail возвращает аккаунт по адресу почты.
func (s *Storage) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	const op = "storage.GetAccountByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	account, err := scanAccount(s.DB.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE lower(email) = lower($1)`, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	return account, nil
}

// UpdateProfile обновляет изменяемые поля профиля. Пустые значения не меняются.
func (s *Storage) UpdateProfile(ctx context.Context, id string, p models.DummyProfile) error {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE accounts SET
				names = COALESCE(NULLIF($2, ''), names),
				phone_number = COALESCE(NULLIF($3, ''), phone_number),
				language = COALESCE(NULLIF($4, ''), language),
				country = COALESCE(NULLIF($5, ''), country)
			  WHERE id = $1`
	res, err := s.DB.ExecContext(ctx, query, id, p.Names, p.PhoneNumber, p.Language, p.Country)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return expectOneRow(op, res)
}

// UpdatePassword заменяет хэш пароля.
func (s *Storage) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE accounts SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapError(err))
	}
	return expectOneRow(op, res)
}

// AccountsWithExpiredInstances возвращает аккаунты, у которых есть экземпляры
// с end_date <= now. Это снимок на момент запроса.
func (s *Storage) AccountsWithExpiredInstances(ctx context.Context, now time.Time) ([]string, error) {
	const op = "storage.AccountsWithExpiredInstances"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT DISTINCT account_id FROM subscription_instances WHERE end_date <= $1 ORDER BY account_id`, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapError(err))
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ids, nil
}

func expectOneRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, mapError(sql.ErrNoRows))
	}
	return nil
}
